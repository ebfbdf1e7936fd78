package commands

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/logger"
	"github.com/duynguyendang/symlog/pkg/mcp"
	"github.com/duynguyendang/symlog/pkg/repl"
	"github.com/duynguyendang/symlog/pkg/server"
)

const shutdownTimeout = 10 * time.Second

var (
	serveAddr string
	replSolve bool
)

// ServeCmd starts the REST API over the projects of the data directory.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

// MCPCmd serves the analysis tools over MCP on stdio.
var MCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve analysis tools to MCP clients on stdio",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

// ReplCmd starts an interactive session, optionally preloading program files.
var ReplCmd = &cobra.Command{
	Use:   "repl [program-file]...",
	Short: "Start an interactive session",
	RunE:  runRepl,
}

func init() {
	ServeCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
	ReplCmd.Flags().BoolVar(&replSolve, "solve", false, "Solve every :symex result")
}

func runServe(cmd *cobra.Command, args []string) error {
	c := settings()
	mgr := newManager(true)

	svc, err := newService(mgr)
	if err != nil {
		return err
	}
	if c.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	addr := serveAddr
	if addr == "" {
		addr = c.Server.Addr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewServer(svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, cancel := signalContext()
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Logger.Infow("REST API listening", "addr", addr, "data_dir", c.DataDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	logger.Logger.Infow("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func runMCP(cmd *cobra.Command, args []string) error {
	mgr := newManager(true)

	svc, err := newService(mgr)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return mcp.Run(ctx, svc)
}

func runRepl(cmd *cobra.Command, args []string) error {
	mgr := newManager(true)

	svc, err := newService(mgr)
	if err != nil {
		return err
	}
	cfg := repl.DefaultConfig()
	cfg.Solve = replSolve || settings().Analysis.Solve

	var in io.Reader = os.Stdin
	if len(args) > 0 {
		var preload strings.Builder
		for _, path := range args {
			preload.WriteString(":load " + path + "\n")
		}
		in = io.MultiReader(strings.NewReader(preload.String()), os.Stdin)
	}

	ctx, cancel := signalContext()
	defer cancel()
	return repl.Run(ctx, svc, cfg, in, os.Stdout)
}

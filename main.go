package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/duynguyendang/symlog/internal/commands"
	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/config"
	"github.com/duynguyendang/symlog/pkg/logger"
)

var (
	configFile string
	logLevel   string
	jsonLogs   bool
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "symlog",
	Short: "Symbolic provenance for Datalog programs",
	Long: `symlog - symbolic provenance for Datalog.

Facts may carry unknown constants ($alpha) and unknown truth values (?edge("a", "b")).
symlog infers relation types and computes, for each target fact, the condition under
which the program derives it.

Available commands:
  types   - Infer Souffle relation declarations
  symex   - Compute the provenance formula of each target
  solve   - Check target formulas with the SAT solver
  export  - Write provenance as a D3 graph
  facts   - Manage a persistent fact store
  serve   - Run the REST API over a project directory
  mcp     - Serve the analysis tools over MCP on stdio
  repl    - Start an interactive session

Examples:
  symlog types prog.dl
  symlog symex prog.dl -t 'path("a", "c")'
  symlog solve data/demo
  symlog serve --data-dir ./data`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if flags.Changed("json-logs") {
			cfg.Log.JSON = jsonLogs
		}
		if flags.Changed("data-dir") {
			cfg.DataDir = dataDir
		}
		if err := logger.Initialize(cfg.Log.Level, cfg.Log.JSON); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		if cfg.Log.Level == "debug" {
			pterm.EnableDebugMessages()
		}
		commands.Setup(cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default ./.symlog.yaml or ~/.symlog.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding one sub-directory per project")

	rootCmd.AddCommand(commands.TypesCmd)
	rootCmd.AddCommand(commands.SymexCmd)
	rootCmd.AddCommand(commands.SolveCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.FactsCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.MCPCmd)
	rootCmd.AddCommand(commands.ReplCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		for _, hint := range errors.GetAllHints(err) {
			pterm.Info.Println(hint)
		}
		os.Exit(1)
	}
}

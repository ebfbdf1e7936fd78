// Package mcp exposes symlog analyses as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/logger"
	"github.com/duynguyendang/symlog/pkg/service"
	"github.com/duynguyendang/symlog/pkg/typeanalysis"
)

// SyntaxURI is the resource describing the program syntax.
const SyntaxURI = "symlog://syntax"

const syntaxGuide = `# symlog program syntax

Rules and facts end with a period. Comments start with // or #.

    t(X, Z) :- r(X, Y), s(Y, Z).   // rule
    r("a", "b").                    // fact
    s(1, 2).                        // numbers are signed 64-bit integers
    r($alpha, "b").                 // $alpha is an unknown constant (type symbol)
    s($n:number, 3).                // typed unknown constant
    ?r("a", "b").                   // a fact whose truth is unknown

Variables start with an upper-case letter or "_". Targets are concrete facts such as t("a", "c").
Formulas combine equality atoms ($alpha = "a") and sign atoms (r("a", "b")) with & and |.
`

// MCPServer wraps the analysis service to expose it via MCP.
type MCPServer struct {
	service *service.Service
}

// NewServer builds the MCP server with every tool and resource registered.
func NewServer(svc *service.Service) *server.MCPServer {
	s := server.NewMCPServer(
		"symlog",
		"0.1.0",
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)
	ms := &MCPServer{service: svc}

	// --- Resources ---

	s.AddResource(
		mcp.NewResource(
			SyntaxURI,
			"Program Syntax",
			mcp.WithResourceDescription("Syntax of symlog programs, facts and targets"),
			mcp.WithMIMEType("text/markdown"),
		),
		ms.handleSyntax,
	)

	// --- Tools ---

	s.AddTool(
		mcp.NewTool(
			"infer_types",
			mcp.WithDescription("Infer the argument types of every relation of a program, as Souffle .decl lines."),
			mcp.WithString("program", mcp.Required(), mcp.Description("Program text")),
			mcp.WithString("seed_policy", mcp.Description("merge (default) or last-write-wins")),
		),
		ms.handleInferTypes,
	)

	s.AddTool(
		mcp.NewTool(
			"symex",
			mcp.WithDescription("Compute the condition under which each target fact is derived."),
			mcp.WithString("program", mcp.Required(), mcp.Description("Program text")),
			mcp.WithString("targets", mcp.Required(), mcp.Description("Comma separated target facts, e.g. t(\"a\", \"c\")")),
		),
		ms.handleSymex,
	)

	s.AddTool(
		mcp.NewTool(
			"solve",
			mcp.WithDescription("Check each target condition with a SAT solver and return a witness."),
			mcp.WithString("program", mcp.Required(), mcp.Description("Program text")),
			mcp.WithString("targets", mcp.Required(), mcp.Description("Comma separated target facts")),
		),
		ms.handleSolve,
	)

	s.AddTool(
		mcp.NewTool(
			"list_projects",
			mcp.WithDescription("List the projects available on this server."),
		),
		ms.handleListProjects,
	)

	s.AddTool(
		mcp.NewTool(
			"analyze_project",
			mcp.WithDescription("Analyse a project against the targets of its manifest."),
			mcp.WithString("project", mcp.Required(), mcp.Description("Project ID")),
			mcp.WithBoolean("solve", mcp.Description("Also solve every target condition")),
		),
		ms.handleAnalyzeProject,
	)

	return s
}

// Run starts the MCP server on Stdio.
func Run(ctx context.Context, svc *service.Service) error {
	logger.Logger.Infow("Starting MCP server on Stdio")
	return server.ServeStdio(NewServer(svc))
}

// --- Resource Handlers ---

func (ms *MCPServer) handleSyntax(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/markdown",
			Text:     syntaxGuide,
		},
	}, nil
}

// --- Tool Handlers ---

func parseRequest(args map[string]any, needTargets bool) (service.Request, error) {
	src, _ := args["program"].(string)
	if strings.TrimSpace(src) == "" {
		return service.Request{}, fmt.Errorf("program argument required")
	}
	p, err := datalog.ParseProgram(src)
	if err != nil {
		return service.Request{}, err
	}
	req := service.Request{Program: p}

	if raw, _ := args["targets"].(string); raw != "" {
		if req.Targets, err = datalog.ParseTargets(raw); err != nil {
			return service.Request{}, err
		}
	}
	if needTargets && len(req.Targets) == 0 {
		return service.Request{}, fmt.Errorf("targets argument required")
	}
	if raw, _ := args["seed_policy"].(string); raw != "" {
		policy, ok := typeanalysis.ParseSeedPolicy(raw)
		if !ok {
			return service.Request{}, fmt.Errorf("unknown seed policy %q", raw)
		}
		req.SeedPolicy = policy
	}
	return req, nil
}

func (ms *MCPServer) handleInferTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseRequest(request.GetArguments(), false)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	types, err := ms.service.Types(req.Program, req.SeedPolicy)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("type inference failed: %v", err)), nil
	}
	return mcp.NewToolResultText(types.Souffle), nil
}

func (ms *MCPServer) handleSymex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseRequest(request.GetArguments(), true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report, err := ms.service.Analyze(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("symbolic execution failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatReport(report, false)), nil
}

func (ms *MCPServer) handleSolve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseRequest(request.GetArguments(), true)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req.Solve = true
	report, err := ms.service.Analyze(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("solving failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatReport(report, true)), nil
}

func (ms *MCPServer) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := ms.service.ListProjects()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing projects failed: %v", err)), nil
	}
	jsonBytes, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("failed to marshal projects"), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (ms *MCPServer) handleAnalyzeProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	id, ok := args["project"].(string)
	if !ok || id == "" {
		return mcp.NewToolResultError("project argument required"), nil
	}
	solve, _ := args["solve"].(bool)

	report, err := ms.service.AnalyzeProject(ctx, id, solve)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("analysis failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatReport(report, solve)), nil
}

// formatReport renders one line per target: the target, then its formula or solver outcome.
func formatReport(r *service.Report, outcomes bool) string {
	var sb strings.Builder
	for _, t := range r.Targets {
		sb.WriteString(t.Target)
		sb.WriteString(" <- ")
		if outcomes && t.Outcome != nil {
			sb.WriteString(t.Outcome.String())
		} else {
			sb.WriteString(t.Formula)
		}
		sb.WriteByte('\n')
	}
	for _, m := range r.Missing {
		sb.WriteString(m)
		sb.WriteString(" <- false")
		if hints := r.Suggestions[relationOf(m)]; len(hints) > 0 {
			sb.WriteString(" (did you mean " + strings.Join(hints, ", ") + "?)")
		}
		sb.WriteByte('\n')
	}
	if sb.Len() == 0 {
		return "No targets."
	}
	return sb.String()
}

func relationOf(fact string) string {
	name, _, _ := strings.Cut(strings.TrimPrefix(fact, "?"), "(")
	return name
}

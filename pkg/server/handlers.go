package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/datalog"
	"github.com/duynguyendang/symlog/pkg/export"
	"github.com/duynguyendang/symlog/pkg/program"
	"github.com/duynguyendang/symlog/pkg/service"
	"github.com/duynguyendang/symlog/pkg/typeanalysis"
)

// analysisRequest is the body of the program endpoints.
type analysisRequest struct {
	Program    string   `json:"program" binding:"required"`
	Targets    []string `json:"targets"`
	SeedPolicy string   `json:"seed_policy"`
	Solve      bool     `json:"solve"`
	MaxRounds  int      `json:"max_rounds"`
	// Export only.
	Pattern    string `json:"pattern"`
	SkipDirect bool   `json:"skip_direct"`
}

func (r *analysisRequest) toService() (service.Request, error) {
	p, err := datalog.ParseProgram(r.Program)
	if err != nil {
		return service.Request{}, err
	}
	var policy typeanalysis.SeedPolicy
	if r.SeedPolicy != "" {
		var ok bool
		if policy, ok = typeanalysis.ParseSeedPolicy(r.SeedPolicy); !ok {
			return service.Request{}, errors.Wrapf(errors.ErrInvalidInput, "unknown seed policy %q", r.SeedPolicy)
		}
	}
	var targets []program.Fact
	for _, t := range r.Targets {
		ts, err := datalog.ParseTargets(t)
		if err != nil {
			return service.Request{}, err
		}
		targets = append(targets, ts...)
	}
	return service.Request{
		Program:    p,
		Targets:    targets,
		SeedPolicy: policy,
		Solve:      r.Solve,
		MaxRounds:  r.MaxRounds,
	}, nil
}

func bindAnalysis(c *gin.Context) (service.Request, bool) {
	var body analysisRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return service.Request{}, false
	}
	req, err := body.toService()
	if err != nil {
		handleError(c, err)
		return service.Request{}, false
	}
	return req, true
}

// handleProjects returns a list of available projects.
func (s *Server) handleProjects(c *gin.Context) {
	projects, err := s.service.ListProjects()
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

// handleProjectReport analyses a project against its manifest targets.
func (s *Server) handleProjectReport(c *gin.Context) {
	solve := c.Query("solve") == "true"
	report, err := s.service.AnalyzeProject(c.Request.Context(), c.Param("id"), solve)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleReport returns a previously computed report.
func (s *Server) handleReport(c *gin.Context) {
	report, err := s.service.Report(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleTypes infers the declarations of a program.
func (s *Server) handleTypes(c *gin.Context) {
	req, ok := bindAnalysis(c)
	if !ok {
		return
	}
	types, err := s.service.Types(req.Program, req.SeedPolicy)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

// handleSymex computes the provenance of the requested targets.
func (s *Server) handleSymex(c *gin.Context) {
	req, ok := bindAnalysis(c)
	if !ok {
		return
	}
	if len(req.Targets) == 0 {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing targets", nil))
		return
	}
	report, err := s.service.Analyze(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// handleExport returns the derivation graph of the requested targets.
func (s *Server) handleExport(c *gin.Context) {
	var body analysisRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}
	req, err := body.toService()
	if err != nil {
		handleError(c, err)
		return
	}
	report, err := s.service.Analyze(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}

	tr := export.NewD3Transformer(req.Program.Rules)
	tr.SkipDirect = body.SkipDirect
	graph, err := tr.Transform(c.Request.Context(), report.Result, strings.TrimSpace(body.Pattern))
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	resp := gin.H{"error": appErr.Message}
	if hints := errors.GetAllHints(err); len(hints) > 0 {
		resp["hints"] = hints
	}
	c.JSON(appErr.Code, resp)
}

package service

import (
	"context"

	"github.com/duynguyendang/symlog/internal/manager"
	"github.com/duynguyendang/symlog/pkg/common/errors"
	"github.com/duynguyendang/symlog/pkg/project"
	"github.com/duynguyendang/symlog/pkg/typeanalysis"
)

// ListProjects returns the projects of the manager.
func (s *Service) ListProjects() ([]manager.ProjectMetadata, error) {
	if s.manager == nil {
		return []manager.ProjectMetadata{}, nil
	}
	return s.manager.List()
}

// AnalyzeProject analyses a managed project against the targets of its manifest.
func (s *Service) AnalyzeProject(ctx context.Context, projectID string, solveFormulas bool) (*Report, error) {
	p, err := s.getProject(projectID)
	if err != nil {
		return nil, err
	}
	req := Request{
		Program: p.Program,
		Targets: p.Targets,
		Solve:   solveFormulas,
	}
	if p.Manifest.SeedPolicy != "" {
		policy, ok := typeanalysis.ParseSeedPolicy(p.Manifest.SeedPolicy)
		if !ok {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "project %s: unknown seed policy %q", projectID, p.Manifest.SeedPolicy)
		}
		req.SeedPolicy = policy
	}

	r, err := s.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	r.Project = projectID
	return r, nil
}

func (s *Service) getProject(projectID string) (*project.Project, error) {
	if projectID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "missing project ID")
	}
	if s.manager == nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "project %s", projectID)
	}
	return s.manager.Get(projectID)
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/duynguyendang/symlog/pkg/service"
)

// Server holds the state for the REST API server.
type Server struct {
	service *service.Service
	router  *gin.Engine
}

// NewServer creates a new Server instance.
func NewServer(svc *service.Service) *Server {
	r := gin.Default()
	s := &Server{
		service: svc,
		router:  r,
	}
	s.setupRoutes()
	return s
}

// Run starts the server on the specified address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router, e.g. for an http.Server with timeouts.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/v1")
	v1.GET("/projects", s.handleProjects)
	v1.GET("/projects/:id/report", s.handleProjectReport)
	v1.GET("/reports/:id", s.handleReport)
	v1.POST("/types", s.handleTypes)
	v1.POST("/symex", s.handleSymex)
	v1.POST("/export", s.handleExport)
}

// Health check
func (s *Server) healthCheck(c *gin.Context) {
	c.Status(http.StatusOK)
}

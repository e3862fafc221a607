package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/database"
	"github.com/openagora/agora/pkg/orchestrator"
	"github.com/openagora/agora/pkg/policy"
	"github.com/openagora/agora/pkg/provenance"
	"github.com/openagora/agora/pkg/registry"
	"github.com/openagora/agora/pkg/services"
)

// Server is the HTTP layer. It owns the Echo router and the underlying
// http.Server, and delegates all domain work to the orchestrator and the
// services wired in at startup.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg            *config.Config
	dbClient       *database.Client
	orchestrator   *orchestrator.Orchestrator
	jobService     *services.JobService
	listingService *services.ListingService

	// Optional surfaces, injected via Set* after construction.
	versionService *services.VersionService
	policyEngine   *policy.Engine
	registry       *registry.Registry
	provenance     *provenance.Service
}

// NewServer creates the API server and registers all routes.
func NewServer(
	cfg *config.Config,
	dbClient *database.Client,
	orch *orchestrator.Orchestrator,
	jobService *services.JobService,
	listingService *services.ListingService,
) *Server {
	e := echo.New()

	s := &Server{
		echo:           e,
		cfg:            cfg,
		dbClient:       dbClient,
		orchestrator:   orch,
		jobService:     jobService,
		listingService: listingService,
	}

	e.Use(securityHeaders())
	s.registerRoutes()

	return s
}

// SetVersionService wires the version registry surface.
func (s *Server) SetVersionService(vs *services.VersionService) {
	s.versionService = vs
}

// SetPolicyEngine wires the policy admin surface.
func (s *Server) SetPolicyEngine(e *policy.Engine) {
	s.policyEngine = e
}

// SetRegistry wires the external agent admin surface.
func (s *Server) SetRegistry(r *registry.Registry) {
	s.registry = r
}

// SetProvenance wires the provenance query surface.
func (s *Server) SetProvenance(p *provenance.Service) {
	s.provenance = p
}

// registerRoutes attaches every handler to the router. Admin routes share
// the requireAdmin middleware; everything else is tenant-scoped via headers.
func (s *Server) registerRoutes() {
	e := s.echo

	// Liveness probe, unauthenticated and dependency-free.
	e.GET("/healthz", s.healthzHandler)
	e.GET("/health", s.healthzHandler)

	// WebSocket endpoint lives outside /api/v1.
	e.GET("/ws", s.wsHandler)

	v1 := e.Group("/api/v1")

	// Jobs.
	v1.POST("/jobs", s.submitJobHandler)
	v1.GET("/jobs", s.listJobsHandler)
	v1.GET("/jobs/:id", s.getJobHandler)
	v1.POST("/jobs/:id/cancel", s.cancelJobHandler)
	v1.GET("/jobs/:id/events", s.jobEventsHandler)

	// Marketplace discovery and execution.
	v1.GET("/agents", s.listAgentsHandler)
	v1.GET("/agents/:id", s.getAgentHandler)
	v1.POST("/agents/:id/run", s.runAgentHandler)
	v1.POST("/agents/:id/stream", s.streamAgentHandler)

	// Operational visibility.
	v1.GET("/queue/stats", s.queueStatsHandler)
	v1.GET("/system/health", s.systemHealthHandler)

	// Admin surface.
	admin := v1.Group("", s.requireAdmin)
	admin.POST("/policies", s.createPolicyHandler)
	admin.GET("/policies", s.listPoliciesHandler)
	admin.GET("/policies/:id", s.getPolicyHandler)
	admin.PUT("/policies/:id", s.updatePolicyHandler)
	admin.DELETE("/policies/:id", s.deletePolicyHandler)
	admin.POST("/roles", s.assignRoleHandler)
	admin.DELETE("/roles", s.revokeRoleHandler)
	admin.GET("/roles/:tenant/:subject", s.getRolesHandler)
	admin.GET("/audit", s.auditTrailHandler)
	admin.POST("/versions", s.registerVersionHandler)
	admin.GET("/versions/:id", s.getVersionHandler)
	admin.POST("/versions/:id/deprecate", s.deprecateVersionHandler)
	admin.POST("/versions/:id/sunset", s.sunsetVersionHandler)
	admin.GET("/versions/:id/compatibility", s.checkCompatibilityHandler)
	admin.POST("/external-agents", s.registerExternalAgentHandler)
	admin.GET("/external-agents", s.listExternalAgentsHandler)
	admin.GET("/external-agents/:id", s.getExternalAgentHandler)
	admin.POST("/external-agents/:id/enable", s.enableExternalAgentHandler)
	admin.POST("/external-agents/:id/disable", s.disableExternalAgentHandler)
	admin.DELETE("/external-agents/:id", s.unregisterExternalAgentHandler)
	admin.POST("/listings", s.upsertListingHandler)
	admin.DELETE("/listings/:id", s.deleteListingHandler)
	admin.GET("/provenance", s.provenanceHandler)
	admin.GET("/provenance/stats", s.provenanceStatsHandler)
}

// Start begins serving on addr. Blocks until the server stops; returns
// http.ErrServerClosed after a clean Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

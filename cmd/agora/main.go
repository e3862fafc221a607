// Agora marketplace server — provides the HTTP API, runs the fair queue
// workers, and dispatches jobs to local and external agents.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openagora/agora/pkg/agents"
	"github.com/openagora/agora/pkg/api"
	"github.com/openagora/agora/pkg/cleanup"
	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/database"
	"github.com/openagora/agora/pkg/orchestrator"
	"github.com/openagora/agora/pkg/policy"
	"github.com/openagora/agora/pkg/provenance"
	"github.com/openagora/agora/pkg/proxy"
	"github.com/openagora/agora/pkg/queue"
	"github.com/openagora/agora/pkg/registry"
	"github.com/openagora/agora/pkg/services"
	"github.com/openagora/agora/pkg/streams"
	"github.com/openagora/agora/pkg/tokenizer"
	"github.com/openagora/agora/pkg/webhooks"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	slog.Info("Starting Agora", "config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize database
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 3. Initialize domain services
	jobService := services.NewJobService(dbClient.Client)
	listingService := services.NewListingService(dbClient.Client)
	versionService := services.NewVersionService(dbClient.Client, cfg.Versioning)
	provenanceService := provenance.NewService(dbClient.Client)
	slog.Info("Services initialized")

	// 4. Build the fair queue and recover state from the previous process
	quotas := queue.NewQuotaManager(cfg.Queue.DefaultQuotas, cfg.Queue.TenantQuotas, cfg.Queue.RateWindow)
	scheduler := queue.NewScheduler(quotas)

	if err := queue.RecoverStartupOrphans(ctx, dbClient.Client, scheduler); err != nil {
		slog.Error("Failed to recover startup orphans", "error", err)
		// Non-fatal — continue
	}

	// 5. Register agents: the external registry plus the built-in locals
	agentRegistry := registry.NewRegistry(cfg.Proxy)
	for _, seed := range cfg.ExternalAgents {
		if _, err := agentRegistry.Register(ctx, seed); err != nil {
			slog.Error("Failed to register external agent", "agent_id", seed.ID, "error", err)
			os.Exit(1)
		}
	}

	localAgents := agents.NewRegistry()
	if err := localAgents.Register(agents.EchoAgent{}); err != nil {
		slog.Error("Failed to register echo agent", "error", err)
		os.Exit(1)
	}
	if err := localAgents.Register(agents.WordStatsAgent{}); err != nil {
		slog.Error("Failed to register word-stats agent", "error", err)
		os.Exit(1)
	}

	// Note: grpc.NewClient uses lazy dialing; actual connection happens on first RPC call
	runnerAddr := getEnv("RUNNER_SERVICE_ADDR", "localhost:50051")
	runnerAgent, err := agents.NewRunnerAgent("runner", getEnv("RUNNER_MODEL", "runner-large"), runnerAddr)
	if err != nil {
		slog.Error("Failed to initialize runner agent", "addr", runnerAddr, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := runnerAgent.Close(); err != nil {
			slog.Error("Error closing runner agent", "error", err)
		}
	}()
	if err := localAgents.Register(runnerAgent); err != nil {
		slog.Error("Failed to register runner agent", "error", err)
		os.Exit(1)
	}
	slog.Info("Agents registered",
		"external", len(cfg.ExternalAgents),
		"local", len(localAgents.IDs()),
		"runner_addr", runnerAddr)

	agentProxy := proxy.NewProxy(agentRegistry, cfg.Proxy)

	// 6. Start the policy engine and apply configured seeds
	policyEngine := policy.NewEngine(dbClient.Client, cfg.Policy)
	if err := policyEngine.Start(ctx); err != nil {
		slog.Error("Failed to start policy engine", "error", err)
		os.Exit(1)
	}
	if err := policyEngine.Seed(ctx, cfg.Policies); err != nil {
		slog.Error("Failed to seed policies", "error", err)
		os.Exit(1)
	}

	for _, seed := range cfg.Versions {
		if _, err := versionService.Register(ctx, seed); err != nil {
			slog.Error("Failed to seed version", "artifact_id", seed.ArtifactID, "error", err)
			os.Exit(1)
		}
	}
	versionService.StartSweeper()

	for _, seed := range cfg.Listings {
		if _, err := listingService.Upsert(ctx, seed); err != nil {
			slog.Error("Failed to seed listing", "agent_id", seed.AgentID, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Marketplace seeds applied",
		"policies", len(cfg.Policies),
		"versions", len(cfg.Versions),
		"listings", len(cfg.Listings))

	// 7. Streaming, tokenizer, and webhook infrastructure
	hub := streams.NewHub(streams.Config{
		SubscriberBuffer: cfg.Streams.SubscriberBuffer,
		ReplayBuffer:     cfg.Streams.ReplayBuffer,
	})
	tokenizerService := tokenizer.NewService()
	webhookDispatcher := webhooks.NewDispatcher(cfg.Webhooks)
	webhookDispatcher.Start()

	// 8. Start the orchestrator and its worker pool
	orch := orchestrator.New(orchestrator.Deps{
		Jobs:     jobService,
		Listings: listingService,
		Versions: versionService,
		Policies: policyEngine,

		Agents:   localAgents,
		Registry: agentRegistry,
		Proxy:    agentProxy,

		Scheduler:  scheduler,
		Hub:        hub,
		Tokenizer:  tokenizerService,
		Provenance: provenanceService,
		Webhooks:   webhookDispatcher,

		QueueConfig:     cfg.Queue,
		StreamsConfig:   cfg.Streams,
		TokenizerConfig: cfg.Tokenizer,
	})
	if err := orch.Start(ctx); err != nil {
		slog.Error("Failed to start worker pool", "error", err)
		os.Exit(1)
	}

	// 8a. Retention cleanup loop
	cleanupService := cleanup.NewService(cfg.Retention, jobService, provenanceService, policyEngine)
	cleanupService.Start(ctx)

	// 9. Create and start the HTTP server (non-blocking)
	httpServer := api.NewServer(cfg, dbClient, orch, jobService, listingService)
	httpServer.SetVersionService(versionService)
	httpServer.SetPolicyEngine(policyEngine)
	httpServer.SetRegistry(agentRegistry)
	httpServer.SetProvenance(provenanceService)

	errCh := make(chan error, 1)
	go func() {
		addr := cfg.Server.Addr()
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Agora started successfully",
		"workers", cfg.Queue.WorkerCount,
		"addr", cfg.Server.Addr())

	// 10. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 11. Graceful shutdown
	cleanupService.Stop()

	// Drain the worker pool (wait for active runs to complete)
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Queue.GracefulShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		orch.Stop()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Worker pool stopped gracefully")
	case <-shutdownCtx.Done():
		slog.Warn("Shutdown timeout exceeded — incomplete runs will be orphan-recovered")
	}

	webhookDispatcher.Stop()
	versionService.StopSweeper()
	policyEngine.Stop()
	agentRegistry.Stop()

	// Stop HTTP server with its own timeout budget
	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}

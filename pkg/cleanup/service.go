// Package cleanup provides data retention and cleanup services.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/policy"
	"github.com/openagora/agora/pkg/provenance"
	"github.com/openagora/agora/pkg/services"
)

// Service periodically enforces retention policies:
//   - Deletes settled jobs past the job retention window
//   - Deletes provenance records past the provenance retention window
//   - Deletes policy audit rows past the audit retention window
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config       *config.RetentionConfig
	jobService   *services.JobService
	provenance   *provenance.Service
	policyEngine *policy.Engine

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(
	cfg *config.RetentionConfig,
	jobService *services.JobService,
	provenanceService *provenance.Service,
	policyEngine *policy.Engine,
) *Service {
	return &Service{
		config:       cfg,
		jobService:   jobService,
		provenance:   provenanceService,
		policyEngine: policyEngine,
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Cleanup service started",
		"job_retention_days", s.config.JobRetentionDays,
		"provenance_retention_days", s.config.ProvenanceRetentionDays,
		"audit_retention_days", s.config.AuditRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.purgeTerminalJobs(ctx)
	s.purgeProvenance(ctx)
	s.purgeAudits(ctx)
}

func (s *Service) purgeTerminalJobs(_ context.Context) {
	count, err := s.jobService.PurgeTerminal(context.Background(), s.config.JobRetentionDays)
	if err != nil {
		slog.Error("Retention: job purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged settled jobs", "count", count)
	}
}

func (s *Service) purgeProvenance(_ context.Context) {
	count, err := s.provenance.Purge(context.Background(), s.config.ProvenanceRetentionDays)
	if err != nil {
		slog.Error("Retention: provenance purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged provenance records", "count", count)
	}
}

func (s *Service) purgeAudits(_ context.Context) {
	count, err := s.policyEngine.PurgeAudits(context.Background(), s.config.AuditRetentionDays)
	if err != nil {
		slog.Error("Retention: policy audit purge failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("Retention: purged policy audits", "count", count)
	}
}

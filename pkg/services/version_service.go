package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/openagora/agora/ent"
	"github.com/openagora/agora/ent/versionrecord"
	"github.com/openagora/agora/pkg/config"
	"github.com/openagora/agora/pkg/models"
)

// VersionService tracks the active/deprecated/sunset lifecycle of agents and
// tools. A background sweeper moves deprecated artifacts past their sunset
// date to sunset.
type VersionService struct {
	client *ent.Client
	config *config.VersioningConfig

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// NewVersionService creates a new VersionService.
func NewVersionService(client *ent.Client, cfg *config.VersioningConfig) *VersionService {
	if cfg == nil {
		cfg = config.DefaultVersioningConfig()
	}
	return &VersionService{
		client: client,
		config: cfg,
		stopCh: make(chan struct{}),
	}
}

// Register creates the version record for an artifact, or replaces an
// existing one: re-registering resets the lifecycle to active and clears any
// deprecation bookkeeping, which is how a new release of a deprecated
// artifact comes back.
func (s *VersionService) Register(ctx context.Context, req models.RegisterVersionRequest) (*ent.VersionRecord, error) {
	if req.ArtifactID == "" {
		return nil, NewValidationError("artifact_id", "required")
	}
	if req.Kind != "agent" && req.Kind != "tool" {
		return nil, NewValidationError("kind", "must be 'agent' or 'tool'")
	}
	if _, err := semver.NewVersion(req.Version); err != nil {
		return nil, NewValidationError("version", fmt.Sprintf("invalid semver %q", req.Version))
	}
	if req.MinCompatibleVersion != "" {
		if _, err := semver.NewVersion(req.MinCompatibleVersion); err != nil {
			return nil, NewValidationError("min_compatible_version", fmt.Sprintf("invalid semver %q", req.MinCompatibleVersion))
		}
	}

	builder := s.client.VersionRecord.Create().
		SetID(req.ArtifactID).
		SetKind(versionrecord.Kind(req.Kind)).
		SetVersion(req.Version).
		SetStatus(versionrecord.StatusActive)
	if req.MinCompatibleVersion != "" {
		builder.SetMinCompatibleVersion(req.MinCompatibleVersion)
	}

	rec, err := builder.Save(ctx)
	if err == nil {
		return rec, nil
	}
	if !ent.IsConstraintError(err) {
		return nil, fmt.Errorf("failed to register version: %w", err)
	}

	update := s.client.VersionRecord.UpdateOneID(req.ArtifactID).
		SetKind(versionrecord.Kind(req.Kind)).
		SetVersion(req.Version).
		SetStatus(versionrecord.StatusActive).
		ClearDeprecatedAt().
		ClearReason().
		ClearReplacementID().
		ClearSunsetDate()
	if req.MinCompatibleVersion != "" {
		update.SetMinCompatibleVersion(req.MinCompatibleVersion)
	} else {
		update.ClearMinCompatibleVersion()
	}

	rec, err = update.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to re-register version: %w", err)
	}
	return rec, nil
}

// Get returns an artifact's version record.
func (s *VersionService) Get(ctx context.Context, artifactID string) (*ent.VersionRecord, error) {
	rec, err := s.client.VersionRecord.Get(ctx, artifactID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to get version record: %w", err)
	}
	return rec, nil
}

// Deprecate moves an artifact to deprecated, stamping the deprecation time.
// Without an explicit sunset date, the configured grace period applies.
func (s *VersionService) Deprecate(ctx context.Context, artifactID string, req models.DeprecateRequest) (*ent.VersionRecord, error) {
	rec, err := s.Get(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	if rec.Status == versionrecord.StatusSunset {
		return nil, NewValidationError("status", "artifact is already sunset")
	}

	sunsetDate := req.SunsetDate
	if sunsetDate == nil {
		d := time.Now().AddDate(0, 0, s.config.SunsetPeriodDays)
		sunsetDate = &d
	}

	update := s.client.VersionRecord.UpdateOneID(artifactID).
		SetStatus(versionrecord.StatusDeprecated).
		SetDeprecatedAt(time.Now()).
		SetSunsetDate(*sunsetDate)
	if req.Reason != "" {
		update.SetReason(req.Reason)
	}
	if req.ReplacementID != "" {
		update.SetReplacementID(req.ReplacementID)
	}

	rec, err = update.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to deprecate '%s': %w", artifactID, err)
	}

	slog.Info("Artifact deprecated",
		"artifact_id", artifactID,
		"replacement_id", req.ReplacementID,
		"sunset_date", sunsetDate.Format(time.RFC3339))
	return rec, nil
}

// Sunset retires an artifact immediately.
func (s *VersionService) Sunset(ctx context.Context, artifactID string) (*ent.VersionRecord, error) {
	rec, err := s.client.VersionRecord.UpdateOneID(artifactID).
		SetStatus(versionrecord.StatusSunset).
		Save(ctx)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("failed to sunset '%s': %w", artifactID, err)
	}

	slog.Info("Artifact sunset", "artifact_id", artifactID)
	return rec, nil
}

// ProcessSunsets transitions every deprecated artifact whose sunset date has
// passed. Returns how many were retired.
func (s *VersionService) ProcessSunsets(ctx context.Context) (int, error) {
	count, err := s.client.VersionRecord.Update().
		Where(
			versionrecord.StatusEQ(versionrecord.StatusDeprecated),
			versionrecord.SunsetDateLTE(time.Now()),
		).
		SetStatus(versionrecord.StatusSunset).
		Save(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to process sunsets: %w", err)
	}
	if count > 0 {
		slog.Info("Sunset sweep retired artifacts", "count", count)
	}
	return count, nil
}

// CheckBeforeUse gates execution on the artifact's lifecycle. Artifacts
// without a version record pass freely. Sunset artifacts, and deprecated
// ones past their sunset date, fail with a SunsetError carrying the
// replacement hint; deprecated ones still inside the grace period pass with
// a warning.
func (s *VersionService) CheckBeforeUse(ctx context.Context, artifactID string) (*models.DeprecationWarning, error) {
	rec, err := s.client.VersionRecord.Get(ctx, artifactID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check version record: %w", err)
	}

	replacement := ""
	if rec.ReplacementID != nil {
		replacement = *rec.ReplacementID
	}

	switch rec.Status {
	case versionrecord.StatusSunset:
		return nil, NewSunsetError(artifactID, replacement, rec.SunsetDate)
	case versionrecord.StatusDeprecated:
		if rec.SunsetDate != nil && rec.SunsetDate.Before(time.Now()) {
			return nil, NewSunsetError(artifactID, replacement, rec.SunsetDate)
		}
		warning := &models.DeprecationWarning{
			ArtifactID:    artifactID,
			ReplacementID: replacement,
			SunsetDate:    rec.SunsetDate,
		}
		if rec.Reason != nil {
			warning.Reason = *rec.Reason
		}
		if rec.SunsetDate != nil {
			warning.DaysRemaining = int(time.Until(*rec.SunsetDate).Hours() / 24)
		}
		return warning, nil
	default:
		return nil, nil
	}
}

// CheckCompatibility reports whether a requested version can be served by
// the current artifact version: majors must match, and the requested version
// must not fall below the minimum compatible version when one is set.
func (s *VersionService) CheckCompatibility(ctx context.Context, artifactID, requested string) (*models.CompatibilityResult, error) {
	rec, err := s.Get(ctx, artifactID)
	if err != nil {
		return nil, err
	}

	requestedVer, err := semver.NewVersion(requested)
	if err != nil {
		return nil, NewValidationError("requested", fmt.Sprintf("invalid semver %q", requested))
	}
	currentVer, err := semver.NewVersion(rec.Version)
	if err != nil {
		return nil, fmt.Errorf("stored version %q of '%s' is not valid semver: %w", rec.Version, artifactID, err)
	}

	result := &models.CompatibilityResult{
		ArtifactID: artifactID,
		Requested:  requested,
		Current:    rec.Version,
		Compatible: true,
	}

	if requestedVer.Major() != currentVer.Major() {
		result.Compatible = false
		result.Issues = append(result.Issues,
			fmt.Sprintf("major version mismatch: requested %d, current %d", requestedVer.Major(), currentVer.Major()))
		result.Suggestions = append(result.Suggestions,
			fmt.Sprintf("migrate to version %s", rec.Version))
	}

	if rec.MinCompatibleVersion != nil {
		minVer, err := semver.NewVersion(*rec.MinCompatibleVersion)
		if err != nil {
			return nil, fmt.Errorf("stored min compatible version %q of '%s' is not valid semver: %w",
				*rec.MinCompatibleVersion, artifactID, err)
		}
		if requestedVer.LessThan(minVer) {
			result.Compatible = false
			result.Issues = append(result.Issues,
				fmt.Sprintf("requested version %s is below the minimum compatible version %s", requested, *rec.MinCompatibleVersion))
			result.Suggestions = append(result.Suggestions,
				fmt.Sprintf("upgrade to at least %s", *rec.MinCompatibleVersion))
		}
	}

	return result, nil
}

// StartSweeper launches the periodic sunset sweep. Safe to call once;
// subsequent calls are no-ops.
func (s *VersionService) StartSweeper() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		slog.Warn("Version sweeper already started")
		return
	}
	s.started = true

	s.wg.Add(1)
	go s.sweep()
	slog.Info("Version sweeper started", "interval", s.config.SweepInterval.String())
}

// StopSweeper stops the periodic sweep and waits for it to exit.
func (s *VersionService) StopSweeper() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *VersionService) sweep() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if _, err := s.ProcessSunsets(ctx); err != nil {
				slog.Error("Sunset sweep failed", "error", err)
			}
			cancel()
		}
	}
}

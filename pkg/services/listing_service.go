package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/openagora/agora/ent"
	"github.com/openagora/agora/ent/listing"
	"github.com/openagora/agora/pkg/models"
)

// Discovery search weights. A query term hitting the name counts most; tag,
// description, and category hits contribute progressively less.
const (
	searchWeightName        = 0.6
	searchWeightTags        = 0.4
	searchWeightDescription = 0.3
	searchWeightCategory    = 0.2
)

// ListingService manages marketplace listings and discovery search.
type ListingService struct {
	client *ent.Client
}

// NewListingService creates a new ListingService.
func NewListingService(client *ent.Client) *ListingService {
	return &ListingService{client: client}
}

// Upsert creates the listing for an agent or updates the existing one.
// Listings are seeded at boot and maintained through the admin API, so the
// write path favors replace-on-conflict.
func (s *ListingService) Upsert(ctx context.Context, req models.UpsertListingRequest) (*ent.Listing, error) {
	if req.AgentID == "" {
		return nil, NewValidationError("agent_id", "required")
	}
	if req.Name == "" {
		return nil, NewValidationError("name", "required")
	}
	if req.Kind != "local" && req.Kind != "external" {
		return nil, NewValidationError("kind", "must be 'local' or 'external'")
	}
	if req.Tier != "" && req.Tier != "free" && req.Tier != "standard" && req.Tier != "premium" {
		return nil, NewValidationError("tier", "must be 'free', 'standard', or 'premium'")
	}

	builder := s.client.Listing.Create().
		SetID(req.AgentID).
		SetName(req.Name).
		SetKind(listing.Kind(req.Kind)).
		SetFeatured(req.Featured)
	if req.Description != "" {
		builder.SetDescription(req.Description)
	}
	if req.Category != "" {
		builder.SetCategory(req.Category)
	}
	if req.Tier != "" {
		builder.SetTier(listing.Tier(req.Tier))
	}
	if req.Tags != nil {
		builder.SetTags(req.Tags)
	}
	if req.InputSchema != nil {
		builder.SetInputSchema(req.InputSchema)
	}
	if req.Capabilities != nil {
		builder.SetCapabilities(req.Capabilities)
	}
	if req.MaxDurationMs > 0 {
		builder.SetMaxDurationMs(req.MaxDurationMs)
	}

	created, err := builder.Save(ctx)
	if err == nil {
		return created, nil
	}
	if !ent.IsConstraintError(err) {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	update := s.client.Listing.UpdateOneID(req.AgentID).
		SetName(req.Name).
		SetKind(listing.Kind(req.Kind)).
		SetFeatured(req.Featured)
	if req.Description != "" {
		update.SetDescription(req.Description)
	}
	if req.Category != "" {
		update.SetCategory(req.Category)
	}
	if req.Tier != "" {
		update.SetTier(listing.Tier(req.Tier))
	}
	if req.Tags != nil {
		update.SetTags(req.Tags)
	}
	if req.InputSchema != nil {
		update.SetInputSchema(req.InputSchema)
	}
	if req.Capabilities != nil {
		update.SetCapabilities(req.Capabilities)
	}
	if req.MaxDurationMs > 0 {
		update.SetMaxDurationMs(req.MaxDurationMs)
	}

	updated, err := update.Save(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update listing: %w", err)
	}
	return updated, nil
}

// Get returns one listing by agent id.
func (s *ListingService) Get(ctx context.Context, agentID string) (*ent.Listing, error) {
	l, err := s.client.Listing.Get(ctx, agentID)
	if err != nil {
		if ent.IsNotFound(err) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return l, nil
}

// List returns listings matching the filters, featured first then by name.
func (s *ListingService) List(ctx context.Context, filters models.ListingFilters) ([]*ent.Listing, error) {
	query := s.client.Listing.Query()

	if filters.Category != "" {
		query = query.Where(listing.CategoryEQ(filters.Category))
	}
	if filters.Tier != "" {
		query = query.Where(listing.TierEQ(listing.Tier(filters.Tier)))
	}
	if filters.Kind != "" {
		query = query.Where(listing.KindEQ(listing.Kind(filters.Kind)))
	}
	if filters.Featured {
		query = query.Where(listing.FeaturedEQ(true))
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	listings, err := query.
		Order(ent.Desc(listing.FieldFeatured), ent.Asc(listing.FieldName)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return listings, nil
}

// Search scores listings against a free-text query. Each field contributes
// its weight when it contains the query (case-insensitive); zero-score
// listings are dropped and hits come back highest first.
func (s *ListingService) Search(ctx context.Context, query string, filters models.ListingFilters) ([]models.ScoredListing, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, NewValidationError("search", "required")
	}

	// Paging applies to the scored result set, not the candidate scan.
	limit, offset := filters.Limit, filters.Offset
	filters.Limit, filters.Offset = 0, 0

	candidates, err := s.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	scored := make([]models.ScoredListing, 0, len(candidates))
	for _, l := range candidates {
		score := scoreListing(l, query)
		if score > 0 {
			scored = append(scored, models.ScoredListing{Listing: l, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if offset > 0 {
		if offset >= len(scored) {
			return []models.ScoredListing{}, nil
		}
		scored = scored[offset:]
	}
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// RecordUse bumps the listing's install counter. Best effort: a miss is
// logged, never surfaced, since marketplace stats must not fail a run.
func (s *ListingService) RecordUse(ctx context.Context, agentID string) {
	err := s.client.Listing.UpdateOneID(agentID).
		AddInstallCount(1).
		Exec(ctx)
	if err != nil && !ent.IsNotFound(err) {
		slog.Warn("Failed to record listing use", "agent_id", agentID, "error", err)
	}
}

// Delete removes a listing.
func (s *ListingService) Delete(ctx context.Context, agentID string) error {
	if err := s.client.Listing.DeleteOneID(agentID).Exec(ctx); err != nil {
		if ent.IsNotFound(err) {
			return ErrListingNotFound
		}
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return nil
}

func scoreListing(l *ent.Listing, query string) float64 {
	var score float64
	if strings.Contains(strings.ToLower(l.Name), query) {
		score += searchWeightName
	}
	for _, tag := range l.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			score += searchWeightTags
			break
		}
	}
	if strings.Contains(strings.ToLower(l.Description), query) {
		score += searchWeightDescription
	}
	if strings.Contains(strings.ToLower(l.Category), query) {
		score += searchWeightCategory
	}
	return score
}

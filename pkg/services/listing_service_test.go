package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openagora/agora/ent/listing"
	"github.com/openagora/agora/pkg/models"
	testdb "github.com/openagora/agora/test/database"
)

func TestListingService_Upsert(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewListingService(client.Client)
	ctx := context.Background()

	t.Run("creates listing with defaults", func(t *testing.T) {
		l, err := service.Upsert(ctx, models.UpsertListingRequest{
			AgentID: "echo",
			Name:    "Echo",
			Kind:    "local",
		})
		require.NoError(t, err)
		assert.Equal(t, "echo", l.ID)
		assert.Equal(t, "general", l.Category)
		assert.Equal(t, listing.TierFree, l.Tier)
		assert.Equal(t, listing.KindLocal, l.Kind)
		assert.False(t, l.Featured)
		assert.Equal(t, 0, l.InstallCount)
	})

	t.Run("updates existing listing in place", func(t *testing.T) {
		_, err := service.Upsert(ctx, models.UpsertListingRequest{
			AgentID:     "summarizer",
			Name:        "Summarizer",
			Description: "first revision",
			Kind:        "external",
			Tier:        "standard",
		})
		require.NoError(t, err)

		service.RecordUse(ctx, "summarizer")

		updated, err := service.Upsert(ctx, models.UpsertListingRequest{
			AgentID:     "summarizer",
			Name:        "Summarizer Pro",
			Description: "second revision",
			Kind:        "external",
			Tier:        "premium",
			Tags:        []string{"text", "nlp"},
			Featured:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, "Summarizer Pro", updated.Name)
		assert.Equal(t, "second revision", updated.Description)
		assert.Equal(t, listing.TierPremium, updated.Tier)
		assert.True(t, updated.Featured)
		assert.Equal(t, []string{"text", "nlp"}, updated.Tags)
		// Usage counter survives republish.
		assert.Equal(t, 1, updated.InstallCount)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := service.Upsert(ctx, models.UpsertListingRequest{Name: "n", Kind: "local"})
		assert.True(t, IsValidationError(err))

		_, err = service.Upsert(ctx, models.UpsertListingRequest{AgentID: "a", Kind: "local"})
		assert.True(t, IsValidationError(err))

		_, err = service.Upsert(ctx, models.UpsertListingRequest{AgentID: "a", Name: "n", Kind: "container"})
		assert.True(t, IsValidationError(err))

		_, err = service.Upsert(ctx, models.UpsertListingRequest{AgentID: "a", Name: "n", Kind: "local", Tier: "platinum"})
		assert.True(t, IsValidationError(err))
	})
}

func TestListingService_List(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewListingService(client.Client)
	ctx := context.Background()

	seed := []models.UpsertListingRequest{
		{AgentID: "zeta", Name: "Zeta", Kind: "local", Category: "text"},
		{AgentID: "alpha", Name: "Alpha", Kind: "local", Category: "text", Featured: true},
		{AgentID: "mid", Name: "Mid", Kind: "external", Category: "vision", Tier: "premium"},
	}
	for _, req := range seed {
		_, err := service.Upsert(ctx, req)
		require.NoError(t, err)
	}

	t.Run("featured first then name", func(t *testing.T) {
		listings, err := service.List(ctx, models.ListingFilters{})
		require.NoError(t, err)
		require.Len(t, listings, 3)
		assert.Equal(t, "alpha", listings[0].ID)
		assert.Equal(t, "mid", listings[1].ID)
		assert.Equal(t, "zeta", listings[2].ID)
	})

	t.Run("filters", func(t *testing.T) {
		listings, err := service.List(ctx, models.ListingFilters{Category: "text"})
		require.NoError(t, err)
		assert.Len(t, listings, 2)

		listings, err = service.List(ctx, models.ListingFilters{Kind: "external"})
		require.NoError(t, err)
		require.Len(t, listings, 1)
		assert.Equal(t, "mid", listings[0].ID)

		listings, err = service.List(ctx, models.ListingFilters{Tier: "premium"})
		require.NoError(t, err)
		require.Len(t, listings, 1)

		listings, err = service.List(ctx, models.ListingFilters{Featured: true})
		require.NoError(t, err)
		require.Len(t, listings, 1)
		assert.Equal(t, "alpha", listings[0].ID)
	})

	t.Run("paging", func(t *testing.T) {
		listings, err := service.List(ctx, models.ListingFilters{Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, listings, 1)
		assert.Equal(t, "zeta", listings[0].ID)
	})
}

func TestListingService_Search(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewListingService(client.Client)
	ctx := context.Background()

	seed := []models.UpsertListingRequest{
		{AgentID: "by-name", Name: "Invoice Parser", Kind: "local"},
		{AgentID: "by-tag", Name: "DocBot", Kind: "local", Tags: []string{"invoice", "pdf"}},
		{AgentID: "by-desc", Name: "Paperwork", Kind: "local", Description: "Extracts totals from invoice scans"},
		{AgentID: "by-category", Name: "Ledger", Kind: "local", Category: "invoice"},
		{AgentID: "unrelated", Name: "Weather", Kind: "local", Description: "Forecasts"},
	}
	for _, req := range seed {
		_, err := service.Upsert(ctx, req)
		require.NoError(t, err)
	}

	t.Run("ranks by weighted field matches", func(t *testing.T) {
		hits, err := service.Search(ctx, "Invoice", models.ListingFilters{})
		require.NoError(t, err)
		require.Len(t, hits, 4)

		assert.Equal(t, "by-name", hits[0].Listing.ID)
		assert.InDelta(t, 0.6, hits[0].Score, 1e-9)
		assert.Equal(t, "by-tag", hits[1].Listing.ID)
		assert.InDelta(t, 0.4, hits[1].Score, 1e-9)
		assert.Equal(t, "by-desc", hits[2].Listing.ID)
		assert.InDelta(t, 0.3, hits[2].Score, 1e-9)
		assert.Equal(t, "by-category", hits[3].Listing.ID)
		assert.InDelta(t, 0.2, hits[3].Score, 1e-9)
	})

	t.Run("scores accumulate across fields", func(t *testing.T) {
		_, err := service.Upsert(ctx, models.UpsertListingRequest{
			AgentID: "stacked",
			Name:    "Invoice Everything",
			Kind:    "local",
			Tags:    []string{"invoice"},
		})
		require.NoError(t, err)

		hits, err := service.Search(ctx, "invoice", models.ListingFilters{})
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, "stacked", hits[0].Listing.ID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	})

	t.Run("paging applies after scoring", func(t *testing.T) {
		hits, err := service.Search(ctx, "Invoice", models.ListingFilters{Limit: 2, Offset: 1})
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "by-name", hits[0].Listing.ID)
		assert.Equal(t, "by-tag", hits[1].Listing.ID)
	})

	t.Run("empty query rejected", func(t *testing.T) {
		_, err := service.Search(ctx, "   ", models.ListingFilters{})
		assert.True(t, IsValidationError(err))
	})
}

func TestListingService_GetAndDelete(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewListingService(client.Client)
	ctx := context.Background()

	_, err := service.Upsert(ctx, models.UpsertListingRequest{
		AgentID: "temp", Name: "Temp", Kind: "local",
	})
	require.NoError(t, err)

	l, err := service.Get(ctx, "temp")
	require.NoError(t, err)
	assert.Equal(t, "Temp", l.Name)

	require.NoError(t, service.Delete(ctx, "temp"))
	_, err = service.Get(ctx, "temp")
	assert.ErrorIs(t, err, ErrListingNotFound)

	_, err = service.Get(ctx, "never-existed")
	assert.ErrorIs(t, err, ErrListingNotFound)
}

func TestListingService_RecordUse(t *testing.T) {
	client := testdb.NewTestClient(t)
	service := NewListingService(client.Client)
	ctx := context.Background()

	_, err := service.Upsert(ctx, models.UpsertListingRequest{
		AgentID: "counted", Name: "Counted", Kind: "local",
	})
	require.NoError(t, err)

	service.RecordUse(ctx, "counted")
	service.RecordUse(ctx, "counted")
	// Unknown ids are ignored.
	service.RecordUse(ctx, "ghost")

	l, err := service.Get(ctx, "counted")
	require.NoError(t, err)
	assert.Equal(t, 2, l.InstallCount)
}

package api

import (
	"errors"
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/openagora/agora/ent"
	entlisting "github.com/openagora/agora/ent/listing"
	"github.com/openagora/agora/pkg/models"
	"github.com/openagora/agora/pkg/services"
)

// AgentListItem is one marketplace entry with its current availability.
// Score is only set on search results.
type AgentListItem struct {
	*ent.Listing
	Available bool    `json:"available"`
	Score     float64 `json:"score,omitempty"`
}

// AgentListResponse is returned by GET /api/v1/agents.
type AgentListResponse struct {
	Agents []AgentListItem `json:"agents"`
	Count  int             `json:"count"`
}

// AgentDetailResponse is returned by GET /api/v1/agents/:id. Agent carries
// the registry snapshot for external agents; Version the deprecation state
// when the artifact is registered.
type AgentDetailResponse struct {
	Listing   *ent.Listing          `json:"listing"`
	Available bool                  `json:"available"`
	Agent     *models.AgentSnapshot `json:"agent,omitempty"`
	Version   *ent.VersionRecord    `json:"version,omitempty"`
}

// listAgentsHandler handles GET /api/v1/agents. With ?search= the results
// are relevance-ranked; otherwise they are filtered and paged.
func (s *Server) listAgentsHandler(c *echo.Context) error {
	var filters models.ListingFilters
	filters.Category = c.QueryParam("category")
	filters.Tier = c.QueryParam("tier")

	if v := c.QueryParam("kind"); v != "" {
		switch v {
		case "local", "external":
			filters.Kind = v
		default:
			return echo.NewHTTPError(http.StatusBadRequest, "invalid kind: must be local or external")
		}
	}
	if v := c.QueryParam("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid featured: must be a bool")
		}
		filters.Featured = featured
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			filters.Limit = n
		} else {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit: must be 1-100")
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filters.Offset = n
		} else {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
	}
	onlyAvailable := false
	if v := c.QueryParam("available"); v != "" {
		avail, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid available: must be a bool")
		}
		onlyAvailable = avail
	}

	var items []AgentListItem
	if query := c.QueryParam("search"); query != "" {
		if len(query) < 2 {
			return echo.NewHTTPError(http.StatusBadRequest, "search query must be at least 2 characters")
		}
		scored, err := s.listingService.Search(c.Request().Context(), query, filters)
		if err != nil {
			return mapServiceError(err)
		}
		items = make([]AgentListItem, 0, len(scored))
		for _, hit := range scored {
			items = append(items, AgentListItem{
				Listing:   hit.Listing,
				Available: s.listingAvailable(hit.Listing),
				Score:     hit.Score,
			})
		}
	} else {
		listings, err := s.listingService.List(c.Request().Context(), filters)
		if err != nil {
			return mapServiceError(err)
		}
		items = make([]AgentListItem, 0, len(listings))
		for _, l := range listings {
			items = append(items, AgentListItem{
				Listing:   l,
				Available: s.listingAvailable(l),
			})
		}
	}

	if onlyAvailable {
		filtered := items[:0]
		for _, it := range items {
			if it.Available {
				filtered = append(filtered, it)
			}
		}
		items = filtered
	}

	return c.JSON(http.StatusOK, &AgentListResponse{Agents: items, Count: len(items)})
}

// getAgentHandler handles GET /api/v1/agents/:id.
func (s *Server) getAgentHandler(c *echo.Context) error {
	agentID := c.Param("id")
	if agentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "agent id is required")
	}

	listing, err := s.listingService.Get(c.Request().Context(), agentID)
	if err != nil {
		return mapServiceError(err)
	}

	resp := &AgentDetailResponse{
		Listing:   listing,
		Available: s.listingAvailable(listing),
	}

	if listing.Kind == entlisting.KindExternal && s.registry != nil {
		if snap, err := s.registry.Snapshot(agentID); err == nil {
			resp.Agent = snap
		}
	}
	if s.versionService != nil {
		rec, err := s.versionService.Get(c.Request().Context(), agentID)
		switch {
		case err == nil:
			resp.Version = rec
		case errors.Is(err, services.ErrVersionNotFound):
			// unversioned agents are fine
		default:
			return mapServiceError(err)
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// listingAvailable reports whether an agent can accept work right now.
// Local agents run in-process and are always dispatchable; external agents
// go through the registry's availability predicate (enabled, circuit
// closed, not saturated, not unhealthy).
func (s *Server) listingAvailable(l *ent.Listing) bool {
	if l.Kind != entlisting.KindExternal {
		return true
	}
	if s.registry == nil {
		return false
	}
	return s.registry.Available(l.ID)
}

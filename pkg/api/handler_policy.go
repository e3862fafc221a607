package api

import (
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/openagora/agora/pkg/models"
)

// RolesResponse is returned by GET /api/v1/roles/:tenant/:subject.
type RolesResponse struct {
	TenantID  string   `json:"tenant_id"`
	SubjectID string   `json:"subject_id"`
	Roles     []string `json:"roles"`
}

// createPolicyHandler handles POST /api/v1/policies.
func (s *Server) createPolicyHandler(c *echo.Context) error {
	if s.policyEngine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "policy engine is not available")
	}

	var req models.PolicyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := s.policyEngine.CreatePolicy(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

// listPoliciesHandler handles GET /api/v1/policies. The tenant query param
// narrows the list; global policies are always included.
func (s *Server) listPoliciesHandler(c *echo.Context) error {
	if s.policyEngine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "policy engine is not available")
	}

	policies, err := s.policyEngine.ListPolicies(c.Request().Context(), c.QueryParam("tenant"))
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, policies)
}

// getPolicyHandler handles GET /api/v1/policies/:id.
func (s *Server) getPolicyHandler(c *echo.Context) error {
	if s.policyEngine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "policy engine is not available")
	}

	policyID := c.Param("id")
	if policyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "policy id is required")
	}

	p, err := s.policyEngine.GetPolicy(c.Request().Context(), policyID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// updatePolicyHandler handles PUT /api/v1/policies/:id.
func (s *Server) updatePolicyHandler(c *echo.Context) error {
	if s.policyEngine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "policy engine is not available")
	}

	policyID := c.Param("id")
	if policyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "policy id is required")
	}

	var req models.PolicyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	updated, err := s.policyEngine.UpdatePolicy(c.Request().Context(), policyID, req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, updated)
}

// deletePolicyHandler handles DELETE /api/v1/policies/:id.
func (s *Server) deletePolicyHandler(c *echo.Context) error {
	if s.policyEngine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "policy engine is not available")
	}

	policyID := c.Param("id")
	if policyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "policy id is required")
	}

	if err := s.policyEngine.DeletePolicy(c.Request().Context(), policyID); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// assignRoleHandler handles POST /api/v1/roles.
func (s *Server) assignRoleHandler(c *echo.Context) error {
	if s.policyEngine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "policy engine is not available")
	}

	var req models.RoleAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	assignment, err := s.policyEngine.AssignRole(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusCreated, assignment)
}

// revokeRoleHandler handles DELETE /api/v1/roles.
func (s *Server) revokeRoleHandler(c *echo.Context) error {
	if s.policyEngine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "policy engine is not available")
	}

	var req models.RoleAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.TenantID == "" || req.SubjectID == "" || req.Role == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tenant_id, subject_id and role are required")
	}

	if err := s.policyEngine.RevokeRole(c.Request().Context(), req.TenantID, req.SubjectID, req.Role); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// getRolesHandler handles GET /api/v1/roles/:tenant/:subject.
func (s *Server) getRolesHandler(c *echo.Context) error {
	if s.policyEngine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "policy engine is not available")
	}

	tenantID := c.Param("tenant")
	subjectID := c.Param("subject")
	if tenantID == "" || subjectID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tenant and subject are required")
	}

	roles, err := s.policyEngine.RolesFor(c.Request().Context(), tenantID, subjectID)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, &RolesResponse{
		TenantID:  tenantID,
		SubjectID: subjectID,
		Roles:     roles,
	})
}

// auditTrailHandler handles GET /api/v1/audit.
func (s *Server) auditTrailHandler(c *echo.Context) error {
	if s.policyEngine == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "policy engine is not available")
	}

	limit := 100
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		} else {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit: must be 1-1000")
		}
	}

	records, err := s.policyEngine.AuditTrail(c.Request().Context(), c.QueryParam("tenant"), limit)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, records)
}

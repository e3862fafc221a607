package api

import (
	"net"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"
)

const (
	tenantHeader = "X-Tenant-ID"
	adminHeader  = "X-Admin-Token"

	// defaultTenant is used when a request carries no tenant header.
	defaultTenant = "default"
)

// requestTenant resolves the tenant a request acts on behalf of.
func requestTenant(c *echo.Context) string {
	if t := c.Request().Header.Get(tenantHeader); t != "" {
		return t
	}
	return defaultTenant
}

// isAdmin reports whether the request carries the configured admin token.
// An empty configured token disables the admin surface entirely.
func (s *Server) isAdmin(c *echo.Context) bool {
	token := ""
	if s.cfg != nil && s.cfg.Server != nil {
		token = s.cfg.Server.AdminToken
	}
	return token != "" && c.Request().Header.Get(adminHeader) == token
}

// requireAdmin rejects requests without a valid admin token.
func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c *echo.Context) error {
		if !s.isAdmin(c) {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return next(c)
	}
}

// extractAuthor extracts the calling user from proxy headers.
// Priority: X-Forwarded-User (oauth2-proxy) > X-Forwarded-Email (oauth2-proxy) >
// X-Remote-User (kube-rbac-proxy) > "api-client"
func extractAuthor(c *echo.Context) string {
	if user := c.Request().Header.Get("X-Forwarded-User"); user != "" {
		return user
	}
	if email := c.Request().Header.Get("X-Forwarded-Email"); email != "" {
		return email
	}
	if user := c.Request().Header.Get("X-Remote-User"); user != "" {
		return user
	}
	return "api-client"
}

// clientIP extracts the originating client address for policy evaluation.
// Priority: X-Forwarded-For first hop > X-Real-Ip > the socket peer.
func clientIP(c *echo.Context) string {
	r := c.Request()
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/openagora/agora/pkg/services"
)

// mapServiceError maps service-layer errors to HTTP error responses.
// Typed errors are checked before sentinel errors so that wrapped values
// carry their detail (field, limit, replacement) into the response body.
func mapServiceError(err error) *echo.HTTPError {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return echo.NewHTTPError(http.StatusBadRequest, validErr.Error())
	}
	var sunsetErr *services.SunsetError
	if errors.As(err, &sunsetErr) {
		return echo.NewHTTPError(http.StatusGone, sunsetErr.Error())
	}
	var quotaErr *services.QuotaError
	if errors.As(err, &quotaErr) {
		return echo.NewHTTPError(http.StatusTooManyRequests, quotaErr.Error())
	}
	var upstreamErr *services.UpstreamError
	if errors.As(err, &upstreamErr) {
		return echo.NewHTTPError(http.StatusBadGateway, upstreamErr.Error())
	}
	var incompatErr *services.IncompatibleError
	if errors.As(err, &incompatErr) {
		return echo.NewHTTPError(http.StatusConflict, incompatErr.Error())
	}

	switch {
	case errors.Is(err, services.ErrJobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "job not found")
	case errors.Is(err, services.ErrAgentNotFound),
		errors.Is(err, services.ErrListingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "agent not found")
	case errors.Is(err, services.ErrPolicyNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "policy not found")
	case errors.Is(err, services.ErrVersionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "version record not found")
	case errors.Is(err, services.ErrPermissionDenied):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotCancellable):
		return echo.NewHTTPError(http.StatusConflict, "job is not in a cancellable state")
	case errors.Is(err, services.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, "resource already exists")
	case errors.Is(err, services.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "operation timed out")
	case errors.Is(err, services.ErrMaxRetriesExceeded):
		return echo.NewHTTPError(http.StatusBadGateway, "upstream agent kept failing")
	case errors.Is(err, services.ErrAgentUnavailable),
		errors.Is(err, services.ErrAgentDisabled):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

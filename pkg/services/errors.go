package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrJobNotFound is returned when a job id does not exist or is not
	// visible to the requesting tenant
	ErrJobNotFound = errors.New("job not found")

	// ErrAgentNotFound is returned when an agent id is not registered
	ErrAgentNotFound = errors.New("agent not found")

	// ErrListingNotFound is returned when a marketplace listing does not exist
	ErrListingNotFound = errors.New("listing not found")

	// ErrPolicyNotFound is returned when a policy id does not exist
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrVersionNotFound is returned when no version record exists for an artifact
	ErrVersionNotFound = errors.New("version record not found")

	// ErrPermissionDenied is returned when the policy engine denies the request
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotCancellable is returned when cancelling a job in a terminal state
	ErrNotCancellable = errors.New("job is not in a cancellable state")

	// ErrAlreadyExists is returned when attempting to create a duplicate entity
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrAgentUnavailable is returned when the availability predicate fails:
	// disabled, circuit broken, unhealthy, or saturated. Callers may retry
	// after a delay
	ErrAgentUnavailable = errors.New("agent unavailable")

	// ErrAgentDisabled is returned when dispatching to an agent whose
	// registration is disabled
	ErrAgentDisabled = errors.New("agent disabled")

	// ErrTimeout is returned when an upstream call or a synchronous wait
	// exceeds its deadline
	ErrTimeout = errors.New("operation timed out")

	// ErrMaxRetriesExceeded is returned when the proxy exhausts its retry
	// budget against a transient upstream failure
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// ValidationError wraps field-specific validation errors
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// SunsetError is returned when an agent or tool past its sunset date is used.
// Replacement carries a migration hint when the version record names one.
type SunsetError struct {
	ArtifactID  string
	Replacement string
	SunsetAt    *time.Time
}

func (e *SunsetError) Error() string {
	if e.Replacement != "" {
		return fmt.Sprintf("'%s' is sunset, use '%s' instead", e.ArtifactID, e.Replacement)
	}
	return fmt.Sprintf("'%s' is sunset", e.ArtifactID)
}

// NewSunsetError creates a sunset error with an optional replacement hint.
func NewSunsetError(artifactID, replacement string, sunsetAt *time.Time) error {
	return &SunsetError{
		ArtifactID:  artifactID,
		Replacement: replacement,
		SunsetAt:    sunsetAt,
	}
}

// QuotaError is returned when an admission limit trips. Limit names which
// quota fired: "pending", "rate", or "concurrent".
type QuotaError struct {
	Tenant string
	Limit  string
	Max    int
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exceeded for tenant '%s': %s limit is %d", e.Tenant, e.Limit, e.Max)
}

// NewQuotaError creates a quota error naming the tripped limit.
func NewQuotaError(tenant, limit string, max int) error {
	return &QuotaError{
		Tenant: tenant,
		Limit:  limit,
		Max:    max,
	}
}

// IsQuotaError checks if an error is a quota error
func IsQuotaError(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// UpstreamError is returned when an external agent rejects a call with a
// non-2xx status. Retryable mirrors the proxy's retryable status set.
type UpstreamError struct {
	AgentID   string
	Status    int
	Body      string
	Retryable bool
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream agent '%s' returned status %d", e.AgentID, e.Status)
}

// NewUpstreamError creates an upstream error for a non-2xx agent response.
func NewUpstreamError(agentID string, status int, body string, retryable bool) error {
	return &UpstreamError{
		AgentID:   agentID,
		Status:    status,
		Body:      body,
		Retryable: retryable,
	}
}

// IncompatibleError is returned when a requested version falls outside an
// artifact's compatibility window.
type IncompatibleError struct {
	ArtifactID string
	Requested  string
	Current    string
	Issues     []string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("version '%s' of '%s' is not compatible with '%s'",
		e.Requested, e.ArtifactID, e.Current)
}

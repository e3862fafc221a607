package proxy

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/openagora/agora/pkg/models"
)

// backoff computes the delay before retry attempt n (1-based):
// min(maxDelay, initial·multiplier^(n−1)) scaled by a jitter factor uniform
// in [0.75, 1.25]. Jitter spreads retries from callers that failed together.
func backoff(policy models.RetryPolicy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	multiplier := policy.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	delay := float64(policy.InitialDelay) * math.Pow(multiplier, float64(attempt-1))
	if policy.MaxDelay > 0 && delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	jitter := 0.75 + rand.Float64()*0.5
	return time.Duration(delay * jitter)
}

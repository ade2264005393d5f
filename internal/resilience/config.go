package resilience

import (
	"time"

	"github.com/sells-group/opterra/internal/config"
)

// FromSeedConfig builds the retry policy for price seeding lookups.
func FromSeedConfig(cfg config.SeedConfig) RetryConfig {
	rc := DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		rc.MaxAttempts = cfg.MaxRetries + 1
	}
	rc.OnRetry = RetryLogger("pricing", "seed lookup")
	return rc
}

// FromGuidanceConfig builds the breaker guarding the guidance API.
func FromGuidanceConfig(cfg config.GuidanceConfig) BreakerConfig {
	cb := DefaultBreakerConfig()
	if cfg.FailureThreshold > 0 {
		cb.Threshold = cfg.FailureThreshold
	}
	if cfg.ResetSecs > 0 {
		cb.Cooldown = time.Duration(cfg.ResetSecs) * time.Second
	}
	return cb
}

// internal/workers/prospect/send-credentials/config.go
package sendcredentials

import (
	"time"

	"prospect-onboarding/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
}

func ConfigFrom(w config.WorkerConfig) *Config {
	c := &Config{Enabled: w.Enabled, MaxJobsActive: 5, Timeout: 30 * time.Second}
	if w.MaxJobsActive > 0 {
		c.MaxJobsActive = w.MaxJobsActive
	}
	if w.Timeout > 0 {
		c.Timeout = time.Duration(w.Timeout) * time.Millisecond
	}
	return c
}

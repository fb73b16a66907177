// internal/workers/meeting/schedule-meetings/config.go
package schedulemeetings

import (
	"time"

	"prospect-onboarding/internal/common/config"
)

type Config struct {
	Enabled         bool
	MaxJobsActive   int
	Timeout         time.Duration
	Location        *time.Location
	DefaultDuration int
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		MaxJobsActive:   5,
		Timeout:         30 * time.Second,
		Location:        time.UTC,
		DefaultDuration: 60,
	}
}

// ConfigFrom builds the worker config from its worker section and the
// onboarding settings shared with the wizard.
func ConfigFrom(w config.WorkerConfig, o config.OnboardingConfig) *Config {
	c := DefaultConfig()
	c.Enabled = w.Enabled
	if w.MaxJobsActive > 0 {
		c.MaxJobsActive = w.MaxJobsActive
	}
	if w.Timeout > 0 {
		c.Timeout = time.Duration(w.Timeout) * time.Millisecond
	}
	c.Location = o.Location()
	if o.DefaultMeetingDuration > 0 {
		c.DefaultDuration = o.DefaultMeetingDuration
	}
	return c
}

package scheduler

import (
	"os"
	"strconv"
	"time"
)

// Config holds scheduler configuration.
type Config struct {
	// Enabled controls whether the scheduler runs.
	Enabled bool

	// AdvanceInterval is how often the poll loop calls Advance on every
	// running session.
	AdvanceInterval time.Duration

	// StaleSessionRecoveryInterval is how often the stale-session
	// recovery task runs.
	StaleSessionRecoveryInterval time.Duration

	// StaleSessionAfter is how long a running session can go without a
	// step transition before it's considered stale. Taken from
	// config.WorkflowConfig.StaleSessionAfter, which module.go passes to
	// NewConfig.
	StaleSessionAfter time.Duration
}

// NewConfig creates a new Config. staleSessionAfter is threaded in from
// internal/config.Config.Workflow.StaleSessionAfter rather than read
// from the environment a second time.
func NewConfig(staleSessionAfter time.Duration) *Config {
	return &Config{
		Enabled:                      getEnvBool("SCHEDULER_ENABLED", true),
		AdvanceInterval:              getEnvDuration("WORKFLOW_ADVANCE_INTERVAL_MS", 2*time.Second),
		StaleSessionRecoveryInterval: getEnvDuration("STALE_SESSION_RECOVERY_INTERVAL_MS", time.Minute),
		StaleSessionAfter:            staleSessionAfter,
	}
}

// getEnvBool returns a boolean from an environment variable.
func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration returns a duration from an environment variable (in milliseconds).
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}

package config

import "time"

// QueueConfig controls the durable priority queue and its worker-facing
// polling/backoff policy.
type QueueConfig struct {
	// MaxRetries is the number of retryable failures a job tolerates
	// before moving to dead_letter.
	MaxRetries int `yaml:"max_retries"`
	// RetryPenalty is subtracted from a job's priority, multiplied by its
	// new retry count, on every retryable failure.
	RetryPenalty int `yaml:"retry_penalty"`
	// PollInterval is how long the processor sleeps after finding no
	// leasable job.
	PollInterval time.Duration `yaml:"poll_interval"`
	// PollBackoff is how long a worker sleeps after a queue database error
	// before retrying Lease.
	PollBackoff time.Duration `yaml:"poll_backoff"`
	// ErrorBackoff is how long the processor sleeps after a fatal handler
	// error before leasing the next job.
	ErrorBackoff time.Duration `yaml:"error_backoff"`
	// StaleThreshold is the age after which a `processing` job is assumed
	// orphaned by a crashed worker and recovered by RecoverStale.
	StaleThreshold time.Duration `yaml:"stale_threshold"`
}

// DefaultQueueConfig returns the normative constants: MAX_RETRIES=3,
// RETRY_PENALTY=20, POLL_INTERVAL=5s, POLL_BACKOFF=10s, ERROR_BACKOFF=10s.
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxRetries:     3,
		RetryPenalty:   20,
		PollInterval:   5 * time.Second,
		PollBackoff:    10 * time.Second,
		ErrorBackoff:   10 * time.Second,
		StaleThreshold: time.Hour,
	}
}

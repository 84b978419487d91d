package config

import "fmt"

// Validator validates configuration comprehensively with clear,
// field-attributed error messages.
type Validator struct {
	cfg *Config
}

// NewValidator creates a validator for the given configuration.
func NewValidator(cfg *Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll performs comprehensive validation (fail-fast — stops at the
// first error), in dependency order: queue, then fetcher (which its
// scheduling buckets must be internally consistent), then filters.
func (v *Validator) ValidateAll() error {
	if err := v.validateQueue(); err != nil {
		return fmt.Errorf("queue validation failed: %w", err)
	}
	if err := v.validateFetcher(); err != nil {
		return fmt.Errorf("fetcher validation failed: %w", err)
	}
	if err := v.validateFilters(); err != nil {
		return fmt.Errorf("filter validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateQueue() error {
	q := v.cfg.Queue
	if q.MaxRetries < 0 {
		return NewValidationError("queue.max_retries", "must be non-negative")
	}
	if q.PollInterval <= 0 {
		return NewValidationError("queue.poll_interval", "must be positive")
	}
	if q.PollBackoff <= 0 {
		return NewValidationError("queue.poll_backoff", "must be positive")
	}
	if q.StaleThreshold <= 0 {
		return NewValidationError("queue.stale_threshold", "must be positive")
	}
	return nil
}

func (v *Validator) validateFetcher() error {
	f := v.cfg.Fetcher
	if f.CitySyncConcurrency < 1 {
		return NewValidationError("fetcher.city_sync_concurrency", "must be at least 1")
	}
	if f.PartitionIdleMin <= 0 || f.PartitionIdleMax < f.PartitionIdleMin {
		return NewValidationError("fetcher.partition_idle_min/max", "min must be positive and max must be >= min")
	}
	if f.SyncInterval <= 0 {
		return NewValidationError("fetcher.sync_interval", "must be positive")
	}
	if f.HighActivityThreshold <= f.MediumActivityThreshold {
		return NewValidationError("fetcher.high_activity_threshold", "must be greater than medium_activity_threshold")
	}
	if f.MinRequestInterval <= 0 {
		return NewValidationError("fetcher.min_request_interval", "must be positive")
	}
	if f.ShutdownGracePeriod <= 0 {
		return NewValidationError("fetcher.shutdown_grace_period", "must be positive")
	}
	for vendor, override := range f.VendorRateLimits {
		if override.MinRequestInterval <= 0 {
			return NewValidationError(fmt.Sprintf("fetcher.vendor_rate_limits[%s].min_request_interval", vendor), "must be positive")
		}
	}
	return nil
}

func (v *Validator) validateFilters() error {
	f := v.cfg.Filters
	for i, p := range f.MeetingSkipPatterns {
		if p == "" {
			return NewValidationError(fmt.Sprintf("filters.meeting_skip_patterns[%d]", i), "must not be empty")
		}
	}
	if f.MaxPageCount <= 0 {
		return NewValidationError("filters.max_page_count", "must be positive")
	}
	if f.OCRRatioThreshold <= 0 || f.OCRRatioThreshold > 1 {
		return NewValidationError("filters.ocr_ratio_threshold", "must be in (0, 1]")
	}
	if f.ExtractionConcurrency < 1 {
		return NewValidationError("filters.extraction_concurrency", "must be at least 1")
	}
	return nil
}

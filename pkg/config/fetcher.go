package config

import "time"

// FetcherConfig controls the sync pass: scheduling policy, concurrency, and
// the inter-vendor-partition idle period.
type FetcherConfig struct {
	// CitySyncConcurrency is how many cities within one vendor partition
	// sync concurrently.
	CitySyncConcurrency int `yaml:"city_sync_concurrency"`
	// PartitionIdleMin/Max bound the sleep inserted between vendor
	// partitions within a single sync pass.
	PartitionIdleMin time.Duration `yaml:"partition_idle_min"`
	PartitionIdleMax time.Duration `yaml:"partition_idle_max"`
	// SyncInterval is how often the conductor's sync loop runs a full pass
	// (: 24h is normative but configurable).
	SyncInterval time.Duration `yaml:"sync_interval"`
	// ShutdownGracePeriod bounds how long the conductor waits for an
	// in-flight sync/process iteration to finish after a shutdown signal
	// before exiting anyway.
	ShutdownGracePeriod time.Duration `yaml:"shutdown_grace_period"`

	// HighActivityThreshold/MediumActivityThreshold bound the 30-day
	// meeting-count buckets that drive per-city eligibility.
	HighActivityThreshold   int `yaml:"high_activity_threshold"`
	MediumActivityThreshold int `yaml:"medium_activity_threshold"`

	HighActivityInterval   time.Duration `yaml:"high_activity_interval"`
	MediumActivityInterval time.Duration `yaml:"medium_activity_interval"`
	LowActivityInterval    time.Duration `yaml:"low_activity_interval"`

	// MinRequestInterval and Burst are the default per-vendor politeness
	// policy; per-vendor overrides live in VendorRateLimits.
	MinRequestInterval time.Duration            `yaml:"min_request_interval"`
	Burst              int                      `yaml:"burst"`
	VendorRateLimits   map[string]VendorRateLimit `yaml:"vendor_rate_limits"`
}

// VendorRateLimit overrides the default politeness policy for one vendor.
type VendorRateLimit struct {
	MinRequestInterval time.Duration `yaml:"min_request_interval"`
	Burst              int           `yaml:"burst"`
}

// DefaultFetcherConfig returns the normative scheduling constants.
func DefaultFetcherConfig() *FetcherConfig {
	return &FetcherConfig{
		CitySyncConcurrency:     2,
		PartitionIdleMin:        30 * time.Second,
		PartitionIdleMax:        40 * time.Second,
		SyncInterval:            24 * time.Hour,
		ShutdownGracePeriod:     30 * time.Second,
		HighActivityThreshold:   8,
		MediumActivityThreshold: 4,
		HighActivityInterval:    12 * time.Hour,
		MediumActivityInterval:  24 * time.Hour,
		LowActivityInterval:     7 * 24 * time.Hour,
		MinRequestInterval:      4 * time.Second,
		Burst:                   1,
	}
}

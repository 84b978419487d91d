package config

import "time"

// YAMLConfig represents the on-disk civicsync.yaml structure.
type YAMLConfig struct {
	Queue   *QueueConfig   `yaml:"queue"`
	Fetcher *FetcherConfig `yaml:"fetcher"`
	Filters *FilterConfig  `yaml:"filters"`
	LLM     *LLMConfig     `yaml:"llm"`
}

// LLMConfig points at the external batch-summarizer service.
type LLMConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Config is the fully loaded, validated, ready-to-use configuration.
type Config struct {
	Queue   *QueueConfig
	Fetcher *FetcherConfig
	Filters *FilterConfig
	LLM     *LLMConfig

	// HasLLMCredentials is set when LLM_API_KEY is present in the
	// environment; its absence marks the Processor as permanently
	// unavailable.
	HasLLMCredentials bool
}

// Stats summarizes the loaded configuration for status output.
type Stats struct {
	MeetingSkipPatterns int
	ItemSkipPatterns    int
	SkipMatterTypes     int
	VendorOverrides     int
}

// Stats reports counts useful for the `status` CLI command and startup logs.
func (c *Config) Stats() Stats {
	return Stats{
		MeetingSkipPatterns: len(c.Filters.MeetingSkipPatterns),
		ItemSkipPatterns:    len(c.Filters.ItemSkipPatterns),
		SkipMatterTypes:     len(c.Filters.SkipMatterTypes),
		VendorOverrides:     len(c.Fetcher.VendorRateLimits),
	}
}

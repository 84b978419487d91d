package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_NoFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultQueueConfig().MaxRetries, cfg.Queue.MaxRetries)
	assert.False(t, cfg.HasLLMCredentials)
}

func TestInitialize_MergesUserOverrides(t *testing.T) {
	dir := t.TempDir()
	yaml := `
queue:
  max_retries: 5
fetcher:
  city_sync_concurrency: 3
filters:
  meeting_skip_patterns:
    - "(?i)canceled"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "civicsync.yaml"), []byte(yaml), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Queue.MaxRetries)
	assert.Equal(t, 3, cfg.Fetcher.CitySyncConcurrency)
	assert.Contains(t, cfg.Filters.MeetingSkipPatterns, "(?i)canceled")
	// Built-in patterns are preserved, not replaced.
	assert.Contains(t, cfg.Filters.MeetingSkipPatterns, `(?i)\btest\b`)
}

func TestInitialize_DetectsLLMCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LLM_API_KEY", "sk-test")
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.True(t, cfg.HasLLMCredentials)
}

func TestInitialize_RejectsInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := "queue:\n  poll_interval: -1s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "civicsync.yaml"), []byte(yaml), 0o644))

	_, err := Initialize(context.Background(), dir)
	assert.Error(t, err)
}

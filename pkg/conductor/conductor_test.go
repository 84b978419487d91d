package conductor

import (
	"context"
	"testing"
	"time"

	"github.com/civicsync/civicsync/pkg/fetcher"
	"github.com/stretchr/testify/assert"
)

func TestInterruptibleSleep_CompletesAfterFullDuration(t *testing.T) {
	c := &Conductor{}
	start := time.Now()
	completed := c.interruptibleSleep(context.Background(), pollResolution)
	assert.True(t, completed)
	assert.GreaterOrEqual(t, time.Since(start), pollResolution)
}

func TestInterruptibleSleep_ReturnsFalseOnCancellation(t *testing.T) {
	c := &Conductor{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	completed := c.interruptibleSleep(ctx, time.Hour)
	assert.False(t, completed)
}

func TestRecordResult_TracksMostRecentPerCity(t *testing.T) {
	c := &Conductor{}
	c.recordResult(fetcher.SyncResult{Banana: "demoCA", Status: "ok", MeetingsFound: 3})
	c.recordResult(fetcher.SyncResult{Banana: "demoCA", Status: "ok", MeetingsFound: 5})
	c.recordResult(fetcher.SyncResult{Banana: "otherNY", Status: "failed"})

	assert.Equal(t, 5, c.lastResults["demoCA"].MeetingsFound)
	assert.Equal(t, "failed", c.lastResults["otherNY"].Status)
}

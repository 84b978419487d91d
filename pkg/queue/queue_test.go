package queue_test

import (
	"context"
	"testing"

	"github.com/civicsync/civicsync/pkg/config"
	"github.com/civicsync/civicsync/pkg/models"
	"github.com/civicsync/civicsync/pkg/queue"
	"github.com/civicsync/civicsync/test/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueue(t *testing.T) *queue.Queue {
	t.Helper()
	cfg := config.DefaultQueueConfig()
	return queue.New(dbtest.NewDB(t), cfg)
}

func TestEnqueue_DeduplicatesOnDedupKey(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	id1, enqueued1, err := q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "m1"}, "meeting://m1", "cityCA", 150)
	require.NoError(t, err)
	assert.True(t, enqueued1)
	assert.NotZero(t, id1)

	_, enqueued2, err := q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "m1"}, "meeting://m1", "cityCA", 150)
	require.NoError(t, err)
	assert.False(t, enqueued2)
}

func TestLease_ClaimsHighestPriorityFirst(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	_, _, err := q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "low"}, "meeting://low", "cityCA", 10)
	require.NoError(t, err)
	_, _, err = q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "high"}, "meeting://high", "cityCA", 100)
	require.NoError(t, err)

	job, err := q.Lease(ctx)
	require.NoError(t, err)
	assert.Equal(t, "meeting://high", job.DedupKey)
	assert.Equal(t, models.JobProcessing, job.Status)
}

func TestLease_EmptyQueueReturnsErrEmpty(t *testing.T) {
	q := testQueue(t)
	_, err := q.Lease(context.Background())
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestComplete_MarksJobDone(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	_, _, err := q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "m1"}, "meeting://complete", "cityCA", 100)
	require.NoError(t, err)
	job, err := q.Lease(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Complete(ctx, job.ID))

	_, err = q.Lease(ctx)
	assert.ErrorIs(t, err, queue.ErrEmpty)
}

func TestFail_RetryableGoesBackToPendingWithLowerPriority(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	_, _, err := q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "m1"}, "meeting://retry", "cityCA", 100)
	require.NoError(t, err)
	job, err := q.Lease(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Fail(ctx, job.ID, "transient error", true))

	retried, err := q.Lease(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, retried.RetryCount)
	assert.Less(t, retried.Priority, 100)
}

func TestFail_RetryPenaltyIsLinearOffBasePriorityNotCompounding(t *testing.T) {
	// Spec §8 scenario 4's worked example, verbatim: a job enqueued at
	// priority 150 with RetryPenalty=20 must trace
	// pending(150) -> pending(130, retry=1) -> pending(110, retry=2) ->
	// pending(90, retry=3) -> dead_letter. Each penalty is RETRY_PENALTY *
	// retry_count off the *original* priority, not off the previous
	// retry's already-penalized value (which would instead compound to
	// 130, 90, 30).
	q := testQueue(t)
	cfg := config.DefaultQueueConfig()
	require.Equal(t, 20, cfg.RetryPenalty)
	require.Equal(t, 3, cfg.MaxRetries)
	ctx := context.Background()

	_, _, err := q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "m1"}, "meeting://linear-penalty", "cityCA", 150)
	require.NoError(t, err)

	// 150 -> 130 (retry=1)
	job, err := q.Lease(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, job.RetryCount)
	require.Equal(t, 150, job.Priority)
	require.NoError(t, q.Fail(ctx, job.ID, "still failing", true))

	// 130 -> 110 (retry=2)
	job, err = q.Lease(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, 130, job.Priority)
	require.NoError(t, q.Fail(ctx, job.ID, "still failing", true))

	// 110 -> 90 (retry=3)
	job, err = q.Lease(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, job.RetryCount)
	assert.Equal(t, 110, job.Priority)
	require.NoError(t, q.Fail(ctx, job.ID, "still failing", true))

	// retry_count would become 4 > MaxRetries(3): dead_letter, not a
	// fourth pending(150-20*4=70).
	job, err = q.Lease(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, job.RetryCount)
	assert.Equal(t, 90, job.Priority)
	require.NoError(t, q.Fail(ctx, job.ID, "still failing", true))

	_, err = q.Lease(ctx)
	assert.ErrorIs(t, err, queue.ErrEmpty)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeadLetter)
	assert.Equal(t, 0, stats.Pending)
}

func TestFail_ExhaustedRetriesGoesToDeadLetter(t *testing.T) {
	q := testQueue(t)
	cfg := config.DefaultQueueConfig()
	ctx := context.Background()

	_, _, err := q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "m1"}, "meeting://deadletter", "cityCA", 100)
	require.NoError(t, err)

	for i := 0; i <= cfg.MaxRetries; i++ {
		job, err := q.Lease(ctx)
		require.NoError(t, err)
		require.NoError(t, q.Fail(ctx, job.ID, "still failing", true))
	}

	_, err = q.Lease(ctx)
	assert.ErrorIs(t, err, queue.ErrEmpty)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeadLetter)
	assert.Equal(t, 0, stats.Pending)
}

func TestFail_NonRetryableGoesStraightToDeadLetter(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	_, _, err := q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "m1"}, "meeting://nonretry", "cityCA", 100)
	require.NoError(t, err)
	job, err := q.Lease(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Fail(ctx, job.ID, "missing LLM credentials", false))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DeadLetter)
}

func TestRecoverStale_ReturnsTimedOutJobsToPending(t *testing.T) {
	q := testQueue(t)
	ctx := context.Background()

	_, _, err := q.Enqueue(ctx, models.JobTypeMeeting, models.MeetingJobPayload{MeetingID: "m1"}, "meeting://stale", "cityCA", 100)
	require.NoError(t, err)
	_, err = q.Lease(ctx)
	require.NoError(t, err)

	// Not stale yet — threshold is an hour by default.
	n, err := q.RecoverStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

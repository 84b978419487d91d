// Package queue is the durable priority job queue backing meeting and
// matter processing. It claims work with SELECT ... FOR UPDATE SKIP
// LOCKED inside a transaction, over raw database/sql.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/civicsync/civicsync/pkg/config"
	"github.com/civicsync/civicsync/pkg/models"
)

// Queue is a durable, priority-ordered job queue stored in the "queue"
// table, shared by every processor worker.
type Queue struct {
	db  *sql.DB
	cfg *config.QueueConfig
}

// New wraps an open pool with the queue's retry/backoff policy.
func New(db *sql.DB, cfg *config.QueueConfig) *Queue {
	return &Queue{db: db, cfg: cfg}
}

// Enqueue inserts a job, deduplicated on dedupKey. If a job with the same
// dedup key already exists (pending, processing, or previously completed)
// the insert is a no-op and enqueued is false — callers use this to avoid
// re-queuing a meeting or matter that's already in flight.
func (q *Queue) Enqueue(ctx context.Context, jobType models.JobType, payload any, dedupKey, banana string, priority int) (id int64, enqueued bool, err error) {
	raw, err := marshalPayload(payload)
	if err != nil {
		return 0, false, err
	}

	row := q.db.QueryRowContext(ctx, `
		INSERT INTO queue (job_type, payload, dedup_key, banana, priority, base_priority, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $5, 'pending', now())
		ON CONFLICT (dedup_key) DO NOTHING
		RETURNING id
	`, string(jobType), raw, dedupKey, banana, priority)

	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("enqueue job %s: %w", dedupKey, err)
	}
	return id, true, nil
}

// Lease atomically claims the highest-priority pending job (FIFO within a
// priority tier) and marks it processing. Returns ErrEmpty if nothing is
// leasable right now.
func (q *Queue) Lease(ctx context.Context) (*models.QueueJob, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("lease: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM queue
		WHERE status = 'pending'
		ORDER BY priority DESC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("lease: select candidate: %w", err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE queue SET status = 'processing', started_at = now()
		WHERE id = $1
		RETURNING id, job_type, payload, dedup_key, banana, priority, base_priority, status, retry_count, error_message, created_at, started_at, completed_at, failed_at
	`, id)
	job, err := scanQueueJob(row)
	if err != nil {
		return nil, fmt.Errorf("lease: claim job %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("lease: commit: %w", err)
	}
	return job, nil
}

// LeaseBanana is Lease scoped to a single city's jobs, used by
// `sync-and-process-city` to drain only the work just enqueued for that
// banana rather than the whole queue.
func (q *Queue) LeaseBanana(ctx context.Context, banana string) (*models.QueueJob, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("lease banana %s: begin transaction: %w", banana, err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM queue
		WHERE status = 'pending' AND banana = $1
		ORDER BY priority DESC, id ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`, banana).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("lease banana %s: select candidate: %w", banana, err)
	}

	row := tx.QueryRowContext(ctx, `
		UPDATE queue SET status = 'processing', started_at = now()
		WHERE id = $1
		RETURNING id, job_type, payload, dedup_key, banana, priority, base_priority, status, retry_count, error_message, created_at, started_at, completed_at, failed_at
	`, id)
	job, err := scanQueueJob(row)
	if err != nil {
		return nil, fmt.Errorf("lease banana %s: claim job %d: %w", banana, id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("lease banana %s: commit: %w", banana, err)
	}
	return job, nil
}

// Complete marks a leased job as done.
func (q *Queue) Complete(ctx context.Context, jobID int64) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue SET status = 'completed', completed_at = now()
		WHERE id = $1 AND status = 'processing'
	`, jobID)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", jobID, err)
	}
	return requireRowsAffected(res, jobID)
}

// Fail records a processing failure. Retryable failures go back to
// pending with an incremented retry count and a priority penalty, up to
// MaxRetries; beyond that (or for non-retryable failures) the job moves
// to dead_letter.
func (q *Queue) Fail(ctx context.Context, jobID int64, errMsg string, retryable bool) error {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("fail: begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var retryCount, basePriority int
	err = tx.QueryRowContext(ctx, `
		SELECT retry_count, base_priority FROM queue WHERE id = $1 AND status = 'processing' FOR UPDATE
	`, jobID).Scan(&retryCount, &basePriority)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotLeased
		}
		return fmt.Errorf("fail: read job %d: %w", jobID, err)
	}

	newRetryCount := retryCount + 1
	var res sql.Result
	if retryable && newRetryCount <= q.cfg.MaxRetries {
		// Computed off base_priority, never off the row's current
		// (possibly already-penalized) priority column, so repeated
		// retries decrement linearly from the original score instead of
		// compounding.
		newPriority := RetriedPriority(basePriority, q.cfg.RetryPenalty, newRetryCount)
		res, err = tx.ExecContext(ctx, `
			UPDATE queue SET status = 'pending', retry_count = $2, priority = $3, error_message = $4, started_at = NULL
			WHERE id = $1
		`, jobID, newRetryCount, newPriority, errMsg)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE queue SET status = 'dead_letter', retry_count = $2, error_message = $3, failed_at = now()
			WHERE id = $1
		`, jobID, newRetryCount, errMsg)
	}
	if err != nil {
		return fmt.Errorf("fail: update job %d: %w", jobID, err)
	}
	if err := requireRowsAffected(res, jobID); err != nil {
		return err
	}
	return tx.Commit()
}

// RecoverStale resets processing jobs whose started_at is older than the
// queue's StaleThreshold back to pending, for recovery from a crashed
// processor that never reached Complete/Fail.
func (q *Queue) RecoverStale(ctx context.Context) (int, error) {
	res, err := q.db.ExecContext(ctx, `
		UPDATE queue SET status = 'pending', started_at = NULL
		WHERE status = 'processing' AND started_at < $1
	`, time.Now().Add(-q.cfg.StaleThreshold))
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("recover stale jobs: rows affected: %w", err)
	}
	return int(n), nil
}

// Stats is a point-in-time count of jobs by status, used by the status
// HTTP endpoint.
type Stats struct {
	Pending     int
	Processing  int
	Completed   int
	Failed      int
	DeadLetter  int
}

// Stats summarizes the queue's current job distribution.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT status, count(*) FROM queue GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	var s Stats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("queue stats: scan: %w", err)
		}
		switch models.JobStatus(status) {
		case models.JobPending:
			s.Pending = n
		case models.JobProcessing:
			s.Processing = n
		case models.JobCompleted:
			s.Completed = n
		case models.JobFailed:
			s.Failed = n
		case models.JobDeadLetter:
			s.DeadLetter = n
		}
	}
	return s, rows.Err()
}

func scanQueueJob(row *sql.Row) (*models.QueueJob, error) {
	var j models.QueueJob
	var jobType, status string
	if err := row.Scan(&j.ID, &jobType, &j.Payload, &j.DedupKey, &j.Banana, &j.Priority, &j.BasePriority, &status, &j.RetryCount,
		&j.ErrorMessage, &j.CreatedAt, &j.StartedAt, &j.CompletedAt, &j.FailedAt); err != nil {
		return nil, err
	}
	j.JobType = models.JobType(jobType)
	j.Status = models.JobStatus(status)
	return &j, nil
}

func requireRowsAffected(res sql.Result, jobID int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for job %d: %w", jobID, err)
	}
	if n == 0 {
		return ErrNotLeased
	}
	return nil
}

func marshalPayload(payload any) ([]byte, error) {
	if raw, ok := payload.([]byte); ok {
		return raw, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}
	return raw, nil
}

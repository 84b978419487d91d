package queue

import "errors"

// ErrEmpty is returned by Lease when no pending job is available.
var ErrEmpty = errors.New("queue: no jobs available")

// ErrNotLeased is returned by Complete/Fail when the job isn't currently
// in the processing state owned by the caller (already completed, already
// failed by another worker, or never existed).
var ErrNotLeased = errors.New("queue: job is not leased")

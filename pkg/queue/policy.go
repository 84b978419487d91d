package queue

import (
	"math"
	"time"
)

// MeetingPriority scores a meeting job: max(0, 150 - days_from_now(date)).
// A meeting happening today scores 150; each day further in the past
// lowers it, floored at 0. A meeting still in the future scores above 150,
// so upcoming meetings jump the line ahead of a backlog of old ones.
func MeetingPriority(date, now time.Time) int {
	p := 150 - daysFromNow(date, now)
	if p < 0 {
		return 0
	}
	return p
}

// MatterPriority scores a matter job: max(-100, 50 - days_from_now(date)),
// where date is the matter's last appearance. Matters sit below fresh
// meeting jobs by default but are never starved entirely.
func MatterPriority(lastSeen, now time.Time) int {
	p := 50 - daysFromNow(lastSeen, now)
	if p < -100 {
		return -100
	}
	return p
}

// daysFromNow is how many whole days have elapsed since date, as of now.
// Negative for a date still in the future.
func daysFromNow(date, now time.Time) int {
	return int(math.Floor(now.Sub(date).Hours() / 24))
}

// RetriedPriority applies the queue's per-retry penalty: each additional
// retry attempt lowers a job's priority by retryPenalty, so a job that
// keeps failing gradually falls behind fresher work without being
// dead-lettered outright.
func RetriedPriority(original, retryPenalty, newRetryCount int) int {
	return original - retryPenalty*newRetryCount
}

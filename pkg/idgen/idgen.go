// Package idgen computes deterministic, content-derived primary keys for
// meetings, agenda items, and matters so repeated syncs of the same vendor
// payload always resolve to the same rows.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
)

var matterIDPattern = regexp.MustCompile(`^[a-z0-9]+[A-Z]{2}_[0-9a-f]{16}$`)

// ValidMatterID reports whether id has the "{banana}_{16 hex chars}" shape
// MatterID produces. Used by the processor to reject a malformed
// matter_id before doing any work against it.
func ValidMatterID(id string) bool {
	return matterIDPattern.MatchString(id)
}

// MeetingID derives a meeting's primary key from its identity tuple:
// (banana, vendor meeting key, date). The date is truncated to a day so
// vendors that report slightly different timestamps across re-fetches of
// the same calendar day still collapse to one row.
func MeetingID(banana, vendorMeetingKey string, date time.Time) string {
	day := date.UTC().Format("2006-01-02")
	return hashID(banana, fmt.Sprintf("%s:%s:%s", banana, vendorMeetingKey, day))
}

// ItemID derives an agenda item's primary key from (meeting_id, sequence,
// vendor item key).
func ItemID(meetingID string, sequence int, vendorItemKey string) string {
	return hashID(meetingID, fmt.Sprintf("%s:%d:%s", meetingID, sequence, vendorItemKey))
}

// MatterID derives a matter's primary key as
// "{banana}_{first 16 hex chars of SHA-256(banana:matter_file:matter_id)}".
//
// matterFile is the vendor's public identifier (e.g. "BL2025-1098") and
// matterID is the vendor's internal identifier. Both are fed into the hash
// even though matterFile is preferred for human-readable lookups. If both
// are empty, ok is false and no matter should be tracked.
func MatterID(banana, matterFile, matterID string) (id string, ok bool) {
	if matterFile == "" && matterID == "" {
		return "", false
	}
	return hashID(banana, fmt.Sprintf("%s:%s:%s", banana, matterFile, matterID)), true
}

// hashID hex-encodes the first 16 chars of SHA-256(input), prefixed by
// prefix + "_".
func hashID(prefix, input string) string {
	sum := sha256.Sum256([]byte(input))
	return prefix + "_" + hex.EncodeToString(sum[:])[:16]
}

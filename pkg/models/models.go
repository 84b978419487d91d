// Package models defines the persisted data shapes shared across the
// ingestion pipeline: cities, meetings, agenda items, matters, matter
// appearances, and queue jobs. These mirror the column shapes in
// pkg/database/migrations and are the types pkg/store reads and writes.
package models

import "time"

// ProcessingStatus is a Meeting's lifecycle state.
type ProcessingStatus string

// Meeting processing states.
const (
	ProcessingPending    ProcessingStatus = "pending"
	ProcessingInProgress ProcessingStatus = "processing"
	ProcessingCompleted  ProcessingStatus = "completed"
	ProcessingFailed     ProcessingStatus = "failed"
)

// JobType discriminates QueueJob payloads.
type JobType string

// Queue job types.
const (
	JobTypeMeeting JobType = "meeting"
	JobTypeMatter  JobType = "matter"
)

// JobStatus is a QueueJob's lifecycle state.
type JobStatus string

// Queue job states.
const (
	JobPending     JobStatus = "pending"
	JobProcessing  JobStatus = "processing"
	JobCompleted   JobStatus = "completed"
	JobFailed      JobStatus = "failed"
	JobDeadLetter  JobStatus = "dead_letter"
)

// City is a civic-tech platform tenant, identified by its banana slug.
type City struct {
	Banana       string
	Vendor       string
	Config       VendorConfig
	Active       bool
	LastSyncedAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VendorConfig carries platform-specific configuration plus the
// enhanced-hashing opt-in described in open question.
type VendorConfig struct {
	BaseURL         string            `json:"base_url,omitempty"`
	EnhancedHashing bool              `json:"enhanced_hashing,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// Participation carries how the public can participate in a meeting.
type Participation struct {
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	StreamURL string `json:"stream_url,omitempty"`
}

// Meeting is a single legislative session, owned by a City.
type Meeting struct {
	ID                string
	Banana            string
	VendorMeetingKey   string
	Title             string
	Date              time.Time
	AgendaURL         *string
	PacketURL         *string
	Summary           *string
	Topics            []string
	Participation     Participation
	ProcessingStatus  ProcessingStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasSummary reports whether the meeting carries a monolithic summary.
func (m *Meeting) HasSummary() bool {
	return m.Summary != nil && *m.Summary != ""
}

// Attachment is a single document reference on an agenda item.
type Attachment struct {
	URL       string `json:"url"`
	Name      string `json:"name"`
	PageRange string `json:"page_range,omitempty"`
}

// AgendaItem is one line item on a meeting's agenda.
type AgendaItem struct {
	ID            string
	MeetingID     string
	Sequence      int
	VendorItemKey string
	Title         string
	Attachments   []Attachment
	MatterID      *string
	Summary       *string
	Topics        []string
	FilterReason  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasSummary reports whether the item already carries a summary (including
// one back-filled from a matter's canonical summary).
func (a *AgendaItem) HasSummary() bool {
	return a.Summary != nil && *a.Summary != ""
}

// Matter is a legislative item tracked across multiple meeting appearances.
type Matter struct {
	ID               string
	Banana           string
	MatterFile       string
	MatterVendorID   string
	MatterType       string
	Title            string
	CanonicalSummary *string
	CanonicalTopics  []string
	AttachmentHash   *string
	Sponsors         []string
	FirstSeen        time.Time
	LastSeen         time.Time
	AppearanceCount  int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// MatterAppearance links a Matter to a specific (meeting, item) agenda slot.
type MatterAppearance struct {
	MatterID  string
	MeetingID string
	ItemID    string
	Sequence  int
	CreatedAt time.Time
}

// QueueJob is a durable unit of processing work.
type QueueJob struct {
	ID           int64
	JobType      JobType
	Payload      []byte // JSON-encoded MeetingJobPayload or MatterJobPayload
	DedupKey     string
	Banana       string
	Priority     int
	BasePriority int // priority at enqueue time; retry penalties are computed off this, not Priority
	Status       JobStatus
	RetryCount   int
	ErrorMessage *string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	FailedAt     *time.Time
}

// MeetingJobPayload is the JSON payload for a JobTypeMeeting row.
type MeetingJobPayload struct {
	MeetingID string `json:"meeting_id"`
}

// MatterJobPayload is the JSON payload for a JobTypeMatter row.
type MatterJobPayload struct {
	MatterID                string   `json:"matter_id"`
	RepresentativeMeetingID string   `json:"representative_meeting_id"`
	ItemIDs                  []string `json:"item_ids"`
}

// MeetingDedupKey returns the queue dedup_key for a meeting job.
func MeetingDedupKey(meetingID string) string { return "meeting://" + meetingID }

// MatterDedupKey returns the queue dedup_key for a matter job.
func MatterDedupKey(matterID string) string { return "matter://" + matterID }

// Package vendoradapter defines the external boundary to per-vendor civic
// platform adapters. Adapter implementations themselves (Legistar,
// Granicus, PrimeGov, ...) are out of scope for this module; this
// package only fixes the contract the rest of the pipeline depends on,
// without implementing any adapter itself.
package vendoradapter

import (
	"context"
	"time"

	"github.com/civicsync/civicsync/pkg/models"
)

// Attachment is a single document reference as reported by a vendor, before
// it is normalized into models.Attachment.
type Attachment struct {
	URL       string
	Name      string
	PageRange string
}

// AgendaItemDraft is one line item on a vendor's agenda payload.
type AgendaItemDraft struct {
	VendorItemKey string
	Title         string
	Sequence      int
	MatterFile    string
	MatterID      string
	MatterType    string
	Attachments   []Attachment
}

// MeetingDraft is a single meeting as reported by a vendor adapter, prior to
// normalization and persistence by the sync orchestrator.
type MeetingDraft struct {
	VendorMeetingKey string
	Title            string
	Date             time.Time
	AgendaURL        string
	PacketURL        string
	Items            []AgendaItemDraft

	// Sponsors is a vendor-reported extra carried here as an opaque field
	// so a richer vendor adapter can populate it without widening this
	// contract. Votes and committees are not carried.
	Sponsors []string
}

// Adapter is the uniform interface every vendor-specific fetcher
// implementation must expose. Implementations live outside this module.
type Adapter interface {
	// FetchMeetings returns every meeting known to the vendor for the given
	// city at or after `since`. Implementations are responsible for their
	// own pagination and vendor-specific parsing.
	FetchMeetings(ctx context.Context, banana string, cfg models.VendorConfig, since time.Time) ([]MeetingDraft, error)
}

// Registry resolves a vendor name to its Adapter. Production wiring
// populates this with real per-vendor adapters; tests populate it with
// stubs.
type Registry interface {
	Adapter(vendor string) (Adapter, bool)
}

// StaticRegistry is a Registry backed by an in-memory map, sufficient for
// both production wiring (a handful of known vendors) and tests.
type StaticRegistry map[string]Adapter

// Adapter implements Registry.
func (r StaticRegistry) Adapter(vendor string) (Adapter, bool) {
	a, ok := r[vendor]
	return a, ok
}

// Package extract defines the PDF text extraction boundary and
// the content heuristics that decide when extracted
// text is unreliable enough to discard rather than feed to the LLM.
// Implementations of Extractor live outside this module; this
// package only fixes the contract, the same way pkg/vendoradapter fixes
// the vendor boundary.
package extract

import (
	"context"
	"strings"
	"time"

	"github.com/civicsync/civicsync/pkg/config"
)

// Result is what a PDF extractor returns for one document.
type Result struct {
	Text      string
	PageCount int
	OCRRatio  float64
}

// Extractor is the external collaborator boundary to PDF text extraction.
type Extractor interface {
	// Extract fetches and OCRs/parses the document at url, bounded by
	// timeout.
	Extract(ctx context.Context, url string, timeout time.Duration) (Result, error)
}

// ShouldDiscard applies step 5's three content heuristics to
// decide whether an extraction result is unreliable enough to drop:
// documents that are implausibly long, documents that are long and
// mostly-OCR (garbled scans), and long documents dominated by form-letter
// boilerplate (repeated "Sincerely," closings, as in public-comment form
// letters).
func ShouldDiscard(cfg *config.FilterConfig, r Result) bool {
	if r.PageCount > cfg.MaxPageCount {
		return true
	}
	if r.PageCount > cfg.OCRSuspectPageCount && r.OCRRatio > cfg.OCRRatioThreshold {
		return true
	}
	if len(r.Text) > cfg.SincerelyTextMinLen && strings.Count(r.Text, "Sincerely,") > cfg.SincerelyMaxOccurrences {
		return true
	}
	return false
}

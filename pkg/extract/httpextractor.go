package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// HTTPExtractor is a concrete Extractor: it fetches a document over HTTP
// and extracts its text with github.com/ledongthuc/pdf, the same pure-Go
// PDF reader the retrieval pack's document-processing repos depend on.
// It is wired in as civicsync's default extractor, but the Extractor
// interface remains the contract boundary calls out — a deployment
// that needs real OCR for scanned packets can swap this out entirely.
type HTTPExtractor struct {
	httpClient *http.Client
}

// NewHTTPExtractor builds an HTTPExtractor using client for downloads. A
// nil client falls back to http.DefaultClient.
func NewHTTPExtractor(client *http.Client) *HTTPExtractor {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPExtractor{httpClient: client}
}

var _ Extractor = (*HTTPExtractor)(nil)

// Extract downloads url (bounded by timeout) and extracts text page by
// page. OCRRatio is estimated as the fraction of pages that yielded no
// extractable text runs at all — this reader has no OCR layer, so a page
// holding a scanned image rather than real text content always looks
// "empty" to it, and a high fraction of empty pages is a reasonable proxy
// for "this packet is a scan, not real text".
func (e *HTTPExtractor) Extract(ctx context.Context, url string, timeout time.Duration) (Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request for %s: %w", url, err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read body of %s: %w", url, err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("parse pdf %s: %w", url, err)
	}

	var sb strings.Builder
	emptyPages := 0
	pageCount := reader.NumPage()
	for i := 1; i <= pageCount; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			emptyPages++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			emptyPages++
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	var ocrRatio float64
	if pageCount > 0 {
		ocrRatio = float64(emptyPages) / float64(pageCount)
	}

	return Result{Text: sb.String(), PageCount: pageCount, OCRRatio: ocrRatio}, nil
}

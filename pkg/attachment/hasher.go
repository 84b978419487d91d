// Package attachment computes stable, content-addressed hashes of an
// attachment set, used to detect when a matter's source documents have
// changed enough to warrant re-summarization.
package attachment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/civicsync/civicsync/pkg/models"
)

// Hasher computes AttachmentHasher.Hash per . The zero value uses
// http.DefaultClient for enhanced-mode HEAD requests; construct with
// NewHasher to supply a custom client (as tests do, to avoid real network
// calls).
type Hasher struct {
	httpClient *http.Client
}

// NewHasher builds a Hasher. A nil client falls back to a client with the
// 3-second per-request timeout mandates for enhanced mode.
func NewHasher(client *http.Client) *Hasher {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	return &Hasher{httpClient: client}
}

// Hash sorts attachments by (url, name) and hashes the resulting tuple
// sequence with SHA-256, returning the hex digest. In fast mode (the
// default — enhanced=false) only URL and name are hashed. In enhanced mode,
// a HEAD request per attachment adds (Content-Length, Last-Modified) to the
// tuple; a failed HEAD request falls back to URL-only for that attachment
// rather than failing the whole hash.
func (h *Hasher) Hash(ctx context.Context, attachments []models.Attachment, enhanced bool) string {
	sorted := make([]models.Attachment, len(attachments))
	copy(sorted, attachments)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].URL != sorted[j].URL {
			return sorted[i].URL < sorted[j].URL
		}
		return sorted[i].Name < sorted[j].Name
	})

	digest := sha256.New()
	for _, a := range sorted {
		tuple := a.URL + "\x00" + a.Name
		if enhanced {
			if extra, ok := h.headMetadata(ctx, a.URL); ok {
				tuple += "\x00" + extra
			}
		}
		digest.Write([]byte(tuple))
		digest.Write([]byte("\x1e")) // record separator between attachments
	}
	return hex.EncodeToString(digest.Sum(nil))
}

// headMetadata issues a HEAD request with the 3-second per-request timeout
// and returns "Content-Length\x00Last-Modified" on success.
func (h *Hasher) headMetadata(ctx context.Context, url string) (string, bool) {
	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, url, nil)
	if err != nil {
		return "", false
	}

	client := h.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()

	cl := resp.Header.Get("Content-Length")
	lm := resp.Header.Get("Last-Modified")
	if cl == "" && lm == "" {
		return "", false
	}
	return strings.Join([]string{cl, lm}, "\x00"), true
}

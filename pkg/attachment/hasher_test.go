package attachment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/civicsync/civicsync/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_OrderIndependent(t *testing.T) {
	h := NewHasher(nil)
	ctx := context.Background()

	a := []models.Attachment{
		{URL: "https://x/b.pdf", Name: "B"},
		{URL: "https://x/a.pdf", Name: "A"},
	}
	b := []models.Attachment{
		{URL: "https://x/a.pdf", Name: "A"},
		{URL: "https://x/b.pdf", Name: "B"},
	}

	assert.Equal(t, h.Hash(ctx, a, false), h.Hash(ctx, b, false))
}

func TestHash_ChangesWithContent(t *testing.T) {
	h := NewHasher(nil)
	ctx := context.Background()

	a := []models.Attachment{{URL: "https://x/a.pdf", Name: "A"}}
	b := []models.Attachment{{URL: "https://x/a.pdf", Name: "A v2"}}

	assert.NotEqual(t, h.Hash(ctx, a, false), h.Hash(ctx, b, false))
}

func TestHash_Deterministic(t *testing.T) {
	h := NewHasher(nil)
	ctx := context.Background()
	set := []models.Attachment{{URL: "https://x/a.pdf", Name: "A"}}

	assert.Equal(t, h.Hash(ctx, set, false), h.Hash(ctx, set, false))
}

func TestHash_Enhanced_UsesHeadMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		w.Header().Set("Content-Length", "1234")
		w.Header().Set("Last-Modified", "Mon, 10 Nov 2025 00:00:00 GMT")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	h := NewHasher(server.Client())
	ctx := context.Background()
	set := []models.Attachment{{URL: server.URL + "/a.pdf", Name: "A"}}

	fast := h.Hash(ctx, set, false)
	enhanced := h.Hash(ctx, set, true)
	assert.NotEqual(t, fast, enhanced, "enhanced mode should fold in HEAD metadata")
}

func TestHash_Enhanced_FallsBackOnFailedHead(t *testing.T) {
	h := NewHasher(&http.Client{})
	ctx := context.Background()
	set := []models.Attachment{{URL: "http://127.0.0.1:0/nope", Name: "A"}}

	// Must not panic or error out; falls back to URL-only for that entry.
	assert.NotPanics(t, func() {
		h.Hash(ctx, set, true)
	})
}

package llmclient_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civicsync/civicsync/pkg/config"
	"github.com/civicsync/civicsync/pkg/llmclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitBatch_NoCredentials(t *testing.T) {
	c := llmclient.New(&config.LLMConfig{Endpoint: "http://unused"}, "")
	assert.False(t, c.Available())

	_, err := c.SubmitBatch(context.Background(), nil, []llmclient.Request{{ItemID: "1"}})
	assert.ErrorIs(t, err, llmclient.ErrUnavailable)
}

func TestSubmitBatch_StreamsChunksInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"item_id":"1","summary":"s1","topics":["zoning"]}`)
		flusher.Flush()
		fmt.Fprintln(w, `{"item_id":"2","error":"item failed"}`)
		flusher.Flush()
	}))
	defer srv.Close()

	c := llmclient.New(&config.LLMConfig{Endpoint: srv.URL, RequestTimeout: 5 * time.Second}, "test-key")
	ch, err := c.SubmitBatch(context.Background(), nil, []llmclient.Request{{ItemID: "1"}, {ItemID: "2"}})
	require.NoError(t, err)

	var results []llmclient.ChunkResult
	for r := range ch {
		results = append(results, r)
	}
	require.Len(t, results, 2)
	assert.Equal(t, "1", results[0].ItemID)
	assert.Equal(t, "s1", results[0].Summary)
	assert.Equal(t, []string{"zoning"}, results[0].Topics)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "2", results[1].ItemID)
	assert.Error(t, results[1].Err)
}

func TestSubmitBatch_UnauthorizedMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := llmclient.New(&config.LLMConfig{Endpoint: srv.URL}, "bad-key")
	_, err := c.SubmitBatch(context.Background(), nil, []llmclient.Request{{ItemID: "1"}})
	assert.ErrorIs(t, err, llmclient.ErrUnavailable)
}

func TestSubmitBatch_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := llmclient.New(&config.LLMConfig{Endpoint: srv.URL}, "test-key")
	_, err := c.SubmitBatch(context.Background(), nil, []llmclient.Request{{ItemID: "1"}})
	assert.ErrorIs(t, err, llmclient.ErrTransient)
}

func TestSubmitBatch_EmptyRequestsClosesImmediately(t *testing.T) {
	c := llmclient.New(&config.LLMConfig{Endpoint: "http://unused"}, "test-key")
	ch, err := c.SubmitBatch(context.Background(), nil, nil)
	require.NoError(t, err)
	_, ok := <-ch
	assert.False(t, ok)
}

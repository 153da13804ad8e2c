package vectorsearch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/query", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "boiling point of water", req["query"])
		assert.Equal(t, float64(5), req["top_k"])

		resp := map[string]interface{}{
			"results": []map[string]interface{}{
				{
					"chunk_id":    "c1",
					"score":       0.9,
					"document_id": "d1",
					"text":        "Water boils at 100°C at sea level.",
					"source_url":  "https://example.org/water",
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	client := NewClient(&Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, testLogger())

	results, err := client.Query(context.Background(), "boiling point of water", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "c1", results[0].ChunkID)
	assert.Equal(t, "d1", results[0].DocumentID)
	assert.InDelta(t, 0.9, results[0].Score, 1e-9)
	assert.Equal(t, "Water boils at 100°C at sea level.", results[0].Text)
	assert.Equal(t, "https://example.org/water", results[0].SourceURL)
}

func TestQueryServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "index unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(&Config{BaseURL: srv.URL}, testLogger())

	_, err := client.Query(context.Background(), "anything", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestQueryUnreachable(t *testing.T) {
	client := NewClient(&Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, testLogger())

	_, err := client.Query(context.Background(), "anything", 3)
	require.Error(t, err)
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(&Config{BaseURL: srv.URL}, testLogger())
	assert.NoError(t, client.HealthCheck(context.Background()))
}

package chain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/internet-id/verifyq/internal/core"
)

func TestNewHTTPResolver_RequiresBaseURL(t *testing.T) {
	_, err := NewHTTPResolver(ResolverOptions{})
	assert.ErrorContains(t, err, "base URL is required")

	_, err = NewHTTPResolver(ResolverOptions{BaseURL: "   "})
	assert.ErrorContains(t, err, "base URL is required")
}

func TestHTTPResolver_EntryByHash(t *testing.T) {
	registered := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/entries/0xabc123", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("registry"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"content_hash": "0xabc123",
			"manifest_uri": "ipfs://QmManifest",
			"owner": "0xowner",
			"registered_at": "2024-01-01T12:00:00Z"
		}`))
	}))
	defer srv.Close()

	r, err := NewHTTPResolver(ResolverOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	entry, err := r.EntryByHash(context.Background(), "0xabc123", nil)
	require.NoError(t, err)
	assert.Equal(t, "0xabc123", entry.ContentHash)
	assert.Equal(t, "ipfs://QmManifest", entry.ManifestURI)
	assert.Equal(t, "0xowner", entry.Owner)
	assert.Equal(t, registered, entry.RegisteredAt)
}

func TestHTTPResolver_EntryByHash_RegistryQueryParam(t *testing.T) {
	var gotRegistry string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRegistry = r.URL.Query().Get("registry")
		w.Write([]byte(`{"content_hash":"0xabc123"}`))
	}))
	defer srv.Close()

	r, err := NewHTTPResolver(ResolverOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	registry := "0xregistry"
	_, err = r.EntryByHash(context.Background(), "0xabc123", &registry)
	require.NoError(t, err)
	assert.Equal(t, "0xregistry", gotRegistry)
}

func TestHTTPResolver_EntryByHash_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r, err := NewHTTPResolver(ResolverOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = r.EntryByHash(context.Background(), "0xmissing", nil)
	assert.ErrorIs(t, err, core.ErrEntryNotFound)
}

func TestHTTPResolver_EntryByHash_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	r, err := NewHTTPResolver(ResolverOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = r.EntryByHash(context.Background(), "0xabc123", nil)
	assert.ErrorContains(t, err, "unexpected status 500")
}

func TestHTTPResolver_EntryByHash_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	r, err := NewHTTPResolver(ResolverOptions{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = r.EntryByHash(context.Background(), "0xabc123", nil)
	assert.ErrorContains(t, err, "decode chain entry")
}

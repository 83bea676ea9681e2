// Package manifest retrieves manifest documents over https and ipfs.
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultGateway  = "https://ipfs.io"
	defaultMaxBytes = 1 << 20 // 1 MiB
	defaultTimeout  = 15 * time.Second
)

// FetcherOptions groups settings for the HTTP manifest fetcher.
type FetcherOptions struct {
	Client   *http.Client // Optional: defaults to a client with a request timeout
	Gateway  string       // Optional: base URL used to resolve ipfs:// URIs
	MaxBytes int64        // Optional: response size cap
	Logger   *slog.Logger // Optional: structured logger
}

// HTTPFetcher fetches manifests by URI. ipfs:// URIs are rewritten to a
// public gateway; responses larger than the cap are rejected rather than
// truncated.
type HTTPFetcher struct {
	client   *http.Client
	gateway  string
	maxBytes int64
	logger   *slog.Logger
}

// NewHTTPFetcher constructs an HTTPFetcher.
func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	gateway := strings.TrimRight(opts.Gateway, "/")
	if gateway == "" {
		gateway = defaultGateway
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}

	return &HTTPFetcher{
		client:   client,
		gateway:  gateway,
		maxBytes: maxBytes,
		logger:   opts.Logger,
	}
}

// Fetch retrieves the manifest document at uri.
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	target, err := f.resolveURI(uri)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build manifest request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch manifest: unexpected status %d", resp.StatusCode)
	}

	body, err := readCapped(resp.Body, f.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("read manifest body: %w", err)
	}

	if f.logger != nil {
		f.logger.DebugContext(ctx, "manifest fetched", "uri", uri, "bytes", len(body))
	}
	return body, nil
}

// resolveURI maps ipfs:// URIs onto the configured gateway and passes
// http(s) URIs through unchanged.
func (f *HTTPFetcher) resolveURI(uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		path := strings.TrimPrefix(uri, "ipfs://")
		if path == "" {
			return "", errors.New("ipfs uri has no path")
		}
		return f.gateway + "/ipfs/" + path, nil
	case strings.HasPrefix(uri, "https://"), strings.HasPrefix(uri, "http://"):
		return uri, nil
	default:
		return "", fmt.Errorf("unsupported manifest uri scheme: %s", uri)
	}
}

// readCapped reads at most maxBytes and errors when the body exceeds it.
func readCapped(r io.Reader, maxBytes int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", maxBytes)
	}
	return body, nil
}

// Package chain looks up registry entries from the on-chain verifier service.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/internet-id/verifyq/internal/core"
	"github.com/internet-id/verifyq/internal/domain/model"
)

const defaultTimeout = 10 * time.Second

// ResolverOptions groups settings for the HTTP chain resolver.
type ResolverOptions struct {
	BaseURL string       // Required: base URL of the registry lookup service
	Client  *http.Client // Optional: defaults to a client with a request timeout
	Logger  *slog.Logger // Optional: structured logger
}

// HTTPResolver resolves registry entries via the registry lookup service.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPResolver constructs an HTTPResolver.
func NewHTTPResolver(opts ResolverOptions) (*HTTPResolver, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("chain resolver base URL is required")
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	return &HTTPResolver{
		baseURL: base,
		client:  client,
		logger:  opts.Logger,
	}, nil
}

// EntryByHash returns the registry entry for a content hash, or
// core.ErrEntryNotFound when the hash has no entry.
func (r *HTTPResolver) EntryByHash(
	ctx context.Context,
	contentHash string,
	registryAddress *string,
) (*model.ChainEntry, error) {
	target := r.baseURL + "/entries/" + url.PathEscape(contentHash)
	if registryAddress != nil && *registryAddress != "" {
		target += "?registry=" + url.QueryEscape(*registryAddress)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build chain lookup request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chain lookup: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, core.ErrEntryNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("chain lookup: unexpected status %d", resp.StatusCode)
	}

	var entry model.ChainEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode chain entry: %w", err)
	}

	if r.logger != nil {
		r.logger.DebugContext(ctx, "chain entry resolved",
			"content_hash", contentHash, "owner", entry.Owner)
	}
	return &entry, nil
}

var _ core.ChainResolver = (*HTTPResolver)(nil)

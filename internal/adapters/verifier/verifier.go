// Package verifier implements the verify and proof units of work: it fetches
// the manifest, compares the declared hash, resolves the on-chain entry, and
// assembles the stored payloads.
package verifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/internet-id/verifyq/internal/core"
	"github.com/internet-id/verifyq/internal/domain/model"
)

// proofBundleVersion is bumped whenever the bundle layout changes.
const proofBundleVersion = 1

// hashExprs are tried in order against the parsed manifest to find the
// declared content hash. Manifests in the wild use both snake and camel case.
var hashExprs = []string{
	"content_hash",
	"contentHash",
	"claim.content_hash",
}

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Evaluate(expr string, data any) (any, error)
}

type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// Options groups dependencies for the Verifier.
type Options struct {
	Manifests core.ManifestFetcher // Required: manifest retrieval
	Chain     core.ChainResolver   // Required: on-chain registry lookups
	Evaluator JMESPathEvaluator    // Optional: defaults to the jmespath library
	Logger    *slog.Logger         // Optional: structured logger
}

// Verifier implements core.UnitOfWork. Negative outcomes (hash mismatch,
// unregistered hash) are successful executions; only fetch and lookup errors
// are returned for retry.
type Verifier struct {
	manifests core.ManifestFetcher
	chain     core.ChainResolver
	jems      JMESPathEvaluator
	logger    *slog.Logger
}

// New constructs a Verifier.
func New(opts Options) (*Verifier, error) {
	if opts.Manifests == nil {
		return nil, errors.New("ManifestFetcher is required")
	}
	if opts.Chain == nil {
		return nil, errors.New("ChainResolver is required")
	}

	jems := opts.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}

	return &Verifier{
		manifests: opts.Manifests,
		chain:     opts.Chain,
		jems:      jems,
		logger:    opts.Logger,
	}, nil
}

// MustNew constructs a Verifier and panics on error.
func MustNew(opts Options) *Verifier {
	v, err := New(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create Verifier: %v", err))
	}
	return v
}

// assessment is the shared intermediate state for both units of work.
type assessment struct {
	manifest json.RawMessage
	entry    *model.ChainEntry
	checks   []model.Check
	status   model.VerificationStatus
}

// Verify runs the full verification checks and returns the stored payload.
func (v *Verifier) Verify(
	ctx context.Context,
	req model.EnqueueRequest,
	progress core.ProgressFunc,
) ([]byte, error) {
	a, err := v.assess(ctx, req, progress)
	if err != nil {
		return nil, err
	}

	result := model.VerificationResult{
		Status:      a.status,
		ContentHash: req.ContentHash,
		ManifestURI: req.ManifestURI,
		Checks:      a.checks,
		ChainEntry:  a.entry,
		VerifiedAt:  time.Now().UTC(),
	}

	progress(90)
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal verification result: %w", err)
	}
	return payload, nil
}

// BuildProof runs the same checks and packages them with the raw manifest
// into a portable bundle a third party can re-check offline.
func (v *Verifier) BuildProof(
	ctx context.Context,
	req model.EnqueueRequest,
	progress core.ProgressFunc,
) ([]byte, error) {
	a, err := v.assess(ctx, req, progress)
	if err != nil {
		return nil, err
	}

	bundle := model.ProofBundle{
		Version:     proofBundleVersion,
		Status:      a.status,
		ContentHash: req.ContentHash,
		ManifestURI: req.ManifestURI,
		Manifest:    a.manifest,
		ChainEntry:  a.entry,
		Checks:      a.checks,
		GeneratedAt: time.Now().UTC(),
	}

	progress(90)
	payload, err := json.Marshal(bundle)
	if err != nil {
		return nil, fmt.Errorf("marshal proof bundle: %w", err)
	}
	return payload, nil
}

func (v *Verifier) assess(
	ctx context.Context,
	req model.EnqueueRequest,
	progress core.ProgressFunc,
) (*assessment, error) {
	progress(5)

	raw, err := v.manifests.Fetch(ctx, req.ManifestURI)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest %s: %w", req.ManifestURI, err)
	}
	progress(30)

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", req.ManifestURI, err)
	}

	declared := v.declaredHash(doc)
	hashMatches := declared != "" && strings.EqualFold(declared, req.ContentHash)

	checks := []model.Check{
		{Name: "manifest_fetched", Passed: true},
		hashCheck(declared, hashMatches),
	}
	progress(60)

	entry, err := v.chain.EntryByHash(ctx, req.ContentHash, req.RegistryAddress)
	switch {
	case errors.Is(err, core.ErrEntryNotFound):
		checks = append(checks, model.Check{
			Name:   "registered_on_chain",
			Passed: false,
			Detail: "no registry entry for content hash",
		})
		return &assessment{
			manifest: raw,
			checks:   checks,
			status:   model.VerificationNotRegistered,
		}, nil
	case err != nil:
		return nil, fmt.Errorf("resolve chain entry: %w", err)
	}

	checks = append(checks, model.Check{Name: "registered_on_chain", Passed: true})

	uriMatches := entry.ManifestURI == req.ManifestURI
	uriCheck := model.Check{Name: "manifest_uri_matches_chain", Passed: uriMatches}
	if !uriMatches {
		uriCheck.Detail = fmt.Sprintf("chain entry points at %s", entry.ManifestURI)
	}
	checks = append(checks, uriCheck)

	status := model.VerificationOK
	if !hashMatches || !uriMatches {
		status = model.VerificationHashMismatch
	}

	if v.logger != nil {
		v.logger.DebugContext(ctx, "verification assessed",
			"content_hash", req.ContentHash, "status", status)
	}

	return &assessment{
		manifest: raw,
		entry:    entry,
		checks:   checks,
		status:   status,
	}, nil
}

// declaredHash extracts the content hash the manifest claims for itself.
func (v *Verifier) declaredHash(doc any) string {
	for _, expr := range hashExprs {
		res, err := v.jems.Evaluate(expr, doc)
		if err != nil {
			continue
		}
		if s, ok := res.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func hashCheck(declared string, matches bool) model.Check {
	c := model.Check{Name: "hash_matches_manifest", Passed: matches}
	switch {
	case declared == "":
		c.Detail = "manifest declares no content hash"
	case !matches:
		c.Detail = fmt.Sprintf("manifest declares %s", declared)
	}
	return c
}

var _ core.UnitOfWork = (*Verifier)(nil)

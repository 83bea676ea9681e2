package model

import (
	"encoding/json"
	"time"
)

// VerificationStatus summarizes the logical outcome of a verification run.
// A negative outcome (mismatch, not registered) is still a successful
// execution; only execution errors drive the retry path.
type VerificationStatus string

const (
	// VerificationOK means every check passed.
	VerificationOK VerificationStatus = "OK"
	// VerificationHashMismatch means the manifest declares a different content hash.
	VerificationHashMismatch VerificationStatus = "HASH_MISMATCH"
	// VerificationNotRegistered means no on-chain entry exists for the hash.
	VerificationNotRegistered VerificationStatus = "NOT_REGISTERED"
)

// Check records the outcome of a single verification step.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// ChainEntry is the opaque on-chain registry entry for a content hash.
type ChainEntry struct {
	ContentHash  string    `json:"content_hash"`
	ManifestURI  string    `json:"manifest_uri"`
	Owner        string    `json:"owner"`
	RegisteredAt time.Time `json:"registered_at"`
}

// VerificationResult is the payload stored on a completed verify job.
type VerificationResult struct {
	Status      VerificationStatus `json:"status"`
	ContentHash string             `json:"content_hash"`
	ManifestURI string             `json:"manifest_uri"`
	Checks      []Check            `json:"checks"`
	ChainEntry  *ChainEntry        `json:"chain_entry,omitempty"`
	VerifiedAt  time.Time          `json:"verified_at"`
}

// ProofBundle is the payload stored on a completed proof job: a portable
// record that lets a third party re-check the binding offline.
type ProofBundle struct {
	Version     int                `json:"version"`
	Status      VerificationStatus `json:"status"`
	ContentHash string             `json:"content_hash"`
	ManifestURI string             `json:"manifest_uri"`
	Manifest    json.RawMessage    `json:"manifest,omitempty"`
	ChainEntry  *ChainEntry        `json:"chain_entry,omitempty"`
	Checks      []Check            `json:"checks"`
	GeneratedAt time.Time          `json:"generated_at"`
}

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobKind_Valid(t *testing.T) {
	assert.True(t, JobKindVerify.Valid())
	assert.True(t, JobKindProof.Valid())
	assert.False(t, JobKind("").Valid())
	assert.False(t, JobKind("audit").Valid())
}

func TestJobKind_UnmarshalText(t *testing.T) {
	var k JobKind
	require.NoError(t, k.UnmarshalText([]byte(" Verify ")))
	assert.Equal(t, JobKindVerify, k)

	require.NoError(t, k.UnmarshalText([]byte("proof")))
	assert.Equal(t, JobKindProof, k)

	assert.ErrorContains(t, k.UnmarshalText([]byte("audit")), "invalid JobKind")
}

func TestJobStatus_Valid(t *testing.T) {
	for _, s := range []JobStatus{JobStatusQueued, JobStatusProcessing, JobStatusCompleted, JobStatusFailed} {
		assert.True(t, s.Valid(), "status %s", s)
	}
	assert.False(t, JobStatus("pending").Valid())
}

func TestJobStatus_Terminal(t *testing.T) {
	assert.False(t, JobStatusQueued.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
}

func TestEnqueueRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     EnqueueRequest
		wantErr string
	}{
		{
			name: "valid",
			req:  EnqueueRequest{ContentHash: "0xabc", ManifestURI: "ipfs://Qm"},
		},
		{
			name:    "missing content hash",
			req:     EnqueueRequest{ManifestURI: "ipfs://Qm"},
			wantErr: "content hash is required",
		},
		{
			name:    "whitespace content hash",
			req:     EnqueueRequest{ContentHash: "   ", ManifestURI: "ipfs://Qm"},
			wantErr: "content hash is required",
		},
		{
			name:    "missing manifest uri",
			req:     EnqueueRequest{ContentHash: "0xabc"},
			wantErr: "manifest uri is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

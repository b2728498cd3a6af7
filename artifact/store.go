// Package artifact implements the Artifact Store contract: a
// content-addressed blob store with SHA-256 integrity and signed
// retrieval.
package artifact

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tanishka786/triage-orchestrator/core"
)

type record struct {
	artifact core.Artifact
	data     []byte
}

// MemoryStore is an in-memory, content-addressed ArtifactStore. Every Put
// computes a SHA-256 digest over the data; Get re-verifies it before
// returning, so silent corruption in the backing map can never surface as
// a successful read.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]record
	logger  core.Logger
	signKey []byte
}

// NewMemoryStore constructs an empty store. signKey seeds the HMAC used for
// SignedURL tokens; pass nil to generate a random per-process key.
func NewMemoryStore(signKey []byte, logger core.Logger) *MemoryStore {
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	if signKey == nil {
		signKey = []byte(uuid.NewString())
	}
	return &MemoryStore{
		objects: make(map[string]record),
		logger:  logger,
		signKey: signKey,
	}
}

// Put stores data under a fresh id (bucket tag plus a random UUID, so
// identical bytes stored twice get two ids), records its SHA-256 digest,
// and returns its Artifact metadata.
func (s *MemoryStore) Put(ctx context.Context, bucket core.ArtifactBucket, data []byte, contentType, extension string) (*core.Artifact, error) {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])

	id := fmt.Sprintf("%s-%s", bucket, uuid.NewString())
	if extension != "" {
		id = id + "." + extension
	}

	art := core.Artifact{
		ID:          id,
		Bucket:      bucket,
		ContentType: contentType,
		Size:        int64(len(data)),
		SHA256:      digest,
		CreatedAt:   time.Now(),
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	s.mu.Lock()
	s.objects[id] = record{artifact: art, data: stored}
	s.mu.Unlock()

	s.logger.DebugWithContext(ctx, "artifact stored", map[string]interface{}{
		"artifact_id": id,
		"bucket":      string(bucket),
		"size":        art.Size,
	})

	return &art, nil
}

// Get retrieves data and metadata by id, re-verifying the SHA-256 digest.
func (s *MemoryStore) Get(ctx context.Context, id string) ([]byte, *core.Artifact, error) {
	s.mu.RLock()
	rec, ok := s.objects[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("artifact %q: %w", id, core.ErrArtifactNotFound)
	}

	sum := sha256.Sum256(rec.data)
	if hex.EncodeToString(sum[:]) != rec.artifact.SHA256 {
		s.logger.ErrorWithContext(ctx, "artifact integrity check failed", map[string]interface{}{
			"artifact_id": id,
		})
		return nil, nil, fmt.Errorf("artifact %q: %w", id, core.ErrIntegrityMismatch)
	}

	out := make([]byte, len(rec.data))
	copy(out, rec.data)
	art := rec.artifact
	return out, &art, nil
}

// Delete removes an artifact, reporting whether it existed.
func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.objects[id]
	delete(s.objects, id)
	return existed, nil
}

// SignedURL issues a self-verifying token: id, an expiry, and an HMAC over
// both. There is no server-side lookup table to consult on redemption —
// any holder of the signing key can verify it offline.
func (s *MemoryStore) SignedURL(ctx context.Context, id string, ttl time.Duration) (string, bool) {
	s.mu.RLock()
	_, ok := s.objects[id]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}

	expiry := time.Now().Add(ttl).Unix()
	sig := s.sign(id, expiry)
	return fmt.Sprintf("artifact://%s?expires=%d&sig=%s", id, expiry, sig), true
}

// VerifySignedURL checks a token produced by SignedURL. Exported so a
// demo-level delivery layer can validate redemptions without reaching into
// the store's internals.
func (s *MemoryStore) VerifySignedURL(id string, expiry int64, sig string) bool {
	if time.Now().Unix() > expiry {
		return false
	}
	expected := s.sign(id, expiry)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *MemoryStore) sign(id string, expiry int64) string {
	mac := hmac.New(sha256.New, s.signKey)
	mac.Write([]byte(fmt.Sprintf("%s:%d", id, expiry)))
	return hex.EncodeToString(mac.Sum(nil))
}

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tanishka786/triage-orchestrator/core"
)

// SnapshotStore persists a durable copy of a finished ProcessingResponse,
// independent of the in-memory active-requests table the Orchestrator
// keeps for in-flight status polling. A nil SnapshotStore is a valid,
// no-op default.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, resp *core.ProcessingResponse) error
	GetSnapshot(ctx context.Context, requestID string) (*core.ProcessingResponse, error)
}

// RedisSnapshotStore implements SnapshotStore on top of a Redis client,
// keyed by request id with a bounded retention TTL.
type RedisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
	logger core.Logger
}

// NewRedisSnapshotStore constructs a RedisSnapshotStore. Pass ttl <= 0 for
// the default 24-hour retention window.
func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration, logger core.Logger) *RedisSnapshotStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = core.NoOpLogger{}
	}
	return &RedisSnapshotStore{client: client, ttl: ttl, logger: logger}
}

func snapshotKey(requestID string) string {
	return fmt.Sprintf("triage:snapshot:%s", requestID)
}

// SaveSnapshot writes the response under its request id, replacing any
// prior snapshot for the same id.
func (s *RedisSnapshotStore) SaveSnapshot(ctx context.Context, resp *core.ProcessingResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey(resp.RequestID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving snapshot to redis: %w", err)
	}
	return nil
}

// GetSnapshot reads back a previously saved response, or
// core.ErrRequestNotFound if none exists or it has expired.
func (s *RedisSnapshotStore) GetSnapshot(ctx context.Context, requestID string) (*core.ProcessingResponse, error) {
	data, err := s.client.Get(ctx, snapshotKey(requestID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("request %q: %w", requestID, core.ErrRequestNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot from redis: %w", err)
	}
	var resp core.ProcessingResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling snapshot: %w", err)
	}
	return &resp, nil
}

// persistSnapshot fires the SnapshotStore write in the background so a
// slow or unreachable Redis never adds latency to Process's hot path,
// matching the non-blocking posture of telemetry.Hooks.
func (o *Orchestrator) persistSnapshot(resp *core.ProcessingResponse) {
	if o.snapshots == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.snapshots.SaveSnapshot(ctx, resp); err != nil {
			o.logger.Warn("snapshot persistence failed", map[string]interface{}{
				"request_id": resp.RequestID,
				"error":      err.Error(),
			})
		}
	}()
}

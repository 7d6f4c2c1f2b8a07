package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/ports"
	"tezui.dashboard/internal/core/record"
)

const (
	failedKey        = "tezui:fetch:failed"
	failedMetaPrefix = "tezui:fetch:failed:meta:"
)

// FailedFetches is a ledger of records the syncer could not load, oldest
// first, so they can be retried.
type FailedFetches struct {
	client *redis.Client
}

var _ ports.FetchFailures = (*FailedFetches)(nil)

type FailedFetch struct {
	Type        domain.EntityType `json:"type"`
	ID          string            `json:"id"`
	FailureTime time.Time         `json:"failure_time"`
	Reason      string            `json:"reason"`
	Attempts    int               `json:"attempts"`
}

func NewFailedFetches(client *redis.Client) *FailedFetches {
	return &FailedFetches{client: client}
}

func member(key record.Key) string { return key.String() }

func parseMember(m string) (record.Key, bool) {
	t, id, ok := strings.Cut(m, ":")
	if !ok || !domain.EntityType(t).Valid() || id == "" {
		return record.Key{}, false
	}
	return record.Key{Type: domain.EntityType(t), ID: id}, true
}

// Add records a failed fetch. The first failure time is kept as the score
// so repeated failures do not starve older entries.
func (f *FailedFetches) Add(ctx context.Context, key record.Key, reason string) error {
	entry := FailedFetch{Type: key.Type, ID: key.ID, FailureTime: time.Now(), Reason: reason, Attempts: 1}
	if prev, err := f.Get(ctx, key); err == nil {
		entry.Attempts = prev.Attempts + 1
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal failed fetch: %w", err)
	}

	if err := f.client.ZAddNX(ctx, failedKey, redis.Z{
		Score:  float64(entry.FailureTime.Unix()),
		Member: member(key),
	}).Err(); err != nil {
		return fmt.Errorf("failed to add failed fetch: %w", err)
	}
	if err := f.client.Set(ctx, failedMetaPrefix+member(key), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store failed fetch metadata: %w", err)
	}
	return nil
}

func (f *FailedFetches) Get(ctx context.Context, key record.Key) (*FailedFetch, error) {
	data, err := f.client.Get(ctx, failedMetaPrefix+member(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s not in failed fetches", ports.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get failed fetch: %w", err)
	}
	var entry FailedFetch
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed fetch: %w", err)
	}
	return &entry, nil
}

// List returns up to limit keys, oldest failure first.
func (f *FailedFetches) List(ctx context.Context, limit int64) ([]record.Key, error) {
	members, err := f.client.ZRange(ctx, failedKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list failed fetches: %w", err)
	}
	keys := make([]record.Key, 0, len(members))
	for _, m := range members {
		if key, ok := parseMember(m); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *FailedFetches) Remove(ctx context.Context, key record.Key) error {
	if err := f.client.ZRem(ctx, failedKey, member(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove failed fetch: %w", err)
	}
	if err := f.client.Del(ctx, failedMetaPrefix+member(key)).Err(); err != nil {
		return fmt.Errorf("failed to remove failed fetch metadata: %w", err)
	}
	return nil
}

// Count returns the number of records waiting for a retry.
func (f *FailedFetches) Count(ctx context.Context) (int64, error) {
	count, err := f.client.ZCard(ctx, failedKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count failed fetches: %w", err)
	}
	return count, nil
}

package ports

import (
	"context"
	"errors"
	"time"

	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/record"
)

// ErrNotFound is returned, possibly wrapped, by adapters that do not know
// the requested record.
var ErrNotFound = errors.New("record not found")

// RecordFetcher loads raw records from the backend service.
type RecordFetcher interface {
	// Fetch returns the record plus any side-loaded records it references.
	Fetch(ctx context.Context, t domain.EntityType, id string) (*record.Document, error)
	// FetchLink follows a relationship link of an async relationship.
	FetchLink(ctx context.Context, link string) (*record.Document, error)
	// Query lists records of type t matching every filter pair.
	Query(ctx context.Context, t domain.EntityType, filter map[string]string) (*record.Document, error)
}

// RecordRepository keeps the latest snapshot of every record.
type RecordRepository interface {
	Save(ctx context.Context, r *record.Record) error
	Get(ctx context.Context, t domain.EntityType, id string) (*record.Record, error)
	List(ctx context.Context, t domain.EntityType, offset, limit int) ([]*record.Record, error)
	Count(ctx context.Context, t domain.EntityType) (int64, error)
	Delete(ctx context.Context, t domain.EntityType, id string) error
}

// RecordCache is a short lived shared cache in front of the fetcher.
type RecordCache interface {
	Get(ctx context.Context, t domain.EntityType, id string) (*record.Record, error) // nil, nil on miss
	Set(ctx context.Context, r *record.Record, ttl time.Duration) error
	Invalidate(ctx context.Context, t domain.EntityType, id string) error
}

type ChangePubSub interface {
	PublishChange(ctx context.Context, c domain.Change) error
	SubscribeChanges(ctx context.Context) (<-chan domain.Change, error)
}

// FetchFailures remembers records that could not be fetched so they can be
// retried later.
type FetchFailures interface {
	Add(ctx context.Context, key record.Key, reason string) error
	List(ctx context.Context, limit int64) ([]record.Key, error)
	Remove(ctx context.Context, key record.Key) error
}

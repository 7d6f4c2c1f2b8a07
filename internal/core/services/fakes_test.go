package services

import (
	"context"
	"sync"
	"time"

	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/ports"
	"tezui.dashboard/internal/core/record"
)

type fakeFetcher struct {
	mu      sync.Mutex
	docs    map[record.Key]*record.Document
	links   map[string]*record.Document
	queries map[domain.EntityType]*record.Document
	err     error
	// gate, when set, blocks FetchLink until closed.
	gate  chan struct{}
	calls int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		docs:    make(map[record.Key]*record.Document),
		links:   make(map[string]*record.Document),
		queries: make(map[domain.EntityType]*record.Document),
	}
}

func (f *fakeFetcher) add(data *record.Record, included ...*record.Record) {
	f.docs[data.Key()] = &record.Document{Data: []*record.Record{data}, Included: included}
}

func (f *fakeFetcher) Fetch(_ context.Context, t domain.EntityType, id string) (*record.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[record.Key{Type: t, ID: id}]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return doc, nil
}

func (f *fakeFetcher) FetchLink(ctx context.Context, link string) (*record.Document, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.links[link]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return doc, nil
}

func (f *fakeFetcher) Query(_ context.Context, t domain.EntityType, _ map[string]string) (*record.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.queries[t]
	if !ok {
		return &record.Document{}, nil
	}
	return doc, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeCache struct {
	mu          sync.Mutex
	records     map[record.Key]*record.Record
	invalidated []record.Key
}

func newFakeCache() *fakeCache {
	return &fakeCache{records: make(map[record.Key]*record.Record)}
}

func (c *fakeCache) Get(_ context.Context, t domain.EntityType, id string) (*record.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.records[record.Key{Type: t, ID: id}], nil
}

func (c *fakeCache) Set(_ context.Context, r *record.Record, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[r.Key()] = r.Clone()
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, t domain.EntityType, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := record.Key{Type: t, ID: id}
	delete(c.records, key)
	c.invalidated = append(c.invalidated, key)
	return nil
}

type fakeRepo struct {
	records map[record.Key]*record.Record
}

func (r *fakeRepo) Save(_ context.Context, rec *record.Record) error {
	r.records[rec.Key()] = rec.Clone()
	return nil
}

func (r *fakeRepo) Get(_ context.Context, t domain.EntityType, id string) (*record.Record, error) {
	rec, ok := r.records[record.Key{Type: t, ID: id}]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return rec.Clone(), nil
}

func (r *fakeRepo) List(context.Context, domain.EntityType, int, int) ([]*record.Record, error) {
	return nil, nil
}

func (r *fakeRepo) Count(context.Context, domain.EntityType) (int64, error) {
	return int64(len(r.records)), nil
}

func (r *fakeRepo) Delete(_ context.Context, t domain.EntityType, id string) error {
	delete(r.records, record.Key{Type: t, ID: id})
	return nil
}

type fakePubSub struct {
	mu      sync.Mutex
	changes []domain.Change
}

func (p *fakePubSub) PublishChange(_ context.Context, c domain.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}

func (p *fakePubSub) SubscribeChanges(context.Context) (<-chan domain.Change, error) {
	return make(chan domain.Change), nil
}

func vertexRecord(id string, attrs map[string]any) *record.Record {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &record.Record{Type: domain.EntityTypeVertex, ID: id, Attributes: attrs}
}

func edgeRecord(id, from, to string) *record.Record {
	r := &record.Record{Type: domain.EntityTypeEdge, ID: id, Attributes: map[string]any{"edgeType": "SCATTER_GATHER"}}
	return r.Relate("fromVertex", from).Relate("toVertex", to)
}

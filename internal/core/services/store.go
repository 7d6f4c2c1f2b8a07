package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"
	"time"

	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/logger"
	"tezui.dashboard/internal/core/ports"
	"tezui.dashboard/internal/core/record"
	"tezui.dashboard/internal/core/tracing"
)

var (
	ErrNotFound = ports.ErrNotFound
	// ErrIncomplete means an eager relationship could not be loaded.
	ErrIncomplete = errors.New("eager relationship not loaded")
)

// Store is an identity map of entities: one instance per (type, id). New
// data for a known id updates that instance in place. Entity fields are only
// written with mu held; readers outside the store should go through Read or
// the view builders.
type Store struct {
	mu       sync.RWMutex
	records  map[domain.EntityType]map[string]*record.Record
	entities map[domain.EntityType]map[string]domain.Entity

	fetcher  ports.RecordFetcher
	cache    ports.RecordCache
	cacheTTL time.Duration
	repo     ports.RecordRepository
	pubsub   ports.ChangePubSub
}

type StoreOption func(*Store)

// WithCache puts a shared record cache in front of the fetcher.
func WithCache(c ports.RecordCache, ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithRepository adds a snapshot repository used when the fetcher fails.
func WithRepository(r ports.RecordRepository) StoreOption {
	return func(s *Store) { s.repo = r }
}

// WithPubSub publishes every upsert and eviction.
func WithPubSub(p ports.ChangePubSub) StoreOption {
	return func(s *Store) { s.pubsub = p }
}

func NewStore(fetcher ports.RecordFetcher, opts ...StoreOption) *Store {
	s := &Store{
		records:  make(map[domain.EntityType]map[string]*record.Record),
		entities: make(map[domain.EntityType]map[string]domain.Entity),
		fetcher:  fetcher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Push materializes r, merging it into any record already held for the same
// id, and returns the entity instance for that id.
func (s *Store) Push(ctx context.Context, r *record.Record) (domain.Entity, error) {
	s.mu.Lock()
	e, err := s.pushLocked(r)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	s.notify(ctx, domain.Change{Op: domain.ChangeUpsert, Type: r.Type, ID: r.ID})
	return e, nil
}

// Load pushes a document, side-loaded records first, and completes the
// eager relationships of its primary records. Records that cannot be
// decoded are logged and skipped.
func (s *Store) Load(ctx context.Context, doc *record.Document) ([]domain.Entity, error) {
	for _, r := range doc.Included {
		if _, err := s.Push(ctx, r); err != nil {
			logger.WarnContext(ctx, "Skipping side-loaded record", "key", r.Key().String(), "error", err)
		}
	}
	out := make([]domain.Entity, 0, len(doc.Data))
	for _, r := range doc.Data {
		e, err := s.Push(ctx, r)
		if err != nil {
			logger.WarnContext(ctx, "Skipping record", "key", r.Key().String(), "error", err)
			continue
		}
		if err := s.completeEager(ctx, e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *Store) pushLocked(r *record.Record) (domain.Entity, error) {
	key := r.Key()
	merged := record.Merge(s.records[key.Type][key.ID], r)
	decoded, err := record.Decode(merged)
	if err != nil {
		return nil, err
	}

	byID := s.entities[key.Type]
	if byID == nil {
		byID = make(map[string]domain.Entity)
		s.entities[key.Type] = byID
		s.records[key.Type] = make(map[string]*record.Record)
	}

	e, exists := byID[key.ID]
	if exists {
		s.unlinkChanged(e, decoded)
		carryResolution(e, decoded)
		reflect.ValueOf(e).Elem().Set(reflect.ValueOf(decoded).Elem())
	} else {
		e = decoded
		byID[key.ID] = e
		entitiesGauge.WithLabelValues(string(key.Type)).Inc()
	}
	s.records[key.Type][key.ID] = merged
	s.link(e)
	return e, nil
}

// carryResolution keeps resolved relationships whose ids did not change.
func carryResolution(old, fresh domain.Entity) {
	o, ok := old.(*domain.TezApp)
	if !ok {
		return
	}
	n := fresh.(*domain.TezApp)
	if v, ok := o.AppDetail.Get(); ok && o.AppDetail.ID() == n.AppDetail.ID() {
		n.AppDetail = n.AppDetail.Resolve(v)
	}
	if v, ok := o.Dags.Get(); ok && slices.Equal(o.Dags.IDs(), n.Dags.IDs()) {
		n.Dags = n.Dags.Resolve(v)
	}
	if v, ok := o.Configs.Get(); ok && slices.Equal(o.Configs.IDs(), n.Configs.IDs()) {
		n.Configs = n.Configs.Resolve(v)
	}
}

// unlinkChanged drops inverse entries that an updated edge, counter group or
// counter no longer justifies.
func (s *Store) unlinkChanged(old, fresh domain.Entity) {
	switch o := old.(type) {
	case *domain.Edge:
		n := fresh.(*domain.Edge)
		// An end the new record leaves empty is kept, not dropped.
		if n.FromVertex.IsEmpty() {
			n.FromVertex = o.FromVertex
		} else if id := o.FromVertex.ID(); id != n.FromVertex.ID() {
			if v, ok := s.vertex(id); ok {
				v.OutgoingEdges = v.OutgoingEdges.Without(o.ID)
			}
		}
		if n.ToVertex.IsEmpty() {
			n.ToVertex = o.ToVertex
		} else if id := o.ToVertex.ID(); id != n.ToVertex.ID() {
			if v, ok := s.vertex(id); ok {
				v.IncomingEdges = v.IncomingEdges.Without(o.ID)
			}
		}
	case *domain.CounterGroup:
		n := fresh.(*domain.CounterGroup)
		if o.Parent != n.Parent {
			s.dropCounterGroup(o.Parent, o.ID)
		}
	case *domain.Counter:
		n := fresh.(*domain.Counter)
		if id := o.Parent.ID(); id != n.Parent.ID() {
			if g, ok := s.lookup(domain.EntityTypeCounterGroup, id); ok {
				cg := g.(*domain.CounterGroup)
				cg.Counters = cg.Counters.Without(o.ID)
			}
		}
	}
}

// link makes the inverse side of every relationship of e agree with e.
func (s *Store) link(e domain.Entity) {
	switch v := e.(type) {
	case *domain.Edge:
		if from, ok := s.vertex(v.FromVertex.ID()); ok {
			from.OutgoingEdges = from.OutgoingEdges.With(v.ID)
		}
		if to, ok := s.vertex(v.ToVertex.ID()); ok {
			to.IncomingEdges = to.IncomingEdges.With(v.ID)
		}
	case *domain.Vertex:
		for _, other := range s.entities[domain.EntityTypeEdge] {
			edge := other.(*domain.Edge)
			if edge.FromVertex.ID() == v.ID {
				v.OutgoingEdges = v.OutgoingEdges.With(edge.ID)
			}
			if edge.ToVertex.ID() == v.ID {
				v.IncomingEdges = v.IncomingEdges.With(edge.ID)
			}
		}
		// Edges listed by the vertex but loaded without that end. The end is
		// written to the edge record too so later merges keep it.
		for _, id := range v.IncomingEdges.IDs() {
			if edge, ok := s.edge(id); ok && edge.ToVertex.IsEmpty() {
				edge.ToVertex = domain.Unresolved[*domain.Vertex](v.ID)
				s.records[domain.EntityTypeEdge][id].Relate("toVertex", v.ID)
			}
		}
		for _, id := range v.OutgoingEdges.IDs() {
			if edge, ok := s.edge(id); ok && edge.FromVertex.IsEmpty() {
				edge.FromVertex = domain.Unresolved[*domain.Vertex](v.ID)
				s.records[domain.EntityTypeEdge][id].Relate("fromVertex", v.ID)
			}
		}
	case *domain.CounterGroup:
		if owner, ok := s.owner(v.Parent); ok {
			owner.AddCounterGroup(v.ID)
		}
		for _, other := range s.entities[domain.EntityTypeCounter] {
			c := other.(*domain.Counter)
			if c.Parent.ID() == v.ID {
				v.Counters = v.Counters.With(c.ID)
			}
		}
	case *domain.Counter:
		if g, ok := s.lookup(domain.EntityTypeCounterGroup, v.Parent.ID()); ok {
			cg := g.(*domain.CounterGroup)
			cg.Counters = cg.Counters.With(v.ID)
		}
	}

	if owner, ok := e.(domain.CounterOwner); ok {
		ref := domain.RefOf(owner)
		for _, other := range s.entities[domain.EntityTypeCounterGroup] {
			if cg := other.(*domain.CounterGroup); cg.Parent == ref {
				owner.AddCounterGroup(cg.ID)
			}
		}
	}
}

func (s *Store) lookup(t domain.EntityType, id string) (domain.Entity, bool) {
	if id == "" {
		return nil, false
	}
	e, ok := s.entities[t][id]
	return e, ok
}

func (s *Store) vertex(id string) (*domain.Vertex, bool) {
	e, ok := s.lookup(domain.EntityTypeVertex, id)
	if !ok {
		return nil, false
	}
	return e.(*domain.Vertex), true
}

func (s *Store) edge(id string) (*domain.Edge, bool) {
	e, ok := s.lookup(domain.EntityTypeEdge, id)
	if !ok {
		return nil, false
	}
	return e.(*domain.Edge), true
}

// owner resolves the polymorphic parent of a counter group.
func (s *Store) owner(ref domain.OwnerRef) (domain.CounterOwner, bool) {
	if !ref.Valid() {
		return nil, false
	}
	e, ok := s.lookup(ref.Type, ref.ID)
	if !ok {
		return nil, false
	}
	o, ok := e.(domain.CounterOwner)
	return o, ok
}

func (s *Store) dropCounterGroup(ref domain.OwnerRef, groupID string) {
	owner, ok := s.owner(ref)
	if !ok {
		return
	}
	switch o := owner.(type) {
	case *domain.Dag:
		o.CounterGroups = o.CounterGroups.Without(groupID)
	case *domain.Task:
		o.CounterGroups = o.CounterGroups.Without(groupID)
	case *domain.Vertex:
		o.CounterGroups = o.CounterGroups.Without(groupID)
	}
}

// completeEager makes sure every eager relationship of e is loaded and
// resolved, fetching missing targets.
func (s *Store) completeEager(ctx context.Context, e domain.Entity) error {
	app, ok := e.(*domain.TezApp)
	if !ok {
		return nil
	}
	s.mu.RLock()
	ids := app.Configs.IDs()
	s.mu.RUnlock()

	configs := make([]*domain.KVDatum, 0, len(ids))
	for _, id := range ids {
		d, ok := s.Peek(domain.EntityTypeKVDatum, id)
		if !ok {
			var err error
			d, err = s.load(ctx, domain.EntityTypeKVDatum, id)
			if err != nil {
				return fmt.Errorf("%w: %s config %s: %v", ErrIncomplete, app.ID, id, err)
			}
		}
		configs = append(configs, d.(*domain.KVDatum))
	}

	s.mu.Lock()
	app.Configs = app.Configs.Resolve(configs)
	s.mu.Unlock()
	return nil
}

// Peek returns a loaded entity without fetching.
func (s *Store) Peek(t domain.EntityType, id string) (domain.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lookup(t, id)
}

// Record returns a copy of the merged raw record held for an entity.
func (s *Store) Record(t domain.EntityType, id string) (*record.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[t][id]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// All returns the loaded entities of type t ordered by id.
func (s *Store) All(t domain.EntityType) []domain.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Entity, 0, len(s.entities[t]))
	for _, e := range s.entities[t] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out
}

// Read runs fn with the store read lock held.
func (s *Store) Read(fn func()) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn()
}

// Find returns the entity, loading it when it is not in the identity map.
func (s *Store) Find(ctx context.Context, t domain.EntityType, id string) (domain.Entity, error) {
	if e, ok := s.Peek(t, id); ok {
		return e, nil
	}
	ctx, span := tracing.StartSpan(ctx, "store.Find")
	defer span.End()

	e, err := s.load(ctx, t, id)
	if err != nil {
		return nil, err
	}
	if err := s.completeEager(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// Refresh reloads an entity from the backend, skipping the identity map and
// the cache. Backend errors are returned as is.
func (s *Store) Refresh(ctx context.Context, t domain.EntityType, id string) (domain.Entity, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: no backend for %s %s", ErrNotFound, t, id)
	}
	ctx, span := tracing.StartSpan(ctx, "store.Refresh")
	defer span.End()

	doc, err := s.fetcher.Fetch(ctx, t, id)
	if err != nil {
		fetchesTotal.WithLabelValues(string(t), "backend", "error").Inc()
		return nil, err
	}
	fetchesTotal.WithLabelValues(string(t), "backend", "ok").Inc()
	if _, err := s.Load(ctx, doc); err != nil {
		return nil, err
	}
	s.cacheDocument(ctx, doc)
	e, ok := s.Peek(t, id)
	if !ok {
		return nil, fmt.Errorf("%w: backend answered without %s %s", ErrNotFound, t, id)
	}
	return e, nil
}

// FindAs is Find for a concrete entity type.
func FindAs[T domain.Entity](ctx context.Context, s *Store, id string) (T, error) {
	var zero T
	e, err := s.Find(ctx, zero.EntityType(), id)
	if err != nil {
		return zero, err
	}
	v, ok := e.(T)
	if !ok {
		return zero, fmt.Errorf("%s %s has type %T", zero.EntityType(), id, e)
	}
	return v, nil
}

// load tries the cache, then the fetcher, then the repository.
func (s *Store) load(ctx context.Context, t domain.EntityType, id string) (domain.Entity, error) {
	if s.cache != nil {
		r, err := s.cache.Get(ctx, t, id)
		if err != nil {
			logger.WarnContext(ctx, "Record cache read failed", "type", t, "id", id, "error", err)
		} else if r != nil {
			fetchesTotal.WithLabelValues(string(t), "cache", "hit").Inc()
			return s.Push(ctx, r)
		}
	}

	var fetchErr error
	if s.fetcher != nil {
		doc, err := s.fetcher.Fetch(ctx, t, id)
		if err == nil {
			fetchesTotal.WithLabelValues(string(t), "backend", "ok").Inc()
			if _, err := s.Load(ctx, doc); err != nil {
				return nil, err
			}
			s.cacheDocument(ctx, doc)
			if e, ok := s.Peek(t, id); ok {
				return e, nil
			}
			err = fmt.Errorf("%w: backend answered without %s %s", ErrNotFound, t, id)
		}
		fetchesTotal.WithLabelValues(string(t), "backend", "error").Inc()
		fetchErr = err
	}

	if s.repo != nil {
		r, err := s.repo.Get(ctx, t, id)
		if err == nil {
			fetchesTotal.WithLabelValues(string(t), "repository", "hit").Inc()
			if fetchErr != nil {
				logger.WarnContext(ctx, "Serving snapshot after fetch failure", "type", t, "id", id, "error", fetchErr)
			}
			return s.Push(ctx, r)
		}
		if !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "Snapshot read failed", "type", t, "id", id, "error", err)
		}
	}

	if fetchErr != nil {
		return nil, fetchErr
	}
	return nil, fmt.Errorf("%w: %s %s", ErrNotFound, t, id)
}

func (s *Store) cacheDocument(ctx context.Context, doc *record.Document) {
	if s.cache == nil {
		return
	}
	for _, r := range slices.Concat(doc.Data, doc.Included) {
		if err := s.cache.Set(ctx, r, s.cacheTTL); err != nil {
			logger.WarnContext(ctx, "Record cache write failed", "key", r.Key().String(), "error", err)
			return
		}
	}
}

// Query asks the backend for entities of type t matching filter. When the
// backend is unavailable the loaded entities are filtered locally.
func (s *Store) Query(ctx context.Context, t domain.EntityType, filter map[string]string) ([]domain.Entity, error) {
	if s.fetcher != nil {
		doc, err := s.fetcher.Query(ctx, t, filter)
		if err == nil {
			return s.Load(ctx, doc)
		}
		logger.WarnContext(ctx, "Backend query failed, filtering loaded entities", "type", t, "error", err)
	}
	return s.Filter(t, filter), nil
}

// Filter returns loaded entities whose raw attributes equal every filter
// value, ordered by id.
func (s *Store) Filter(t domain.EntityType, filter map[string]string) []domain.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Entity
	for id, r := range s.records[t] {
		if matches(r, filter) {
			out = append(out, s.entities[t][id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out
}

func matches(r *record.Record, filter map[string]string) bool {
	for k, want := range filter {
		v, ok := r.Attributes[k]
		if !ok || fmt.Sprint(v) != want {
			return false
		}
	}
	return true
}

// Evict forgets an entity and drops it from the inverse side of its
// relationships.
func (s *Store) Evict(ctx context.Context, t domain.EntityType, id string) bool {
	s.mu.Lock()
	e, ok := s.lookup(t, id)
	if ok {
		switch v := e.(type) {
		case *domain.Edge:
			if from, ok := s.vertex(v.FromVertex.ID()); ok {
				from.OutgoingEdges = from.OutgoingEdges.Without(v.ID)
			}
			if to, ok := s.vertex(v.ToVertex.ID()); ok {
				to.IncomingEdges = to.IncomingEdges.Without(v.ID)
			}
		case *domain.CounterGroup:
			s.dropCounterGroup(v.Parent, v.ID)
		case *domain.Counter:
			if g, ok := s.lookup(domain.EntityTypeCounterGroup, v.Parent.ID()); ok {
				cg := g.(*domain.CounterGroup)
				cg.Counters = cg.Counters.Without(v.ID)
			}
		}
		delete(s.entities[t], id)
		delete(s.records[t], id)
		entitiesGauge.WithLabelValues(string(t)).Dec()
	}
	s.mu.Unlock()
	if !ok {
		return false
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, t, id); err != nil {
			logger.WarnContext(ctx, "Record cache invalidation failed", "type", t, "id", id, "error", err)
		}
	}
	s.notify(ctx, domain.Change{Op: domain.ChangeEvict, Type: t, ID: id})
	return true
}

func (s *Store) notify(ctx context.Context, c domain.Change) {
	if s.pubsub == nil {
		return
	}
	if err := s.pubsub.PublishChange(ctx, c); err != nil {
		logger.WarnContext(ctx, "Failed to publish change", "type", c.Type, "id", c.ID, "error", err)
	}
}

package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/record"
)

// ResolveOne loads the target of a to-one relationship. An empty handle
// resolves to the zero value.
func ResolveOne[T domain.Entity](ctx context.Context, s *Store, h domain.Handle[T]) *Future[T] {
	if v, ok := h.Get(); ok {
		return Completed(v, nil)
	}
	if h.IsEmpty() {
		var zero T
		return Completed(zero, nil)
	}
	id := h.ID()
	return Go(ctx, func(ctx context.Context) (T, error) {
		return FindAs[T](ctx, s, id)
	})
}

// ResolveMany loads every target of a to-many relationship, keeping the
// order of the ids.
func ResolveMany[T domain.Entity](ctx context.Context, s *Store, m domain.Many[T]) *Future[[]T] {
	if v, ok := m.Get(); ok {
		return Completed(v, nil)
	}
	ids := m.IDs()
	return Go(ctx, func(ctx context.Context) ([]T, error) {
		return findAll[T](ctx, s, ids)
	})
}

func findAll[T domain.Entity](ctx context.Context, s *Store, ids []string) ([]T, error) {
	out := make([]T, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, id := range ids {
		g.Go(func() error {
			v, err := FindAs[T](ctx, s, id)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveAppDetail loads the resource manager detail of app on demand and
// records it on the app.
func (s *Store) ResolveAppDetail(ctx context.Context, app *domain.TezApp) *Future[*domain.AppDetail] {
	s.mu.RLock()
	appID, h := app.ID, app.AppDetail
	s.mu.RUnlock()

	if v, ok := h.Get(); ok {
		return Completed(v, nil)
	}
	if h.IsEmpty() {
		return Completed[*domain.AppDetail](nil, nil)
	}
	return Go(ctx, func(ctx context.Context) (*domain.AppDetail, error) {
		start := time.Now()
		d, err := FindAs[*domain.AppDetail](ctx, s, h.ID())
		observeResolve("appDetail", start, err)
		if err != nil {
			return nil, fmt.Errorf("resolve appDetail of %s: %w", appID, err)
		}
		s.mu.Lock()
		if app.AppDetail.ID() == h.ID() {
			app.AppDetail = app.AppDetail.Resolve(d)
		}
		s.mu.Unlock()
		return d, nil
	})
}

// ResolveDags loads the DAGs of app on demand. When the app record carries
// no dag ids the relationship link is followed instead.
func (s *Store) ResolveDags(ctx context.Context, app *domain.TezApp) *Future[[]*domain.Dag] {
	s.mu.RLock()
	appID, m := app.ID, app.Dags
	var link string
	if r, ok := s.records[domain.EntityTypeTezApp][appID]; ok {
		link = r.Relationships["dags"].Link
	}
	s.mu.RUnlock()

	if v, ok := m.Get(); ok {
		return Completed(v, nil)
	}
	if m.Len() == 0 && link == "" {
		return Completed([]*domain.Dag{}, nil)
	}

	return Go(ctx, func(ctx context.Context) (dags []*domain.Dag, err error) {
		defer func(start time.Time) { observeResolve("dags", start, err) }(time.Now())
		ids := m.IDs()
		if len(ids) == 0 {
			if ids, err = s.followLink(ctx, appID, link); err != nil {
				return nil, fmt.Errorf("resolve dags of %s: %w", appID, err)
			}
		}
		dags, err = findAll[*domain.Dag](ctx, s, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve dags of %s: %w", appID, err)
		}
		s.mu.Lock()
		app.Dags = domain.ResolvedMany(ids, dags)
		s.mu.Unlock()
		return dags, nil
	})
}

// followLink loads the records behind a relationship link and stores their
// ids on the app record so later pushes keep them.
func (s *Store) followLink(ctx context.Context, appID, link string) ([]string, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: no backend for link %s", ErrNotFound, link)
	}
	doc, err := s.fetcher.FetchLink(ctx, link)
	if err != nil {
		return nil, err
	}
	entities, err := s.Load(ctx, doc)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entities))
	for _, e := range entities {
		ids = append(ids, e.EntityID())
	}

	s.mu.Lock()
	if r, ok := s.records[domain.EntityTypeTezApp][appID]; ok {
		r.Relationships["dags"] = record.Relationship{Data: ids, Link: link}
	}
	s.mu.Unlock()
	return ids, nil
}

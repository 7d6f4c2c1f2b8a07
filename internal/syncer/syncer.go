package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/semaphore"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/logger"
	"tezui.dashboard/internal/core/ports"
	"tezui.dashboard/internal/core/record"
	"tezui.dashboard/internal/core/services"
)

const (
	defaultInterval    = 30 * time.Second
	defaultConcurrency = 4
	retryBatch         = 50
	shutdownTimeout    = 30 * time.Second
)

type Options struct {
	// Apps lists YARN application ids (or tez_ entity ids) to keep loaded.
	Apps        []string
	Interval    time.Duration
	Concurrency int64
	Clock       clock.Clock
}

// Syncer periodically reloads configured Tez applications and their DAGs
// into the store and snapshots what it loaded.
type Syncer struct {
	store    *services.Store
	repo     ports.RecordRepository
	failures ports.FetchFailures

	apps     []string
	interval time.Duration
	clock    clock.Clock

	// Concurrency control
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// Stats summarizes one sync cycle.
type Stats struct {
	Synced  int
	Saved   int
	Failed  int
	Retried int
}

// New creates a syncer. repo and failures may be nil.
func New(store *services.Store, repo ports.RecordRepository, failures ports.FetchFailures, opts Options) *Syncer {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	return &Syncer{
		store:    store,
		repo:     repo,
		failures: failures,
		apps:     opts.Apps,
		interval: opts.Interval,
		clock:    opts.Clock,
		sem:      semaphore.NewWeighted(opts.Concurrency),
	}
}

// Run syncs once immediately and then on every tick until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	logger.Info("Syncer started", "apps", len(s.apps), "interval", s.interval.String())

	ticker := s.clock.Ticker(s.interval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Syncer shutting down, waiting for running syncs")
			done := make(chan struct{})
			go func() {
				s.wg.Wait()
				close(done)
			}()
			select {
			case <-done:
				logger.Info("Syncer stopped")
			case <-time.After(shutdownTimeout):
				logger.Warn("Shutdown timeout reached, some syncs may still be running")
			}
			return nil
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

func (s *Syncer) cycle(ctx context.Context) {
	stats := s.SyncOnce(ctx)
	logger.InfoContext(ctx, "Sync cycle finished",
		"synced", stats.Synced, "saved", stats.Saved, "failed", stats.Failed, "retried", stats.Retried)
}

// SyncOnce runs one full cycle: failed fetches are retried first, then every
// configured application is reloaded.
func (s *Syncer) SyncOnce(ctx context.Context) Stats {
	var (
		mu    sync.Mutex
		stats Stats
	)
	add := func(res result) {
		mu.Lock()
		defer mu.Unlock()
		stats.Saved += res.saved
		if res.err != nil {
			stats.Failed++
		} else {
			stats.Synced++
		}
	}

	stats.Retried = s.retryFailed(ctx)

	for _, app := range s.apps {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			break
		}
		s.wg.Add(1)
		go func(app string) {
			defer s.wg.Done()
			defer s.sem.Release(1)
			add(s.syncApp(ctx, app))
		}(app)
	}
	s.wg.Wait()
	return stats
}

type result struct {
	saved int
	err   error
}

// syncApp reloads one application, its DAGs and their vertices.
func (s *Syncer) syncApp(ctx context.Context, appID string) result {
	id := appID
	if !strings.HasPrefix(id, "tez_") {
		id = domain.TezAppID(appID)
	}
	var res result
	keys := []record.Key{}

	e, err := s.store.Refresh(ctx, domain.EntityTypeTezApp, id)
	if err != nil {
		res.err = s.fail(ctx, record.Key{Type: domain.EntityTypeTezApp, ID: id}, err)
		return res
	}
	app := e.(*domain.TezApp)
	keys = append(keys, record.Key{Type: domain.EntityTypeTezApp, ID: id})
	s.store.Read(func() {
		for _, kv := range app.Configs.IDs() {
			keys = append(keys, record.Key{Type: domain.EntityTypeKVDatum, ID: kv})
		}
	})

	dags, err := s.store.ResolveDags(ctx, app).Wait(ctx)
	if err != nil {
		res.err = s.fail(ctx, record.Key{Type: domain.EntityTypeTezApp, ID: id}, err)
		res.saved = s.snapshot(ctx, keys)
		return res
	}
	for _, d := range dags {
		dagID := d.EntityID()
		if _, err := s.store.Refresh(ctx, domain.EntityTypeDag, dagID); err != nil {
			res.err = s.fail(ctx, record.Key{Type: domain.EntityTypeDag, ID: dagID}, err)
			continue
		}
		keys = append(keys, record.Key{Type: domain.EntityTypeDag, ID: dagID})

		vertices, err := s.store.Query(ctx, domain.EntityTypeVertex, map[string]string{"dagID": dagID})
		if err != nil {
			res.err = s.fail(ctx, record.Key{Type: domain.EntityTypeDag, ID: dagID}, err)
			continue
		}
		for _, v := range vertices {
			keys = append(keys, record.Key{Type: domain.EntityTypeVertex, ID: v.EntityID()})
		}
	}
	res.saved = s.snapshot(ctx, keys)
	return res
}

// retryFailed refreshes entities from the failed-fetch ledger and returns
// how many succeeded.
func (s *Syncer) retryFailed(ctx context.Context) int {
	if s.failures == nil {
		return 0
	}
	keys, err := s.failures.List(ctx, retryBatch)
	if err != nil {
		logger.Warn("Failed to list failed fetches", "error", err)
		return 0
	}
	retried := 0
	for _, key := range keys {
		if _, err := s.store.Refresh(ctx, key.Type, key.ID); err != nil {
			logger.Debug("Retry failed", "key", key.String(), "error", err)
			continue
		}
		if err := s.failures.Remove(ctx, key); err != nil {
			logger.Warn("Failed to clear failed fetch", "key", key.String(), "error", err)
		}
		s.snapshot(ctx, []record.Key{key})
		retried++
	}
	return retried
}

func (s *Syncer) fail(ctx context.Context, key record.Key, err error) error {
	logger.Warn("Sync fetch failed", "key", key.String(), "error", err)
	if s.failures != nil && !errors.Is(err, context.Canceled) {
		if ferr := s.failures.Add(ctx, key, err.Error()); ferr != nil {
			logger.Warn("Failed to record failed fetch", "key", key.String(), "error", ferr)
		}
	}
	return fmt.Errorf("sync %s: %w", key, err)
}

// snapshot writes the store's merged records to the repository.
func (s *Syncer) snapshot(ctx context.Context, keys []record.Key) int {
	if s.repo == nil {
		return 0
	}
	saved := 0
	for _, key := range keys {
		r, ok := s.store.Record(key.Type, key.ID)
		if !ok {
			continue
		}
		if err := s.repo.Save(ctx, r); err != nil {
			logger.Warn("Snapshot failed", "key", key.String(), "error", err)
			continue
		}
		saved++
	}
	return saved
}

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/record"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisAdapter_Cache(t *testing.T) {
	mr, client := newTestClient(t)
	adapter := NewWithClient(client)
	ctx := context.Background()

	got, err := adapter.Get(ctx, domain.EntityTypeDag, "dag_1_0001_1")
	if err != nil || got != nil {
		t.Fatalf("Get() on miss = %v, %v", got, err)
	}

	rec := &record.Record{Type: domain.EntityTypeDag, ID: "dag_1_0001_1", Attributes: map[string]any{"name": "q1"}}
	if err := adapter.Set(ctx, rec, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if !mr.Exists("tezui:record:dag:dag_1_0001_1") {
		t.Errorf("record key not written")
	}

	got, err = adapter.Get(ctx, domain.EntityTypeDag, "dag_1_0001_1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.Attributes["name"] != "q1" {
		t.Errorf("Get() = %+v", got)
	}

	mr.FastForward(2 * time.Minute)
	if got, _ := adapter.Get(ctx, domain.EntityTypeDag, "dag_1_0001_1"); got != nil {
		t.Errorf("record outlived its ttl")
	}

	adapter.Set(ctx, rec, 0)
	if err := adapter.Invalidate(ctx, domain.EntityTypeDag, "dag_1_0001_1"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if mr.Exists("tezui:record:dag:dag_1_0001_1") {
		t.Errorf("record key not deleted")
	}
}

func TestRedisAdapter_Changes(t *testing.T) {
	_, client := newTestClient(t)
	adapter := NewWithClient(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := adapter.SubscribeChanges(ctx)
	if err != nil {
		t.Fatalf("SubscribeChanges() error = %v", err)
	}
	want := domain.Change{Op: domain.ChangeUpsert, Type: domain.EntityTypeVertex, ID: "v1"}
	if err := adapter.PublishChange(ctx, want); err != nil {
		t.Fatalf("PublishChange() error = %v", err)
	}

	select {
	case got := <-ch:
		if got != want {
			t.Errorf("received %+v, want %+v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no change received")
	}
}

func TestFailedFetches(t *testing.T) {
	_, client := newTestClient(t)
	failed := NewFailedFetches(client)
	ctx := context.Background()

	first := record.Key{Type: domain.EntityTypeDag, ID: "dag_1_0001_1"}
	second := record.Key{Type: domain.EntityTypeTezApp, ID: "tez_application_1_0001"}
	if err := failed.Add(ctx, first, "timeout"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := failed.Add(ctx, second, "503"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := failed.Add(ctx, first, "timeout again"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	entry, err := failed.Get(ctx, first)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if entry.Attempts != 2 || entry.Reason != "timeout again" {
		t.Errorf("entry = %+v", entry)
	}

	keys, err := failed.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("List() = %v", keys)
	}

	if err := failed.Remove(ctx, first); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if n, _ := failed.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

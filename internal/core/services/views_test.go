package services

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/record"
)

func TestViews_VertexDerivedFields(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.UnixMilli(10_000))

	s := NewStore(nil)
	mustPush(t, s, vertexRecord("v1", map[string]any{
		"startTime":      6_000,
		"fileReadBytes":  1024,
		"hdfsReadBytes":  1024,
		"fileWriteBytes": 512,
		"tasksCount":     7,
	}))
	views := NewViews(s, clk)

	got, err := views.Vertex(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Vertex() error = %v", err)
	}
	if got.Duration != 4_000 || got.DurationDisplay != "4.00 secs" {
		t.Errorf("duration = %d %q", got.Duration, got.DurationDisplay)
	}
	if got.TotalReadBytes != 2048 || got.TotalReadBytesDisplay != "2.00 KB" {
		t.Errorf("read bytes = %d %q", got.TotalReadBytes, got.TotalReadBytesDisplay)
	}
	if got.TotalWriteBytes != 512 || got.TotalWriteBytesDisplay != "512 Bytes" {
		t.Errorf("write bytes = %d %q", got.TotalWriteBytes, got.TotalWriteBytesDisplay)
	}
	if got.TasksNumber != 7 {
		t.Errorf("TasksNumber = %d", got.TasksNumber)
	}

	// A running vertex keeps growing with the clock.
	clk.Add(2 * time.Second)
	later, _ := views.Vertex(context.Background(), "v1")
	if later.Duration != 6_000 {
		t.Errorf("Duration after 2s = %d", later.Duration)
	}
}

func TestViews_VertexNotStarted(t *testing.T) {
	s := NewStore(nil)
	mustPush(t, s, vertexRecord("v1", nil))
	views := NewViews(s, clock.NewMock())

	got, err := views.Vertex(context.Background(), "v1")
	if err != nil {
		t.Fatalf("Vertex() error = %v", err)
	}
	if got.Duration != 0 || got.TotalReadBytesDisplay != "0 Bytes" || got.TasksNumber != 0 {
		t.Errorf("unexpected derived fields %+v", got)
	}
}

func TestViews_AppConfig(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Load(context.Background(), &record.Document{
		Data:     []*record.Record{tezAppRecord("tez_app1", "kv1")},
		Included: []*record.Record{kvRecord("kv1", "tez.queue.name", "etl")},
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got, err := NewViews(s, nil).App(context.Background(), "tez_app1")
	if err != nil {
		t.Fatalf("App() error = %v", err)
	}
	if got.Config["tez.queue.name"] != "etl" {
		t.Errorf("Config = %v", got.Config)
	}
}

func TestViews_CounterGroup(t *testing.T) {
	s := NewStore(nil)
	mustPush(t, s, &record.Record{Type: domain.EntityTypeCounterGroup, ID: "g1", Attributes: map[string]any{"name": "FileSystemCounter"}})
	for _, id := range []string{"c1", "c2"} {
		c := &record.Record{Type: domain.EntityTypeCounter, ID: id, Attributes: map[string]any{"name": id, "value": 5}}
		mustPush(t, s, c.Relate("parent", "g1"))
	}

	group, counters, err := NewViews(s, nil).CounterGroup(context.Background(), "g1")
	if err != nil {
		t.Fatalf("CounterGroup() error = %v", err)
	}
	if group.Name != "FileSystemCounter" || len(counters) != 2 {
		t.Fatalf("group = %+v counters = %d", group, len(counters))
	}
	if counters[0].Name != "c1" || counters[1].Value != 5 {
		t.Errorf("unexpected counters %+v", counters)
	}
}

package services

import (
	"context"

	"github.com/benbjohnson/clock"

	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/format"
)

// VertexView is a vertex snapshot with its derived fields evaluated.
type VertexView struct {
	domain.Vertex
	Duration               int64  `json:"duration"`
	DurationDisplay        string `json:"durationDisplay"`
	TotalReadBytes         int64  `json:"totalReadBytes"`
	TotalWriteBytes        int64  `json:"totalWriteBytes"`
	TotalReadBytesDisplay  string `json:"totalReadBytesDisplay"`
	TotalWriteBytesDisplay string `json:"totalWriteBytesDisplay"`
	TasksNumber            int64  `json:"tasksNumber"`
}

type DagView struct {
	domain.Dag
	Duration        int64  `json:"duration"`
	DurationDisplay string `json:"durationDisplay"`
}

type TaskView struct {
	domain.Task
	Duration        int64  `json:"duration"`
	DurationDisplay string `json:"durationDisplay"`
}

// AppView is a Tez app with its configuration flattened.
type AppView struct {
	domain.TezApp
	Config map[string]string `json:"config"`
}

// Views builds read models from the store. Duration-based fields are
// evaluated against the clock.
type Views struct {
	store *Store
	clock clock.Clock
}

func NewViews(store *Store, clk clock.Clock) *Views {
	if clk == nil {
		clk = clock.New()
	}
	return &Views{store: store, clock: clk}
}

func (v *Views) Vertex(ctx context.Context, id string) (*VertexView, error) {
	vx, err := FindAs[*domain.Vertex](ctx, v.store, id)
	if err != nil {
		return nil, err
	}
	var out VertexView
	v.store.Read(func() { out = v.vertexView(vx) })
	return &out, nil
}

// Vertices lists the vertices of a DAG.
func (v *Views) Vertices(ctx context.Context, dagID string) ([]VertexView, error) {
	entities, err := v.store.Query(ctx, domain.EntityTypeVertex, map[string]string{"dagID": dagID})
	if err != nil {
		return nil, err
	}
	out := make([]VertexView, 0, len(entities))
	v.store.Read(func() {
		for _, e := range entities {
			out = append(out, v.vertexView(e.(*domain.Vertex)))
		}
	})
	return out, nil
}

func (v *Views) vertexView(vx *domain.Vertex) VertexView {
	now := v.clock.Now()
	return VertexView{
		Vertex:                 *vx,
		Duration:               vx.Duration(now),
		DurationDisplay:        vx.DurationDisplay(now),
		TotalReadBytes:         vx.TotalReadBytes(),
		TotalWriteBytes:        vx.TotalWriteBytes(),
		TotalReadBytesDisplay:  vx.TotalReadBytesDisplay(),
		TotalWriteBytesDisplay: vx.TotalWriteBytesDisplay(),
		TasksNumber:            vx.TasksNumber(),
	}
}

func (v *Views) Dag(ctx context.Context, id string) (*DagView, error) {
	d, err := FindAs[*domain.Dag](ctx, v.store, id)
	if err != nil {
		return nil, err
	}
	var out DagView
	v.store.Read(func() { out = v.dagView(d) })
	return &out, nil
}

func (v *Views) dagView(d *domain.Dag) DagView {
	ms := d.Duration(v.clock.Now())
	return DagView{Dag: *d, Duration: ms, DurationDisplay: format.TimingFormat(ms, true)}
}

func (v *Views) Task(ctx context.Context, id string) (*TaskView, error) {
	t, err := FindAs[*domain.Task](ctx, v.store, id)
	if err != nil {
		return nil, err
	}
	var out TaskView
	v.store.Read(func() {
		ms := t.Duration(v.clock.Now())
		out = TaskView{Task: *t, Duration: ms, DurationDisplay: format.TimingFormat(ms, true)}
	})
	return &out, nil
}

func (v *Views) App(ctx context.Context, id string) (*AppView, error) {
	app, err := FindAs[*domain.TezApp](ctx, v.store, id)
	if err != nil {
		return nil, err
	}
	var out AppView
	v.store.Read(func() {
		out = AppView{TezApp: *app, Config: make(map[string]string)}
		configs, _ := app.Configs.Get()
		for _, kv := range configs {
			out.Config[kv.Key] = kv.Value
		}
	})
	return &out, nil
}

// AppDetail waits for the on-demand resolution of the app detail.
func (v *Views) AppDetail(ctx context.Context, appID string) (*domain.AppDetail, error) {
	app, err := FindAs[*domain.TezApp](ctx, v.store, appID)
	if err != nil {
		return nil, err
	}
	d, err := v.store.ResolveAppDetail(ctx, app).Wait(ctx)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	var out domain.AppDetail
	v.store.Read(func() { out = *d })
	return &out, nil
}

// AppDags waits for the on-demand resolution of the DAGs of an app.
func (v *Views) AppDags(ctx context.Context, appID string) ([]DagView, error) {
	app, err := FindAs[*domain.TezApp](ctx, v.store, appID)
	if err != nil {
		return nil, err
	}
	dags, err := v.store.ResolveDags(ctx, app).Wait(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DagView, 0, len(dags))
	v.store.Read(func() {
		for _, d := range dags {
			out = append(out, v.dagView(d))
		}
	})
	return out, nil
}

// CounterGroup returns a counter group with its counters resolved.
func (v *Views) CounterGroup(ctx context.Context, id string) (*domain.CounterGroup, []domain.Counter, error) {
	g, err := FindAs[*domain.CounterGroup](ctx, v.store, id)
	if err != nil {
		return nil, nil, err
	}
	var ids domain.Many[*domain.Counter]
	v.store.Read(func() { ids = g.Counters })
	counters, err := ResolveMany(ctx, v.store, ids).Wait(ctx)
	if err != nil {
		return nil, nil, err
	}
	var group domain.CounterGroup
	out := make([]domain.Counter, 0, len(counters))
	v.store.Read(func() {
		group = *g
		for _, c := range counters {
			out = append(out, *c)
		}
	})
	return &group, out, nil
}

func (v *Views) Edge(ctx context.Context, id string) (*domain.Edge, error) {
	e, err := FindAs[*domain.Edge](ctx, v.store, id)
	if err != nil {
		return nil, err
	}
	var out domain.Edge
	v.store.Read(func() { out = *e })
	return &out, nil
}

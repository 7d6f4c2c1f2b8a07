package record

import (
	"errors"
	"testing"

	"tezui.dashboard/internal/core/domain"
)

func TestDecodeVertex(t *testing.T) {
	r := &Record{
		Type: domain.EntityTypeVertex,
		ID:   "vertex_1_0001_1_00",
		Attributes: map[string]any{
			"name":           "Map 1",
			"status":         "RUNNING",
			"type":           "MAP",
			"startTime":      1000,
			"fileReadBytes":  1024,
			"hdfsReadBytes":  1024,
			"sucessfulTasks": 3,
			"operations":     []string{"TableScan", "Filter"},
		},
	}
	r.Relate("dag", "dag_1_0001_1")
	r.Relate("incomingEdges", "e1")

	e, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	v, ok := e.(*domain.Vertex)
	if !ok {
		t.Fatalf("Decode() returned %T", e)
	}
	if v.ID != r.ID || v.Name != "Map 1" {
		t.Errorf("unexpected identity %q %q", v.ID, v.Name)
	}
	if v.Status != domain.VertexStateRunning || v.Type != domain.VertexTypeMap {
		t.Errorf("unexpected enums %v %v", v.Status, v.Type)
	}
	if v.StartTime == nil || *v.StartTime != 1000 || v.EndTime != nil {
		t.Errorf("unexpected times %v %v", v.StartTime, v.EndTime)
	}
	if v.TotalReadBytes() != 2048 {
		t.Errorf("TotalReadBytes() = %d", v.TotalReadBytes())
	}
	if v.SuccessfulTasks != 3 {
		t.Errorf("legacy sucessfulTasks not mapped, got %d", v.SuccessfulTasks)
	}
	if v.Dag.ID() != "dag_1_0001_1" || v.Dag.IsResolved() {
		t.Errorf("unexpected dag handle %+v", v.Dag)
	}
	if got := v.IncomingEdges.IDs(); len(got) != 1 || got[0] != "e1" {
		t.Errorf("IncomingEdges = %v", got)
	}
	if v.OutgoingEdges.Len() != 0 {
		t.Errorf("OutgoingEdges = %v", v.OutgoingEdges.IDs())
	}
	if len(v.Operations) != 2 {
		t.Errorf("Operations = %v", v.Operations)
	}
}

func TestDecodeKeepsUnknownStatus(t *testing.T) {
	e, err := Decode(&Record{
		Type:       domain.EntityTypeDag,
		ID:         "dag_1",
		Attributes: map[string]any{"status": "SUSPENDED", "name": "q1"},
	})
	if err != nil {
		t.Fatalf("out-of-enum status must not be rejected: %v", err)
	}
	d := e.(*domain.Dag)
	if d.Status != domain.VertexStateUnknown || d.Name != "q1" {
		t.Errorf("unexpected dag %+v", d)
	}
}

func TestDecodePolymorphicParent(t *testing.T) {
	r := &Record{
		Type:       domain.EntityTypeCounterGroup,
		ID:         "cg1",
		Attributes: map[string]any{"name": "org.apache.tez.common.counters.FileSystemCounter"},
		Relationships: map[string]Relationship{
			"parent":   {Type: domain.EntityTypeTask, Data: []string{"task_1"}},
			"counters": {Data: []string{"c1", "c2"}},
		},
	}
	e, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	g := e.(*domain.CounterGroup)
	if g.Parent != (domain.OwnerRef{Type: domain.EntityTypeTask, ID: "task_1"}) {
		t.Errorf("Parent = %v", g.Parent)
	}
	if !g.Parent.Valid() {
		t.Error("task parent should be valid")
	}
	if g.Counters.Len() != 2 {
		t.Errorf("Counters = %v", g.Counters.IDs())
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := Decode(&Record{Type: "job", ID: "x"}); !errors.Is(err, ErrUnknownEntityType) {
		t.Errorf("expected ErrUnknownEntityType, got %v", err)
	}
	if _, err := Decode(&Record{Type: domain.EntityTypeDag}); !errors.Is(err, ErrMissingID) {
		t.Errorf("expected ErrMissingID, got %v", err)
	}
}

func TestDecodeConvertsAttributeKinds(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]any
		check func(v *domain.Vertex) bool
	}{
		{"numeric string", map[string]any{"fileReadBytes": "1024"}, func(v *domain.Vertex) bool { return v.FileReadBytes == 1024 }},
		{"fraction truncated", map[string]any{"fileReadBytes": 1024.5}, func(v *domain.Vertex) bool { return v.FileReadBytes == 1024 }},
		{"fractional string", map[string]any{"numTasks": "3.9"}, func(v *domain.Vertex) bool { return v.NumTasks == 3 }},
		{"unparsable number", map[string]any{"numTasks": "many"}, func(v *domain.Vertex) bool { return v.NumTasks == 0 }},
		{"unparsable pointer", map[string]any{"startTime": "soon"}, func(v *domain.Vertex) bool { return v.StartTime == nil }},
		{"out of range", map[string]any{"numTasks": 1e30}, func(v *domain.Vertex) bool { return v.NumTasks == 0 }},
		{"bool number", map[string]any{"killedTasks": true}, func(v *domain.Vertex) bool { return v.KilledTasks == 1 }},
		{"number as name", map[string]any{"name": 7}, func(v *domain.Vertex) bool { return v.Name == "7" }},
		{"float as name", map[string]any{"name": 1.5}, func(v *domain.Vertex) bool { return v.Name == "1.5" }},
		{"single operation", map[string]any{"operations": "TableScan"}, func(v *domain.Vertex) bool {
			return len(v.Operations) == 1 && v.Operations[0] == "TableScan"
		}},
		{"mixed operations", map[string]any{"operations": []any{"Filter", 2}}, func(v *domain.Vertex) bool {
			return len(v.Operations) == 2 && v.Operations[1] == "2"
		}},
		{"object operations", map[string]any{"operations": map[string]any{"a": 1}}, func(v *domain.Vertex) bool { return v.Operations == nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Decode(&Record{Type: domain.EntityTypeVertex, ID: "v1", Attributes: tt.attrs})
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if v := e.(*domain.Vertex); !tt.check(v) {
				t.Errorf("Decode(%v) = %+v", tt.attrs, v)
			}
		})
	}
}

func TestDecodeCounterValueFromJSON(t *testing.T) {
	r, err := Unmarshal([]byte(`{"type":"counter","id":"c1","attributes":{"name":"BYTES","value":0.5}}`))
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	e, err := Decode(r)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if c := e.(*domain.Counter); c.Value != 0 || c.Name != "BYTES" {
		t.Errorf("counter = %+v", c)
	}
}

func TestMerge(t *testing.T) {
	older := &Record{
		Type:       domain.EntityTypeVertex,
		ID:         "v1",
		Attributes: map[string]any{"name": "Map 1", "status": "RUNNING"},
	}
	older.Relate("outgoingEdges", "e1")
	newer := &Record{
		Type:       domain.EntityTypeVertex,
		ID:         "v1",
		Attributes: map[string]any{"status": "SUCCEEDED", "endTime": 5000},
	}

	merged := Merge(older, newer)
	if merged.Attributes["name"] != "Map 1" || merged.Attributes["status"] != "SUCCEEDED" {
		t.Errorf("unexpected attributes %v", merged.Attributes)
	}
	if len(merged.Relationships["outgoingEdges"].Data) != 1 {
		t.Errorf("relationships lost: %v", merged.Relationships)
	}
	if older.Attributes["status"] != "RUNNING" {
		t.Error("Merge must not modify older")
	}
}

func TestMarshalRoundTripKeepsLargeNumbers(t *testing.T) {
	r := &Record{
		Type:       domain.EntityTypeCounter,
		ID:         "c1",
		Attributes: map[string]any{"value": int64(9007199254740993)},
	}
	b, err := Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	back, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	e, err := Decode(back)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := e.(*domain.Counter).Value; got != 9007199254740993 {
		t.Errorf("Value = %d", got)
	}
}

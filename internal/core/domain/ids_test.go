package domain

import (
	"errors"
	"testing"
)

func TestParseTezID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		app      string
		dag      string
		vertex   string
		task     string
		wantFail bool
	}{
		{
			name: "application",
			id:   "application_1417627209421_0001",
			app:  "application_1417627209421_0001",
		},
		{
			name: "dag",
			id:   "dag_1417627209421_0001_2",
			app:  "application_1417627209421_0001",
			dag:  "dag_1417627209421_0001_2",
		},
		{
			name:   "task",
			id:     "task_1417627209421_0001_2_01_000003",
			app:    "application_1417627209421_0001",
			dag:    "dag_1417627209421_0001_2",
			vertex: "vertex_1417627209421_0001_2_01",
			task:   "task_1417627209421_0001_2_01_000003",
		},
		{name: "unknown prefix", id: "job_1417627209421_0001", wantFail: true},
		{name: "too short", id: "vertex_1417627209421_0001_2", wantFail: true},
		{name: "non numeric", id: "dag_1417627209421_abcd_1", wantFail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseTezID(tt.id)
			if tt.wantFail {
				if !errors.Is(err, ErrMalformedID) {
					t.Fatalf("expected ErrMalformedID, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTezID() error = %v", err)
			}
			if id.AppID() != tt.app || id.DagID() != tt.dag || id.VertexID() != tt.vertex || id.TaskID() != tt.task {
				t.Errorf("got app=%q dag=%q vertex=%q task=%q", id.AppID(), id.DagID(), id.VertexID(), id.TaskID())
			}
		})
	}
}

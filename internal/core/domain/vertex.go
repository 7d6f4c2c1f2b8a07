package domain

import (
	"time"

	"tezui.dashboard/internal/core/format"
)

// Vertex is a stage of a DAG.
type Vertex struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Dag    Handle[*Dag] `json:"dag"`
	DagID  string       `json:"dagID"`
	Status VertexState  `json:"status"`
	Type   VertexType   `json:"type"`

	// Edges are paired with Edge.ToVertex and Edge.FromVertex respectively.
	IncomingEdges Many[*Edge] `json:"incomingEdges"`
	OutgoingEdges Many[*Edge] `json:"outgoingEdges"`

	StartTime *int64 `json:"startTime,omitempty"`
	EndTime   *int64 `json:"endTime,omitempty"`

	// Operations lists application specific operations run inside the
	// vertex, OperationPlan describes them for display.
	Operations    []string `json:"operations"`
	OperationPlan string   `json:"operationPlan,omitempty"`

	NumTasks        int64  `json:"numTasks"`
	FailedTasks     int64  `json:"failedTasks"`
	SuccessfulTasks int64  `json:"successfulTasks"`
	KilledTasks     int64  `json:"killedTasks"`
	// TasksCount is read by TasksNumber only. Backends do not send it.
	TasksCount      *int64 `json:"tasksCount,omitempty"`

	Diagnostics   string              `json:"diagnostics,omitempty"`
	CounterGroups Many[*CounterGroup] `json:"counterGroups"`

	// Local filesystem usage.
	FileReadBytes  int64 `json:"fileReadBytes"`
	FileWriteBytes int64 `json:"fileWriteBytes"`
	FileReadOps    int64 `json:"fileReadOps"`
	FileWriteOps   int64 `json:"fileWriteOps"`

	SpilledRecords int64 `json:"spilledRecords"`

	// HDFS usage.
	HDFSReadBytes  int64 `json:"hdfsReadBytes"`
	HDFSWriteBytes int64 `json:"hdfsWriteBytes"`
	HDFSReadOps    int64 `json:"hdfsReadOps"`
	HDFSWriteOps   int64 `json:"hdfsWriteOps"`

	RecordReadCount  int64 `json:"recordReadCount"`
	RecordWriteCount int64 `json:"recordWriteCount"`
}

func (*Vertex) EntityType() EntityType { return EntityTypeVertex }

func (v *Vertex) EntityID() string { return v.ID }

func (v *Vertex) CounterGroupIDs() []string { return v.CounterGroups.IDs() }

func (v *Vertex) AddCounterGroup(id string) {
	v.CounterGroups = v.CounterGroups.With(id)
}

// Duration is 0 before the vertex starts and runs up to now until it ends.
func (v *Vertex) Duration(now time.Time) int64 {
	return Duration(v.StartTime, v.EndTime, now)
}

func (v *Vertex) DurationDisplay(now time.Time) string {
	return format.TimingFormat(v.Duration(now), true)
}

func (v *Vertex) TotalReadBytes() int64 {
	return TotalBytes(v.FileReadBytes, v.HDFSReadBytes)
}

func (v *Vertex) TotalWriteBytes() int64 {
	return TotalBytes(v.FileWriteBytes, v.HDFSWriteBytes)
}

func (v *Vertex) TotalReadBytesDisplay() string {
	return format.BytesToSize(v.TotalReadBytes())
}

func (v *Vertex) TotalWriteBytesDisplay() string {
	return format.BytesToSize(v.TotalWriteBytes())
}

func (v *Vertex) TasksNumber() int64 {
	return TasksNumber(v.TasksCount)
}

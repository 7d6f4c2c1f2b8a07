package domain

import "fmt"

// VertexState is the lifecycle state shared by dags, vertices and tasks.
type VertexState uint8

const (
	VertexStateUnknown VertexState = iota
	VertexStateNew
	VertexStateInitializing
	VertexStateInited
	VertexStateRunning
	VertexStateSucceeded
	VertexStateFailed
	VertexStateKilled
	VertexStateError
	VertexStateTerminating
	VertexStateJobFailed
)

var vertexStateNames = [...]string{
	VertexStateUnknown:      "",
	VertexStateNew:          "NEW",
	VertexStateInitializing: "INITIALIZING",
	VertexStateInited:       "INITED",
	VertexStateRunning:      "RUNNING",
	VertexStateSucceeded:    "SUCCEEDED",
	VertexStateFailed:       "FAILED",
	VertexStateKilled:       "KILLED",
	VertexStateError:        "ERROR",
	VertexStateTerminating:  "TERMINATING",
	VertexStateJobFailed:    "JOB FAILED",
}

// VertexStates lists every known state in declaration order.
func VertexStates() []VertexState {
	return []VertexState{
		VertexStateNew, VertexStateInitializing, VertexStateInited, VertexStateRunning,
		VertexStateSucceeded, VertexStateFailed, VertexStateKilled, VertexStateError,
		VertexStateTerminating, VertexStateJobFailed,
	}
}

func (s VertexState) String() string {
	if int(s) < len(vertexStateNames) {
		return vertexStateNames[s]
	}
	return fmt.Sprintf("VertexState(%d)", uint8(s))
}

// ParseVertexState maps a wire value to a state. Unknown values yield
// VertexStateUnknown and false.
func ParseVertexState(s string) (VertexState, bool) {
	for i, name := range vertexStateNames {
		if i > 0 && name == s {
			return VertexState(i), true
		}
	}
	return VertexStateUnknown, false
}

// IsTerminal reports whether no further transitions are expected.
func (s VertexState) IsTerminal() bool {
	switch s {
	case VertexStateSucceeded, VertexStateFailed, VertexStateKilled, VertexStateError, VertexStateJobFailed:
		return true
	case VertexStateUnknown, VertexStateNew, VertexStateInitializing, VertexStateInited,
		VertexStateRunning, VertexStateTerminating:
		return false
	}
	return false
}

func (s VertexState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText never fails: out-of-enum values become VertexStateUnknown.
func (s *VertexState) UnmarshalText(b []byte) error {
	*s, _ = ParseVertexState(string(b))
	return nil
}

// VertexType classifies the computation a vertex runs.
type VertexType uint8

const (
	VertexTypeUnknown VertexType = iota
	VertexTypeMap
	VertexTypeReduce
	VertexTypeUnion
)

var vertexTypeNames = [...]string{
	VertexTypeUnknown: "",
	VertexTypeMap:     "MAP",
	VertexTypeReduce:  "REDUCE",
	VertexTypeUnion:   "UNION",
}

func (t VertexType) String() string {
	if int(t) < len(vertexTypeNames) {
		return vertexTypeNames[t]
	}
	return fmt.Sprintf("VertexType(%d)", uint8(t))
}

func ParseVertexType(s string) (VertexType, bool) {
	for i, name := range vertexTypeNames {
		if i > 0 && name == s {
			return VertexType(i), true
		}
	}
	return VertexTypeUnknown, false
}

func (t VertexType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *VertexType) UnmarshalText(b []byte) error {
	*t, _ = ParseVertexType(string(b))
	return nil
}

// EdgeType is the data movement pattern between two vertices.
type EdgeType uint8

const (
	EdgeTypeUnknown EdgeType = iota
	EdgeTypeScatterGather
	EdgeTypeBroadcast
	EdgeTypeContains
)

var edgeTypeNames = [...]string{
	EdgeTypeUnknown:       "",
	EdgeTypeScatterGather: "SCATTER_GATHER",
	EdgeTypeBroadcast:     "BROADCAST",
	EdgeTypeContains:      "CONTAINS",
}

func (t EdgeType) String() string {
	if int(t) < len(edgeTypeNames) {
		return edgeTypeNames[t]
	}
	return fmt.Sprintf("EdgeType(%d)", uint8(t))
}

func ParseEdgeType(s string) (EdgeType, bool) {
	for i, name := range edgeTypeNames {
		if i > 0 && name == s {
			return EdgeType(i), true
		}
	}
	return EdgeTypeUnknown, false
}

func (t EdgeType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *EdgeType) UnmarshalText(b []byte) error {
	*t, _ = ParseEdgeType(string(b))
	return nil
}

// EntityType tags every entity kind known to the dashboard.
type EntityType string

const (
	EntityTypeDag          EntityType = "dag"
	EntityTypeVertex       EntityType = "vertex"
	EntityTypeEdge         EntityType = "edge"
	EntityTypeTask         EntityType = "task"
	EntityTypeCounterGroup EntityType = "counterGroup"
	EntityTypeCounter      EntityType = "counter"
	EntityTypeAppDetail    EntityType = "appDetail"
	EntityTypeTezApp       EntityType = "tezApp"
	EntityTypeKVDatum      EntityType = "kvDatum"
)

// EntityTypes lists every entity type.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityTypeDag, EntityTypeVertex, EntityTypeEdge, EntityTypeTask, EntityTypeCounterGroup,
		EntityTypeCounter, EntityTypeAppDetail, EntityTypeTezApp, EntityTypeKVDatum,
	}
}

// Valid reports whether t is one of the declared entity types.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// TimelineName is the entity type name used by the YARN timeline server.
// Types that are not stored on the timeline server return "".
func (t EntityType) TimelineName() string {
	switch t {
	case EntityTypeDag:
		return "TEZ_DAG_ID"
	case EntityTypeVertex:
		return "TEZ_VERTEX_ID"
	case EntityTypeTask:
		return "TEZ_TASK_ID"
	case EntityTypeTezApp:
		return "TEZ_APPLICATION"
	}
	return ""
}

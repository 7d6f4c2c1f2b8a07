package domain

// Dag is one submitted DAG of a Tez application. Its vertices and edges are
// not linked from here; they carry the dag id instead.
type Dag struct {
	AbstractEntity
	Name          string      `json:"name"`
	User          string      `json:"user"`
	ApplicationID string      `json:"applicationId"`
	Status        VertexState `json:"status"`
}

func (*Dag) EntityType() EntityType { return EntityTypeDag }

// Task is a single task of a vertex.
type Task struct {
	AbstractEntity
	Status      VertexState `json:"status"`
	DagID       string      `json:"dagID"`
	VertexID    string      `json:"vertexID"`
	NumAttempts int64       `json:"numAttempts"`
}

func (*Task) EntityType() EntityType { return EntityTypeTask }

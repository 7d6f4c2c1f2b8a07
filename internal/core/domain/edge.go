package domain

// Edge connects two vertices of the same dag. FromVertex == ToVertex is
// accepted.
type Edge struct {
	ID         string          `json:"id"`
	FromVertex Handle[*Vertex] `json:"fromVertex"`
	ToVertex   Handle[*Vertex] `json:"toVertex"`
	EdgeType   EdgeType        `json:"edgeType"`
	Dag        Handle[*Dag]    `json:"dag"`
}

func (*Edge) EntityType() EntityType { return EntityTypeEdge }

func (e *Edge) EntityID() string { return e.ID }

// IsSelfLoop reports whether both ends point at the same vertex.
func (e *Edge) IsSelfLoop() bool {
	return !e.FromVertex.IsEmpty() && e.FromVertex.ID() == e.ToVertex.ID()
}

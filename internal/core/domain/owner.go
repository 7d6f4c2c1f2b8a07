package domain

import "fmt"

// CounterOwner is anything a CounterGroup can hang off: dags, vertices and
// tasks.
type CounterOwner interface {
	Entity
	CounterGroupIDs() []string
	AddCounterGroup(id string)
}

// OwnerRef is the polymorphic parent of a CounterGroup. Only the owner
// types accepted by IsOwnerType are valid.
type OwnerRef struct {
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

// RefOf returns the reference pointing at o.
func RefOf(o CounterOwner) OwnerRef {
	return OwnerRef{Type: o.EntityType(), ID: o.EntityID()}
}

func (r OwnerRef) IsZero() bool { return r.ID == "" }

func (r OwnerRef) Valid() bool { return r.ID != "" && IsOwnerType(r.Type) }

func (r OwnerRef) String() string {
	if r.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// IsOwnerType reports whether entities of type t may own counter groups.
func IsOwnerType(t EntityType) bool {
	switch t {
	case EntityTypeDag, EntityTypeVertex, EntityTypeTask:
		return true
	}
	return false
}

var (
	_ CounterOwner = (*Dag)(nil)
	_ CounterOwner = (*Vertex)(nil)
	_ CounterOwner = (*Task)(nil)
)

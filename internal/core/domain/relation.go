package domain

import (
	"slices"

	"github.com/goccy/go-json"
)

// Handle is a belongs-to reference. It is either unresolved, carrying only
// the target id, or resolved, carrying the target value as well.
type Handle[T any] struct {
	id       string
	resolved bool
	value    T
}

// Unresolved returns a handle that only knows the id of its target.
func Unresolved[T any](id string) Handle[T] {
	return Handle[T]{id: id}
}

// Resolved returns a handle holding its target.
func Resolved[T any](id string, v T) Handle[T] {
	return Handle[T]{id: id, resolved: true, value: v}
}

// ID returns the target id, "" when the relationship is empty.
func (h Handle[T]) ID() string { return h.id }

func (h Handle[T]) IsEmpty() bool { return h.id == "" }

func (h Handle[T]) IsResolved() bool { return h.resolved }

// Get returns the target and whether it has been resolved.
func (h Handle[T]) Get() (T, bool) {
	return h.value, h.resolved
}

// Resolve returns a copy of h holding v.
func (h Handle[T]) Resolve(v T) Handle[T] {
	return Resolved(h.id, v)
}

func (h Handle[T]) MarshalJSON() ([]byte, error) {
	if h.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(h.id)
}

func (h *Handle[T]) UnmarshalJSON(b []byte) error {
	var id *string
	if err := json.Unmarshal(b, &id); err != nil {
		return err
	}
	*h = Handle[T]{}
	if id != nil {
		h.id = *id
	}
	return nil
}

// Many is a has-many reference with the same two states as Handle.
type Many[T any] struct {
	ids      []string
	resolved bool
	values   []T
}

func UnresolvedMany[T any](ids ...string) Many[T] {
	return Many[T]{ids: slices.Clone(ids)}
}

func ResolvedMany[T any](ids []string, values []T) Many[T] {
	return Many[T]{ids: slices.Clone(ids), resolved: true, values: values}
}

// IDs returns a copy of the target ids in order.
func (m Many[T]) IDs() []string { return slices.Clone(m.ids) }

func (m Many[T]) Len() int { return len(m.ids) }

func (m Many[T]) Contains(id string) bool { return slices.Contains(m.ids, id) }

func (m Many[T]) IsResolved() bool { return m.resolved }

func (m Many[T]) Get() ([]T, bool) {
	return m.values, m.resolved
}

func (m Many[T]) Resolve(values []T) Many[T] {
	return ResolvedMany(m.ids, values)
}

// With returns m with id appended if missing. Adding an id drops any
// resolved values since they no longer cover the whole relationship.
func (m Many[T]) With(id string) Many[T] {
	if id == "" || m.Contains(id) {
		return m
	}
	return Many[T]{ids: append(slices.Clone(m.ids), id)}
}

// Without returns m with id removed.
func (m Many[T]) Without(id string) Many[T] {
	i := slices.Index(m.ids, id)
	if i < 0 {
		return m
	}
	return Many[T]{ids: slices.Delete(slices.Clone(m.ids), i, i+1)}
}

func (m Many[T]) MarshalJSON() ([]byte, error) {
	if m.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m.ids)
}

func (m *Many[T]) UnmarshalJSON(b []byte) error {
	var ids []string
	if err := json.Unmarshal(b, &ids); err != nil {
		return err
	}
	*m = Many[T]{ids: ids}
	return nil
}

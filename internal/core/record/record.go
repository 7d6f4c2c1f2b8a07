// Package record holds raw backend records and turns them into entities.
package record

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"tezui.dashboard/internal/core/domain"
)

var (
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrMissingID         = errors.New("record has no id")
)

// Relationship carries the ids of a relationship inline, or a link the
// store resolves later. Type is set for polymorphic relationships.
type Relationship struct {
	Type domain.EntityType `json:"type,omitempty"`
	Data []string          `json:"data,omitempty"`
	Link string            `json:"link,omitempty"`
}

// Record is one raw entity as delivered by the backend.
type Record struct {
	Type          domain.EntityType       `json:"type"`
	ID            string                  `json:"id"`
	Attributes    map[string]any          `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Document is a response holding primary records plus side-loaded ones.
type Document struct {
	Data     []*Record `json:"data"`
	Included []*Record `json:"included,omitempty"`
}

// Key identifies a record across entity types.
type Key struct {
	Type domain.EntityType
	ID   string
}

func (k Key) String() string { return string(k.Type) + ":" + k.ID }

func (r *Record) Key() Key { return Key{Type: r.Type, ID: r.ID} }

// Relate sets a relationship to the given ids and returns r.
func (r *Record) Relate(name string, ids ...string) *Record {
	if r.Relationships == nil {
		r.Relationships = make(map[string]Relationship)
	}
	r.Relationships[name] = Relationship{Data: ids}
	return r
}

// attributeAliases maps legacy attribute names to their declared names.
var attributeAliases = map[string]string{
	"sucessfulTasks": "successfulTasks",
}

// Decode materializes r into a typed entity. Missing attributes are left
// at their zero value and unknown enum values decode as Unknown.
func Decode(r *Record) (domain.Entity, error) {
	if r.ID == "" {
		return nil, ErrMissingID
	}
	entity, ok := domain.New(r.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, r.Type)
	}
	schema, _ := domain.SchemaOf(r.Type)

	fields := make(map[string]any, len(r.Attributes)+len(r.Relationships)+1)
	for k, v := range r.Attributes {
		if alias, ok := attributeAliases[k]; ok {
			if _, set := r.Attributes[alias]; set {
				continue
			}
			k = alias
		}
		// Relationships only come from the relationships map.
		if _, isRel := schema.Relationship(k); isRel {
			continue
		}
		if attr, ok := schema.Attribute(k); ok {
			v, ok = coerce(attr.Kind, v)
			if !ok {
				continue
			}
		}
		fields[k] = v
	}
	for name, rel := range r.Relationships {
		decl, ok := schema.Relationship(name)
		if !ok {
			continue
		}
		switch {
		case decl.Polymorphic:
			if len(rel.Data) > 0 {
				fields[name] = domain.OwnerRef{Type: rel.Type, ID: rel.Data[0]}
			}
		case decl.Cardinality == domain.CardinalityOne:
			if len(rel.Data) > 0 {
				fields[name] = rel.Data[0]
			}
		default:
			fields[name] = rel.Data
		}
	}
	fields["id"] = r.ID

	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", r.Key(), err)
	}
	if err := json.Unmarshal(b, entity); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.Key(), err)
	}
	return entity, nil
}

// coerce converts v to the JSON shape of kind. It reports false when the
// value cannot be represented, leaving the field at its zero value.
func coerce(kind domain.AttributeKind, v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch kind {
	case domain.KindNumber:
		return toInt64(v)
	case domain.KindString:
		return toString(v), true
	case domain.KindStringList:
		switch l := v.(type) {
		case []string:
			return l, true
		case []any:
			out := make([]string, 0, len(l))
			for _, e := range l {
				if e != nil {
					out = append(out, toString(e))
				}
			}
			return out, true
		case map[string]any:
			return nil, false
		default:
			return []string{toString(l)}, true
		}
	}
	return v, true
}

// toInt64 truncates fractional numbers and parses numeric strings.
func toInt64(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return floatToInt64(float64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return floatToInt64(float64(n))
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case bool:
		if n {
			return int64(1), true
		}
		return int64(0), true
	case json.Number:
		return parseNumber(string(n))
	case string:
		return parseNumber(n)
	}
	return nil, false
}

func parseNumber(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, false
	}
	return floatToInt64(f)
}

func floatToInt64(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return nil, false
	}
	return int64(f), true
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(s), 'f', -1, 32)
	case json.Number:
		return string(s)
	}
	return fmt.Sprint(v)
}

// Merge overlays newer on older. Attributes and relationships present in
// newer win; the rest of older is kept.
func Merge(older, newer *Record) *Record {
	if older == nil {
		return newer.Clone()
	}
	out := older.Clone()
	if out.Attributes == nil {
		out.Attributes = make(map[string]any)
	}
	maps.Copy(out.Attributes, newer.Attributes)
	if len(newer.Relationships) > 0 && out.Relationships == nil {
		out.Relationships = make(map[string]Relationship)
	}
	maps.Copy(out.Relationships, newer.Relationships)
	return out
}

// Clone returns a copy of r with its own maps. Attribute values are shared.
func (r *Record) Clone() *Record {
	out := &Record{Type: r.Type, ID: r.ID}
	if r.Attributes != nil {
		out.Attributes = maps.Clone(r.Attributes)
	}
	if r.Relationships != nil {
		out.Relationships = maps.Clone(r.Relationships)
	}
	return out
}

// Marshal encodes r for caches and snapshots.
func Marshal(r *Record) ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal decodes a record, keeping numbers exact.
func Unmarshal(b []byte) (*Record, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

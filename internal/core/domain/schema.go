package domain

// AttributeKind is the value type of a scalar attribute.
type AttributeKind string

const (
	KindString     AttributeKind = "string"
	KindNumber     AttributeKind = "number"
	KindStringList AttributeKind = "array"
)

// Cardinality is one for belongs-to and many for has-many.
type Cardinality string

const (
	CardinalityOne  Cardinality = "one"
	CardinalityMany Cardinality = "many"
)

// Attribute describes one scalar field of an entity.
type Attribute struct {
	Name string        `json:"name"`
	Kind AttributeKind `json:"kind"`
}

// Relationship describes a reference to other entities. Async targets are
// fetched on demand, eager targets must be loaded before their owner counts
// as loaded, and the rest are linked whenever both ends are present.
type Relationship struct {
	Name        string      `json:"name"`
	Target      EntityType  `json:"target,omitempty"`
	Cardinality Cardinality `json:"cardinality"`
	Inverse     string      `json:"inverse,omitempty"`
	Async       bool        `json:"async"`
	Eager       bool        `json:"eager"`
	Polymorphic bool        `json:"polymorphic"`
}

// Derived describes a computed field and the attributes it reads.
type Derived struct {
	Name      string   `json:"name"`
	DependsOn []string `json:"dependsOn"`
}

// ModelSchema is the declared shape of one entity type.
type ModelSchema struct {
	Type          EntityType     `json:"type"`
	Attributes    []Attribute    `json:"attributes"`
	Relationships []Relationship `json:"relationships"`
	Derived       []Derived      `json:"derived"`
}

// Attribute returns the attribute called name.
func (s *ModelSchema) Attribute(name string) (Attribute, bool) {
	for _, a := range s.Attributes {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// Relationship returns the relationship called name.
func (s *ModelSchema) Relationship(name string) (Relationship, bool) {
	for _, r := range s.Relationships {
		if r.Name == name {
			return r, true
		}
	}
	return Relationship{}, false
}

func attrs(kind AttributeKind, names ...string) []Attribute {
	out := make([]Attribute, 0, len(names))
	for _, n := range names {
		out = append(out, Attribute{Name: n, Kind: kind})
	}
	return out
}

func concat[T any](parts ...[]T) []T {
	var out []T
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var counterGroupsRel = Relationship{
	Name: "counterGroups", Target: EntityTypeCounterGroup, Cardinality: CardinalityMany, Inverse: "parent",
}

var abstractAttributes = concat(
	attrs(KindNumber, "submittedTime", "startTime", "endTime"),
	attrs(KindString, "diagnostics"),
)

var schemas = map[EntityType]*ModelSchema{
	EntityTypeDag: {
		Type: EntityTypeDag,
		Attributes: concat(abstractAttributes,
			attrs(KindString, "name", "user", "applicationId", "status")),
		Relationships: []Relationship{counterGroupsRel},
	},
	EntityTypeVertex: {
		Type: EntityTypeVertex,
		Attributes: concat(
			attrs(KindString, "name", "dagID", "status", "type", "operationPlan", "diagnostics"),
			attrs(KindNumber, "startTime", "endTime", "numTasks", "failedTasks", "successfulTasks",
				"killedTasks", "tasksCount", "fileReadBytes", "fileWriteBytes", "fileReadOps", "fileWriteOps",
				"spilledRecords", "hdfsReadBytes", "hdfsWriteBytes", "hdfsReadOps", "hdfsWriteOps",
				"recordReadCount", "recordWriteCount"),
			attrs(KindStringList, "operations"),
		),
		Relationships: []Relationship{
			{Name: "dag", Target: EntityTypeDag, Cardinality: CardinalityOne},
			{Name: "incomingEdges", Target: EntityTypeEdge, Cardinality: CardinalityMany, Inverse: "toVertex"},
			{Name: "outgoingEdges", Target: EntityTypeEdge, Cardinality: CardinalityMany, Inverse: "fromVertex"},
			counterGroupsRel,
		},
		Derived: []Derived{
			{Name: "duration", DependsOn: []string{"startTime", "endTime"}},
			{Name: "durationDisplay", DependsOn: []string{"duration"}},
			{Name: "totalReadBytes", DependsOn: []string{"fileReadBytes", "hdfsReadBytes"}},
			{Name: "totalWriteBytes", DependsOn: []string{"fileWriteBytes", "hdfsWriteBytes"}},
			{Name: "totalReadBytesDisplay", DependsOn: []string{"totalReadBytes"}},
			{Name: "totalWriteBytesDisplay", DependsOn: []string{"totalWriteBytes"}},
			{Name: "tasksNumber", DependsOn: []string{"tasksCount"}},
		},
	},
	EntityTypeEdge: {
		Type:       EntityTypeEdge,
		Attributes: attrs(KindString, "edgeType"),
		Relationships: []Relationship{
			{Name: "fromVertex", Target: EntityTypeVertex, Cardinality: CardinalityOne, Inverse: "outgoingEdges"},
			{Name: "toVertex", Target: EntityTypeVertex, Cardinality: CardinalityOne, Inverse: "incomingEdges"},
			{Name: "dag", Target: EntityTypeDag, Cardinality: CardinalityOne},
		},
	},
	EntityTypeCounterGroup: {
		Type:       EntityTypeCounterGroup,
		Attributes: attrs(KindString, "name", "displayName"),
		Relationships: []Relationship{
			{Name: "counters", Target: EntityTypeCounter, Cardinality: CardinalityMany, Inverse: "parent"},
			{Name: "parent", Cardinality: CardinalityOne, Inverse: "counterGroups", Polymorphic: true},
		},
	},
	EntityTypeCounter: {
		Type:       EntityTypeCounter,
		Attributes: concat(attrs(KindString, "name", "displayName"), attrs(KindNumber, "value")),
		Relationships: []Relationship{
			{Name: "parent", Target: EntityTypeCounterGroup, Cardinality: CardinalityOne, Inverse: "counters"},
		},
	},
	EntityTypeAppDetail: {
		Type: EntityTypeAppDetail,
		Attributes: concat(
			attrs(KindString, "attemptId", "user", "name", "queue", "type", "appState",
				"finalAppStatus", "progress", "diagnostics"),
			attrs(KindNumber, "startedTime", "elapsedTime", "finishedTime", "submittedTime"),
		),
	},
	EntityTypeTezApp: {
		Type:       EntityTypeTezApp,
		Attributes: concat(attrs(KindString, "appId", "entityType", "domain"), attrs(KindNumber, "startedTime")),
		Relationships: []Relationship{
			{Name: "appDetail", Target: EntityTypeAppDetail, Cardinality: CardinalityOne, Async: true},
			{Name: "dags", Target: EntityTypeDag, Cardinality: CardinalityMany, Async: true},
			{Name: "configs", Target: EntityTypeKVDatum, Cardinality: CardinalityMany, Eager: true},
		},
	},
	EntityTypeTask: {
		Type: EntityTypeTask,
		Attributes: concat(abstractAttributes,
			attrs(KindString, "status", "dagID", "vertexID"),
			attrs(KindNumber, "numAttempts")),
		Relationships: []Relationship{counterGroupsRel},
	},
	EntityTypeKVDatum: {
		Type:       EntityTypeKVDatum,
		Attributes: attrs(KindString, "key", "value"),
	},
}

// SchemaOf returns the declared schema of t.
func SchemaOf(t EntityType) (*ModelSchema, bool) {
	s, ok := schemas[t]
	return s, ok
}

// Schemas returns every schema in EntityTypes order.
func Schemas() []*ModelSchema {
	out := make([]*ModelSchema, 0, len(schemas))
	for _, t := range EntityTypes() {
		out = append(out, schemas[t])
	}
	return out
}

// New returns an empty entity of type t.
func New(t EntityType) (Entity, bool) {
	switch t {
	case EntityTypeDag:
		return &Dag{}, true
	case EntityTypeVertex:
		return &Vertex{}, true
	case EntityTypeEdge:
		return &Edge{}, true
	case EntityTypeTask:
		return &Task{}, true
	case EntityTypeCounterGroup:
		return &CounterGroup{}, true
	case EntityTypeCounter:
		return &Counter{}, true
	case EntityTypeAppDetail:
		return &AppDetail{}, true
	case EntityTypeTezApp:
		return &TezApp{}, true
	case EntityTypeKVDatum:
		return &KVDatum{}, true
	}
	return nil, false
}

package domain

type ChangeOp string

const (
	ChangeUpsert ChangeOp = "upsert"
	ChangeEvict  ChangeOp = "evict"
)

// Change announces that an entity was materialized, updated or evicted.
type Change struct {
	Op   ChangeOp   `json:"op"`
	Type EntityType `json:"type"`
	ID   string     `json:"id"`
}

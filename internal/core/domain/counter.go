package domain

// CounterGroup groups counters under an owning dag, vertex or task.
type CounterGroup struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName"`
	Counters    Many[*Counter] `json:"counters"`
	Parent      OwnerRef       `json:"parent"`
}

func (*CounterGroup) EntityType() EntityType { return EntityTypeCounterGroup }

func (g *CounterGroup) EntityID() string { return g.ID }

type Counter struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	DisplayName string                `json:"displayName"`
	Value       int64                 `json:"value"`
	Parent      Handle[*CounterGroup] `json:"parent"`
}

func (*Counter) EntityType() EntityType { return EntityTypeCounter }

func (c *Counter) EntityID() string { return c.ID }

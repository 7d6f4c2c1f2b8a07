package domain

import "time"

// Entity is implemented by every record type held in the store.
type Entity interface {
	EntityType() EntityType
	EntityID() string
}

// AbstractEntity carries the fields shared by dags and tasks. Times are
// epoch milliseconds and nil when unknown.
type AbstractEntity struct {
	ID            string              `json:"id"`
	SubmittedTime *int64              `json:"submittedTime,omitempty"`
	StartTime     *int64              `json:"startTime,omitempty"`
	EndTime       *int64              `json:"endTime,omitempty"`
	Diagnostics   string              `json:"diagnostics,omitempty"`
	CounterGroups Many[*CounterGroup] `json:"counterGroups"`
}

func (e *AbstractEntity) EntityID() string { return e.ID }

func (e *AbstractEntity) CounterGroupIDs() []string { return e.CounterGroups.IDs() }

func (e *AbstractEntity) AddCounterGroup(id string) {
	e.CounterGroups = e.CounterGroups.With(id)
}

// Duration is the elapsed milliseconds of the entity at now.
func (e *AbstractEntity) Duration(now time.Time) int64 {
	return Duration(e.StartTime, e.EndTime, now)
}

// Millis returns a pointer to ms, for building records and tests.
func Millis(ms int64) *int64 { return &ms }

package timeline

import (
	"strconv"

	"github.com/goccy/go-json"
)

// Timeline server v1 entity types used by Tez.
const (
	typeDag         = "TEZ_DAG_ID"
	typeVertex      = "TEZ_VERTEX_ID"
	typeTask        = "TEZ_TASK_ID"
	typeApplication = "TEZ_APPLICATION"
)

type timelineEvent struct {
	EventType string         `json:"eventtype"`
	Timestamp int64          `json:"timestamp"`
	EventInfo map[string]any `json:"eventinfo"`
}

type timelineEntity struct {
	Entity          string              `json:"entity"`
	EntityType      string              `json:"entitytype"`
	StartTime       int64               `json:"starttime"`
	Domain          string              `json:"domain,omitempty"`
	Events          []timelineEvent     `json:"events"`
	RelatedEntities map[string][]string `json:"relatedentities"`
	PrimaryFilters  map[string][]any    `json:"primaryfilters"`
	OtherInfo       map[string]any      `json:"otherinfo"`
}

type timelineEntities struct {
	Entities []timelineEntity `json:"entities"`
}

type counterJSON struct {
	Name        string `json:"counterName"`
	DisplayName string `json:"counterDisplayName"`
	Value       int64  `json:"counterValue"`
}

type counterGroupJSON struct {
	Name        string        `json:"counterGroupName"`
	DisplayName string        `json:"counterGroupDisplayName"`
	Counters    []counterJSON `json:"counters"`
}

type countersJSON struct {
	CounterGroups []counterGroupJSON `json:"counterGroups"`
}

type dagPlanEdge struct {
	EdgeID           string `json:"edgeId"`
	InputVertexName  string `json:"inputVertexName"`
	OutputVertexName string `json:"outputVertexName"`
	DataMovementType string `json:"dataMovementType"`
}

type dagPlanJSON struct {
	DagName string        `json:"dagName"`
	Edges   []dagPlanEdge `json:"edges"`
}

// rmApp is the resource manager view of an application.
type rmApp struct {
	ID                  string `json:"id"`
	User                string `json:"user"`
	Name                string `json:"name"`
	Queue               string `json:"queue"`
	State               string `json:"state"`
	FinalStatus         string `json:"finalStatus"`
	Progress            any    `json:"progress"`
	ApplicationType     string `json:"applicationType"`
	StartedTime         int64  `json:"startedTime"`
	FinishedTime        int64  `json:"finishedTime"`
	ElapsedTime         int64  `json:"elapsedTime"`
	LaunchTime          int64  `json:"launchTime"`
	Diagnostics         string `json:"diagnostics"`
	CurrentAppAttemptID string `json:"currentAppAttemptId"`
}

type rmAppResponse struct {
	App *rmApp `json:"app"`
}

// info returns otherinfo[key], or nil.
func (e *timelineEntity) info(key string) any {
	if e.OtherInfo == nil {
		return nil
	}
	return e.OtherInfo[key]
}

func (e *timelineEntity) infoString(key string) string {
	s, _ := e.info(key).(string)
	return s
}

// filter returns the first value of a primary filter as a string.
func (e *timelineEntity) filter(key string) string {
	vals := e.PrimaryFilters[key]
	if len(vals) == 0 {
		return ""
	}
	switch v := vals[0].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}

// decodeInfo re-decodes otherinfo[key] into out. Missing keys leave out
// untouched.
func (e *timelineEntity) decodeInfo(key string, out any) error {
	v := e.info(key)
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// positive returns v when it is a positive number, for times the timeline
// reports as 0 or -1 while unknown.
func positive(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil && i > 0 {
			return i
		}
	case float64:
		if n > 0 {
			return int64(n)
		}
	case int64:
		if n > 0 {
			return n
		}
	}
	return nil
}

func progressString(v any) string {
	switch p := v.(type) {
	case string:
		return p
	case json.Number:
		if f, err := p.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return p.String()
	case float64:
		return strconv.FormatFloat(p, 'f', -1, 64)
	}
	return ""
}

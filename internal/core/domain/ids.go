package domain

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedID = errors.New("malformed tez id")

// TezID is a parsed application, dag, vertex, task or attempt id, e.g.
// vertex_1417627209421_0001_1_00. Each level keeps the raw digits so ids
// can be rebuilt exactly.
type TezID struct {
	Kind    string
	Cluster string
	App     string
	Dag     string
	Vertex  string
	Task    string
	Attempt string
}

var idDepth = map[string]int{
	"application": 2,
	"dag":         3,
	"vertex":      4,
	"task":        5,
	"attempt":     6,
}

// ParseTezID splits id into its components.
func ParseTezID(id string) (TezID, error) {
	parts := strings.Split(id, "_")
	depth, ok := idDepth[parts[0]]
	if !ok || len(parts) != depth+1 {
		return TezID{}, fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	for _, p := range parts[1:] {
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return TezID{}, fmt.Errorf("%w: %q", ErrMalformedID, id)
		}
	}
	tid := TezID{Kind: parts[0]}
	fields := []*string{&tid.Cluster, &tid.App, &tid.Dag, &tid.Vertex, &tid.Task, &tid.Attempt}
	for i, p := range parts[1:] {
		*fields[i] = p
	}
	return tid, nil
}

func (id TezID) join(prefix string, n int) string {
	all := []string{id.Cluster, id.App, id.Dag, id.Vertex, id.Task, id.Attempt}
	return prefix + "_" + strings.Join(all[:n], "_")
}

// AppID returns the application id every Tez id is rooted at.
func (id TezID) AppID() string { return id.join("application", 2) }

// DagID returns "" for application ids.
func (id TezID) DagID() string {
	if id.Dag == "" {
		return ""
	}
	return id.join("dag", 3)
}

// VertexID returns "" above the vertex level.
func (id TezID) VertexID() string {
	if id.Vertex == "" {
		return ""
	}
	return id.join("vertex", 4)
}

// TaskID returns "" above the task level.
func (id TezID) TaskID() string {
	if id.Task == "" {
		return ""
	}
	return id.join("task", 5)
}

// TezAppID is the timeline id of the Tez application entity.
func TezAppID(appID string) string {
	return "tez_" + appID
}

package timeline

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/record"
)

const (
	fileSystemCounters = "org.apache.tez.common.counters.FileSystemCounter"
	taskCounters       = "org.apache.tez.common.counters.TaskCounter"
)

// liftedCounters maps counters to the vertex attributes they fill.
var liftedCounters = map[string]map[string]string{
	fileSystemCounters: {
		"FILE_BYTES_READ":    "fileReadBytes",
		"FILE_BYTES_WRITTEN": "fileWriteBytes",
		"FILE_READ_OPS":      "fileReadOps",
		"FILE_WRITE_OPS":     "fileWriteOps",
		"HDFS_BYTES_READ":    "hdfsReadBytes",
		"HDFS_BYTES_WRITTEN": "hdfsWriteBytes",
		"HDFS_READ_OPS":      "hdfsReadOps",
		"HDFS_WRITE_OPS":     "hdfsWriteOps",
	},
	taskCounters: {
		"SPILLED_RECORDS":         "spilledRecords",
		"INPUT_RECORDS_PROCESSED": "recordReadCount",
		"OUTPUT_RECORDS":          "recordWriteCount",
	},
}

// attributes skips unset values so merging a partial record keeps what
// an earlier record said.
type attributes map[string]any

func (a attributes) set(k string, v any) {
	switch x := v.(type) {
	case nil:
		return
	case string:
		if x == "" {
			return
		}
	}
	a[k] = v
}

func newRecord(t domain.EntityType, id string, attrs attributes) *record.Record {
	return &record.Record{Type: t, ID: id, Attributes: attrs}
}

// Derived record ids. Counter groups and counters hang off their owner, edges
// off their dag, configs off their app.
func counterGroupID(ownerID, group string) string { return ownerID + "/" + group }
func counterID(groupID, name string) string { return groupID + "/" + name }
func edgeID(dagID, edge string) string { return dagID + "_edge_" + edge }
func configID(tezAppID, key string) string { return tezAppID + "/" + key }

// DagsLink is the link of the dags of an application.
func DagsLink(appID string) string {
	return "/ws/v1/timeline/" + typeDag + "?primaryFilter=" + url.QueryEscape("applicationId:"+appID)
}

// counterRecords converts the counters of owner and returns the group
// records followed by the counter records.
func counterRecords(owner domain.OwnerRef, c countersJSON) (groupIDs []string, out []*record.Record) {
	var counters []*record.Record
	for _, g := range c.CounterGroups {
		gid := counterGroupID(owner.ID, g.Name)
		groupIDs = append(groupIDs, gid)

		attrs := attributes{}
		attrs.set("name", g.Name)
		attrs.set("displayName", g.DisplayName)
		group := newRecord(domain.EntityTypeCounterGroup, gid, attrs)
		group.Relationships = map[string]record.Relationship{
			"parent": {Type: owner.Type, Data: []string{owner.ID}},
		}

		ids := make([]string, 0, len(g.Counters))
		for _, c := range g.Counters {
			cid := counterID(gid, c.Name)
			ids = append(ids, cid)
			attrs := attributes{"value": c.Value}
			attrs.set("name", c.Name)
			attrs.set("displayName", c.DisplayName)
			counters = append(counters, newRecord(domain.EntityTypeCounter, cid, attrs).Relate("parent", gid))
		}
		group.Relate("counters", ids...)
		out = append(out, group)
	}
	return groupIDs, append(out, counters...)
}

func (e *timelineEntity) counters() (countersJSON, error) {
	var c countersJSON
	if err := e.decodeInfo("counters", &c); err != nil {
		return c, fmt.Errorf("counters of %s: %w", e.Entity, err)
	}
	return c, nil
}

// setTimes copies the common timing and status fields.
func (e *timelineEntity) setTimes(attrs attributes) {
	attrs.set("startTime", positive(e.info("startTime")))
	attrs.set("endTime", positive(e.info("endTime")))
	attrs.set("status", e.infoString("status"))
	attrs.set("diagnostics", e.infoString("diagnostics"))
}

func convertDag(e *timelineEntity) (*record.Document, error) {
	id := e.Entity
	attrs := attributes{}
	e.setTimes(attrs)
	if e.StartTime > 0 {
		attrs.set("submittedTime", e.StartTime)
	}
	attrs.set("user", e.filter("user"))

	var plan dagPlanJSON
	if err := e.decodeInfo("dagPlan", &plan); err != nil {
		return nil, fmt.Errorf("dag plan of %s: %w", id, err)
	}
	name := e.filter("dagName")
	if name == "" {
		name = plan.DagName
	}
	attrs.set("name", name)

	appID := e.infoString("applicationId")
	if appID == "" {
		if tid, err := domain.ParseTezID(id); err == nil {
			appID = tid.AppID()
		}
	}
	attrs.set("applicationId", appID)

	counters, err := e.counters()
	if err != nil {
		return nil, err
	}
	groupIDs, included := counterRecords(domain.OwnerRef{Type: domain.EntityTypeDag, ID: id}, counters)
	dag := newRecord(domain.EntityTypeDag, id, attrs).Relate("counterGroups", groupIDs...)

	var vertexIDs map[string]string
	if err := e.decodeInfo("vertexNameIdMapping", &vertexIDs); err != nil {
		return nil, fmt.Errorf("vertex mapping of %s: %w", id, err)
	}
	for _, pe := range plan.Edges {
		from, to := vertexIDs[pe.InputVertexName], vertexIDs[pe.OutputVertexName]
		attrs := attributes{}
		attrs.set("edgeType", pe.DataMovementType)
		edge := newRecord(domain.EntityTypeEdge, edgeID(id, pe.EdgeID), attrs).Relate("dag", id)
		if from != "" {
			edge.Relate("fromVertex", from)
		}
		if to != "" {
			edge.Relate("toVertex", to)
		}
		included = append(included, edge)
	}

	return &record.Document{Data: []*record.Record{dag}, Included: included}, nil
}

func convertVertex(e *timelineEntity) (*record.Document, error) {
	id := e.Entity
	attrs := attributes{}
	e.setTimes(attrs)
	attrs.set("name", e.infoString("vertexName"))
	for key, attr := range map[string]string{
		"numTasks":          "numTasks",
		"numFailedTasks":    "failedTasks",
		"numSucceededTasks": "successfulTasks",
		"numKilledTasks":    "killedTasks",
	} {
		attrs.set(attr, e.info(key))
	}

	dagID := e.filter(typeDag)
	if dagID == "" {
		if tid, err := domain.ParseTezID(id); err == nil {
			dagID = tid.DagID()
		}
	}
	attrs.set("dagID", dagID)

	counters, err := e.counters()
	if err != nil {
		return nil, err
	}
	for _, g := range counters.CounterGroups {
		names, ok := liftedCounters[g.Name]
		if !ok {
			continue
		}
		for _, c := range g.Counters {
			if attr, ok := names[c.Name]; ok {
				attrs[attr] = c.Value
			}
		}
	}
	groupIDs, included := counterRecords(domain.OwnerRef{Type: domain.EntityTypeVertex, ID: id}, counters)

	vertex := newRecord(domain.EntityTypeVertex, id, attrs).Relate("counterGroups", groupIDs...)
	if dagID != "" {
		vertex.Relate("dag", dagID)
	}
	return &record.Document{Data: []*record.Record{vertex}, Included: included}, nil
}

func convertTask(e *timelineEntity) (*record.Document, error) {
	id := e.Entity
	attrs := attributes{}
	e.setTimes(attrs)

	tid, _ := domain.ParseTezID(id)
	dagID := e.filter(typeDag)
	if dagID == "" {
		dagID = tid.DagID()
	}
	vertexID := e.filter(typeVertex)
	if vertexID == "" {
		vertexID = tid.VertexID()
	}
	attrs.set("dagID", dagID)
	attrs.set("vertexID", vertexID)
	if attempts, ok := e.RelatedEntities["TEZ_TASK_ATTEMPT_ID"]; ok {
		attrs["numAttempts"] = len(attempts)
	}

	counters, err := e.counters()
	if err != nil {
		return nil, err
	}
	groupIDs, included := counterRecords(domain.OwnerRef{Type: domain.EntityTypeTask, ID: id}, counters)
	task := newRecord(domain.EntityTypeTask, id, attrs).Relate("counterGroups", groupIDs...)
	return &record.Document{Data: []*record.Record{task}, Included: included}, nil
}

func convertApp(e *timelineEntity) (*record.Document, error) {
	id := e.Entity
	appID := strings.TrimPrefix(id, "tez_")
	attrs := attributes{}
	attrs.set("appId", appID)
	attrs.set("entityType", e.EntityType)
	attrs.set("domain", e.Domain)
	if e.StartTime > 0 {
		attrs.set("startedTime", e.StartTime)
	}

	var config map[string]any
	if err := e.decodeInfo("config", &config); err != nil {
		return nil, fmt.Errorf("config of %s: %w", id, err)
	}
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var included []*record.Record
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		cid := configID(id, k)
		ids = append(ids, cid)
		included = append(included, newRecord(domain.EntityTypeKVDatum, cid, attributes{
			"key":   k,
			"value": fmt.Sprint(config[k]),
		}))
	}

	app := newRecord(domain.EntityTypeTezApp, id, attrs).
		Relate("appDetail", appID).
		Relate("configs", ids...)
	app.Relationships["dags"] = record.Relationship{Link: DagsLink(appID)}
	return &record.Document{Data: []*record.Record{app}, Included: included}, nil
}

func convertAppDetail(a *rmApp) *record.Record {
	attrs := attributes{}
	attrs.set("attemptId", a.CurrentAppAttemptID)
	attrs.set("user", a.User)
	attrs.set("name", a.Name)
	attrs.set("queue", a.Queue)
	attrs.set("type", a.ApplicationType)
	attrs.set("appState", a.State)
	attrs.set("finalAppStatus", a.FinalStatus)
	attrs.set("progress", progressString(a.Progress))
	attrs.set("startedTime", positive(a.StartedTime))
	attrs.set("elapsedTime", positive(a.ElapsedTime))
	attrs.set("finishedTime", positive(a.FinishedTime))
	attrs.set("diagnostics", a.Diagnostics)
	submitted := a.LaunchTime
	if submitted <= 0 {
		submitted = a.StartedTime
	}
	attrs.set("submittedTime", positive(submitted))
	return newRecord(domain.EntityTypeAppDetail, a.ID, attrs)
}

// convertEntity dispatches on the timeline entity type.
func convertEntity(e *timelineEntity) (*record.Document, error) {
	switch e.EntityType {
	case typeDag:
		return convertDag(e)
	case typeVertex:
		return convertVertex(e)
	case typeTask:
		return convertTask(e)
	case typeApplication:
		return convertApp(e)
	}
	return nil, fmt.Errorf("unsupported timeline entity type %q", e.EntityType)
}

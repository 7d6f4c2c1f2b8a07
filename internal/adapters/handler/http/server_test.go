package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"tezui.dashboard/internal/core/circuitbreaker"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/ports"
	"tezui.dashboard/internal/core/record"
	"tezui.dashboard/internal/core/services"
)

type stubFetcher struct {
	docs map[record.Key]*record.Document
	err  error
}

func (f *stubFetcher) Fetch(_ context.Context, t domain.EntityType, id string) (*record.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[record.Key{Type: t, ID: id}]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return doc, nil
}

func (f *stubFetcher) FetchLink(context.Context, string) (*record.Document, error) {
	return nil, ports.ErrNotFound
}

func (f *stubFetcher) Query(_ context.Context, t domain.EntityType, _ map[string]string) (*record.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc := &record.Document{}
	for k, d := range f.docs {
		if k.Type == t {
			doc.Data = append(doc.Data, d.Data...)
		}
	}
	return doc, nil
}

type stubPubSub struct{}

func (stubPubSub) PublishChange(context.Context, domain.Change) error { return nil }
func (stubPubSub) SubscribeChanges(context.Context) (<-chan domain.Change, error) {
	return make(chan domain.Change), nil
}

func newTestServer(t *testing.T, f *stubFetcher) *httptest.Server {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.UnixMilli(10_000))
	store := services.NewStore(f)
	srv := NewServer(
		services.NewViews(store, mock),
		services.NewHealthService(nil, nil, nil, "test"),
		NewHub(stubPubSub{}),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func vertexFixture() *stubFetcher {
	v := &record.Record{Type: domain.EntityTypeVertex, ID: "vertex_1_0001_1_00", Attributes: map[string]any{
		"name":      "Map 1",
		"dagID":     "dag_1_0001_1",
		"status":    "SUCCEEDED",
		"startTime": 4000,
		"endTime":   8000,
	}}
	return &stubFetcher{docs: map[record.Key]*record.Document{
		v.Key(): {Data: []*record.Record{v}},
	}}
}

func TestServer_GetVertex(t *testing.T) {
	ts := newTestServer(t, vertexFixture())

	resp, err := http.Get(ts.URL + "/api/vertices/vertex_1_0001_1_00")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Error("missing request id header")
	}
	var got map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["name"] != "Map 1" || got["durationDisplay"] != "4.00 secs" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestServer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		fetcher *stubFetcher
		path    string
		want    int
	}{
		{"not found", vertexFixture(), "/api/vertices/vertex_9_0001_1_00", http.StatusNotFound},
		{"missing dag id", vertexFixture(), "/api/vertices", http.StatusBadRequest},
		{"breaker open", &stubFetcher{err: circuitbreaker.ErrCircuitOpen}, "/api/dags/dag_1_0001_1", http.StatusServiceUnavailable},
		{"timeout", &stubFetcher{err: context.DeadlineExceeded}, "/api/tasks/task_1_0001_1_00_000000", http.StatusGatewayTimeout},
		{"unknown schema", vertexFixture(), "/api/schema/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.fetcher)
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServer_ListVertices(t *testing.T) {
	ts := newTestServer(t, vertexFixture())

	resp, err := http.Get(ts.URL + "/api/vertices?dagID=dag_1_0001_1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["id"] != "vertex_1_0001_1_00" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestServer_Schema(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{})

	resp, err := http.Get(ts.URL + "/api/schema/vertex")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got domain.ModelSchema
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Type != domain.EntityTypeVertex || len(got.Attributes) == 0 {
		t.Errorf("unexpected schema %+v", got)
	}
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, &stubFetcher{})

	for _, path := range []string{"/health/live", "/health/ready", "/api/health"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d", path, resp.StatusCode)
		}
	}
}

func TestRequestID_Propagates(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc" {
		t.Errorf("request id = %q", got)
	}
}

func TestAppID(t *testing.T) {
	for in, want := range map[string]string{
		"application_1_0001":     "tez_application_1_0001",
		"tez_application_1_0001": "tez_application_1_0001",
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/apps/"+in, nil)
		rctx := chiContext(in)
		if got := appID(req.WithContext(rctx)); got != want {
			t.Errorf("appID(%q) = %q, want %q", in, got, want)
		}
	}
}

func chiContext(id string) context.Context {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id)
	return context.WithValue(context.Background(), chi.RouteCtxKey, rc)
}

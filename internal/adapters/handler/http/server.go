package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"tezui.dashboard/internal/core/circuitbreaker"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/logger"
	"tezui.dashboard/internal/core/services"
)

const requestIDHeader = "X-Request-Id"

type Server struct {
	router    *chi.Mux
	views     *services.Views
	healthSvc *services.HealthService
	hub       *Hub
	http      *http.Server
}

func NewServer(views *services.Views, healthSvc *services.HealthService, hub *Hub) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		views:     views,
		healthSvc: healthSvc,
		hub:       hub,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(MetricsMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{"Link", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		MetricsHandler().ServeHTTP(w, r)
	})

	// Liveness and readiness checks
	s.router.Get("/health/live", s.handleLiveness)
	s.router.Get("/health/ready", s.handleReadiness)

	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/health/detailed", s.handleDetailedHealth)
	s.router.Get("/api/ws", s.handleWS)

	s.router.Get("/api/schema", s.handleListSchemas)
	s.router.Get("/api/schema/{type}", s.handleGetSchema)

	s.router.Route("/api/apps/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetApp)
		r.Get("/detail", s.handleGetAppDetail)
		r.Get("/dags", s.handleGetAppDags)
	})
	s.router.Get("/api/dags/{id}", s.handleGetDag)
	s.router.Get("/api/vertices", s.handleListVertices)
	s.router.Get("/api/vertices/{id}", s.handleGetVertex)
	s.router.Get("/api/edges/{id}", s.handleGetEdge)
	s.router.Get("/api/tasks/{id}", s.handleGetTask)
	s.router.Get("/api/counter-groups/{id}", s.handleGetCounterGroup)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// RequestID propagates or assigns a request id and adds it to log lines.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError maps store and backend errors to status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := http.StatusInternalServerError, "Internal error"
	switch {
	case errors.Is(err, services.ErrNotFound):
		code, msg = http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrIncomplete):
		code, msg = http.StatusBadGateway, "Incomplete data from backend"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		code, msg = http.StatusServiceUnavailable, "Backend unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		code, msg = http.StatusGatewayTimeout, "Backend timeout"
	}
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, code, errorResponse{Error: msg, Details: err.Error(), RequestID: logger.RequestID(r.Context())})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := s.healthSvc.SimpleHealthCheck(r.Context())
	w.WriteHeader(code)
	w.Write([]byte(status))
}

func (s *Server) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	status, code := s.healthSvc.SimpleHealthCheck(r.Context())
	w.WriteHeader(code)
	w.Write([]byte(status))
}

func (s *Server) handleDetailedHealth(w http.ResponseWriter, r *http.Request) {
	report := s.healthSvc.CheckHealth(r.Context())

	statusCode := http.StatusOK
	if report.Status == services.HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	writeJSON(w, statusCode, report)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ServeWs(s.hub, w, r)
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.Schemas())
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	schema, ok := domain.SchemaOf(domain.EntityType(chi.URLParam(r, "type")))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Unknown entity type", Details: chi.URLParam(r, "type")})
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// appID accepts both the YARN id and the Tez application entity id.
func appID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if strings.HasPrefix(id, "tez_") {
		return id
	}
	return domain.TezAppID(id)
}

func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	app, err := s.views.App(r.Context(), appID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (s *Server) handleGetAppDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.views.AppDetail(r.Context(), appID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleGetAppDags(w http.ResponseWriter, r *http.Request) {
	dags, err := s.views.AppDags(r.Context(), appID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dags)
}

func (s *Server) handleGetDag(w http.ResponseWriter, r *http.Request) {
	dag, err := s.views.Dag(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dag)
}

func (s *Server) handleListVertices(w http.ResponseWriter, r *http.Request) {
	dagID := r.URL.Query().Get("dagID")
	if dagID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Details: "dagID is required"})
		return
	}
	vertices, err := s.views.Vertices(r.Context(), dagID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vertices)
}

func (s *Server) handleGetVertex(w http.ResponseWriter, r *http.Request) {
	vertex, err := s.views.Vertex(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vertex)
}

func (s *Server) handleGetEdge(w http.ResponseWriter, r *http.Request) {
	edge, err := s.views.Edge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, edge)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.views.Task(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

type CounterGroupResponse struct {
	*domain.CounterGroup
	CounterValues []domain.Counter `json:"counterValues"`
}

func (s *Server) handleGetCounterGroup(w http.ResponseWriter, r *http.Request) {
	group, counters, err := s.views.CounterGroup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CounterGroupResponse{CounterGroup: group, CounterValues: counters})
}

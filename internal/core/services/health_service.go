package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// ComponentHealth represents the health of a specific component
type ComponentHealth struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Latency   string       `json:"latency,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status     HealthStatus               `json:"status"`
	Version    string                     `json:"version"`
	CheckedAt  time.Time                  `json:"checked_at"`
	Components map[string]ComponentHealth `json:"components"`
}

// Pinger reports whether a backend answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	db       *gorm.DB
	redis    *redis.Client
	timeline Pinger
	version  string
}

// NewHealthService checks the snapshot database, redis and the timeline
// backend. Any of them may be nil when not configured.
func NewHealthService(db *gorm.DB, redisClient *redis.Client, timeline Pinger, version string) *HealthService {
	if version == "" {
		version = "0.0.1"
	}
	return &HealthService{
		db:       db,
		redis:    redisClient,
		timeline: timeline,
		version:  version,
	}
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:     HealthStatusHealthy,
		Version:    s.version,
		CheckedAt:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}

	// Without the timeline backend nothing new can be loaded.
	if s.timeline != nil {
		h := s.checkTimeline(ctx)
		report.Components["timeline"] = h
		if h.Status != HealthStatusHealthy {
			report.Status = HealthStatusUnhealthy
		}
	}

	// Snapshots and cache only degrade the service.
	if s.db != nil {
		h := s.checkDatabase(ctx)
		report.Components["database"] = h
		if h.Status != HealthStatusHealthy && report.Status == HealthStatusHealthy {
			report.Status = HealthStatusDegraded
		}
	}
	if s.redis != nil {
		h := s.checkRedis(ctx)
		report.Components["redis"] = h
		if h.Status != HealthStatusHealthy && report.Status == HealthStatusHealthy {
			report.Status = HealthStatusDegraded
		}
	}

	return report
}

func (s *HealthService) checkTimeline(ctx context.Context) ComponentHealth {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.timeline.Ping(ctx); err != nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   fmt.Sprintf("Timeline ping failed: %v", err),
			Latency:   time.Since(start).String(),
			CheckedAt: time.Now(),
		}
	}

	return ComponentHealth{
		Status:    HealthStatusHealthy,
		Latency:   time.Since(start).String(),
		CheckedAt: time.Now(),
	}
}

func (s *HealthService) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()

	sqlDB, err := s.db.DB()
	if err != nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   fmt.Sprintf("Failed to get database instance: %v", err),
			CheckedAt: time.Now(),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   fmt.Sprintf("Database ping failed: %v", err),
			Latency:   time.Since(start).String(),
			CheckedAt: time.Now(),
		}
	}

	return ComponentHealth{
		Status:    HealthStatusHealthy,
		Latency:   time.Since(start).String(),
		CheckedAt: time.Now(),
	}
}

func (s *HealthService) checkRedis(ctx context.Context) ComponentHealth {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   fmt.Sprintf("Redis ping failed: %v", err),
			Latency:   time.Since(start).String(),
			CheckedAt: time.Now(),
		}
	}

	return ComponentHealth{
		Status:    HealthStatusHealthy,
		Latency:   time.Since(start).String(),
		CheckedAt: time.Now(),
	}
}

// SimpleHealthCheck returns a simple health status for load balancers
func (s *HealthService) SimpleHealthCheck(ctx context.Context) (string, int) {
	report := s.CheckHealth(ctx)

	switch report.Status {
	case HealthStatusHealthy:
		return "ok", http.StatusOK
	case HealthStatusDegraded:
		return "degraded", http.StatusOK
	default:
		return "unhealthy", http.StatusServiceUnavailable
	}
}

package health

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines         int    `json:"goroutines"`
	MemoryAllocMB      uint64 `json:"memory_alloc_mb"`
	MemoryTotalAllocMB uint64 `json:"memory_total_alloc_mb"`
	MemorySysMB        uint64 `json:"memory_sys_mb"`
	NumGC              uint32 `json:"num_gc"`
}

type InterviewStats struct {
	Connections int `json:"connections"`
	Sessions    int `json:"sessions"`
}

type RequestStats struct {
	TotalRequests uint64 `json:"total_requests"`
}

type Stats struct {
	Interviews InterviewStats `json:"interviews"`
	Requests   RequestStats   `json:"requests"`
	Runtime    RuntimeStats   `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Stats         Stats                      `json:"stats"`
	Components    map[string]ComponentStatus `json:"components"`
}

type SessionDetail struct {
	ClientID       string           `json:"client_id"`
	Connected      bool             `json:"connected"`
	Status         interview.Status `json:"status,omitempty"`
	QuestionNumber int              `json:"question_number"`
	MaxQuestions   int              `json:"max_questions"`
}

type SessionsResponse struct {
	Connections int             `json:"connections"`
	Sessions    int             `json:"sessions"`
	Details     []SessionDetail `json:"details"`
}

// Connections reports the identities with a live channel.
type Connections interface {
	Count() int
	Identities() []string
}

type Sessions interface {
	Count() int
	List() []interview.Info
}

// ModelInfo identifies the configured generation model, if any.
type ModelInfo interface {
	Model() string
}

type Handler struct {
	db          *gorm.DB
	redis       *redis.Client
	model       ModelInfo
	connections Connections
	sessions    Sessions
	version     string
	startTime   time.Time

	totalRequests uint64
}

func NewHandler(
	db *gorm.DB,
	redis *redis.Client,
	model ModelInfo,
	connections Connections,
	sessions Sessions,
	version string,
) *Handler {
	return &Handler{
		db:          db,
		redis:       redis,
		model:       model,
		connections: connections,
		sessions:    sessions,
		version:     version,
		startTime:   time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Liveness)
	e.GET("/health/ready", h.Readiness)
	e.GET("/health/sessions", h.Sessions)
}

// CountRequests is echo middleware feeding the request counter.
func (h *Handler) CountRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		atomic.AddUint64(&h.totalRequests, 1)
		return next(c)
	}
}

func (h *Handler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *Handler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	components := make(map[string]ComponentStatus)
	var mu sync.Mutex
	var wg sync.WaitGroup

	checks := []struct {
		name  string
		check func(context.Context) ComponentStatus
	}{
		{"database", h.checkDatabase},
		{"redis", h.checkRedis},
		{"generator", h.checkGenerator},
	}

	wg.Add(len(checks))
	for _, check := range checks {
		go func(name string, fn func(context.Context) ComponentStatus) {
			defer wg.Done()
			status := fn(ctx)
			mu.Lock()
			components[name] = status
			mu.Unlock()
		}(check.name, check.check)
	}
	wg.Wait()

	overallStatus := h.computeOverallStatus(components)

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	resp := HealthResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats: Stats{
			Interviews: InterviewStats{
				Connections: h.connections.Count(),
				Sessions:    h.sessions.Count(),
			},
			Requests: RequestStats{
				TotalRequests: atomic.LoadUint64(&h.totalRequests),
			},
			Runtime: RuntimeStats{
				Goroutines:         runtime.NumGoroutine(),
				MemoryAllocMB:      memStats.Alloc / 1024 / 1024,
				MemoryTotalAllocMB: memStats.TotalAlloc / 1024 / 1024,
				MemorySysMB:        memStats.Sys / 1024 / 1024,
				NumGC:              memStats.NumGC,
			},
		},
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, resp)
}

// Sessions lists every identity that has a live channel, a session, or both.
func (h *Handler) Sessions(c echo.Context) error {
	connected := h.connections.Identities()
	infos := h.sessions.List()

	byClient := make(map[string]*SessionDetail, len(connected)+len(infos))
	order := make([]string, 0, len(connected)+len(infos))
	for _, id := range connected {
		byClient[id] = &SessionDetail{ClientID: id, Connected: true}
		order = append(order, id)
	}
	for _, info := range infos {
		d, ok := byClient[info.ClientID]
		if !ok {
			d = &SessionDetail{ClientID: info.ClientID}
			byClient[info.ClientID] = d
			order = append(order, info.ClientID)
		}
		d.Status = info.Status
		d.QuestionNumber = info.QuestionNumber
		d.MaxQuestions = info.MaxQuestions
	}

	details := make([]SessionDetail, 0, len(order))
	for _, id := range order {
		details = append(details, *byClient[id])
	}

	return c.JSON(http.StatusOK, SessionsResponse{
		Connections: len(connected),
		Sessions:    len(infos),
		Details:     details,
	})
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.db == nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "database not configured",
		}
	}

	sqlDB, err := h.db.DB()
	if err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "failed to get underlying db",
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    h.evaluateDBStats(sqlDB.Stats()),
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (h *Handler) evaluateDBStats(stats sql.DBStats) Status {
	if stats.OpenConnections >= stats.MaxOpenConnections && stats.MaxOpenConnections > 0 {
		return StatusDegraded
	}
	return StatusHealthy
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	start := time.Now()
	if h.redis == nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "redis not configured",
		}
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ComponentStatus{
			Status:    StatusUnhealthy,
			LatencyMs: time.Since(start).Milliseconds(),
			Error:     "ping failed",
		}
	}

	return ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
}

func (h *Handler) checkGenerator(ctx context.Context) ComponentStatus {
	if h.model == nil || h.model.Model() == "" {
		return ComponentStatus{
			Status: StatusUnhealthy,
			Error:  "generator not configured",
		}
	}
	return ComponentStatus{Status: StatusHealthy}
}

func (h *Handler) computeOverallStatus(components map[string]ComponentStatus) Status {
	criticalComponents := []string{"database", "redis"}

	for _, name := range criticalComponents {
		if status, ok := components[name]; ok && status.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
	}

	for _, status := range components {
		if status.Status != StatusHealthy {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

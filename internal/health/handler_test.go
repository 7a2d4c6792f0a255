package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/eleven-am/interview-backend/internal/interview"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubConnections struct {
	ids []string
}

func (s stubConnections) Count() int           { return len(s.ids) }
func (s stubConnections) Identities() []string { return s.ids }

type stubSessions struct {
	infos []interview.Info
}

func (s stubSessions) Count() int             { return len(s.infos) }
func (s stubSessions) List() []interview.Info { return s.infos }

type stubModel string

func (m stubModel) Model() string { return string(m) }

func setupDeps(t *testing.T) (*gorm.DB, *redis.Client) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return db, client
}

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()
	t.Cleanup(func() { client.Close() })
	return client
}

func doRequest(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestLiveness(t *testing.T) {
	h := NewHandler(nil, nil, nil, stubConnections{}, stubSessions{}, "test")

	rec := doRequest(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadiness(t *testing.T) {
	db, client := setupDeps(t)

	tests := []struct {
		name       string
		model      ModelInfo
		redisDown  bool
		wantStatus Status
		wantCode   int
	}{
		{
			name:       "all healthy",
			model:      stubModel("gemini-2.5-flash"),
			wantStatus: StatusHealthy,
			wantCode:   http.StatusOK,
		},
		{
			name:       "generator missing",
			model:      nil,
			wantStatus: StatusDegraded,
			wantCode:   http.StatusOK,
		},
		{
			name:       "redis down",
			model:      stubModel("gemini-2.5-flash"),
			redisDown:  true,
			wantStatus: StatusUnhealthy,
			wantCode:   http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			redisClient := client
			if tt.redisDown {
				redisClient = unreachableRedis(t)
			}

			conns := stubConnections{ids: []string{"a", "b"}}
			sessions := stubSessions{infos: []interview.Info{{ClientID: "a", Status: interview.StatusInProgress}}}
			h := NewHandler(db, redisClient, tt.model, conns, sessions, "test")

			rec := doRequest(t, h, "/health/ready")
			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}

			var resp HealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("expected %s, got %s", tt.wantStatus, resp.Status)
			}
			if resp.Stats.Interviews.Connections != 2 || resp.Stats.Interviews.Sessions != 1 {
				t.Errorf("unexpected interview stats %+v", resp.Stats.Interviews)
			}
		})
	}
}

func TestSessions(t *testing.T) {
	conns := stubConnections{ids: []string{"alice", "bob"}}
	sessions := stubSessions{infos: []interview.Info{
		{ClientID: "bob", Status: interview.StatusClosing, QuestionNumber: 5, MaxQuestions: 5},
		{ClientID: "carol", Status: interview.StatusInProgress, QuestionNumber: 2, MaxQuestions: 20},
	}}
	h := NewHandler(nil, nil, nil, conns, sessions, "test")

	rec := doRequest(t, h, "/health/sessions")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp SessionsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Connections != 2 || resp.Sessions != 2 || len(resp.Details) != 3 {
		t.Fatalf("unexpected response %+v", resp)
	}

	byID := make(map[string]SessionDetail)
	for _, d := range resp.Details {
		byID[d.ClientID] = d
	}
	if d := byID["alice"]; !d.Connected || d.Status != "" {
		t.Errorf("alice should be connected without a session: %+v", d)
	}
	if d := byID["bob"]; !d.Connected || d.Status != interview.StatusClosing || d.QuestionNumber != 5 {
		t.Errorf("unexpected bob detail %+v", d)
	}
	if d := byID["carol"]; d.Connected || d.Status != interview.StatusInProgress {
		t.Errorf("carol should have a session without a channel: %+v", d)
	}
}

func TestCountRequests(t *testing.T) {
	h := NewHandler(nil, nil, nil, stubConnections{}, stubSessions{}, "test")
	e := echo.New()
	e.Use(h.CountRequests)
	h.RegisterRoutes(e)

	for i := 0; i < 3; i++ {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}
	if h.totalRequests != 3 {
		t.Errorf("expected 3 requests, got %d", h.totalRequests)
	}
}

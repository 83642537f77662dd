package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mpolunin/eventwatch/app/config"
	"github.com/mpolunin/eventwatch/app/database"
	"github.com/mpolunin/eventwatch/app/event"
	"github.com/mpolunin/eventwatch/app/notify"
	"github.com/mpolunin/eventwatch/app/pipeline"
	"github.com/mpolunin/eventwatch/app/tasks"
)

const testAPIKey = "test-api-key"

type stubRunner struct {
	jobs []pipeline.Job
	res  pipeline.Result
}

func (s *stubRunner) Run(_ context.Context, job pipeline.Job) (pipeline.Result, error) {
	s.jobs = append(s.jobs, job)
	return s.res, nil
}

type stubScheduler struct {
	enqueued []tasks.TaskInterface
}

func (s *stubScheduler) Start() {}
func (s *stubScheduler) Stop()  {}
func (s *stubScheduler) EnqueueTask(task tasks.TaskInterface) error {
	s.enqueued = append(s.enqueued, task)
	return nil
}

type stubSMSSender struct {
	calls int
}

func (s *stubSMSSender) Send(_ context.Context, _ string, _ string) error {
	s.calls++
	return nil
}

type testEnv struct {
	engine    *gin.Engine
	db        *database.DB
	eventRepo database.EventRepository
	runner    *stubRunner
	scheduler *stubScheduler
	sms       *stubSMSSender
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewConnection(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := database.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	sources := map[string]*config.Source{
		"city-events": {
			Name: "city-events",
			Type: config.SourceTypeHTML,
			URLs: []string{"https://example.com/events"},
			Settings: config.Settings{
				Enabled:         true,
				RefreshInterval: 3600,
				Timeout:         30,
			},
		},
	}

	runner := &stubRunner{res: pipeline.Result{EventsFound: 3, EventsPersisted: 2, UsersNotified: 1}}
	scheduler := &stubScheduler{}
	sms := &stubSMSSender{}

	eventRepo := database.NewEventRepository(db)
	handler := NewHandler(eventRepo, database.NewUserRepository(db),
		sources, runner, notify.NewNotifier(sms, nil), scheduler)

	return &testEnv{
		engine:    NewServer(handler, testAPIKey),
		db:        db,
		eventRepo: eventRepo,
		runner:    runner,
		scheduler: scheduler,
		sms:       sms,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body any, apiKey string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedEvent(t *testing.T) event.Event {
	t.Helper()

	persisted, err := e.eventRepo.InsertNew(context.Background(), []event.Event{{
		Title:     "Jazz Night",
		Date:      time.Date(2026, 9, 12, 19, 30, 0, 0, time.UTC),
		Location:  event.Coordinates{Longitude: -73.9857, Latitude: 40.7484},
		Category:  event.CategoryMusic,
		Source:    "https://example.com/events",
		SourceURL: "https://example.com/events/jazz",
	}})
	if err != nil || len(persisted) != 1 {
		t.Fatalf("Failed to seed event: %v", err)
	}
	return persisted[0]
}

func (e *testEnv) seedUser(t *testing.T, id string) {
	t.Helper()

	_, err := e.db.Exec(`
		INSERT INTO users (id, name, phone, email, longitude, latitude,
		                   categories, radius_km, notify_sms, notify_email)
		VALUES (?, ?, ?, ?, ?, ?, '[]', 10, 1, 0)
	`, id, "Test User", "+15550001234", "user@example.com", -73.99, 40.75)
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["loaded_sources"].(float64) != 1 {
		t.Errorf("Expected 1 loaded source, got %v", body["loaded_sources"])
	}
}

func TestRecentEventsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedEvent(t)

	w := env.request(t, http.MethodGet, "/events", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Events []event.Event `json:"events"`
		Total  int           `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || body.Events[0].Title != "Jazz Night" {
		t.Errorf("Unexpected events payload: %+v", body)
	}

	if w := env.request(t, http.MethodGet, "/events?limit=0", nil, ""); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid limit, got %d", w.Code)
	}
}

func TestAPIAuthentication(t *testing.T) {
	env := newTestEnv(t)

	if w := env.request(t, http.MethodPost, "/api/sources/city-events/run", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without API key, got %d", w.Code)
	}
	if w := env.request(t, http.MethodPost, "/api/sources/city-events/run", nil, "wrong-key"); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with a wrong API key, got %d", w.Code)
	}
	if w := env.request(t, http.MethodPost, "/api/sources/city-events/run", nil, testAPIKey); w.Code != http.StatusOK {
		t.Errorf("Expected 200 with the right API key, got %d", w.Code)
	}
}

func TestRunSourceEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/sources/city-events/run", nil, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.scheduler.enqueued) != 1 {
		t.Errorf("Expected 1 enqueued task, got %d", len(env.scheduler.enqueued))
	}

	if w := env.request(t, http.MethodPost, "/api/sources/unknown/run", nil, testAPIKey); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown source, got %d", w.Code)
	}
}

func TestRunJobEndpoint(t *testing.T) {
	env := newTestEnv(t)

	req := RunJobRequest{
		URLs: []string{"https://example.com/events"},
	}
	req.Selectors.EventContainer = ".event-card"

	w := env.request(t, http.MethodPost, "/api/jobs", req, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res pipeline.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.EventsFound != 3 || res.EventsPersisted != 2 {
		t.Errorf("Unexpected job result: %+v", res)
	}
	if len(env.runner.jobs) != 1 || env.runner.jobs[0].SourceType != pipeline.SourceTypeHTML {
		t.Errorf("Unexpected recorded jobs: %+v", env.runner.jobs)
	}

	if w := env.request(t, http.MethodPost, "/api/jobs", RunJobRequest{}, testAPIKey); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a job without URLs, got %d", w.Code)
	}
}

func TestNotifyEndpoint(t *testing.T) {
	env := newTestEnv(t)
	evt := env.seedEvent(t)
	env.seedUser(t, "user-1")

	w := env.request(t, http.MethodPost, "/api/notify",
		NotifyRequest{UserID: "user-1", EventID: evt.ID}, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res notify.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if !res.SMSSent || res.EmailSent {
		t.Errorf("Expected an SMS-only delivery, got: %+v", res)
	}
	if env.sms.calls != 1 {
		t.Errorf("Expected 1 SMS send, got %d", env.sms.calls)
	}

	w = env.request(t, http.MethodPost, "/api/notify",
		NotifyRequest{UserID: "missing", EventID: evt.ID}, testAPIKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown user, got %d", w.Code)
	}
}

func TestFeedbackEndpoint(t *testing.T) {
	env := newTestEnv(t)
	evt := env.seedEvent(t)

	w := env.request(t, http.MethodPost, "/api/feedback",
		FeedbackRequest{UserID: "user-1", EventID: evt.ID, Status: event.FeedbackAttended}, testAPIKey)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.request(t, http.MethodPost, "/api/feedback",
		FeedbackRequest{UserID: "user-1", EventID: evt.ID, Status: "maybe"}, testAPIKey)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422 for an invalid status, got %d", w.Code)
	}

	w = env.request(t, http.MethodPost, "/api/feedback",
		FeedbackRequest{UserID: "user-1", EventID: "missing", Status: event.FeedbackAttended}, testAPIKey)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown event, got %d", w.Code)
	}
}

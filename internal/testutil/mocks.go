package testutil

import (
	"context"
	"dsd/internal/models"
	"dsd/internal/providers"
	"dsd/internal/structures"
	"sync"
	"time"
)

// TestConfig returns a config good enough for unit tests: fast job polling
// and throttling-friendly defaults.
func TestConfig() *structures.Config {
	return &structures.Config{
		AppName: "DashboardSyncDaemon",
		Backend: structures.Backend{
			URL:             "http://127.0.0.1:5000",
			JobPollInterval: 5 * time.Millisecond,
		},
		Sync: structures.SyncConfig{
			DefaultMaxAge: -1,
		},
		Session: structures.Session{
			UserID:   1,
			UserName: "tester",
		},
		Persistence: structures.Persistence{
			FilePath:     "/tmp/dsd.dat",
			SaveInterval: time.Second,
		},
	}
}

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockMetrics implements providers.MetricsProviderInterface and counts.
type MockMetrics struct {
	mu                sync.Mutex
	Requests          int
	CacheHits         int
	CacheMisses       int
	RefreshTicks      int
	FetchFailures     map[string]int
	WidgetsReplaced   int
	QueryDurations    map[string]int
	DashboardsWatched int
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) IncRefreshTicks(_ string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefreshTicks++
}
func (m *MockMetrics) IncFetchFailures(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchFailures == nil {
		m.FetchFailures = make(map[string]int)
	}
	m.FetchFailures[kind]++
}
func (m *MockMetrics) AddWidgetsReplaced(_ string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WidgetsReplaced += count
}
func (m *MockMetrics) ObserveQueryDuration(status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.QueryDurations == nil {
		m.QueryDurations = make(map[string]int)
	}
	m.QueryDurations[status]++
}
func (m *MockMetrics) SetDashboardsWatched(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DashboardsWatched = count
}

// MockCache implements providers.CacheProviderInterface in a plain map.
type MockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = value
}

// MockCompressor passes data through unchanged.
type MockCompressor struct{}

func (m *MockCompressor) Compress(val []byte) ([]byte, error)   { return val, nil }
func (m *MockCompressor) Decompress(val []byte) ([]byte, error) { return val, nil }
func (m *MockCompressor) Close()                                {}

type SaveQueryCall struct {
	ID     int
	Fields map[string]any
}

// MockBackend implements client.BackendInterface. Behavior is injected via
// the *Fn fields; calls are recorded either way.
type MockBackend struct {
	mu sync.Mutex

	GetDashboardFn       func(slug string) (*models.Dashboard, error)
	GetQueryResultFn     func(queryID, maxAge int) (*models.QueryResultResponse, error)
	GetQueryResultByIDFn func(resultID int) (*models.QueryResultResponse, error)
	GetJobFn             func(jobID string) (*models.Job, error)
	GetQueryFn           func(id int) (*models.Query, error)
	GetSchemaFn          func(dataSourceID int) ([]models.SchemaTable, error)
	SaveQueryErr         error
	ArchiveDashboardErr  error
	DeleteWidgetErr      error

	DashboardGets      int
	ResultGets         int
	JobGets            int
	CancelJobCalls     []string
	SaveQueryCalls     []SaveQueryCall
	DeletedWidgets     []int
	ArchivedDashboards []string
	ArchivedQueries    []int
	Events             []models.Event
}

func (m *MockBackend) GetDashboard(_ context.Context, slug string) (*models.Dashboard, error) {
	m.mu.Lock()
	m.DashboardGets++
	fn := m.GetDashboardFn
	m.mu.Unlock()
	if fn != nil {
		return fn(slug)
	}
	return &models.Dashboard{ID: 1, Slug: slug, Name: slug}, nil
}

func (m *MockBackend) ArchiveDashboard(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ArchiveDashboardErr != nil {
		return m.ArchiveDashboardErr
	}
	m.ArchivedDashboards = append(m.ArchivedDashboards, slug)
	return nil
}

func (m *MockBackend) DeleteWidget(_ context.Context, widgetID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteWidgetErr != nil {
		return m.DeleteWidgetErr
	}
	m.DeletedWidgets = append(m.DeletedWidgets, widgetID)
	return nil
}

func (m *MockBackend) GetQuery(_ context.Context, id int) (*models.Query, error) {
	if m.GetQueryFn != nil {
		return m.GetQueryFn(id)
	}
	return &models.Query{ID: id}, nil
}

func (m *MockBackend) SaveQuery(_ context.Context, id int, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveQueryErr != nil {
		return m.SaveQueryErr
	}
	m.SaveQueryCalls = append(m.SaveQueryCalls, SaveQueryCall{ID: id, Fields: fields})
	return nil
}

func (m *MockBackend) ArchiveQuery(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArchivedQueries = append(m.ArchivedQueries, id)
	return nil
}

func (m *MockBackend) GetQueryResult(_ context.Context, queryID, maxAge int, _ map[string]string) (*models.QueryResultResponse, error) {
	m.mu.Lock()
	m.ResultGets++
	fn := m.GetQueryResultFn
	m.mu.Unlock()
	if fn != nil {
		return fn(queryID, maxAge)
	}
	return &models.QueryResultResponse{QueryResult: &models.QueryResult{ID: 1}}, nil
}

func (m *MockBackend) GetQueryResultByID(_ context.Context, resultID int) (*models.QueryResultResponse, error) {
	if m.GetQueryResultByIDFn != nil {
		return m.GetQueryResultByIDFn(resultID)
	}
	return &models.QueryResultResponse{QueryResult: &models.QueryResult{ID: resultID}}, nil
}

func (m *MockBackend) GetJob(_ context.Context, jobID string) (*models.Job, error) {
	m.mu.Lock()
	m.JobGets++
	fn := m.GetJobFn
	m.mu.Unlock()
	if fn != nil {
		return fn(jobID)
	}
	return &models.Job{ID: jobID, Status: models.JobFinished, QueryResultID: 1}, nil
}

func (m *MockBackend) CancelJob(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelJobCalls = append(m.CancelJobCalls, jobID)
	return nil
}

func (m *MockBackend) GetSchema(_ context.Context, dataSourceID int) ([]models.SchemaTable, error) {
	if m.GetSchemaFn != nil {
		return m.GetSchemaFn(dataSourceID)
	}
	return nil, nil
}

func (m *MockBackend) RecordEvent(_ context.Context, event models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

// CancelledJobs returns a copy of the job ids passed to CancelJob.
func (m *MockBackend) CancelledJobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.CancelJobCalls))
	copy(out, m.CancelJobCalls)
	return out
}

// SavedQueries returns a copy of the recorded partial query saves.
func (m *MockBackend) SavedQueries() []SaveQueryCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SaveQueryCall, len(m.SaveQueryCalls))
	copy(out, m.SaveQueryCalls)
	return out
}

// RecordedEvents returns a copy of the recorded events.
func (m *MockBackend) RecordedEvents() []models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Event, len(m.Events))
	copy(out, m.Events)
	return out
}

// Counts returns the fetch counters in one consistent read.
func (m *MockBackend) Counts() (dashboards, results, jobs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DashboardGets, m.ResultGets, m.JobGets
}

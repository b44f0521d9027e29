package client

import (
	"context"
	"dsd/internal/models"
	"dsd/internal/structures"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	Body   []byte
}

func backendAgainst(t *testing.T, handler http.HandlerFunc) (BackendInterface, *recordedRequest) {
	t.Helper()
	last := &recordedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last.Method = r.Method
		last.Path = r.URL.Path
		last.Auth = r.Header.Get("Authorization")
		last.Body, _ = io.ReadAll(r.Body)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	conf := &structures.Config{}
	conf.Backend.URL = srv.URL
	conf.Backend.APIKey = "secret"
	conf.Backend.Timeout = 5 * time.Second
	return NewBackend(conf), last
}

func respond(payload string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(payload))
	}
}

func TestBackend_GetDashboard(t *testing.T) {
	b, last := backendAgainst(t, respond(`{"id":1,"slug":"sales","widgets":[[{"id":7,"text":"hi"}]]}`))

	d, err := b.GetDashboard(context.Background(), "sales")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, last.Method)
	assert.Equal(t, "/api/dashboards/sales", last.Path)
	assert.Equal(t, "Key secret", last.Auth)
	assert.Equal(t, 1, d.ID)
	require.Len(t, d.Widgets, 1)
	assert.Equal(t, 7, d.Widgets[0][0].ID)
}

func TestBackend_GetQueryResult(t *testing.T) {
	b, last := backendAgainst(t, respond(`{"job":{"id":"j1","status":1}}`))

	resp, err := b.GetQueryResult(context.Background(), 5, 0, map[string]string{"p_year": "2024"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/api/queries/5/results", last.Path)

	var body map[string]any
	require.NoError(t, json.Unmarshal(last.Body, &body))
	assert.EqualValues(t, 0, body["max_age"])
	assert.Equal(t, map[string]any{"p_year": "2024"}, body["parameters"])

	require.Nil(t, resp.QueryResult)
	require.NotNil(t, resp.Job)
	assert.Equal(t, "j1", resp.Job.ID)
	assert.Equal(t, models.JobPending, resp.Job.Status)
}

func TestBackend_GetJobUnwrapsEnvelope(t *testing.T) {
	b, last := backendAgainst(t, respond(`{"job":{"id":"j1","status":3,"query_result_id":42}}`))

	job, err := b.GetJob(context.Background(), "j1")
	require.NoError(t, err)

	assert.Equal(t, "/api/jobs/j1", last.Path)
	assert.Equal(t, models.JobFinished, job.Status)
	assert.Equal(t, 42, job.QueryResultID)
}

func TestBackend_SaveQueryPartialUpdate(t *testing.T) {
	b, last := backendAgainst(t, respond(`{}`))

	err := b.SaveQuery(context.Background(), 5, map[string]any{"latest_query_data_id": 9})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "/api/queries/5", last.Path)
	assert.JSONEq(t, `{"latest_query_data_id":9}`, string(last.Body))
}

func TestBackend_DeleteEndpoints(t *testing.T) {
	b, last := backendAgainst(t, respond(`{}`))

	require.NoError(t, b.DeleteWidget(context.Background(), 7))
	assert.Equal(t, http.MethodDelete, last.Method)
	assert.Equal(t, "/api/widgets/7", last.Path)

	require.NoError(t, b.ArchiveDashboard(context.Background(), "sales"))
	assert.Equal(t, "/api/dashboards/sales", last.Path)

	require.NoError(t, b.CancelJob(context.Background(), "j1"))
	assert.Equal(t, "/api/jobs/j1", last.Path)

	require.NoError(t, b.ArchiveQuery(context.Background(), 5))
	assert.Equal(t, "/api/queries/5", last.Path)
}

func TestBackend_GetQuery(t *testing.T) {
	b, last := backendAgainst(t, respond(`{"id":5,"query_hash":"abc","schedule":"300"}`))

	q, err := b.GetQuery(context.Background(), 5)
	require.NoError(t, err)

	assert.Equal(t, "/api/queries/5", last.Path)
	assert.Equal(t, "abc", q.QueryHash)
	secs, ok := q.ScheduleSeconds()
	assert.True(t, ok)
	assert.Equal(t, 300, secs)
}

func TestBackend_GetSchema(t *testing.T) {
	b, last := backendAgainst(t, respond(`{"schema":[{"name":"orders","columns":["id"]}]}`))

	schema, err := b.GetSchema(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "/api/data_sources/3/schema", last.Path)
	require.Len(t, schema, 1)
	assert.Equal(t, "orders", schema[0].Name)
}

func TestBackend_RecordEvent(t *testing.T) {
	b, last := backendAgainst(t, respond(`{}`))

	err := b.RecordEvent(context.Background(), models.Event{
		UserID:     1,
		Action:     "view",
		ObjectType: "dashboard",
		ObjectID:   5,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/events", last.Path)
	var body map[string]any
	require.NoError(t, json.Unmarshal(last.Body, &body))
	assert.Equal(t, "view", body["action"])
}

func TestBackend_BadStatusCode(t *testing.T) {
	b, _ := backendAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := b.GetDashboard(context.Background(), "sales")
	assert.ErrorIs(t, err, ErrBadStatusCode)
}

func TestClient_NoAuthHeaderWithoutKey(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cl := NewClient(srv.URL)
	require.NoError(t, cl.Request(context.Background(), http.MethodGet, "api/session", nil, nil))
	assert.Empty(t, auth)
}

package controllers

import (
	"dsd/internal/dashboard"
	"dsd/internal/models"
	"dsd/internal/services"
	"dsd/internal/testutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApiController(backend *testutil.MockBackend) (*ApiController, services.DashboardServiceInterface) {
	conf := testutil.TestConfig()
	logger := &testutil.MockLogger{}
	metrics := &testutil.MockMetrics{}
	rf := dashboard.NewResultFactory(conf, backend, &testutil.MockCache{}, logger, metrics)
	svc := services.NewDashboardService(conf, backend, logger, metrics, rf)
	return NewApiController(logger, svc, backend, rf), svc
}

func loadAndWait(t *testing.T, svc services.DashboardServiceInterface, slug string) *dashboard.Coordinator {
	t.Helper()
	view := svc.Watch(slug)
	view.LoadDashboard()
	require.Eventually(t, func() bool { return view.Dashboard() != nil }, 2*time.Second, time.Millisecond)
	return view
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestApiController_GetDashboards(t *testing.T) {
	ac, svc := newApiController(&testutil.MockBackend{})
	loadAndWait(t, svc, "sales")
	svc.Watch("ops")

	rec := httptest.NewRecorder()
	ac.GetDashboards(rec, httptest.NewRequest(http.MethodGet, "/dashboards", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var out []map[string]any
	decodeBody(t, rec, &out)
	require.Len(t, out, 2)
	assert.Equal(t, "sales", out[0]["slug"])
	assert.Equal(t, true, out[0]["loaded"])
	assert.Equal(t, "ops", out[1]["slug"])
	assert.Equal(t, false, out[1]["loaded"])
}

func TestApiController_GetDashboard(t *testing.T) {
	backend := &testutil.MockBackend{
		GetDashboardFn: func(slug string) (*models.Dashboard, error) {
			return &models.Dashboard{
				ID:   1,
				Slug: slug,
				Widgets: [][]*models.Widget{{
					{ID: 1, Visualization: &models.Visualization{Query: models.Query{ID: 1}}},
				}},
			}, nil
		},
	}
	ac, svc := newApiController(backend)
	view := loadAndWait(t, svc, "sales")
	require.Eventually(t, func() bool {
		handles := view.Handles()
		return len(handles) == 1 && handles[0].Status() == dashboard.StatusDone
	}, 2*time.Second, time.Millisecond)

	rec := httptest.NewRecorder()
	ac.GetDashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard?slug=sales", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Dashboard models.Dashboard `json:"dashboard"`
		Results   []resultStatus   `json:"results"`
	}
	decodeBody(t, rec, &out)
	assert.Equal(t, "sales", out.Dashboard.Slug)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "done", out.Results[0].Status)
	assert.Equal(t, 1, out.Results[0].ResultID)
}

func TestApiController_GetDashboard_Errors(t *testing.T) {
	ac, svc := newApiController(&testutil.MockBackend{})

	rec := httptest.NewRecorder()
	ac.GetDashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing slug")

	rec = httptest.NewRecorder()
	ac.GetDashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard?slug=nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "unwatched slug")

	svc.Watch("sales")
	rec = httptest.NewRecorder()
	ac.GetDashboard(rec, httptest.NewRequest(http.MethodGet, "/dashboard?slug=sales", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "watched but never loaded")
}

func TestApiController_Load(t *testing.T) {
	backend := &testutil.MockBackend{}
	ac, svc := newApiController(backend)

	rec := httptest.NewRecorder()
	ac.Load(rec, httptest.NewRequest(http.MethodPost, "/load?slug=sales", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	_, ok := svc.Get("sales")
	assert.True(t, ok)
	assert.Eventually(t, func() bool {
		dashboards, _, _ := backend.Counts()
		return dashboards == 1
	}, 2*time.Second, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	ac.Load(rec, httptest.NewRequest(http.MethodPost, "/load", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiController_ToggleRefresh(t *testing.T) {
	ac, svc := newApiController(&testutil.MockBackend{})

	svc.Watch("sales")
	rec := httptest.NewRecorder()
	ac.ToggleRefresh(rec, httptest.NewRequest(http.MethodPost, "/refresh?slug=sales", nil))
	assert.Equal(t, http.StatusConflict, rec.Code, "not loaded yet")

	view := loadAndWait(t, svc, "sales")
	rec = httptest.NewRecorder()
	ac.ToggleRefresh(rec, httptest.NewRequest(http.MethodPost, "/refresh?slug=sales", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]bool
	decodeBody(t, rec, &out)
	assert.True(t, out["refresh_enabled"])
	assert.True(t, view.RefreshEnabled())
}

func TestApiController_ToggleFullscreen(t *testing.T) {
	ac, svc := newApiController(&testutil.MockBackend{})
	svc.Watch("sales")

	rec := httptest.NewRecorder()
	ac.ToggleFullscreen(rec, httptest.NewRequest(http.MethodPost, "/fullscreen?slug=sales", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out map[string]bool
	decodeBody(t, rec, &out)
	assert.True(t, out["fullscreen"])
}

func TestApiController_SetFilter(t *testing.T) {
	backend := &testutil.MockBackend{
		GetDashboardFn: func(slug string) (*models.Dashboard, error) {
			return &models.Dashboard{
				ID:                      1,
				Slug:                    slug,
				DashboardFiltersEnabled: true,
				Widgets: [][]*models.Widget{{
					{ID: 1, Visualization: &models.Visualization{Query: models.Query{ID: 1}}},
				}},
			}, nil
		},
		GetQueryResultFn: func(queryID, maxAge int) (*models.QueryResultResponse, error) {
			return &models.QueryResultResponse{QueryResult: &models.QueryResult{
				ID: 1,
				Data: models.ResultData{
					Columns: []models.Column{{Name: "region::filter"}},
					Rows:    []map[string]any{{"region::filter": "EU"}, {"region::filter": "US"}},
				},
			}}, nil
		},
	}
	ac, svc := newApiController(backend)
	view := loadAndWait(t, svc, "sales")
	require.Eventually(t, func() bool { return len(view.Filters()) == 1 }, 2*time.Second, time.Millisecond)

	body := strings.NewReader(`{"slug":"sales","name":"region::filter","value":"US"}`)
	rec := httptest.NewRecorder()
	ac.SetFilter(rec, httptest.NewRequest(http.MethodPost, "/filter", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "US", view.Filters()[0].Current)

	rec = httptest.NewRecorder()
	ac.SetFilter(rec, httptest.NewRequest(http.MethodPost, "/filter", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = strings.NewReader(`{"slug":"sales","name":"nope","value":1}`)
	rec = httptest.NewRecorder()
	ac.SetFilter(rec, httptest.NewRequest(http.MethodPost, "/filter", body))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApiController_DeleteWidget(t *testing.T) {
	backend := &testutil.MockBackend{
		GetDashboardFn: func(slug string) (*models.Dashboard, error) {
			return &models.Dashboard{ID: 1, Slug: slug, Widgets: [][]*models.Widget{{{ID: 7}}}}, nil
		},
	}
	ac, svc := newApiController(backend)
	view := loadAndWait(t, svc, "sales")

	body := strings.NewReader(`{"slug":"sales","widget_id":7}`)
	rec := httptest.NewRecorder()
	ac.DeleteWidget(rec, httptest.NewRequest(http.MethodPost, "/widget/delete", body))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int{7}, backend.DeletedWidgets)
	assert.Empty(t, view.Dashboard().Widgets)

	rec = httptest.NewRecorder()
	ac.DeleteWidget(rec, httptest.NewRequest(http.MethodPost, "/widget/delete", strings.NewReader(`{"slug":"sales"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing widget id")
}

func TestApiController_Archive(t *testing.T) {
	backend := &testutil.MockBackend{}
	ac, svc := newApiController(backend)
	loadAndWait(t, svc, "sales")

	rec := httptest.NewRecorder()
	ac.Archive(rec, httptest.NewRequest(http.MethodDelete, "/archive?slug=sales", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "confirmation missing")
	assert.Empty(t, backend.ArchivedDashboards)

	rec = httptest.NewRecorder()
	ac.Archive(rec, httptest.NewRequest(http.MethodDelete, "/archive?slug=sales&confirm=true", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"sales"}, backend.ArchivedDashboards)

	_, ok := svc.Get("sales")
	assert.False(t, ok, "archived dashboard leaves the watched list")
}

func TestApiController_Archive_NotLoaded(t *testing.T) {
	ac, svc := newApiController(&testutil.MockBackend{})
	svc.Watch("sales")

	rec := httptest.NewRecorder()
	ac.Archive(rec, httptest.NewRequest(http.MethodDelete, "/archive?slug=sales&confirm=true", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApiController_ExecuteQuery(t *testing.T) {
	backend := &testutil.MockBackend{
		GetQueryFn: func(id int) (*models.Query, error) {
			return &models.Query{ID: id, QueryHash: "abc"}, nil
		},
		GetQueryResultFn: func(queryID, maxAge int) (*models.QueryResultResponse, error) {
			return &models.QueryResultResponse{QueryResult: &models.QueryResult{ID: 42, QueryHash: "abc"}}, nil
		},
	}
	ac, _ := newApiController(backend)

	body := strings.NewReader(`{"query_id":5}`)
	rec := httptest.NewRecorder()
	ac.ExecuteQuery(rec, httptest.NewRequest(http.MethodPost, "/query/execute", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Status   string `json:"status"`
		ResultID int    `json:"result_id"`
	}
	decodeBody(t, rec, &out)
	assert.Equal(t, "done", out.Status)
	assert.Equal(t, 42, out.ResultID)

	rec = httptest.NewRecorder()
	ac.ExecuteQuery(rec, httptest.NewRequest(http.MethodPost, "/query/execute", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing query id")
}

func TestApiController_ArchiveQuery(t *testing.T) {
	backend := &testutil.MockBackend{}
	ac, _ := newApiController(backend)

	rec := httptest.NewRecorder()
	ac.ArchiveQuery(rec, httptest.NewRequest(http.MethodDelete, "/query?id=5", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "confirmation missing")
	assert.Empty(t, backend.ArchivedQueries)

	rec = httptest.NewRecorder()
	ac.ArchiveQuery(rec, httptest.NewRequest(http.MethodDelete, "/query?id=5&confirm=true", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int{5}, backend.ArchivedQueries)

	rec = httptest.NewRecorder()
	ac.ArchiveQuery(rec, httptest.NewRequest(http.MethodDelete, "/query?id=abc&confirm=true", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiController_GetSchema(t *testing.T) {
	backend := &testutil.MockBackend{
		GetSchemaFn: func(dataSourceID int) ([]models.SchemaTable, error) {
			return []models.SchemaTable{{Name: "orders", Columns: []string{"id", "total"}}}, nil
		},
	}
	ac, _ := newApiController(backend)

	rec := httptest.NewRecorder()
	ac.GetSchema(rec, httptest.NewRequest(http.MethodGet, "/schema?dataSourceId=3", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var out []models.SchemaTable
	decodeBody(t, rec, &out)
	require.Len(t, out, 1)
	assert.Equal(t, "orders", out[0].Name)

	rec = httptest.NewRecorder()
	ac.GetSchema(rec, httptest.NewRequest(http.MethodGet, "/schema", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

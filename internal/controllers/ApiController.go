package controllers

import (
	"context"
	"dsd/internal/client"
	"dsd/internal/dashboard"
	"dsd/internal/providers"
	"dsd/internal/services"
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	service services.DashboardServiceInterface
	backend client.BackendInterface
	results *dashboard.ResultFactory
}

func NewApiController(logger providers.Logger, service services.DashboardServiceInterface, backend client.BackendInterface, results *dashboard.ResultFactory) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		backend: backend,
		results: results,
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	gson, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) view(w http.ResponseWriter, r *http.Request) (*dashboard.Coordinator, bool) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return nil, false
	}
	view, ok := ac.service.Get(slug)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return nil, false
	}
	return view, true
}

type dashboardListEntry struct {
	Slug           string `json:"slug"`
	Loaded         bool   `json:"loaded"`
	RefreshEnabled bool   `json:"refresh_enabled"`
	Fullscreen     bool   `json:"fullscreen"`
}

func (ac *ApiController) GetDashboards(w http.ResponseWriter, r *http.Request) {
	var out []dashboardListEntry
	for _, slug := range ac.service.Slugs() {
		view, ok := ac.service.Get(slug)
		if !ok {
			continue
		}
		out = append(out, dashboardListEntry{
			Slug:           slug,
			Loaded:         view.Dashboard() != nil,
			RefreshEnabled: view.RefreshEnabled(),
			Fullscreen:     view.Fullscreen(),
		})
	}
	writeJSON(w, out)
}

type resultStatus struct {
	Status   string `json:"status"`
	ResultID int    `json:"result_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (ac *ApiController) GetDashboard(w http.ResponseWriter, r *http.Request) {
	view, ok := ac.view(w, r)
	if !ok {
		return
	}
	d := view.Dashboard()
	if d == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	var results []resultStatus
	for _, h := range view.Handles() {
		results = append(results, resultStatus{
			Status:   h.Status().String(),
			ResultID: h.ResultID(),
			Error:    h.Error(),
		})
	}

	writeJSON(w, map[string]any{
		"dashboard":       d,
		"filters":         view.Filters(),
		"results":         results,
		"refresh_enabled": view.RefreshEnabled(),
		"fullscreen":      view.Fullscreen(),
	})
}

// Load watches the dashboard if it is not watched yet and requests a
// (throttled) reload.
func (ac *ApiController) Load(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	if slug == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.service.Watch(slug).LoadDashboard()
	w.WriteHeader(http.StatusAccepted)
}

func (ac *ApiController) ToggleRefresh(w http.ResponseWriter, r *http.Request) {
	view, ok := ac.view(w, r)
	if !ok {
		return
	}
	enabled, err := view.ToggleRefresh()
	if err != nil {
		http.Error(w, "Conflict", http.StatusConflict)
		return
	}
	writeJSON(w, map[string]any{"refresh_enabled": enabled})
}

func (ac *ApiController) ToggleFullscreen(w http.ResponseWriter, r *http.Request) {
	view, ok := ac.view(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{"fullscreen": view.ToggleFullscreen()})
}

type setFilterRequest struct {
	Slug  string `json:"slug"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (ac *ApiController) SetFilter(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload setFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Slug == "" || payload.Name == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	view, ok := ac.service.Get(payload.Slug)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err := view.SetFilter(payload.Name, payload.Value); err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	writeJSON(w, view.Filters())
}

type deleteWidgetRequest struct {
	Slug     string `json:"slug"`
	WidgetID int    `json:"widget_id"`
}

func (ac *ApiController) DeleteWidget(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload deleteWidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Slug == "" || payload.WidgetID == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	view, ok := ac.service.Get(payload.Slug)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err := view.DeleteWidget(r.Context(), payload.WidgetID); err != nil {
		ac.logger.Errorf(providers.TypePost, "Delete widget %d failed: %s", payload.WidgetID, err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Archive archives the dashboard on the backend and drops it from the
// watched list. The caller confirms with confirm=true; without it the
// request is rejected and nothing happens.
func (ac *ApiController) Archive(w http.ResponseWriter, r *http.Request) {
	view, ok := ac.view(w, r)
	if !ok {
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"
	err := view.ArchiveDashboard(r.Context(), confirmed)
	switch {
	case errors.Is(err, dashboard.ErrConfirmationRequired):
		http.Error(w, "confirmation required", http.StatusBadRequest)
		return
	case errors.Is(err, dashboard.ErrNotLoaded):
		http.Error(w, "Conflict", http.StatusConflict)
		return
	case err != nil:
		ac.logger.Errorf(providers.TypePost, "Archive of %s failed: %s", view.Slug(), err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	ac.service.Remove(view.Slug())
	w.WriteHeader(http.StatusNoContent)
}

type executeQueryRequest struct {
	QueryID int  `json:"query_id"`
	MaxAge  *int `json:"max_age"`
}

// ExecuteQuery runs one query outside any dashboard view and waits for it to
// settle. MaxAge defaults to 0 (force re-execution); closing the connection
// cancels the execution.
func (ac *ApiController) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var payload executeQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.QueryID == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	query, err := ac.backend.GetQuery(r.Context(), payload.QueryID)
	if err != nil {
		ac.logger.Errorf(providers.TypePost, "Fetch of query %d failed: %s", payload.QueryID, err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	maxAge := 0
	if payload.MaxAge != nil {
		maxAge = *payload.MaxAge
	}
	h := ac.results.Get(query, maxAge, nil)

	select {
	case <-h.Done():
	case <-r.Context().Done():
		h.Cancel(context.Background())
		<-h.Done()
	}

	writeJSON(w, map[string]any{
		"status":    h.Status().String(),
		"result_id": h.ResultID(),
		"error":     h.Error(),
	})
}

// ArchiveQuery archives a stored query on the backend. Same confirmation
// contract as dashboard archiving.
func (ac *ApiController) ArchiveQuery(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("id"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		http.Error(w, "confirmation required", http.StatusBadRequest)
		return
	}
	if err := ac.backend.ArchiveQuery(r.Context(), id); err != nil {
		ac.logger.Errorf(providers.TypePost, "Archive of query %d failed: %s", id, err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSchema proxies the data source schema, used by UIs for layout only.
func (ac *ApiController) GetSchema(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("dataSourceId"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	schema, err := ac.backend.GetSchema(r.Context(), id)
	if err != nil {
		ac.logger.Errorf(providers.TypeGet, "Schema fetch for data source %d failed: %s", id, err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}
	writeJSON(w, schema)
}

package client

import (
	"context"
	"dsd/internal/models"
	"dsd/internal/structures"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// BackendInterface is the surface of the backend REST API the daemon
// depends on. See the control-flow owners for semantics: result fetching
// returns either a fresh-enough cached result or a job to poll, and event
// recording is fire-and-forget.
type BackendInterface interface {
	GetDashboard(ctx context.Context, slug string) (*models.Dashboard, error)
	ArchiveDashboard(ctx context.Context, slug string) error
	DeleteWidget(ctx context.Context, widgetID int) error
	GetQuery(ctx context.Context, id int) (*models.Query, error)
	SaveQuery(ctx context.Context, id int, fields map[string]any) error
	ArchiveQuery(ctx context.Context, id int) error
	GetQueryResult(ctx context.Context, queryID, maxAge int, parameters map[string]string) (*models.QueryResultResponse, error)
	GetQueryResultByID(ctx context.Context, resultID int) (*models.QueryResultResponse, error)
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	CancelJob(ctx context.Context, jobID string) error
	GetSchema(ctx context.Context, dataSourceID int) ([]models.SchemaTable, error)
	RecordEvent(ctx context.Context, event models.Event) error
}

// Backend is the typed API client.
type Backend struct {
	*Client
}

func NewBackend(conf *structures.Config) BackendInterface {
	httpClient := http.DefaultClient
	if conf.Backend.Timeout > 0 {
		httpClient = &http.Client{Timeout: conf.Backend.Timeout}
	}
	return &Backend{
		Client: NewClient(conf.Backend.URL,
			WithAPIKey(conf.Backend.APIKey),
			WithHTTPClient(httpClient),
		),
	}
}

func (b *Backend) GetDashboard(ctx context.Context, slug string) (*models.Dashboard, error) {
	var out models.Dashboard
	if err := b.Request(ctx, http.MethodGet, "api/dashboards/"+url.PathEscape(slug), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) ArchiveDashboard(ctx context.Context, slug string) error {
	return b.Request(ctx, http.MethodDelete, "api/dashboards/"+url.PathEscape(slug), nil, nil)
}

func (b *Backend) DeleteWidget(ctx context.Context, widgetID int) error {
	return b.Request(ctx, http.MethodDelete, "api/widgets/"+strconv.Itoa(widgetID), nil, nil)
}

func (b *Backend) GetQuery(ctx context.Context, id int) (*models.Query, error) {
	var out models.Query
	if err := b.Request(ctx, http.MethodGet, "api/queries/"+strconv.Itoa(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveQuery performs a partial update: only the supplied fields are written.
func (b *Backend) SaveQuery(ctx context.Context, id int, fields map[string]any) error {
	return b.Request(ctx, http.MethodPost, "api/queries/"+strconv.Itoa(id), fields, nil)
}

func (b *Backend) ArchiveQuery(ctx context.Context, id int) error {
	return b.Request(ctx, http.MethodDelete, "api/queries/"+strconv.Itoa(id), nil, nil)
}

func (b *Backend) GetQueryResult(ctx context.Context, queryID, maxAge int, parameters map[string]string) (*models.QueryResultResponse, error) {
	body := map[string]any{"max_age": maxAge}
	if len(parameters) > 0 {
		body["parameters"] = parameters
	}
	var out models.QueryResultResponse
	if err := b.Request(ctx, http.MethodPost, "api/queries/"+strconv.Itoa(queryID)+"/results", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) GetQueryResultByID(ctx context.Context, resultID int) (*models.QueryResultResponse, error) {
	var out models.QueryResultResponse
	if err := b.Request(ctx, http.MethodGet, "api/query_results/"+strconv.Itoa(resultID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Backend) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var out struct {
		Job models.Job `json:"job"`
	}
	if err := b.Request(ctx, http.MethodGet, "api/jobs/"+url.PathEscape(jobID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

func (b *Backend) CancelJob(ctx context.Context, jobID string) error {
	return b.Request(ctx, http.MethodDelete, "api/jobs/"+url.PathEscape(jobID), nil, nil)
}

func (b *Backend) GetSchema(ctx context.Context, dataSourceID int) ([]models.SchemaTable, error) {
	var out struct {
		Schema []models.SchemaTable `json:"schema"`
	}
	if err := b.Request(ctx, http.MethodGet, "api/data_sources/"+strconv.Itoa(dataSourceID)+"/schema", nil, &out); err != nil {
		return nil, err
	}
	return out.Schema, nil
}

func (b *Backend) RecordEvent(ctx context.Context, event models.Event) error {
	// Keep event delivery from piling up behind a slow backend.
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return b.Request(ctx, http.MethodPost, "api/events", event, nil)
}

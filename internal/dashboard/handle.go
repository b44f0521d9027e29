package dashboard

import (
	"context"
	"dsd/internal/client"
	"dsd/internal/models"
	"dsd/internal/providers"
	"dsd/internal/structures"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// Status is a QueryResultHandle's lifecycle state. Transitions are
// monotonic: waiting → running → done|failed, never backward.
type Status int

const (
	StatusWaiting Status = iota
	StatusRunning
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	default:
		return "failed"
	}
}

// ErrCancelled is the distinguished failure of a user-cancelled execution.
// It is not reported further up as an error.
var ErrCancelled = errors.New("cancelled by user")

// QueryResultHandle tracks one query execution from request to terminal
// state. It is owned by the view that created it and never shared.
type QueryResultHandle struct {
	backend      client.BackendInterface
	cache        providers.CacheProviderInterface
	logger       providers.Logger
	metrics      providers.MetricsProviderInterface
	pollInterval time.Duration
	started      time.Time

	mu        sync.Mutex
	status    Status
	result    *models.QueryResult
	filters   []*models.Filter
	errMsg    string
	log       string
	jobID     string
	cancelled bool
	done      chan struct{}
}

// ResultFactory creates and starts query result handles.
type ResultFactory struct {
	conf    *structures.Config
	backend client.BackendInterface
	cache   providers.CacheProviderInterface
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
}

func NewResultFactory(conf *structures.Config, backend client.BackendInterface, cache providers.CacheProviderInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *ResultFactory {
	return &ResultFactory{
		conf:    conf,
		backend: backend,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

// Get starts resolving a result for the query and returns immediately.
// maxAge is the oldest acceptable result age in seconds; -1 accepts any
// cached result and 0 forces re-execution. Failures never surface as
// errors here, they land in the handle's status. Retry is the caller's
// business.
func (rf *ResultFactory) Get(query *models.Query, maxAge int, parameters map[string]string) *QueryResultHandle {
	h := &QueryResultHandle{
		backend:      rf.backend,
		cache:        rf.cache,
		logger:       rf.logger,
		metrics:      rf.metrics,
		pollInterval: rf.conf.Backend.JobPollInterval,
		started:      time.Now(),
		status:       StatusWaiting,
		done:         make(chan struct{}),
	}
	// The query value is copied so a concurrent edit of the widget's query
	// cannot tear the save-back guard.
	go h.run(*query, maxAge, parameters)
	return h
}

func (h *QueryResultHandle) run(query models.Query, maxAge int, parameters map[string]string) {
	ctx := context.Background()
	cacheKey := fmt.Sprintf("result:q%d", query.ID)

	if maxAge == -1 && !query.IsNew() {
		if payload, ok := h.cache.Get(cacheKey); ok {
			var result models.QueryResult
			if err := json.Unmarshal(payload, &result); err == nil {
				h.metrics.IncCacheHits()
				h.setRunning()
				h.complete(&query, &result, cacheKey, false)
				return
			}
		}
		h.metrics.IncCacheMisses()
	}

	resp, err := h.backend.GetQueryResult(ctx, query.ID, maxAge, parameters)
	if err != nil {
		h.metrics.IncFetchFailures("query_result")
		h.fail(err.Error())
		return
	}

	if resp.QueryResult != nil {
		h.setRunning()
		h.complete(&query, resp.QueryResult, cacheKey, true)
		return
	}
	if resp.Job == nil {
		h.fail("backend returned neither result nor job")
		return
	}
	if !h.setJob(ctx, resp.Job.ID) {
		return
	}
	h.poll(ctx, &query, resp.Job.ID, cacheKey)
}

// poll follows the execution job until it settles. The handle stays
// `waiting` while the job is queued and becomes `running` once the backend
// picks it up.
func (h *QueryResultHandle) poll(ctx context.Context, query *models.Query, jobID, cacheKey string) {
	for {
		if h.Status() == StatusFailed {
			// Cancelled from outside while we slept.
			return
		}

		job, err := h.backend.GetJob(ctx, jobID)
		if err != nil {
			h.metrics.IncFetchFailures("job")
			h.fail(err.Error())
			return
		}

		switch job.Status {
		case models.JobStarted:
			h.setRunning()
		case models.JobFailed:
			msg := job.Error
			if msg == "" {
				msg = "query execution failed"
			}
			h.fail(msg)
			return
		case models.JobFinished:
			h.setRunning()
			resp, err := h.backend.GetQueryResultByID(ctx, job.QueryResultID)
			if err != nil {
				h.metrics.IncFetchFailures("query_result")
				h.fail(err.Error())
				return
			}
			if resp.QueryResult == nil {
				h.fail("finished job without a result payload")
				return
			}
			h.complete(query, resp.QueryResult, cacheKey, true)
			return
		}

		time.Sleep(h.pollInterval)
	}
}

func (h *QueryResultHandle) setRunning() {
	h.mu.Lock()
	if h.status == StatusWaiting {
		h.status = StatusRunning
	}
	h.mu.Unlock()
}

// setJob records the job id once the backend accepts the execution. When the
// user cancelled while that request was in flight, the late-arriving job is
// cancelled here and the caller must not poll it.
func (h *QueryResultHandle) setJob(ctx context.Context, jobID string) bool {
	h.mu.Lock()
	h.jobID = jobID
	cancelled := h.cancelled
	h.mu.Unlock()

	if cancelled {
		if err := h.backend.CancelJob(ctx, jobID); err != nil {
			h.logger.Warnf(providers.TypeSync, "Could not cancel job %s: %s", jobID, err)
		}
	}
	return !cancelled
}

// complete settles the handle with a result. fresh marks results the backend
// just produced; results replayed from the local cache are not re-cached and
// never touch the query record.
func (h *QueryResultHandle) complete(query *models.Query, result *models.QueryResult, cacheKey string, fresh bool) {
	h.mu.Lock()
	if h.status == StatusDone || h.status == StatusFailed {
		h.mu.Unlock()
		return
	}
	h.status = StatusDone
	h.result = result
	h.filters = models.ExtractFilters(&result.Data)
	h.log = result.Log
	close(h.done)
	h.mu.Unlock()

	h.metrics.ObserveQueryDuration("done", time.Since(h.started))

	if fresh && !query.IsNew() {
		if payload, err := json.Marshal(result); err == nil {
			h.cache.Set(cacheKey, payload)
		}
	}

	// Persist the new result id, unless the query text changed while the
	// execution was in flight. Then the result belongs to a query that no
	// longer exists and must not be recorded against it. Cache hits never
	// save: the cached id may be older than what the query record already
	// points at.
	if fresh && !query.IsNew() && query.LatestQueryDataID != result.ID && query.QueryHash == result.QueryHash {
		err := h.backend.SaveQuery(context.Background(), query.ID, map[string]any{
			"latest_query_data_id": result.ID,
		})
		if err != nil {
			h.logger.Warnf(providers.TypeSync, "Could not save result id %d for query %d: %s", result.ID, query.ID, err)
		}
	}
}

func (h *QueryResultHandle) fail(msg string) {
	h.mu.Lock()
	if h.status == StatusDone || h.status == StatusFailed {
		h.mu.Unlock()
		return
	}
	h.status = StatusFailed
	h.errMsg = msg
	close(h.done)
	h.mu.Unlock()

	h.metrics.ObserveQueryDuration("failed", time.Since(h.started))
}

// Cancel aborts a pending execution: valid while waiting or running, no-op
// once terminal. The backend is only signalled and may keep computing.
func (h *QueryResultHandle) Cancel(ctx context.Context) {
	h.mu.Lock()
	if h.status == StatusDone || h.status == StatusFailed {
		h.mu.Unlock()
		return
	}
	jobID := h.jobID
	h.status = StatusFailed
	h.cancelled = true
	h.errMsg = ErrCancelled.Error()
	close(h.done)
	h.mu.Unlock()

	h.metrics.ObserveQueryDuration("cancelled", time.Since(h.started))

	if jobID != "" {
		if err := h.backend.CancelJob(ctx, jobID); err != nil {
			h.logger.Warnf(providers.TypeSync, "Could not cancel job %s: %s", jobID, err)
		}
	}
}

// Cancelled reports whether the handle failed because the user cancelled it.
func (h *QueryResultHandle) Cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cancelled
}

func (h *QueryResultHandle) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Done is closed once the handle reaches a terminal state.
func (h *QueryResultHandle) Done() <-chan struct{} {
	return h.done
}

func (h *QueryResultHandle) Result() *models.QueryResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result
}

// ResultID returns the settled result's identifier, or zero.
func (h *QueryResultHandle) ResultID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.result == nil {
		return 0
	}
	return h.result.ID
}

func (h *QueryResultHandle) Filters() []*models.Filter {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.filters
}

func (h *QueryResultHandle) Error() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errMsg
}

func (h *QueryResultHandle) Log() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.log
}

package dashboard

import (
	"context"
	"dsd/internal/client"
	"dsd/internal/models"
	"dsd/internal/providers"
	"dsd/internal/structures"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// loadThrottle collapses bursts of load requests into one fetch per window.
// It doubles as the cadence of the blind retry on load failure.
const loadThrottle = time.Second

var (
	ErrNotLoaded            = errors.New("dashboard not loaded yet")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrNoSuchFilter         = errors.New("no such filter")
)

// Coordinator keeps one dashboard view in sync with the backend: it loads
// snapshots, resolves every visualization's query result, aggregates the
// dashboard-level filters once all results settle, and lets the refresh
// scheduler swap out stale widgets in place.
//
// All view state is serialized behind one mutex; handle goroutines and
// refresh ticks hand their outcomes over under that lock.
type Coordinator struct {
	slug    string
	conf    *structures.Config
	backend client.BackendInterface
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	results *ResultFactory
	session models.Session
	refresh *RefreshScheduler
	runID   string

	// urlParams carries the view's query-string overrides: filter values by
	// name, plus maxAge.
	urlParams map[string]string

	mu         sync.Mutex
	dashboard  *models.Dashboard
	handles    []*QueryResultHandle
	filters    []*DashboardFilter
	generation int
	fullscreen bool
	archived   bool
	lastLoad   time.Time
	pending    bool
}

func NewCoordinator(slug string, conf *structures.Config, backend client.BackendInterface, logger providers.Logger, metrics providers.MetricsProviderInterface, results *ResultFactory, session models.Session, urlParams map[string]string) *Coordinator {
	if urlParams == nil {
		urlParams = map[string]string{}
	}
	c := &Coordinator{
		slug:      slug,
		conf:      conf,
		backend:   backend,
		logger:    logger,
		metrics:   metrics,
		results:   results,
		session:   session,
		runID:     uuid.NewString(),
		urlParams: urlParams,
	}
	c.refresh = NewRefreshScheduler(c.refreshTick)
	return c
}

func (c *Coordinator) Slug() string {
	return c.slug
}

// LoadDashboard requests a (re)load of the dashboard snapshot. Calls are
// throttled to one underlying fetch per second; a burst inside the window
// collapses into a single trailing fetch.
func (c *Coordinator) LoadDashboard() {
	c.mu.Lock()
	now := time.Now()
	if since := now.Sub(c.lastLoad); since < loadThrottle {
		if !c.pending {
			c.pending = true
			time.AfterFunc(loadThrottle-since, func() {
				c.mu.Lock()
				c.pending = false
				c.lastLoad = time.Now()
				c.mu.Unlock()
				c.load()
			})
		}
		c.mu.Unlock()
		return
	}
	c.lastLoad = now
	c.mu.Unlock()
	c.load()
}

func (c *Coordinator) load() {
	d, err := c.backend.GetDashboard(context.Background(), c.slug)
	if err != nil {
		c.metrics.IncFetchFailures("dashboard")
		c.logger.Warnf(providers.TypeSync, "Load of dashboard %s failed, retrying: %s", c.slug, err)
		// Blind retry at the throttle cadence. No backoff.
		c.LoadDashboard()
		return
	}
	c.recordEvent("view", "dashboard", d.ID, nil)
	c.render(d)
}

// render installs a fresh snapshot, kicks off a result handle per
// visualization widget in grid order, and aggregates filters once the whole
// batch has settled. A newer render supersedes the filter pass of an older
// one.
func (c *Coordinator) render(d *models.Dashboard) {
	maxAge := c.maxAge()

	c.mu.Lock()
	c.dashboard = d
	c.generation++
	generation := c.generation

	var handles []*QueryResultHandle
	for _, row := range d.Widgets {
		for _, w := range row {
			if w.Visualization == nil {
				continue
			}
			handles = append(handles, c.results.Get(&w.Visualization.Query, maxAge, c.urlParams))
		}
	}
	c.handles = handles
	filtersEnabled := d.DashboardFiltersEnabled
	c.mu.Unlock()

	go func() {
		for _, h := range handles {
			<-h.Done()
		}
		filters := AggregateFilters(handles, filtersEnabled, c.urlParams)

		c.mu.Lock()
		if c.generation == generation {
			c.filters = filters
		}
		c.mu.Unlock()
	}()
}

func (c *Coordinator) maxAge() int {
	if raw, ok := c.urlParams["maxAge"]; ok {
		if age, err := strconv.Atoi(raw); err == nil {
			return age
		}
	}
	return c.conf.Sync.DefaultMaxAge
}

// refreshTick is one pass of the auto-refresh loop: fetch the snapshot and
// replace only the widgets whose results moved on. The enabled flag is
// re-checked after the fetch returns: a tick whose fetch outlives a disable
// discards its outcome instead of writing a stale grid.
func (c *Coordinator) refreshTick() {
	d, err := c.backend.GetDashboard(context.Background(), c.slug)
	if err != nil {
		c.metrics.IncFetchFailures("refresh")
		c.logger.Warnf(providers.TypeSync, "Refresh of dashboard %s failed: %s", c.slug, err)
		return
	}
	if !c.refresh.Enabled() {
		return
	}

	c.mu.Lock()
	replaced := 0
	if c.dashboard != nil {
		replaced = ReplaceChangedWidgets(c.dashboard.Widgets, d.Widgets)
	}
	c.mu.Unlock()

	c.metrics.IncRefreshTicks(c.slug)
	if replaced > 0 {
		c.metrics.AddWidgetsReplaced(c.slug, replaced)
		c.logger.Infof(providers.TypeSync, "Dashboard %s: replaced %d widget(s)", c.slug, replaced)
	}
}

// ToggleRefresh flips auto-refresh and returns the new state. Enabling
// derives the interval from the current snapshot's query schedules.
func (c *Coordinator) ToggleRefresh() (bool, error) {
	c.mu.Lock()
	d := c.dashboard
	c.mu.Unlock()
	if d == nil {
		return false, ErrNotLoaded
	}

	var enabled bool
	if c.refresh.Enabled() {
		c.refresh.Disable()
	} else {
		c.refresh.Enable(RefreshInterval(d))
		enabled = true
	}
	c.recordEvent("autorefresh", "dashboard", d.ID, map[string]any{"enable": enabled})
	return enabled, nil
}

func (c *Coordinator) RefreshEnabled() bool {
	return c.refresh.Enabled()
}

// StopRefresh shuts the refresh loop down without recording a user action.
func (c *Coordinator) StopRefresh() {
	c.refresh.Disable()
}

func (c *Coordinator) ToggleFullscreen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fullscreen = !c.fullscreen
	return c.fullscreen
}

func (c *Coordinator) Fullscreen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fullscreen
}

// ArchiveDashboard archives the dashboard on the backend. The caller must
// have confirmed the action; auto-refresh stops on success and the view is
// marked archived so the registry can drop it.
func (c *Coordinator) ArchiveDashboard(ctx context.Context, confirmed bool) error {
	c.mu.Lock()
	d := c.dashboard
	c.mu.Unlock()
	if d == nil {
		return ErrNotLoaded
	}
	if !confirmed {
		return ErrConfirmationRequired
	}

	c.recordEvent("archive", "dashboard", d.ID, nil)
	if err := c.backend.ArchiveDashboard(ctx, c.slug); err != nil {
		return fmt.Errorf("archive dashboard %s: %w", c.slug, err)
	}
	c.refresh.Disable()

	c.mu.Lock()
	c.archived = true
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) Archived() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.archived
}

// DeleteWidget removes a widget from the dashboard and compacts the grid.
func (c *Coordinator) DeleteWidget(ctx context.Context, widgetID int) error {
	c.mu.Lock()
	d := c.dashboard
	c.mu.Unlock()
	if d == nil {
		return ErrNotLoaded
	}

	c.recordEvent("delete", "widget", widgetID, nil)
	if err := c.backend.DeleteWidget(ctx, widgetID); err != nil {
		return fmt.Errorf("delete widget %d: %w", widgetID, err)
	}

	c.mu.Lock()
	removed := d.RemoveWidget(widgetID)
	c.mu.Unlock()
	if !removed {
		c.logger.Warnf(providers.TypeSync, "Widget %d was not on dashboard %s", widgetID, c.slug)
	}
	return nil
}

// SetFilter sets a dashboard-level filter's current value, fanning it out to
// every origin filter.
func (c *Coordinator) SetFilter(name string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.filters {
		if f.Name == name {
			f.SetCurrent(value)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNoSuchFilter, name)
}

func (c *Coordinator) Filters() []*DashboardFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

func (c *Coordinator) Dashboard() *models.Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dashboard
}

// Seed installs a snapshot without fetching, used when restoring persisted
// state on startup. It does not start result handles; the first real load
// does.
func (c *Coordinator) Seed(d *models.Dashboard) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dashboard == nil {
		c.dashboard = d
	}
}

func (c *Coordinator) Handles() []*QueryResultHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handles
}

func (c *Coordinator) recordEvent(action, objectType string, objectID any, extra map[string]any) {
	event := models.Event{
		UserID:               c.session.UserID,
		Action:               action,
		ObjectType:           objectType,
		ObjectID:             objectID,
		AdditionalProperties: extra,
		CorrelationID:        c.runID,
	}
	// Fire and forget; a dropped event never fails the action it records.
	go func() {
		if err := c.backend.RecordEvent(context.Background(), event); err != nil {
			c.logger.Debugf(providers.TypeSync, "Event %s/%s dropped: %s", action, objectType, err)
		}
	}()
}

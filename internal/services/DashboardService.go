package services

import (
	"dsd/internal/client"
	"dsd/internal/dashboard"
	"dsd/internal/dashboard/interfaces"
	"dsd/internal/models"
	"dsd/internal/providers"
	"dsd/internal/structures"
	"sync"
	"time"
)

type DashboardServiceInterface interface {
	interfaces.SnapshotKeeperInterface
	Watch(slug string) *dashboard.Coordinator
	Get(slug string) (*dashboard.Coordinator, bool)
	Slugs() []string
	Remove(slug string)
}

// DashboardService is the registry of watched dashboard views. Each slug
// maps to exactly one Coordinator for the daemon's lifetime; watching is
// idempotent.
type DashboardService struct {
	conf    *structures.Config
	backend client.BackendInterface
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	results *dashboard.ResultFactory
	session models.Session

	mu    sync.Mutex
	views map[string]*dashboard.Coordinator
	order []string
}

func NewDashboardService(conf *structures.Config, backend client.BackendInterface, logger providers.Logger, metrics providers.MetricsProviderInterface, results *dashboard.ResultFactory) DashboardServiceInterface {
	return &DashboardService{
		conf:    conf,
		backend: backend,
		logger:  logger,
		metrics: metrics,
		results: results,
		session: models.Session{
			UserID:   conf.Session.UserID,
			UserName: conf.Session.UserName,
		},
		views: make(map[string]*dashboard.Coordinator),
	}
}

func (ds *DashboardService) Watch(slug string) *dashboard.Coordinator {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if view, ok := ds.views[slug]; ok {
		return view
	}
	view := dashboard.NewCoordinator(slug, ds.conf, ds.backend, ds.logger, ds.metrics, ds.results, ds.session, nil)
	ds.views[slug] = view
	ds.order = append(ds.order, slug)
	ds.metrics.SetDashboardsWatched(len(ds.views))
	ds.logger.Infof(providers.TypeSync, "Watching dashboard %s", slug)
	return view
}

func (ds *DashboardService) Get(slug string) (*dashboard.Coordinator, bool) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	view, ok := ds.views[slug]
	return view, ok
}

// Slugs lists the watched dashboards in watch order.
func (ds *DashboardService) Slugs() []string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	out := make([]string, len(ds.order))
	copy(out, ds.order)
	return out
}

func (ds *DashboardService) Remove(slug string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	view, ok := ds.views[slug]
	if !ok {
		return
	}
	view.StopRefresh()
	delete(ds.views, slug)
	for i, s := range ds.order {
		if s == slug {
			ds.order = append(ds.order[:i], ds.order[i+1:]...)
			break
		}
	}
	ds.metrics.SetDashboardsWatched(len(ds.views))
	ds.logger.Infof(providers.TypeSync, "Stopped watching dashboard %s", slug)
}

// WatchConfigured starts watching every dashboard named in the config and
// kicks off their initial loads.
func (ds *DashboardService) WatchConfigured() {
	for _, slug := range ds.conf.Sync.Dashboards {
		ds.Watch(slug).LoadDashboard()
	}
}

// StopAll shuts down every view's refresh loop. Views stay registered so a
// final persist still sees their snapshots.
func (ds *DashboardService) StopAll() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	for _, view := range ds.views {
		view.StopRefresh()
	}
}

func (ds *DashboardService) GetSnapshot() *models.Snapshot {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	snapshot := &models.Snapshot{
		SavedAt:    time.Now(),
		Dashboards: make(map[string]*models.Dashboard),
	}
	for slug, view := range ds.views {
		if view.Archived() {
			continue
		}
		if d := view.Dashboard(); d != nil {
			snapshot.Dashboards[slug] = d
		}
	}
	return snapshot
}

// PutSnapshot seeds views from persisted state. Seeding never overrides a
// snapshot a live load already installed.
func (ds *DashboardService) PutSnapshot(snapshot *models.Snapshot) {
	for slug, d := range snapshot.Dashboards {
		ds.Watch(slug).Seed(d)
	}
}

package dashboard

import (
	"dsd/internal/dashboard/interfaces"
	"dsd/internal/providers"
	"dsd/internal/structures"
	"sync"
	"time"
)

// Scheduler owns the daemon-level lifecycle: restore persisted snapshots on
// startup, start watching the configured dashboards, persist snapshots on an
// interval, and wind everything down on shutdown. Per-dashboard auto-refresh
// is the RefreshScheduler's business, not this one's.
type Scheduler struct {
	config *structures.Config
	logger providers.Logger
	keeper interfaces.SnapshotKeeperInterface
	store  *SnapshotStore

	opsMu  sync.Mutex
	ticker *time.Ticker
	stop   chan struct{}
}

func NewScheduler(config *structures.Config, logger providers.Logger, keeper interfaces.SnapshotKeeperInterface, store *SnapshotStore) interfaces.SchedulerInterface {
	return &Scheduler{
		config: config,
		logger: logger,
		keeper: keeper,
		store:  store,
	}
}

func (s *Scheduler) Init() {
	s.keeper.WatchConfigured()

	s.stop = make(chan struct{})
	s.ticker = time.NewTicker(s.config.Persistence.SaveInterval)
	go func() {
		for {
			select {
			case <-s.ticker.C:
				s.persistTick()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Scheduler) persistTick() {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	err := s.store.SaveToFile(s.config.Persistence.FilePath)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting snapshots: %s", err)
		return
	}
	s.logger.Infof(providers.TypeApp, "Persisted snapshots to file %s", s.config.Persistence.FilePath)
}

func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.keeper.StopAll()
}

func (s *Scheduler) Restore() error {
	return s.store.LoadFromFile(s.config.Persistence.FilePath)
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting dashboard snapshots to file...")
	err := s.store.SaveToFile(s.config.Persistence.FilePath)
	if err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting snapshots: %s", err)
		return err
	}
	return nil
}

package interfaces

import "dsd/internal/models"

// SnapshotKeeperInterface is the slice of the dashboard registry the
// persistence layer needs: snapshot in, snapshot out, plus lifecycle hooks
// for startup and shutdown.
type SnapshotKeeperInterface interface {
	GetSnapshot() *models.Snapshot
	PutSnapshot(snapshot *models.Snapshot)
	WatchConfigured()
	StopAll()
}

package models

import "time"

// Snapshot is the on-disk state of all watched dashboards, persisted across
// restarts so a freshly started daemon can serve the last-known grids while
// the first load is in flight.
type Snapshot struct {
	SavedAt    time.Time             `json:"saved_at"`
	Dashboards map[string]*Dashboard `json:"dashboards"`
}

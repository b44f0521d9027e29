package dashboard

import "dsd/internal/models"

// ReplaceChangedWidgets reconciles a routine refresh. The fresh grid is
// indexed by widget id; every displayed cell whose backing query has a new
// latest-result id is swapped in place for the fresh widget. Everything else
// keeps its object identity so transient view state attached to it survives
// the refresh.
//
// Widgets present in only one of the grids are left alone: structural edits
// need a full reload, the diff only exists to avoid resetting unchanged
// cells on a data refresh.
func ReplaceChangedWidgets(current, fresh [][]*models.Widget) int {
	index := make(map[int]*models.Widget)
	for _, row := range fresh {
		for _, w := range row {
			index[w.ID] = w
		}
	}

	replaced := 0
	for _, row := range current {
		for i, w := range row {
			nw, ok := index[w.ID]
			if !ok || nw.Visualization == nil || w.Visualization == nil {
				continue
			}
			if nw.Visualization.Query.LatestQueryDataID != w.Visualization.Query.LatestQueryDataID {
				row[i] = nw
				replaced++
			}
		}
	}
	return replaced
}

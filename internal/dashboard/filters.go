package dashboard

import "dsd/internal/models"

// DashboardFilter is a dashboard-level filter coalesced from the per-result
// filters sharing its name. One UI control drives every origin.
type DashboardFilter struct {
	models.Filter
	Origin []*models.Filter `json:"-"`
}

// SetCurrent fans the new value out to every origin filter. The fan-out is
// one-directional and unconditional: origins with a different legal value
// domain are overwritten all the same.
func (f *DashboardFilter) SetCurrent(value any) {
	f.Current = value
	for _, origin := range f.Origin {
		origin.Current = value
	}
}

// AggregateFilters merges the filters exposed by the settled result handles,
// in widget order, into dashboard-level filters ordered by first sighting.
//
// A dashboard-level filter is only created when the URL supplied a value for
// its name or the dashboard has filters enabled; otherwise the per-result
// filter stays local to its query result. A URL-supplied value beats the
// first result's own default.
func AggregateFilters(handles []*QueryResultHandle, filtersEnabled bool, urlParams map[string]string) []*DashboardFilter {
	byName := make(map[string]*DashboardFilter)
	var ordered []*DashboardFilter

	for _, h := range handles {
		for _, qf := range h.Filters() {
			df, linked := byName[qf.Name]
			if !linked {
				urlValue, hasURLValue := urlParams[qf.Name]
				if !hasURLValue && !filtersEnabled {
					continue
				}
				df = &DashboardFilter{Filter: *qf}
				if hasURLValue {
					df.Current = urlValue
				}
				byName[qf.Name] = df
				ordered = append(ordered, df)
			}
			df.Origin = append(df.Origin, qf)
		}
	}

	// Push each dashboard-level value down once, so origins whose own
	// default differs start out aligned with the shared control.
	for _, df := range ordered {
		df.SetCurrent(df.Current)
	}
	return ordered
}

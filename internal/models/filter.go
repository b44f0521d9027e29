package models

import (
	"fmt"
	"strings"
)

const (
	filterSuffix      = "::filter"
	multiFilterSuffix = "::multi-filter"
)

// Filter is a per-result filter derived from a result column whose name
// carries a filter suffix. Current holds the selected value; Values the
// distinct column values in row order.
type Filter struct {
	Name         string `json:"name"`
	FriendlyName string `json:"friendly_name"`
	Multiple     bool   `json:"multiple"`
	Current      any    `json:"current"`
	Values       []any  `json:"values"`
}

// ExtractFilters builds the filter set a result contributes: one filter per
// column named "x::filter" or "x::multi-filter". Current defaults to the
// first value seen.
func ExtractFilters(data *ResultData) []*Filter {
	var filters []*Filter
	for _, col := range data.Columns {
		multiple := strings.HasSuffix(col.Name, multiFilterSuffix)
		if !multiple && !strings.HasSuffix(col.Name, filterSuffix) {
			continue
		}

		f := &Filter{
			Name:         col.Name,
			FriendlyName: col.FriendlyName,
			Multiple:     multiple,
		}
		// Row values decoded from JSON can be slices or maps, which do not
		// work as map keys, so dedupe on a printed form instead.
		seen := make(map[string]struct{})
		for _, row := range data.Rows {
			v, ok := row[col.Name]
			if !ok {
				continue
			}
			key := fmt.Sprintf("%T/%v", v, v)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			f.Values = append(f.Values, v)
		}
		if len(f.Values) > 0 {
			f.Current = f.Values[0]
		}
		filters = append(filters, f)
	}
	return filters
}

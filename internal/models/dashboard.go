package models

import "strings"

// Dashboard is a point-in-time snapshot of a dashboard as returned by the
// backend: metadata plus a row-major grid of widgets. Rows need not have
// equal length.
type Dashboard struct {
	ID                      int         `json:"id"`
	Slug                    string      `json:"slug"`
	Name                    string      `json:"name"`
	Widgets                 [][]*Widget `json:"widgets"`
	DashboardFiltersEnabled bool        `json:"dashboard_filters_enabled"`
}

// RemoveWidget drops the widget with the given id from the grid and compacts
// it: emptied cells are filtered out and rows left without cells are removed.
// A hole is never left behind.
func (d *Dashboard) RemoveWidget(widgetID int) bool {
	removed := false
	rows := d.Widgets[:0]
	for _, row := range d.Widgets {
		cells := row[:0]
		for _, w := range row {
			if w.ID == widgetID {
				removed = true
				continue
			}
			cells = append(cells, w)
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	d.Widgets = rows
	return removed
}

type WidgetKind int

const (
	WidgetVisualization WidgetKind = iota
	WidgetRestricted
	WidgetTextbox
)

func (k WidgetKind) String() string {
	switch k {
	case WidgetVisualization:
		return "visualization"
	case WidgetRestricted:
		return "restricted"
	default:
		return "textbox"
	}
}

// Widget is one grid cell. Exactly one of {Visualization set, Restricted,
// Text} determines its kind; Kind resolves the closed variant instead of
// property sniffing.
type Widget struct {
	ID            int            `json:"id"`
	Width         int            `json:"width"`
	Visualization *Visualization `json:"visualization,omitempty"`
	Restricted    bool           `json:"restricted,omitempty"`
	Text          string         `json:"text,omitempty"`
}

func (w *Widget) Kind() WidgetKind {
	switch {
	case w.Visualization != nil:
		return WidgetVisualization
	case w.Restricted:
		return WidgetRestricted
	default:
		return WidgetTextbox
	}
}

// DisplayName is used in logs and delete confirmations.
func (w *Widget) DisplayName() string {
	switch w.Kind() {
	case WidgetVisualization:
		return w.Visualization.Query.Name
	case WidgetRestricted:
		return "restricted"
	default:
		if len(w.Text) > 20 {
			return strings.TrimSpace(w.Text[:20]) + "..."
		}
		return w.Text
	}
}

type Visualization struct {
	ID    int    `json:"id"`
	Type  string `json:"type,omitempty"`
	Name  string `json:"name,omitempty"`
	Query Query  `json:"query"`
}

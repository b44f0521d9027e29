package models

import (
	"regexp"
	"strconv"
)

// dailySchedulePattern matches "HH:MM" time-of-day schedules. Anything else
// is treated as a fixed interval in seconds.
var dailySchedulePattern = regexp.MustCompile(`^\d{2}:\d{2}$`)

// Query is the client-side view of a stored query. Schedule is either nil
// (no automatic re-execution), a number of seconds, or a daily "HH:MM" time.
// LatestQueryDataID is zero while the query has never produced a result.
type Query struct {
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	Query             string  `json:"query"`
	QueryHash         string  `json:"query_hash"`
	DataSourceID      int     `json:"data_source_id"`
	Schedule          *string `json:"schedule"`
	LatestQueryDataID int     `json:"latest_query_data_id"`
	IsArchived        bool    `json:"is_archived"`
}

// IsNew reports whether the query has never been persisted.
func (q *Query) IsNew() bool {
	return q.ID == 0
}

func (q *Query) HasDailySchedule() bool {
	return q.Schedule != nil && dailySchedulePattern.MatchString(*q.Schedule)
}

// ScheduleSeconds returns the fixed re-execution interval in seconds, or
// false when the schedule is absent, daily, or unparsable.
func (q *Query) ScheduleSeconds() (int, bool) {
	if q.Schedule == nil || q.HasDailySchedule() {
		return 0, false
	}
	secs, err := strconv.Atoi(*q.Schedule)
	if err != nil {
		return 0, false
	}
	return secs, true
}

type SchemaTable struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

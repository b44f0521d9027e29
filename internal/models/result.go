package models

// JobStatus mirrors the backend's execution job states.
type JobStatus int

const (
	JobPending JobStatus = iota + 1
	JobStarted
	JobFinished
	JobFailed
)

// Job tracks a query execution in flight on the backend.
type Job struct {
	ID            string    `json:"id"`
	Status        JobStatus `json:"status"`
	Error         string    `json:"error,omitempty"`
	QueryResultID int       `json:"query_result_id,omitempty"`
}

func (j *Job) Terminal() bool {
	return j.Status == JobFinished || j.Status == JobFailed
}

type Column struct {
	Name         string `json:"name"`
	FriendlyName string `json:"friendly_name,omitempty"`
	Type         string `json:"type,omitempty"`
}

type ResultData struct {
	Columns []Column         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// QueryResult is a finished execution's payload, including the column
// metadata filters are extracted from. QueryHash identifies the query text
// the result was computed for.
type QueryResult struct {
	ID        int        `json:"id"`
	QueryHash string     `json:"query_hash"`
	Query     string     `json:"query,omitempty"`
	Data      ResultData `json:"data"`
	Runtime   float64    `json:"runtime,omitempty"`
	Log       string     `json:"log,omitempty"`
}

// QueryResultResponse is what the result endpoint returns: either a cached
// result fresh enough for the requested max age, or a job to poll.
type QueryResultResponse struct {
	QueryResult *QueryResult `json:"query_result,omitempty"`
	Job         *Job         `json:"job,omitempty"`
}

package models

// Session identifies the user on whose behalf the daemon acts. It is passed
// explicitly into every component that records events or writes state; there
// is no ambient current-user global.
type Session struct {
	UserID   int
	UserName string
}

// Event is a fire-and-forget analytics record. CorrelationID groups the
// events of one daemon run.
type Event struct {
	UserID               int            `json:"user_id"`
	Action               string         `json:"action"`
	ObjectType           string         `json:"object_type"`
	ObjectID             any            `json:"object_id"`
	AdditionalProperties map[string]any `json:"additional_properties,omitempty"`
	CorrelationID        string         `json:"correlation_id,omitempty"`
}

package models

// RecentSignalsRequest is the query surface of the recent-signals endpoint.
// Since is an optional RFC3339 or unix-seconds timestamp.
type RecentSignalsRequest struct {
	Limit int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=100"`
	Since string `query:"since" json:"since"`
}

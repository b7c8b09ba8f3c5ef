package domain

import "time"

// RunStatus is a point-in-time summary of a batch run.
type RunStatus struct {
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at,omitzero"`
	CurrentAgent    string    `json:"current_agent,omitempty"`
	FilesTotal      int       `json:"files_total"`
	FilesDone       int       `json:"files_done"`
	FilesMissing    int       `json:"files_missing"`
	FilesUnreadable int       `json:"files_unreadable"`
	RowsEmitted     int       `json:"rows_emitted"`
	BlocksDropped   int       `json:"blocks_dropped"`
	LookupErrors    int       `json:"lookup_errors"`
}

package domain

import "time"

// BatchStatus is the durable status record of the system-wide extraction
// sweep. It is persisted on every transition and re-read from disk after a
// restart; Active is advisory and must be re-verified against a live job
// handle before being trusted.
type BatchStatus struct {
	Active      bool       `json:"active"`
	RunID       string     `json:"run_id,omitempty"`
	Total       int        `json:"total"`
	Remaining   int        `json:"remaining"`
	Progress    int        `json:"progress"`
	CurrentFile string     `json:"current_file,omitempty"`
	Substep     string     `json:"substep,omitempty"`
	Canceled    bool       `json:"canceled"`
	StartedAt   time.Time  `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// BatchProgress is the fine-grained live progress record the extraction
// sweep rewrites as it works through the manifest. Poll overlays it onto
// the coarse status when the run it describes is still the live one.
type BatchProgress struct {
	RunID     string    `json:"run_id"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	File      string    `json:"file,omitempty"`
	Substep   string    `json:"substep,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

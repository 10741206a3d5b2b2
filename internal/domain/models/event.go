package models

import "time"

// RunEvent is emitted once per settled forecast run.
type RunEvent struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id,omitempty"`
	Symbol     string        `json:"symbol"`
	Mode       SelectionMode `json:"mode"`
	MaxHorizon int           `json:"max_horizon"`
	Outcome    Outcome       `json:"outcome"`
	ErrorKind  string        `json:"error_kind,omitempty"`
	Entries    int           `json:"entries"`
	DurationMS int64         `json:"duration_ms"`
	SettledAt  time.Time     `json:"settled_at"`
}

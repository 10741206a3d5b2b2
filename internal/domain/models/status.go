package models

// StatusKind is the visual class of a status line. Kinds are exclusive.
type StatusKind string

const (
	StatusNeutral StatusKind = "neutral"
	StatusSuccess StatusKind = "success"
	StatusError   StatusKind = "error"
)

// StatusState is the full content of one status slot.
type StatusState struct {
	Text string     `json:"text"`
	Kind StatusKind `json:"kind"`
}

// StatusSlot names one of the independent status lines of a page.
type StatusSlot string

const (
	SlotOverall StatusSlot = "overall"
	SlotChart   StatusSlot = "chart"
)

// RunState is the forecast pipeline state machine.
type RunState string

const (
	StateIdle       RunState = "idle"
	StateValidating RunState = "validating"
	StateRequesting RunState = "requesting"
	StateRendering  RunState = "rendering"
	StateSettled    RunState = "settled"
)

// Outcome is the terminal result of a settled run.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomePartial    Outcome = "partial"
	OutcomeError      Outcome = "error"
	OutcomeSuperseded Outcome = "superseded"
)

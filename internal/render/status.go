package render

import (
	"sync"

	"FinCast/internal/domain/models"
)

// StatusReporter holds the status lines of one page. Set always replaces
// both text and kind, so a line never shows a stale class.
type StatusReporter struct {
	mu    sync.RWMutex
	slots map[models.StatusSlot]models.StatusState
}

func NewStatusReporter() *StatusReporter {
	return &StatusReporter{slots: make(map[models.StatusSlot]models.StatusState)}
}

// Set overwrites slot. Unknown kinds are stored as neutral.
func (r *StatusReporter) Set(slot models.StatusSlot, text string, kind models.StatusKind) {
	switch kind {
	case models.StatusSuccess, models.StatusError:
	default:
		kind = models.StatusNeutral
	}
	r.mu.Lock()
	r.slots[slot] = models.StatusState{Text: text, Kind: kind}
	r.mu.Unlock()
}

// Clear resets slot to empty neutral text.
func (r *StatusReporter) Clear(slot models.StatusSlot) {
	r.Set(slot, "", models.StatusNeutral)
}

// Get returns the current state of slot; unset slots are empty and neutral.
func (r *StatusReporter) Get(slot models.StatusSlot) models.StatusState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if st, ok := r.slots[slot]; ok {
		return st
	}
	return models.StatusState{Kind: models.StatusNeutral}
}

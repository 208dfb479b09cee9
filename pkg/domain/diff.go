package domain

import (
	"reflect"
)

// ContextDiff represents the changes between two contexts of a session.
// It is serialized to JSON for partial updates on streaming clients.
type ContextDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	// CurrentSlot is set when the slot awaiting an answer changed.
	CurrentSlot *string `json:"current_slot,omitempty"`

	// Slots contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Slots map[string]any `json:"slots,omitempty"`

	// Reset is true when the stored context was discarded.
	Reset bool `json:"reset,omitempty"`
}

// Diff calculates the difference between two contexts of the same session.
// A nil oldCtx yields the whole new context; a nil newCtx yields a reset.
func Diff(sessionID string, oldCtx, newCtx *Context) *ContextDiff {
	diff := &ContextDiff{SessionID: sessionID}
	if newCtx == nil {
		if oldCtx == nil {
			return nil
		}
		diff.Reset = true
		return diff
	}

	if oldCtx == nil || oldCtx.CurrentSlot() != newCtx.CurrentSlot() {
		slot := newCtx.CurrentSlot()
		diff.CurrentSlot = &slot
	}
	diff.Slots = diffSlots(oldCtx, newCtx)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffSlots(old, new *Context) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Slots {
			delta[k] = v
		}
		return delta
	}

	for k, newVal := range new.Slots {
		oldVal, exists := old.Slots[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old.Slots {
		if _, exists := new.Slots[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ContextDiff) IsEmpty() bool {
	return d.CurrentSlot == nil && len(d.Slots) == 0 && !d.Reset
}

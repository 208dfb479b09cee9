package domain

// TurnResult is the outcome of one dialogue turn.
//
// A nil Context asks the caller to discard the stored context (the dialogue was
// a single question). When a multi-slot dialogue ends, the context is still
// returned, with currentIntent cleared; the two terminal shapes are different
// on purpose and callers must handle both.
type TurnResult struct {
	Answer  string   `json:"answer"`
	Context *Context `json:"context,omitempty"`
}

// Terminal reports whether the dialogue ended with this turn.
func (r *TurnResult) Terminal() bool {
	return r.Context == nil || r.Context.CurrentIntent() == ""
}

package domain

import "maps"

// Bookkeeping keys maintained by the engine inside Context.Slots.
const (
	KeyUserInput     = "userInput"
	KeyCurrentIntent = "currentIntent"
	KeyCurrentSlot   = "currentSlot"
	KeyEntities      = "entities"
	KeySentiment     = "sentiment"
)

// Context is the conversation context of one session. Answers, computed
// values, call responses and bookkeeping share one flat map; a later write to
// an existing key replaces it.
type Context struct {
	Slots map[string]any `json:"slots"`
}

// NewContext returns an empty context.
func NewContext() *Context {
	return &Context{Slots: make(map[string]any)}
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	if c == nil || c.Slots == nil {
		return nil, false
	}
	v, ok := c.Slots[key]
	return v, ok
}

// Set stores value under key.
func (c *Context) Set(key string, value any) {
	if c.Slots == nil {
		c.Slots = make(map[string]any)
	}
	c.Slots[key] = value
}

// Merge writes every entry of values into the context.
func (c *Context) Merge(values map[string]any) {
	for k, v := range values {
		c.Set(k, v)
	}
}

// String returns the value under key when it is a non-empty string.
func (c *Context) String(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// CurrentIntent returns the active intent, or "" when awaiting a new one.
func (c *Context) CurrentIntent() string { return c.String(KeyCurrentIntent) }

// CurrentSlot returns the id of the slot awaiting an answer.
func (c *Context) CurrentSlot() string { return c.String(KeyCurrentSlot) }

// SetCurrentIntent stores the active intent.
func (c *Context) SetCurrentIntent(intent string) { c.Set(KeyCurrentIntent, intent) }

// SetCurrentSlot stores the slot awaiting an answer.
func (c *Context) SetCurrentSlot(id string) { c.Set(KeyCurrentSlot, id) }

// ClearDialogue unsets currentIntent and currentSlot, returning the session to
// the awaiting-intent state while keeping every collected value.
func (c *Context) ClearDialogue() {
	c.Set(KeyCurrentIntent, nil)
	c.Set(KeyCurrentSlot, nil)
}

// AwaitingAnswer reports whether a dialogue is in progress.
func (c *Context) AwaitingAnswer() bool {
	return c.CurrentIntent() != "" && c.CurrentSlot() != ""
}

// Clone returns a copy whose top-level map can be mutated independently.
func (c *Context) Clone() *Context {
	if c == nil {
		return NewContext()
	}
	out := &Context{Slots: make(map[string]any, len(c.Slots))}
	maps.Copy(out.Slots, c.Slots)
	return out
}

// Snapshot returns the value tree exposed to expressions.
func (c *Context) Snapshot() map[string]any {
	if c == nil || c.Slots == nil {
		return map[string]any{}
	}
	return c.Slots
}

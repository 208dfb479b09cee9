package domain

import (
	"encoding/json"
	"time"
)

// Phase is the lifecycle point an action set is bound to.
type Phase string

const (
	// PhasePre runs when a slot is entered, before its question is rendered.
	PhasePre Phase = "pre"
	// PhasePost runs after a slot's answer has been accepted.
	PhasePost Phase = "post"
)

// ParsePhase accepts both the canonical names and the legacy execute tags.
func ParsePhase(raw string) (Phase, bool) {
	switch raw {
	case "pre", "firstQuestion":
		return PhasePre, true
	case "post", "afterQuestion":
		return PhasePost, true
	}
	return "", false
}

// APIErrorKey is where a failed call's error is stored when it has no response key.
const APIErrorKey = "apiError"

// ActionSet groups the outbound calls and assignments of one phase.
// Calls run first, sequentially and in order; Assign runs after them.
type ActionSet struct {
	Phase  Phase        `json:"phase" yaml:"phase"`
	Calls  []APICall    `json:"calls,omitempty" yaml:"calls,omitempty"`
	Assign FunctionSpec `json:"assign,omitempty" yaml:"assign,omitempty"`
}

// APICall describes one outbound HTTP request. Any string field may hold
// {{expr}} placeholders or be a %expr% dynamic value.
type APICall struct {
	URL     string         `json:"url" yaml:"url"`
	Method  string         `json:"method,omitempty" yaml:"method,omitempty"`
	Headers map[string]any `json:"headers,omitempty" yaml:"headers,omitempty"`
	Params  map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Body    any            `json:"body,omitempty" yaml:"body,omitempty"`
	// ResponseKey is the context key receiving the response (or the error).
	ResponseKey string `json:"response_key,omitempty" yaml:"response_key,omitempty"`
	// ResponsePath optionally extracts a sub-value from a JSON response.
	ResponsePath string `json:"response_path,omitempty" yaml:"response_path,omitempty"`
	// Condition is an expression string, a bool, or nil (always call).
	Condition any           `json:"condition,omitempty" yaml:"condition,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// FunctionSpec maps context keys to literal values or %expr% dynamic values.
type FunctionSpec map[string]any

// ActionError describes a failed outbound call. It is serialized into the
// context so later templates and guards can inspect it.
type ActionError struct {
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Method  string `json:"method,omitempty"`
	Status  int    `json:"status,omitempty"`
	Body    string `json:"body,omitempty"`
}

func (e *ActionError) Error() string {
	return e.Message
}

// JSON returns the serialized form stored in the context.
func (e *ActionError) JSON() string {
	b, err := json.Marshal(e)
	if err != nil {
		return `{"message":"unserializable action error"}`
	}
	return string(b)
}

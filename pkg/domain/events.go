package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventSlotEnter    EventType = "slot_enter"
	EventSlotLeave    EventType = "slot_leave"
	EventActionCall   EventType = "action_call"
	EventActionReturn EventType = "action_return"
	EventTurn         EventType = "turn"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// SlotEvent represents entry into or exit from a slot.
type SlotEvent struct {
	EventBase
	Intent string `json:"intent"`
	SlotID string `json:"slot_id"`
}

// ActionEvent represents one outbound call.
type ActionEvent struct {
	EventBase
	SlotID   string        `json:"slot_id"`
	Phase    Phase         `json:"phase"`
	Method   string        `json:"method"`
	URL      string        `json:"url"`
	Status   int           `json:"status,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// TurnOutcome classifies how a turn ended.
type TurnOutcome string

const (
	OutcomeQuestion   TurnOutcome = "question"
	OutcomeRejected   TurnOutcome = "rejected"
	OutcomeTerminal   TurnOutcome = "terminal"
	OutcomeSingleShot TurnOutcome = "single_shot"
	OutcomeError      TurnOutcome = "error"
)

// TurnEvent summarizes a handled turn.
type TurnEvent struct {
	EventBase
	Intent   string        `json:"intent"`
	SlotID   string        `json:"slot_id"`
	Outcome  TurnOutcome   `json:"outcome"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnSlotEnter    func(context.Context, *SlotEvent)
	OnSlotLeave    func(context.Context, *SlotEvent)
	OnActionCall   func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
	OnTurn         func(context.Context, *TurnEvent)
}

package dsl

import "github.com/aretw0/slotflow/pkg/domain"

// SlotBuilder provides a fluent API for configuring a slot.
type SlotBuilder struct {
	slot   domain.SlotDefinition
	pre    domain.ActionSet
	post   domain.ActionSet
	intent *IntentBuilder
}

// Ask sets the question template.
func (s *SlotBuilder) Ask(question string) *SlotBuilder {
	s.slot.Question = question
	return s
}

// Fallback sets the message rendered when an answer is rejected.
func (s *SlotBuilder) Fallback(text string) *SlotBuilder {
	s.slot.Fallback = text
	return s
}

// Expect requires a recognized entity of the given type as the answer.
func (s *SlotBuilder) Expect(entity string) *SlotBuilder {
	s.slot.Requires = domain.RequiresEntity(entity)
	return s
}

// AnyInput accepts the raw input as the answer (the default).
func (s *SlotBuilder) AnyInput() *SlotBuilder {
	s.slot.Requires = domain.AcceptsAnyInput()
	return s
}

// Then sets the jump target: an intent group name fragment or a slot id.
func (s *SlotBuilder) Then(jumpTo string) *SlotBuilder {
	s.slot.JumpTo = jumpTo
	return s
}

// When sets the guard expression.
func (s *SlotBuilder) When(guard string) *SlotBuilder {
	s.slot.Guard = guard
	return s
}

// OnEnter adds outbound calls run when the slot is entered.
func (s *SlotBuilder) OnEnter(calls ...domain.APICall) *SlotBuilder {
	s.pre.Calls = append(s.pre.Calls, calls...)
	return s
}

// OnAnswer adds outbound calls run after the slot's answer is accepted.
func (s *SlotBuilder) OnAnswer(calls ...domain.APICall) *SlotBuilder {
	s.post.Calls = append(s.post.Calls, calls...)
	return s
}

// AssignOnEnter adds assignments evaluated when the slot is entered.
func (s *SlotBuilder) AssignOnEnter(spec domain.FunctionSpec) *SlotBuilder {
	s.pre.Assign = merge(s.pre.Assign, spec)
	return s
}

// AssignOnAnswer adds assignments evaluated after the answer is accepted.
func (s *SlotBuilder) AssignOnAnswer(spec domain.FunctionSpec) *SlotBuilder {
	s.post.Assign = merge(s.post.Assign, spec)
	return s
}

// Slot appends the next slot to the same intent group.
func (s *SlotBuilder) Slot(id string) *SlotBuilder {
	return s.intent.Slot(id)
}

// Intent switches to another intent group of the same builder.
func (s *SlotBuilder) Intent(name string) *IntentBuilder {
	return s.intent.builder.Intent(name)
}

func (s *SlotBuilder) build() domain.SlotDefinition {
	slot := s.slot
	slot.Actions = nil
	if len(s.pre.Calls) > 0 || len(s.pre.Assign) > 0 {
		set := s.pre
		set.Phase = domain.PhasePre
		slot.Actions = append(slot.Actions, set)
	}
	if len(s.post.Calls) > 0 || len(s.post.Assign) > 0 {
		set := s.post
		set.Phase = domain.PhasePost
		slot.Actions = append(slot.Actions, set)
	}
	return slot
}

func merge(dst, src domain.FunctionSpec) domain.FunctionSpec {
	if dst == nil {
		dst = make(domain.FunctionSpec, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Package validator checks a slot graph before it is served.
//
// Errors make the graph unusable: the engine refuses to load it. Warnings
// describe constructs the engine tolerates but that are probably mistakes,
// such as a static jump that silently falls back to the None group.
package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aretw0/slotflow/internal/expr"
	"github.com/aretw0/slotflow/internal/render"
	"github.com/aretw0/slotflow/pkg/domain"
)

// Issue is one finding, located by group and slot when relevant.
type Issue struct {
	Group   string `json:"group,omitempty"`
	Slot    string `json:"slot,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	var loc []string
	if i.Group != "" {
		loc = append(loc, "group "+i.Group)
	}
	if i.Slot != "" {
		loc = append(loc, "slot "+i.Slot)
	}
	if len(loc) == 0 {
		return i.Message
	}
	return strings.Join(loc, ", ") + ": " + i.Message
}

// Report collects the findings of a validation.
type Report struct {
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// OK reports whether the graph has no errors.
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err returns the errors as a single error, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	lines := make([]string, len(r.Errors))
	for i, issue := range r.Errors {
		lines[i] = issue.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(r.Errors), strings.Join(lines, "\n- "))
}

func (r *Report) errorf(group, slot, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Group: group, Slot: slot, Message: fmt.Sprintf(format, args...)})
}

func (r *Report) warnf(group, slot, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Group: group, Slot: slot, Message: fmt.Sprintf(format, args...)})
}

// Validate inspects g. Expressions are compiled with eval.
func Validate(g *domain.Graph, eval *expr.Evaluator) *Report {
	r := &Report{}
	if g == nil || len(g.Groups) == 0 {
		r.errorf("", "", "graph has no intent groups")
		return r
	}

	groups := make(map[string]bool)
	for _, group := range g.Groups {
		switch {
		case group.Name == "":
			r.errorf("", "", "intent group without name")
		case groups[group.Name]:
			r.errorf(group.Name, "", "duplicate intent group")
		}
		groups[group.Name] = true

		if len(group.Slots) == 0 {
			r.errorf(group.Name, "", "intent group has no slots")
		}

		ids := make(map[string]bool)
		for _, slot := range group.Slots {
			if slot.ID == "" {
				r.errorf(group.Name, "", "slot without id")
				continue
			}
			if ids[slot.ID] {
				r.errorf(group.Name, slot.ID, "duplicate slot id in group")
			}
			ids[slot.ID] = true
			checkSlot(r, g, eval, group.Name, slot)
		}
	}

	if !groups[domain.NoneIntent] {
		r.warnf("", "", "no %q group: unrecognized input and unresolved jumps end the turn with an error or the dialogue", domain.NoneIntent)
	}

	checkTraining(r, g, groups)
	return r
}

func checkSlot(r *Report, g *domain.Graph, eval *expr.Evaluator, group string, slot domain.SlotDefinition) {
	if slot.Question == "" {
		r.warnf(group, slot.ID, "slot has no question")
	}

	if slot.Guard != "" {
		if err := eval.Compile(slot.Guard); err != nil {
			r.warnf(group, slot.ID, "guard does not compile and will always be false: %v", err)
		}
	}

	for _, text := range []string{slot.Question, slot.Fallback, slot.JumpTo} {
		checkText(r, eval, group, slot.ID, text)
	}

	if jump := slot.JumpTo; jump != "" && isStatic(jump) && !resolvable(g, jump) {
		r.warnf(group, slot.ID, "jump target %q matches no group or slot and falls back to %q", jump, domain.NoneIntent)
	}

	for _, set := range slot.Actions {
		for i, call := range set.Calls {
			if call.URL == "" {
				r.errorf(group, slot.ID, "%s call %d has no url", set.Phase, i)
			}
			checkText(r, eval, group, slot.ID, call.URL)
			if cond, ok := call.Condition.(string); ok && cond != "" && isStatic(cond) {
				if err := eval.Compile(cond); err != nil {
					r.warnf(group, slot.ID, "call %d condition does not compile: %v", i, err)
				}
			}
		}
		for key, value := range set.Assign {
			if s, ok := value.(string); ok {
				checkText(r, eval, group, slot.ID, s)
			}
			if key == domain.KeyCurrentIntent || key == domain.KeyCurrentSlot {
				r.warnf(group, slot.ID, "assign overwrites the dialogue key %q", key)
			}
		}
	}
}

// checkText compiles the placeholders and the dynamic body of a template.
func checkText(r *Report, eval *expr.Evaluator, group, slot, text string) {
	if body, ok := render.DynamicBody(text); ok {
		if err := eval.Compile(body); err != nil {
			r.warnf(group, slot, "dynamic value %q does not compile and is used as literal text: %v", text, err)
		}
		return
	}
	for _, src := range render.Placeholders(text) {
		if err := eval.Compile(src); err != nil {
			r.warnf(group, slot, "placeholder {{%s}} does not compile and will be left verbatim: %v", src, err)
		}
	}
}

func checkTraining(r *Report, g *domain.Graph, groups map[string]bool) {
	trained := make(map[string]bool)
	for _, doc := range g.Training.Documents {
		trained[doc.Intent] = true
		if !groups[doc.Intent] {
			r.warnf(doc.Intent, "", "training intent has no intent group and will fall back to %q", domain.NoneIntent)
		}
		if len(doc.Utterances) == 0 {
			r.warnf(doc.Intent, "", "training intent has no utterances")
		}
	}
	if !g.Training.IsEmpty() {
		for _, group := range g.Groups {
			if group.Name != domain.NoneIntent && !trained[group.Name] {
				r.warnf(group.Name, "", "intent group has no utterances and is only reachable by jumps")
			}
		}
	}

	entities := make(map[string]bool)
	for _, def := range g.Training.Entities {
		if entities[def.Name] {
			r.errorf("", "", "duplicate entity %q", def.Name)
		}
		entities[def.Name] = true
		if def.Kind == domain.EntityRegex {
			if _, err := regexp.Compile(def.Pattern); err != nil {
				r.errorf("", "", "entity %q pattern does not compile: %v", def.Name, err)
			}
		}
	}
	if len(g.Training.Entities) == 0 {
		return
	}
	for _, group := range g.Groups {
		for _, slot := range group.Slots {
			if !slot.Requires.AcceptsAny() && !entities[slot.Requires.Entity] {
				r.warnf(group.Name, slot.ID, "requires unknown entity %q and can never be answered", slot.Requires.Entity)
			}
		}
	}
}

// isStatic reports whether a value has no computed parts.
func isStatic(s string) bool {
	return !render.IsDynamic(s) && !strings.Contains(s, "{{")
}

// resolvable mirrors the first two steps of jump resolution.
func resolvable(g *domain.Graph, jump string) bool {
	for _, group := range g.Groups {
		if strings.Contains(group.Name, jump) {
			return true
		}
	}
	_, _, ok := g.Slot(jump)
	return ok
}

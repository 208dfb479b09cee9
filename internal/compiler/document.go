package compiler

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
)

// legacyExecuteKey selects the phase of a legacy callApi entry or function block.
const legacyExecuteKey = "execute"

type document struct {
	Groups []groupDoc `mapstructure:"groups"`
	// Legacy name for the group list.
	Slots     []groupDoc  `mapstructure:"slots"`
	Intents   []intentDoc `mapstructure:"intents"`
	Documents []intentDoc `mapstructure:"documents"`
	Entities  []entityDoc `mapstructure:"entities"`
}

type groupDoc struct {
	Name      string    `mapstructure:"name"`
	Slots     []slotDoc `mapstructure:"slots"`
	Questions []slotDoc `mapstructure:"questions"`
	// Utterances may be given inline on the group.
	Utterances []string `mapstructure:"utterances"`
}

type slotDoc struct {
	ID        string         `mapstructure:"id"`
	Slot      string         `mapstructure:"slot"`
	Question  string         `mapstructure:"question"`
	Fallback  string         `mapstructure:"fallback"`
	Requires  any            `mapstructure:"requires"`
	Entity    any            `mapstructure:"entity"`
	JumpTo    string         `mapstructure:"jump_to"`
	JumpToOld string         `mapstructure:"jumpTo"`
	Guard     any            `mapstructure:"guard"`
	Condition any            `mapstructure:"condition"`
	Actions   []actionDoc    `mapstructure:"actions"`
	CallAPI   []callDoc      `mapstructure:"callApi"`
	Function  map[string]any `mapstructure:"function"`
}

type actionDoc struct {
	Phase  string         `mapstructure:"phase"`
	Calls  []callDoc      `mapstructure:"calls"`
	Assign map[string]any `mapstructure:"assign"`
}

type callDoc struct {
	URL          string         `mapstructure:"url"`
	Method       string         `mapstructure:"method"`
	Headers      map[string]any `mapstructure:"headers"`
	Params       map[string]any `mapstructure:"params"`
	Body         any            `mapstructure:"body"`
	ResponseKey  string         `mapstructure:"response_key"`
	ResponseName string         `mapstructure:"responseName"`
	ResponsePath string         `mapstructure:"response_path"`
	Condition    any            `mapstructure:"condition"`
	Timeout      time.Duration  `mapstructure:"timeout"`
	Execute      string         `mapstructure:"execute"`
}

type intentDoc struct {
	Name       string   `mapstructure:"name"`
	Intent     string   `mapstructure:"intent"`
	Utterances []string `mapstructure:"utterances"`
	Text       []string `mapstructure:"text"`
}

type entityDoc struct {
	Name    string   `mapstructure:"name"`
	Kind    string   `mapstructure:"kind"`
	Type    string   `mapstructure:"type"`
	Values  []string `mapstructure:"values"`
	Pattern string   `mapstructure:"pattern"`
	Value   any      `mapstructure:"value"`
}

func (d document) graph() (*domain.Graph, error) {
	g := &domain.Graph{}
	var errs []error

	for _, gd := range append(d.Groups, d.Slots...) {
		group, err := gd.group()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		g.Groups = append(g.Groups, group)
		if len(gd.Utterances) > 0 {
			g.Training.Documents = append(g.Training.Documents, domain.TrainingDocument{
				Intent:     gd.Name,
				Utterances: gd.Utterances,
			})
		}
	}

	for _, id := range append(d.Intents, d.Documents...) {
		doc := id.document()
		if doc.Intent == "" {
			errs = append(errs, errors.New("training document missing intent name"))
			continue
		}
		g.Training.Documents = append(g.Training.Documents, doc)
	}

	for _, ed := range d.Entities {
		def, err := ed.definition()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		g.Training.Entities = append(g.Training.Entities, def)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return g, nil
}

func (gd groupDoc) group() (domain.IntentGroup, error) {
	if gd.Name == "" {
		return domain.IntentGroup{}, errors.New("intent group missing name")
	}
	group := domain.IntentGroup{Name: gd.Name}
	for i, sd := range append(gd.Slots, gd.Questions...) {
		slot, err := sd.slot()
		if err != nil {
			return domain.IntentGroup{}, fmt.Errorf("group %q slot %d: %w", gd.Name, i, err)
		}
		group.Slots = append(group.Slots, slot)
	}
	return group, nil
}

func (sd slotDoc) slot() (domain.SlotDefinition, error) {
	slot := domain.SlotDefinition{
		ID:       firstNonEmpty(sd.ID, sd.Slot),
		Question: sd.Question,
		Fallback: sd.Fallback,
		JumpTo:   firstNonEmpty(sd.JumpTo, sd.JumpToOld),
	}
	if slot.ID == "" {
		return slot, errors.New("slot missing id")
	}

	req, err := requirement(firstNonNil(sd.Requires, sd.Entity))
	if err != nil {
		return slot, fmt.Errorf("slot %q: %w", slot.ID, err)
	}
	slot.Requires = req

	guard, err := guardText(firstNonNil(sd.Guard, sd.Condition))
	if err != nil {
		return slot, fmt.Errorf("slot %q: %w", slot.ID, err)
	}
	slot.Guard = guard

	for _, ad := range sd.Actions {
		set, err := ad.set()
		if err != nil {
			return slot, fmt.Errorf("slot %q: %w", slot.ID, err)
		}
		slot.Actions = append(slot.Actions, set)
	}

	legacy, err := sd.legacyActions()
	if err != nil {
		return slot, fmt.Errorf("slot %q: %w", slot.ID, err)
	}
	slot.Actions = append(slot.Actions, legacy...)

	return slot, nil
}

// legacyActions converts callApi and function. The phase of the whole callApi
// list is taken from its first entry.
func (sd slotDoc) legacyActions() ([]domain.ActionSet, error) {
	var sets []domain.ActionSet

	if len(sd.CallAPI) > 0 {
		phase, ok := domain.ParsePhase(sd.CallAPI[0].Execute)
		if !ok {
			return nil, fmt.Errorf("callApi has unknown execute %q", sd.CallAPI[0].Execute)
		}
		set := domain.ActionSet{Phase: phase}
		for _, cd := range sd.CallAPI {
			set.Calls = append(set.Calls, cd.call())
		}
		sets = append(sets, set)
	}

	if len(sd.Function) > 0 {
		raw, _ := sd.Function[legacyExecuteKey].(string)
		phase, ok := domain.ParsePhase(raw)
		if !ok {
			return nil, fmt.Errorf("function has unknown execute %q", raw)
		}
		assign := maps.Clone(sd.Function)
		delete(assign, legacyExecuteKey)
		if len(sets) > 0 && sets[0].Phase == phase {
			sets[0].Assign = assign
		} else {
			sets = append(sets, domain.ActionSet{Phase: phase, Assign: assign})
		}
	}

	return sets, nil
}

func (ad actionDoc) set() (domain.ActionSet, error) {
	phase, ok := domain.ParsePhase(ad.Phase)
	if !ok {
		return domain.ActionSet{}, fmt.Errorf("unknown action phase %q", ad.Phase)
	}
	set := domain.ActionSet{Phase: phase}
	for _, cd := range ad.Calls {
		set.Calls = append(set.Calls, cd.call())
	}
	if len(ad.Assign) > 0 {
		set.Assign = domain.FunctionSpec(ad.Assign)
	}
	return set, nil
}

func (cd callDoc) call() domain.APICall {
	return domain.APICall{
		URL:          cd.URL,
		Method:       cd.Method,
		Headers:      cd.Headers,
		Params:       cd.Params,
		Body:         cd.Body,
		ResponseKey:  firstNonEmpty(cd.ResponseKey, cd.ResponseName),
		ResponsePath: cd.ResponsePath,
		Condition:    cd.Condition,
		Timeout:      cd.Timeout,
	}
}

func (id intentDoc) document() domain.TrainingDocument {
	return domain.TrainingDocument{
		Intent:     firstNonEmpty(id.Name, id.Intent),
		Utterances: append(id.Utterances, id.Text...),
	}
}

func (ed entityDoc) definition() (domain.EntityDefinition, error) {
	def := domain.EntityDefinition{
		Name:    ed.Name,
		Kind:    domain.EntityKind(firstNonEmpty(ed.Kind, ed.Type)),
		Values:  ed.Values,
		Pattern: ed.Pattern,
	}
	if def.Name == "" {
		return def, errors.New("entity missing name")
	}

	// Legacy entities carry a single "value": a list for enums, a string for regexes.
	switch v := ed.Value.(type) {
	case nil:
	case string:
		if def.Pattern == "" {
			def.Pattern = v
		}
	case []any:
		for _, item := range v {
			def.Values = append(def.Values, fmt.Sprint(item))
		}
	default:
		return def, fmt.Errorf("entity %q: unsupported value %T", def.Name, v)
	}

	switch def.Kind {
	case domain.EntityEnum:
		if len(def.Values) == 0 {
			return def, fmt.Errorf("enum entity %q has no values", def.Name)
		}
	case domain.EntityRegex:
		if def.Pattern == "" {
			return def, fmt.Errorf("regex entity %q has no pattern", def.Name)
		}
	default:
		return def, fmt.Errorf("entity %q has unsupported kind %q", def.Name, def.Kind)
	}
	return def, nil
}

// requirement accepts an entity name, the "true" sentinel, a boolean, or a
// {entity, any_input} map. A slot without requires accepts any input.
func requirement(raw any) (domain.EntityRequirement, error) {
	switch v := raw.(type) {
	case nil:
		return domain.AcceptsAnyInput(), nil
	case bool:
		if v {
			return domain.AcceptsAnyInput(), nil
		}
		return domain.EntityRequirement{}, errors.New("requires: false is not a valid requirement")
	case string:
		return domain.ParseEntityRequirement(v), nil
	case map[string]any:
		var req domain.EntityRequirement
		if err := decode(v, &req); err != nil {
			return req, fmt.Errorf("requires: %w", err)
		}
		return req, nil
	default:
		return domain.EntityRequirement{}, fmt.Errorf("requires: unsupported value %T", raw)
	}
}

// guardText turns YAML booleans into expressions.
func guardText(raw any) (string, error) {
	switch v := raw.(type) {
	case nil:
		return "", nil
	case bool:
		if v {
			return "", nil
		}
		return "false", nil
	case string:
		return strings.TrimSpace(v), nil
	default:
		return "", fmt.Errorf("guard: unsupported value %T", raw)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

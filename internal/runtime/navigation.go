package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/slotflow/pkg/domain"
)

// firstSlot resolves the entry slot for a classified intent: the first slot
// with a passing guard in the group named intent, else in the None group.
func (e *Engine) firstSlot(ctx context.Context, intent string, cc *domain.Context) (*domain.SlotDefinition, error) {
	if group, ok := e.graph.Group(intent); ok {
		if slot := e.firstPassing(ctx, group, cc); slot != nil {
			return slot, nil
		}
	}
	if group, ok := e.graph.Group(domain.NoneIntent); ok {
		if slot := e.firstPassing(ctx, group, cc); slot != nil {
			e.logger.Debug("intent fell back to None group", "intent", intent, "slot", slot.ID)
			return slot, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrIntentUnresolved, intent)
}

// resolveJump finds the slot a jump target leads to. In order:
//
//  1. groups whose name contains jumpTo, first slot with a passing guard;
//  2. any slot whose id equals jumpTo and whose guard passes;
//  3. the None group's first passing slot, which also becomes currentSlot.
//
// An empty target, or a target none of the steps resolve, ends the dialogue.
func (e *Engine) resolveJump(ctx context.Context, jumpTo string, cc *domain.Context) (*domain.SlotDefinition, bool) {
	if jumpTo == "" {
		return nil, false
	}

	for i := range e.graph.Groups {
		group := &e.graph.Groups[i]
		if !strings.Contains(group.Name, jumpTo) {
			continue
		}
		if slot := e.firstPassing(ctx, group, cc); slot != nil {
			return slot, true
		}
	}

	for i := range e.graph.Groups {
		group := &e.graph.Groups[i]
		for j := range group.Slots {
			slot := &group.Slots[j]
			if slot.ID == jumpTo && e.guard(ctx, slot, cc) {
				return slot, true
			}
		}
	}

	if group, ok := e.graph.Group(domain.NoneIntent); ok {
		if slot := e.firstPassing(ctx, group, cc); slot != nil {
			e.logger.Debug("jump fell back to None group", "jump_to", jumpTo, "slot", slot.ID)
			cc.SetCurrentSlot(slot.ID)
			return slot, true
		}
	}
	return nil, false
}

func (e *Engine) firstPassing(ctx context.Context, group *domain.IntentGroup, cc *domain.Context) *domain.SlotDefinition {
	for i := range group.Slots {
		if e.guard(ctx, &group.Slots[i], cc) {
			return &group.Slots[i]
		}
	}
	return nil
}

func (e *Engine) guard(ctx context.Context, slot *domain.SlotDefinition, cc *domain.Context) bool {
	return e.renderer.Evaluator().Guard(ctx, slot.Guard, cc)
}

package runtime

import (
	"context"
	"time"

	"github.com/aretw0/slotflow/pkg/domain"
)

func (e *Engine) emitSlotEnter(ctx context.Context, cc *domain.Context, slotID string) {
	e.logger.Debug("slot entered", "intent", cc.CurrentIntent(), "slot", slotID)
	if e.hooks.OnSlotEnter == nil {
		return
	}
	e.hooks.OnSlotEnter(ctx, &domain.SlotEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSlotEnter},
		Intent:    cc.CurrentIntent(),
		SlotID:    slotID,
	})
}

func (e *Engine) emitSlotLeave(ctx context.Context, cc *domain.Context, slotID string) {
	if e.hooks.OnSlotLeave == nil {
		return
	}
	e.hooks.OnSlotLeave(ctx, &domain.SlotEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventSlotLeave},
		Intent:    cc.CurrentIntent(),
		SlotID:    slotID,
	})
}

func (e *Engine) emitTurn(ctx context.Context, cc *domain.Context, outcome domain.TurnOutcome, d time.Duration) {
	e.logger.Debug("turn handled", "intent", cc.CurrentIntent(), "slot", cc.CurrentSlot(), "outcome", outcome, "duration", d)
	if e.hooks.OnTurn == nil {
		return
	}
	e.hooks.OnTurn(ctx, &domain.TurnEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTurn},
		Intent:    cc.CurrentIntent(),
		SlotID:    cc.CurrentSlot(),
		Outcome:   outcome,
		Duration:  d,
	})
}

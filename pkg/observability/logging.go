package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/slotflow/pkg/domain"
)

// LogHooks logs every lifecycle event. Slot and action events go to debug,
// turns to info, failed calls to warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSlotEnter: func(ctx context.Context, e *domain.SlotEvent) {
			logger.DebugContext(ctx, "slot_enter", "intent", e.Intent, "slot", e.SlotID)
		},
		OnSlotLeave: func(ctx context.Context, e *domain.SlotEvent) {
			logger.DebugContext(ctx, "slot_leave", "intent", e.Intent, "slot", e.SlotID)
		},
		OnActionCall: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action_call", "slot", e.SlotID, "phase", e.Phase, "method", e.Method, "url", e.URL)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			level := slog.LevelDebug
			if e.IsError {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "action_return",
				"slot", e.SlotID,
				"url", e.URL,
				"status", e.Status,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn",
				"intent", e.Intent,
				"slot", e.SlotID,
				"outcome", e.Outcome,
				"duration", e.Duration,
			)
		},
	}
}

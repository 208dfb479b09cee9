package observability

import (
	"context"

	"github.com/aretw0/slotflow/pkg/domain"
)

// Chain merges hooks so every non-nil callback runs, in argument order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		out.OnSlotEnter = chain(out.OnSlotEnter, h.OnSlotEnter)
		out.OnSlotLeave = chain(out.OnSlotLeave, h.OnSlotLeave)
		out.OnActionCall = chain(out.OnActionCall, h.OnActionCall)
		out.OnActionReturn = chain(out.OnActionReturn, h.OnActionReturn)
		out.OnTurn = chain(out.OnTurn, h.OnTurn)
	}
	return out
}

func chain[E any](first, second func(context.Context, E)) func(context.Context, E) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(ctx context.Context, e E) {
		first(ctx, e)
		second(ctx, e)
	}
}

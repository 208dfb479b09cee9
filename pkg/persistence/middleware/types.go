// Package middleware wraps a ports.ContextStore with persistence concerns:
// at-rest encryption and PII masking.
package middleware

import "github.com/aretw0/slotflow/pkg/ports"

// Middleware allows wrapping a ContextStore to add behavior.
type Middleware func(ports.ContextStore) ports.ContextStore

// Wrap applies middlewares so the first one is the outermost.
func Wrap(store ports.ContextStore, mws ...Middleware) ports.ContextStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrIntentUnresolved is returned when neither the classified intent nor the
// "None" group yields a slot whose guard passes.
var ErrIntentUnresolved = errors.New("intent unresolved")

// ErrClassifierFailure wraps any error or timeout coming from the classifier.
var ErrClassifierFailure = errors.New("classifier failure")

// ErrSlotNotFound is returned when a slot id cannot be located in the graph.
var ErrSlotNotFound = errors.New("slot not found")

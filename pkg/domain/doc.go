/*
Package domain contains the core domain models of the slotflow engine.

It defines the slot graph (intent groups and their ordered slots), the actions
attached to slots, the conversation context threaded through every turn and the
classifier result shapes. The package is kept free of I/O and persistence,
following Hexagonal Architecture principles.

# Key Entities

  - IntentGroup: A named, ordered collection of slots belonging to one intent.
  - SlotDefinition: One question in a dialogue, with its validation, branching and actions.
  - ActionSet: Outbound calls and computed assignments bound to a lifecycle phase.
  - Context: The per-session key/value map holding answers and bookkeeping.
  - TurnResult: The answer text plus the context to persist (or none).
*/
package domain

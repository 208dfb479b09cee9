/*
Package ports defines the driven ports (interfaces) of the slotflow engine.

These interfaces decouple the dialogue core from external implementations, allowing
the engine to work with various classifiers, graph sources and storage backends.

# Key Interfaces

  - Classifier: Turns an utterance into an intent, entities and sentiment.
  - GraphSource: Supplies the slot graph and its training corpus (file, Loam, memory).
  - ContextStore: Persists the conversation context of each session.
  - DistributedLocker: Serializes access to a session across replicas.
*/
package ports

/*
Package session implements session management and persistence orchestration.

It serializes turns of the same session (an in-process mutex per session id,
optionally backed by a distributed lock across replicas) while letting
different sessions proceed in parallel, and wraps the read-modify-write cycle
of a conversation context around a ports.ContextStore.
*/
package session

/*
Package slotflow is a configuration-driven conversational engine that fills
slots. A graph of intent groups, each an ordered list of slots, tells the
engine what to ask; a pluggable classifier tells it what the user meant.

# Concept

Every user utterance is one turn. When no dialogue is in progress the
utterance is classified and the first slot of the matching intent group (whose
guard passes) is entered: its pre actions run and its question is returned.
While a slot awaits an answer, the utterance is checked against the entity the
slot requires; an accepted answer is stored under the slot id, post actions
run, and the jump target picks the next slot. A slot without a jump target
ends the dialogue.

Questions and payloads are templates: {{expr}} spans are interpolated and a
whole %expr% value is evaluated to a typed result. Expressions use a sandboxed
CEL environment with two variables, slots (the conversation context) and
context (an alias kept for older graphs).

# Usage

	eng, err := slotflow.New(ctx, "./bot.yaml")
	if err != nil {
		log.Fatal(err)
	}

	res, err := eng.ProcessTurn(ctx, "session-123", "I want to book a trip")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(res.Answer)

The engine persists the context of every session in a ports.ContextStore (in
memory unless WithStore says otherwise) and serializes the turns of a session,
so ProcessTurn may be called concurrently from any driving adapter: the HTTP
API in pkg/adapters/http, the MCP server in pkg/adapters/mcp or the chat REPL
in pkg/runner.

Graphs can also be built in code with pkg/dsl and served with WithGraph.
*/
package slotflow

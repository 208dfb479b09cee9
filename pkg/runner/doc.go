/*
Package runner implements the interactive chat loop and input hygiene shared
by every driving adapter.

A Runner reads utterances through an IOHandler, passes them to a
ports.TurnProcessor and presents the answers. TextHandler serves a terminal
(optionally rendering answers as markdown), JSONHandler serves another
program over JSON lines. SanitizeInput is also used by the HTTP and MCP
adapters.

# Usage

	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
		runner.WithSessionID("user-1"),
	)
	if err := r.Run(ctx, engine); err != nil {
		log.Fatal(err)
	}
*/
package runner

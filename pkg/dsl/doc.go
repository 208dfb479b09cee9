/*
Package dsl provides a Go DSL for programmatically constructing slotflow graphs.

It allows developers to define intent groups, their slots and the classifier
corpus with a fluent builder instead of YAML or Markdown files. This is
particularly useful for tests, examples and generated graphs.

Example usage:

	b := dsl.New()

	b.Intent("Greeting").
		Slot("hello").
		Ask("You said: {{slots.userInput}}")

	b.Intent("BookingFlow").
		Slot("city").Ask("Which city?").Expect("city").Fallback("Please name a city.").Then("date").
		Slot("date").Ask("When?").Then("confirm").
		Slot("confirm").Ask("Booked {{slots.city}} on {{slots.date}}.")

	b.Train("BookingFlow", "book a trip", "I want to travel")
	b.Enum("city", "Lisbon", "lisboa")

	graph, err := b.Build()
*/
package dsl

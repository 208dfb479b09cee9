// Command slotflow serves, chats with and inspects slot-filling bots.
package main

func main() {
	Execute()
}

package main

import "github.com/dmelo/agentchat/internal/commands"

func main() {
	commands.Execute()
}

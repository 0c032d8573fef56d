package main

import "fleethub/cmd/cli/command"

func main() {
	command.Execute()
}

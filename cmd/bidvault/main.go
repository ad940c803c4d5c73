package main

import (
	"os"

	"bidvault/cmd/bidvault/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"ado-pulse/cmd/ado-pulse/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

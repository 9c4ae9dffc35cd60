package main

import (
	"fmt"
	"os"

	"tangled.org/atscan.net/reviewscan/cmd/reviewscan/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

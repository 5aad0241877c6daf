// Package main is the entry point for the crm-timeline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/nhle/crm-timeline/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

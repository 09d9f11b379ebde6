// Package main provides the recipekit command.
package main

import (
	"os"

	"github.com/leapstack-labs/recipekit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

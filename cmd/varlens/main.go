// Package main provides the varlens CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/varlens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

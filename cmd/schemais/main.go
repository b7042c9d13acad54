// Package main provides the schemais command.
package main

import (
	"os"

	"github.com/leapstack-labs/schemais/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

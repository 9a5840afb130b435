// Package main provides the entry point for the dossier CLI.
package main

import (
	"os"

	"github.com/randalmurphal/dossier/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

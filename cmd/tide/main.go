// Package main is the entry point for the tide CLI.
package main

import (
	"os"

	"github.com/tidewallet/tide/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}

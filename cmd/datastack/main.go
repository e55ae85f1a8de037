// Package main provides the datastack CLI.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/datastack/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

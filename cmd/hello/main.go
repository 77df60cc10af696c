// Package main is the entry point for the hello service.
package main

import (
	"fmt"
	"os"

	"github.com/earthbuild/hello-earthly/cmd/hello/cmd"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

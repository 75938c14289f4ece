// ABOUTME: Entry point for stress CLI.
// ABOUTME: Runs the root Cobra command and exits non-zero on failure.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

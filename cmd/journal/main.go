// Command journal runs the trade journal CLI and HTTP API.
package main

import (
	"fmt"
	"os"

	"trade-journal/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

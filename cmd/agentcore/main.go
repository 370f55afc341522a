// Command agentcore is the CLI entry point for the Agent Session Core.
package main

import (
	"fmt"
	"os"

	"github.com/agentcore-run/agentcore/cmd/agentcore/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

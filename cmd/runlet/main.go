package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "runlet",
	Short: "runlet - interactive script runner",
	Long: `runlet runs user-submitted scripts against interactively collected input.

It detects how many input values a script reads, collects them one message
at a time (asking for the total when a loop makes the static count
unreliable), executes the script in an isolated child process under a
wall-clock timeout, and returns bounded output.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Command paysim runs the core-banking payments simulator: an HTTP
// service that processes simulated funds transfers with fault injection
// and idempotent replay, plus a stress driver for exercising the
// at-most-once guarantee.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	Verbose   bool
	LogFormat string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "paysim",
		Short:         "Core banking payments simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "json", "log format: json or text")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newStressCommand())

	return cmd
}

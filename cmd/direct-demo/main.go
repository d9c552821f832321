// Command direct-demo exercises the greeter's functions in-process.
package main

import (
	"fmt"
	"os"

	"github.com/ggoodman/mcp-greeter-go/demo"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "direct-demo",
		Short:         "Call the KaitoMCPServer functions directly, without MCP",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := demo.RunDirect(cmd.OutOrStdout()); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "❌ Error during testing: %v\n", err)
			}
			return nil
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/atomstore/internal/scenario"
)

func opsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the operations scenario computeds can use",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range scenario.OpNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}

package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/vango-dev/atomstore/internal/scenario"
)

func graphCmd(flags *globalFlags) *cobra.Command {
	var highlight bool

	cmd := &cobra.Command{
		Use:   "graph <scenario.yaml>",
		Short: "Render a scenario's dependency graph as Mermaid",
		Long: `Declare a scenario's cells and print the dependency graph they form.

With --highlight the steps are run first and the cells touched by the
last propagation are styled.

Examples:
  atomstore graph scenarios/diamond.yaml
  atomstore graph --highlight scenarios/diamond.yaml > graph.mmd`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			sc, err := scenario.Load(args[0])
			if err != nil {
				return err
			}
			sess, err := scenario.Open(sc, nil, cfg.StoreOptions(logger)...)
			if err != nil {
				return err
			}
			defer sess.Close()

			if highlight {
				if err := sess.RunSteps(); err != nil {
					return err
				}
			}
			_, err = io.WriteString(cmd.OutOrStdout(), sess.Store.Mermaid(highlight))
			return err
		},
	}

	cmd.Flags().BoolVar(&highlight, "highlight", false, "Run the steps and highlight the last propagation")

	return cmd
}

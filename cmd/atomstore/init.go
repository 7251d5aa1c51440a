package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/atomstore/internal/config"
	"github.com/vango-dev/atomstore/internal/errors"
)

func initCmd() *cobra.Command {
	var (
		force  bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default atomstore.yaml",
		Long: `Write a configuration file with every default filled in.

Examples:
  atomstore init
  atomstore init --json ./sandbox`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			name := config.ConfigFileName
			if asJSON {
				name = config.JSONConfigFileName
			}
			path := filepath.Join(dir, name)

			if config.Exists(dir) && !force {
				return errors.New("E160").
					WithDetail("A configuration file already exists in " + dir + ".").
					WithSuggestion("Pass --force to overwrite it.")
			}
			if err := config.New().SaveTo(path); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Created %s", relPath(path))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Write atomstore.json instead of YAML")

	return cmd
}

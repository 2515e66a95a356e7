package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/crudkit/internal/scaffold"
)

type scaffoldFlags struct {
	from   string
	root   string
	force  bool
	dryRun bool
}

func newScaffoldCmd() *cobra.Command {
	var flags scaffoldFlags
	cmd := &cobra.Command{
		Use:   "scaffold <package> <Model> <field>...",
		Short: "Generate a CRUDL package",
		Long: `Generate models.go, routes.go and models_test.go for a new model.

Fields are name:type with type one of str, text, int, bool, date, datetime.
The bare names created_at, updated_at and url declare their conventional fields.
With --from, definitions are read from a YAML file instead of arguments.`,
		Example: "  crudkit scaffold internal/magazines Magazine title:str issued_on:date url created_at",
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.from != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := definitions(flags.from, args)
			if err != nil {
				return err
			}
			for _, d := range defs {
				files, err := scaffold.Generate(d)
				if err != nil {
					return err
				}
				if !flags.dryRun {
					if err := scaffold.Write(flags.root, files, flags.force); err != nil {
						return err
					}
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.from, "from", "", "YAML file listing package, model and fields")
	cmd.Flags().StringVar(&flags.root, "root", ".", "module root the package paths are relative to")
	cmd.Flags().BoolVar(&flags.force, "force", false, "overwrite existing files")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the files without writing them")
	return cmd
}

func definitions(from string, args []string) ([]scaffold.Definition, error) {
	if from == "" {
		fields, err := scaffold.ParseFields(args[2:])
		if err != nil {
			return nil, err
		}
		return []scaffold.Definition{{Package: args[0], Model: args[1], Fields: fields}}, nil
	}
	f, err := os.Open(from)
	if err != nil {
		return nil, fmt.Errorf("scaffold: %w", err)
	}
	defer f.Close()
	return scaffold.LoadDefinitions(f)
}

package main

import (
	"io"

	"github.com/spf13/cobra"
)

// Options carries the streams commands write to.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
}

func newRootCmd(opts Options) *cobra.Command {
	root := &cobra.Command{
		Use:           "crudkit",
		Short:         "Generic CRUD views over a demo catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Stdout)
	root.SetErr(opts.Stderr)
	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newScaffoldCmd(),
	)
	return root
}

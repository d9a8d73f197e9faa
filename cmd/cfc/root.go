package main

import (
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

func newRootCmd() *cobra.Command {
	var verbose int
	var dir string

	cmd := &cobra.Command{
		Use:          "cfc",
		Short:        "Clownfish binding compiler",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			commonlog.Configure(verbose, nil)
		},
	}

	cmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase log verbosity (repeatable)")
	cmd.PersistentFlags().StringVarP(&dir, "dir", "C", ".", "project directory (cfc.toml is searched upward from here)")

	cmd.AddCommand(buildCmd(&dir))
	cmd.AddCommand(layoutCmd(&dir))
	cmd.AddCommand(protocolCmd(&dir))
	cmd.AddCommand(statusCmd(&dir))
	return cmd
}

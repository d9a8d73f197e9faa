package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazu/cfc/manifest"
	"github.com/chazu/cfc/stale"
)

func statusCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last recorded generation run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := loadManifest(*dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if m.State.Oracle != manifest.OracleDigest {
				fmt.Fprintf(out, "oracle %s keeps no run history\n", m.State.Oracle)
				return nil
			}
			store, err := stale.Open(m.StatePath(), m.IncludeDest())
			if err != nil {
				return err
			}
			defer store.Close()
			run, ok, err := store.LastRun()
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			fmt.Fprintf(out, "run %s at %s (%d units)\n", run.ID, run.FinishedAt.Format(time.RFC3339), run.Units)
			return nil
		},
	}
}

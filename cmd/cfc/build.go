package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	"github.com/chazu/cfc/bind"
	"github.com/chazu/cfc/manifest"
	"github.com/chazu/cfc/stale"
)

var log = commonlog.GetLogger("cfc")

func buildCmd(dir *string) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "build",
		Short: "Regenerate stale headers, parcel.h and parcel.c",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(*dir)
			if err != nil {
				return err
			}
			opts, err := p.options()
			if err != nil {
				return err
			}

			var store *stale.Store
			switch p.manifest.State.Oracle {
			case manifest.OracleAlways:
				opts.Oracle = stale.Always{}
			case manifest.OracleDigest:
				store, err = stale.Open(p.manifest.StatePath(), opts.IncludeDest)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Oracle = store
			default:
				opts.Oracle = stale.MTime{IncludeDest: opts.IncludeDest}
			}

			res, wrote, err := bind.Run(p.hierarchy, opts, force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !wrote {
				fmt.Fprintln(out, "up to date")
				return nil
			}
			if store != nil {
				runID, err := store.Commit(res.Hierarchy.Files())
				if err != nil {
					return err
				}
				log.Infof("run %s", runID)
			}
			fmt.Fprintf(out, "generated %s and %s\n", bind.ParcelH, bind.ParcelC)
			return nil
		},
	}

	c.Flags().BoolVarP(&force, "force", "f", false, "regenerate everything regardless of staleness")
	return c
}

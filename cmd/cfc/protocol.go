package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chazu/cfc/dispatch"
)

func protocolCmd(dir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "protocol",
		Short: "Print the dispatch declarations emitted into parcel.h",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := loadManifest(*dir)
			if err != nil {
				return err
			}
			abi, err := m.ABI()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), dispatch.New(abi).Header())
			return nil
		},
	}
}

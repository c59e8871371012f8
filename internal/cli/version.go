package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coinwatch/pkg/coinwatch"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the coinwatch version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "coinwatch v%s\nmodule: %s\n", coinwatch.Version, coinwatch.ModulePath)
			return nil
		},
	}
}

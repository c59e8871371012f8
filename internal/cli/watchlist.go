package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

func newWatchlistCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlist",
		Aliases: []string{"wl"},
		Short:   "Manage watched coins",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List watched coins",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				d, _, err := a.openDashboard()
				if err != nil {
					return err
				}
				defer d.Close()

				items := d.Watchlist().List(cmd.Context())
				return a.emit(cmd, items, func(w io.Writer) {
					if len(items) == 0 {
						fmt.Fprintln(w, "Your watchlist is empty.")
						return
					}
					tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "COIN\tADDED\tID")
					for _, it := range items {
						fmt.Fprintf(tw, "%s\t%s\t%s\n", it.CoinID, it.AddedAt.Local().Format(time.DateTime), it.ID)
					}
					_ = tw.Flush()
				})
			},
		},
		&cobra.Command{
			Use:   "add <coin-id>",
			Short: "Add a coin to the watchlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, _, err := a.openDashboard()
				if err != nil {
					return err
				}
				defer d.Close()

				item, err := d.Watchlist().Add(cmd.Context(), args[0])
				switch {
				case errors.Is(err, types.ErrAlreadyExists):
					return userError("Coin is already in your watchlist.")
				case errors.Is(err, types.ErrInvalidData):
					return userError("%s", err)
				case err != nil:
					return sysError("add to watchlist: %s", err)
				}
				return a.emit(cmd, item, func(w io.Writer) {
					fmt.Fprintf(w, "Added %s to watchlist\n", item.CoinID)
				})
			},
		},
		&cobra.Command{
			Use:   "remove <coin-id>",
			Short: "Remove a coin from the watchlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, _, err := a.openDashboard()
				if err != nil {
					return err
				}
				defer d.Close()

				coinID := types.NormalizeCoinID(args[0])
				if !d.Watchlist().Remove(cmd.Context(), coinID) {
					return userError("%s is not in your watchlist", coinID)
				}
				return a.emit(cmd, map[string]any{"success": true, "coinId": coinID}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed %s from watchlist\n", coinID)
				})
			},
		},
		&cobra.Command{
			Use:   "check <coin-id>",
			Short: "Report whether a coin is watched",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				d, _, err := a.openDashboard()
				if err != nil {
					return err
				}
				defer d.Close()

				coinID := types.NormalizeCoinID(args[0])
				watched := d.Watchlist().Contains(cmd.Context(), coinID)
				return a.emit(cmd, map[string]any{"coinId": coinID, "watched": watched}, func(w io.Writer) {
					if watched {
						fmt.Fprintf(w, "%s is in your watchlist\n", coinID)
					} else {
						fmt.Fprintf(w, "%s is not in your watchlist\n", coinID)
					}
				})
			},
		},
	)
	return cmd
}

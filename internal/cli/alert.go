package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// alertFields binds the flags shared by alert create and update.
type alertFields struct {
	name      string
	coinID    string
	coinName  string
	symbol    string
	alertType string
	condition string
	threshold string
	frequency string
}

func (f *alertFields) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "alert name")
	fs.StringVar(&f.coinID, "coin", "", "coin id, e.g. bitcoin")
	fs.StringVar(&f.coinName, "coin-name", "", "coin display name")
	fs.StringVar(&f.symbol, "symbol", "", "coin ticker symbol")
	fs.StringVar(&f.alertType, "type", string(types.AlertTypePrice), "price, percentage_change, volume or market_cap")
	fs.StringVar(&f.condition, "condition", string(types.ConditionGreaterThan), "greater_than, less_than, equal_to, greater_than_or_equal or less_than_or_equal")
	fs.StringVar(&f.threshold, "threshold", "", "threshold value")
	fs.StringVar(&f.frequency, "frequency", string(types.FrequencyOnce), "once, once_per_day or every_time")
}

func (f *alertFields) draft() types.AlertDraft {
	return types.AlertDraft{
		AlertName:      f.name,
		CoinID:         f.coinID,
		CoinName:       f.coinName,
		CoinSymbol:     f.symbol,
		AlertType:      types.AlertType(f.alertType),
		Condition:      types.Condition(f.condition),
		ThresholdValue: f.threshold,
		Frequency:      types.Frequency(f.frequency),
	}
}

// patch includes only the flags the user set.
func (f *alertFields) patch(fs *pflag.FlagSet) types.AlertPatch {
	var p types.AlertPatch
	set := func(name string, dst **string, v string) {
		if fs.Changed(name) {
			*dst = &v
		}
	}
	set("name", &p.AlertName, f.name)
	set("coin", &p.CoinID, f.coinID)
	set("coin-name", &p.CoinName, f.coinName)
	set("symbol", &p.CoinSymbol, f.symbol)
	set("threshold", &p.ThresholdValue, f.threshold)
	if fs.Changed("type") {
		t := types.AlertType(f.alertType)
		p.AlertType = &t
	}
	if fs.Changed("condition") {
		c := types.Condition(f.condition)
		p.Condition = &c
	}
	if fs.Changed("frequency") {
		fr := types.Frequency(f.frequency)
		p.Frequency = &fr
	}
	return p
}

func printAlerts(w io.Writer, alerts []types.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintln(w, "No alerts.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCOIN\tRULE\tFREQUENCY\tACTIVE\tID")
	for _, al := range alerts {
		fmt.Fprintf(tw, "%s\t%s\t%s %s %s\t%s\t%s\t%s\n",
			al.AlertName, al.CoinID, al.AlertType, al.Condition, al.ThresholdValue,
			al.Frequency, strconv.FormatBool(al.IsActive), al.ID)
	}
	_ = tw.Flush()
}

func newAlertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "alert",
		Aliases: []string{"alerts"},
		Short:   "Manage price alerts",
	}

	var coinFilter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := a.openDashboard()
			if err != nil {
				return err
			}
			defer d.Close()

			var alerts []types.Alert
			if coinFilter != "" {
				alerts = d.Alerts().ForCoin(cmd.Context(), coinFilter)
			} else {
				alerts = d.Alerts().List(cmd.Context())
			}
			return a.emit(cmd, alerts, func(w io.Writer) { printAlerts(w, alerts) })
		},
	}
	list.Flags().StringVar(&coinFilter, "coin", "", "only alerts for this coin id")

	var createFields alertFields
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an alert",
		Long: `Create adds a price alert.

Example:
  coinwatch alert create --name "BTC 100k" --coin bitcoin --symbol BTC --threshold 100000
  coinwatch alert create --name "ETH dip" --coin ethereum --type percentage_change \
      --condition less_than --threshold -5 --frequency once_per_day`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := a.openDashboard()
			if err != nil {
				return err
			}
			defer d.Close()

			alert, err := d.Alerts().Create(cmd.Context(), createFields.draft())
			switch {
			case errors.Is(err, types.ErrInvalidData):
				return userError("%s", err)
			case err != nil:
				return sysError("create alert: %s", err)
			}
			return a.emit(cmd, alert, func(w io.Writer) {
				fmt.Fprintf(w, "Alert %q created\n", alert.AlertName)
			})
		},
	}
	createFields.register(create.Flags())
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("coin")
	_ = create.MarkFlagRequired("threshold")

	var updateFields alertFields
	update := &cobra.Command{
		Use:   "update <alert-id>",
		Short: "Change fields of an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := updateFields.patch(cmd.Flags())
			if len(patch.Patch()) == 0 {
				return userError("nothing to update; pass at least one field flag")
			}
			d, _, err := a.openDashboard()
			if err != nil {
				return err
			}
			defer d.Close()

			if !d.Alerts().Update(cmd.Context(), args[0], patch) {
				return userError("alert %s was not updated", args[0])
			}
			alert, _ := d.Alerts().Get(cmd.Context(), args[0])
			return a.emit(cmd, alert, func(w io.Writer) {
				fmt.Fprintf(w, "Alert %q updated\n", alert.AlertName)
			})
		},
	}
	updateFields.register(update.Flags())

	toggle := &cobra.Command{
		Use:   "toggle <alert-id>",
		Short: "Flip an alert between active and paused",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := a.openDashboard()
			if err != nil {
				return err
			}
			defer d.Close()

			if !d.Alerts().Toggle(cmd.Context(), args[0]) {
				return userError("alert %s not found", args[0])
			}
			alert, _ := d.Alerts().Get(cmd.Context(), args[0])
			return a.emit(cmd, alert, func(w io.Writer) {
				state := "paused"
				if alert.IsActive {
					state = "active"
				}
				fmt.Fprintf(w, "Alert %q is now %s\n", alert.AlertName, state)
			})
		},
	}

	del := &cobra.Command{
		Use:     "delete <alert-id>",
		Aliases: []string{"rm"},
		Short:   "Delete an alert",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := a.openDashboard()
			if err != nil {
				return err
			}
			defer d.Close()

			if !d.Alerts().Delete(cmd.Context(), args[0]) {
				return userError("alert %s not found", args[0])
			}
			return a.emit(cmd, map[string]any{"success": true, "id": args[0]}, func(w io.Writer) {
				fmt.Fprintln(w, "Alert deleted")
			})
		},
	}

	cmd.AddCommand(list, create, update, toggle, del)
	return cmd
}

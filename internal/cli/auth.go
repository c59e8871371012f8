package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mesh-intelligence/coinwatch/internal/session"
	"github.com/mesh-intelligence/coinwatch/pkg/coinwatch"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// readToken prompts on the terminal without echo, or reads one line from in
// when stdin is not a terminal.
func readToken(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "API token: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

const unmigratedHint = "Records not yet migrated stay local; run `coinwatch sync` to upload them."

func printSyncResults(w io.Writer, results []coinwatch.SyncResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FAMILY\tATTEMPTED\tMIGRATED\tSKIPPED\tFAILED\tSTATUS")
	abandoned := false
	for _, r := range results {
		status := "done"
		if r.Abandoned {
			status = "abandoned"
			abandoned = true
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\n", r.Family, r.Attempted, r.Migrated, r.Skipped, r.Failed, status)
	}
	_ = tw.Flush()
	if abandoned {
		fmt.Fprintln(w, unmigratedHint)
	}
}

func newLoginCmd(a *app) *cobra.Command {
	var (
		token string
		wait  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and move local records to your account",
		Long: `Login verifies an API token, saves the session, and migrates the local
watchlist and alerts to the API. Local records are cleared after the
migration whether or not every record made it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			synced := make(chan []coinwatch.SyncResult, 1)
			d, e, err := a.openDashboard(coinwatch.WithOnSync(func(r []coinwatch.SyncResult) {
				select {
				case synced <- r:
				default:
				}
			}))
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := cmd.Context()
			if s, ok := d.Session(ctx); ok {
				return userError("already logged in as %s; run logout first", s.UserID)
			}
			if token == "" {
				token, err = readToken(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return sysError("read token: %s", err)
				}
			}
			if token == "" {
				return userError("a token is required")
			}

			d.Start(ctx)
			s, err := d.Login(ctx, token)
			switch {
			case errors.Is(err, types.ErrUnauthorized):
				return userError("login rejected: invalid token")
			case err != nil:
				return sysError("%s", err)
			}
			if err := session.Save(e.sessionPath, s); err != nil {
				return sysError("save session: %s", err)
			}

			var results []coinwatch.SyncResult
			finished := false
			select {
			case results = <-synced:
				finished = true
			case <-time.After(wait):
				a.logger.Warn("migration still running, stopping it", "waited", wait)
			case <-ctx.Done():
			}
			if !finished {
				fmt.Fprintf(cmd.ErrOrStderr(), "Migration did not finish within %s. %s\n", wait, unmigratedHint)
			}

			out := map[string]any{"userId": s.UserID, "sync": results}
			return a.emit(cmd, out, func(w io.Writer) {
				fmt.Fprintf(w, "Logged in as %s\n", s.UserID)
				if len(results) > 0 {
					printSyncResults(w, results)
				}
			})
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API token (prompted when omitted)")
	cmd.Flags().DurationVar(&wait, "wait", 30*time.Second, "how long to wait for the migration to finish")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.resolve()
			if err != nil {
				return err
			}
			if err := session.Remove(e.sessionPath); err != nil {
				return sysError("remove session: %s", err)
			}
			return a.emit(cmd, map[string]any{"success": true}, func(w io.Writer) {
				fmt.Fprintln(w, "Logged out. New records will be kept locally.")
			})
		},
	}
}

// status is the JSON shape of the status command.
type status struct {
	Mode         string `json:"mode"`
	UserID       string `json:"userId,omitempty"`
	APIURL       string `json:"apiUrl,omitempty"`
	LocalBackend string `json:"localBackend"`
	DataDir      string `json:"dataDir"`
	ConfigDir    string `json:"configDir"`
	Watchlist    int    `json:"watchlist"`
	Alerts       int    `json:"alerts"`
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where records are served from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, e, err := a.openDashboard()
			if err != nil {
				return err
			}
			defer d.Close()

			ctx := cmd.Context()
			st := status{
				Mode:         string(d.Mode(ctx)),
				APIURL:       e.cfg.APIURL,
				LocalBackend: e.cfg.LocalBackend,
				DataDir:      e.cfg.DataDir,
				ConfigDir:    e.configDir,
				Watchlist:    len(d.Watchlist().List(ctx)),
				Alerts:       len(d.Alerts().List(ctx)),
			}
			if s, ok := d.Session(ctx); ok {
				st.UserID = s.UserID
			}
			return a.emit(cmd, st, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "mode:\t%s\n", st.Mode)
				if st.UserID != "" {
					fmt.Fprintf(tw, "user:\t%s\n", st.UserID)
				}
				if st.APIURL != "" {
					fmt.Fprintf(tw, "api:\t%s\n", st.APIURL)
				}
				fmt.Fprintf(tw, "storage:\t%s (%s)\n", st.LocalBackend, st.DataDir)
				fmt.Fprintf(tw, "watchlist:\t%d\n", st.Watchlist)
				fmt.Fprintf(tw, "alerts:\t%d\n", st.Alerts)
				_ = tw.Flush()
			})
		},
	}
}

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Move any remaining local records to your account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, _, err := a.openDashboard()
			if err != nil {
				return err
			}
			defer d.Close()

			if _, ok := d.Session(cmd.Context()); !ok {
				return userError("not logged in")
			}
			results := d.Sync(cmd.Context())
			return a.emit(cmd, results, func(w io.Writer) {
				if len(results) == 0 {
					fmt.Fprintln(w, "Nothing to sync.")
					return
				}
				printSyncResults(w, results)
			})
		},
	}
}

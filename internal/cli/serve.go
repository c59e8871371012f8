package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coinwatch/internal/server"
	"github.com/mesh-intelligence/coinwatch/internal/sqlite"
)

const shutdownTimeout = 5 * time.Second

// parseTokenGrants splits user=token pairs.
func parseTokenGrants(grants []string) (map[string]string, error) {
	out := make(map[string]string, len(grants))
	for _, g := range grants {
		user, token, ok := strings.Cut(g, "=")
		user, token = strings.TrimSpace(user), strings.TrimSpace(token)
		if !ok || user == "" || token == "" {
			return nil, fmt.Errorf("invalid token grant %q (expected user=token)", g)
		}
		out[token] = user
	}
	return out, nil
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr   string
		grants []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the watchlist and alerts API",
		Long: `Serve runs the per-user watchlist and alerts API backed by SQLite
(remote.db in the data directory). Clients authenticate with bearer tokens
granted through --token.

Example:
  coinwatch serve --addr :8080 --token alice=s3cret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := parseTokenGrants(grants)
			if err != nil {
				return userError("%s", err)
			}
			e, err := a.resolve()
			if err != nil {
				return err
			}

			backend := sqlite.NewBackend()
			if err := backend.Attach(e.cfg.DataDir); err != nil {
				return sysError("attach backend: %s", err)
			}
			defer func() { _ = backend.Detach() }()

			for token, user := range tokens {
				if _, err := backend.Tokens().Issue(user, token); err != nil {
					return sysError("issue token for %s: %s", user, err)
				}
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return sysError("listen: %s", err)
			}
			srv := &http.Server{
				Handler:           server.New(backend, a.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ln) }()
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s (data in %s)\n", ln.Addr(), e.cfg.DataDir)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return sysError("serve: %s", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return sysError("shutdown: %s", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringArrayVar(&grants, "token", nil, "grant a bearer token as user=token (repeatable)")
	return cmd
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coinwatch/internal/localstore"
	"github.com/mesh-intelligence/coinwatch/internal/paths"
)

func newInitCmd(a *app) *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize coinwatch configuration and local storage",
		Long: `Init creates the configuration directory with a default config.yaml and
initializes the local storage engine in the data directory. Running it again
leaves an existing config.yaml untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(a.flags.configDir)
			if err != nil {
				return sysError("resolve config dir: %s", err)
			}
			configPath := paths.ConfigFile(configDir)
			created, err := writeConfigIfMissing(configPath, a.flags.dataDir, apiURL)
			if err != nil {
				return sysError("write config: %s", err)
			}

			e, err := a.resolve()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(e.cfg.DataDir, 0o755); err != nil {
				return sysError("create data directory: %s", err)
			}
			storage, err := localstore.Open(e.cfg)
			if err != nil {
				return sysError("initialize storage: %s", err)
			}
			if err := storage.Close(); err != nil {
				return sysError("finalize storage: %s", err)
			}

			w := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(w, "Wrote %s\n", configPath)
			}
			fmt.Fprintf(w, "coinwatch initialized (%s storage in %s)\n", e.cfg.LocalBackend, e.cfg.DataDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "API base URL written to a new config.yaml")
	return cmd
}

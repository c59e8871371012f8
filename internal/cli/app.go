package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/coinwatch/internal/paths"
	"github.com/mesh-intelligence/coinwatch/internal/session"
	"github.com/mesh-intelligence/coinwatch/pkg/coinwatch"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// env is everything a command needs once configuration is resolved.
type env struct {
	configDir   string
	sessionPath string
	cfg         types.Config
}

func (a *app) resolve() (env, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return env{}, sysError("resolve config dir: %s", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return env{}, sysError("%s", err)
	}
	if level := v.GetString(cfgKeyLogLevel); level != "" && !a.logLevelSet {
		logger, err := newLogger(a.stderr, level)
		if err != nil {
			return env{}, userError("config %s: %s", cfgKeyLogLevel, err)
		}
		a.logger = logger
	}
	cfg, err := buildConfig(v, a.flags.dataDir)
	if err != nil {
		return env{}, userError("invalid configuration: %s", err)
	}
	return env{configDir: configDir, sessionPath: paths.SessionFile(configDir), cfg: cfg}, nil
}

// openDashboard builds a dashboard from the resolved configuration and the
// saved session, if any. The caller must Close it.
func (a *app) openDashboard(opts ...coinwatch.Option) (*coinwatch.Dashboard, env, error) {
	e, err := a.resolve()
	if err != nil {
		return nil, env{}, err
	}
	s, err := session.Load(e.sessionPath)
	if err != nil {
		a.logger.Warn("could not read saved session", "path", e.sessionPath, "err", err)
	}

	opts = append([]coinwatch.Option{coinwatch.WithLogger(a.logger), coinwatch.WithSession(s)}, opts...)
	d, err := coinwatch.New(e.cfg, opts...)
	if err != nil {
		return nil, env{}, userError("%s", err)
	}
	return d, e, nil
}

// emit prints v as indented JSON in --json mode, or calls text otherwise.
func (a *app) emit(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	w := cmd.OutOrStdout()
	if !a.flags.jsonMode {
		text(w)
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysError("marshal output: %s", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/coinwatch/internal/paths"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Config keys, shared by config.yaml and COINWATCH_* environment variables.
const (
	cfgKeyBackend        = "local_backend"
	cfgKeyDataDir        = "data_dir"
	cfgKeyAPIURL         = "api_url"
	cfgKeyStaleTime      = "stale_time"
	cfgKeyRequestTimeout = "request_timeout"
	cfgKeyLogLevel       = "log_level"
)

const envPrefix = "COINWATCH"

// configFile holds the structure written to config.yaml.
type configFile struct {
	LocalBackend   string `yaml:"local_backend"`
	DataDir        string `yaml:"data_dir,omitempty"`
	APIURL         string `yaml:"api_url,omitempty"`
	StaleTime      string `yaml:"stale_time"`
	RequestTimeout string `yaml:"request_timeout"`
}

func defaultConfigFile() configFile {
	return configFile{
		LocalBackend:   types.LocalBackendFile,
		StaleTime:      types.DefaultStaleTime.String(),
		RequestTimeout: types.DefaultRequestTimeout.String(),
	}
}

// loadConfig reads .env and config.yaml from configDir, then layers
// COINWATCH_* environment variables on top. Missing files are not errors.
func loadConfig(configDir string) (*viper.Viper, error) {
	envPath := filepath.Join(configDir, paths.EnvFileName)
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envPath, err)
	}

	def := defaultConfigFile()
	v := viper.New()
	v.SetDefault(cfgKeyBackend, def.LocalBackend)
	v.SetDefault(cfgKeyStaleTime, def.StaleTime)
	v.SetDefault(cfgKeyRequestTimeout, def.RequestTimeout)
	v.SetConfigFile(paths.ConfigFile(configDir))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// buildConfig resolves the data directory and converts v into a validated
// types.Config.
func buildConfig(v *viper.Viper, dataDirFlag string) (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(dataDirFlag, v.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	cfg := types.Config{
		LocalBackend:   v.GetString(cfgKeyBackend),
		DataDir:        dataDir,
		APIURL:         v.GetString(cfgKeyAPIURL),
		StaleTime:      v.GetDuration(cfgKeyStaleTime),
		RequestTimeout: v.GetDuration(cfgKeyRequestTimeout),
	}.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. An existing file is left untouched.
func writeConfigIfMissing(path, dataDir, apiURL string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	cfg := defaultConfigFile()
	cfg.DataDir = dataDir
	cfg.APIURL = apiURL

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, err
	}
	return true, os.WriteFile(path, data, 0o644)
}

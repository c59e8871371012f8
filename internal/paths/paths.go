// Package paths resolves where coinwatch keeps its configuration (config.yaml
// and the saved session) and its local data (the storage engines' files).
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user platform directories.
const AppName = "coinwatch"

// DefaultDataDirName is the CWD-relative data directory used when nothing
// else is configured.
const DefaultDataDirName = ".coinwatch-db"

// File names inside the config directory.
const (
	ConfigFileName  = "config.yaml"
	SessionFileName = "session.json"
	EnvFileName     = ".env"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "COINWATCH_CONFIG_DIR"
	EnvDataDir   = "COINWATCH_DATA_DIR"
)

// platformDir holds platform lookups so tests can override them.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// appDir returns the coinwatch directory under an XDG base on Linux (xdgEnv,
// falling back to ~/linuxFallback) and under os.UserConfigDir elsewhere.
func appDir(xdgEnv string, linuxFallback ...string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	}
	if base := os.Getenv(xdgEnv); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, linuxFallback...), AppName)...), nil
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/coinwatch (fallback ~/.config/coinwatch)
// macOS:   ~/Library/Application Support/coinwatch
// Windows: %APPDATA%/coinwatch
func DefaultConfigDir() (string, error) {
	return appDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/coinwatch (fallback ~/.local/share/coinwatch)
// macOS and Windows: same as the config dir.
func DefaultDataDir() (string, error) {
	return appDir("XDG_DATA_HOME", ".local", "share")
}

// ResolveConfigDir applies flag > COINWATCH_CONFIG_DIR > DefaultConfigDir.
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir applies flag > config value > COINWATCH_DATA_DIR >
// $(CWD)/.coinwatch-db.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, dir := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DefaultDataDirName), nil
}

// ConfigFile returns the config.yaml path inside configDir.
func ConfigFile(configDir string) string {
	return filepath.Join(configDir, ConfigFileName)
}

// SessionFile returns the saved-session path inside configDir.
func SessionFile(configDir string) string {
	return filepath.Join(configDir, SessionFileName)
}

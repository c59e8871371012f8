package types

import (
	"errors"
	"time"
)

// Config holds local storage selection and remote API parameters.
type Config struct {
	LocalBackend   string        `json:"local_backend" yaml:"local_backend"`
	DataDir        string        `json:"data_dir" yaml:"data_dir"`
	APIURL         string        `json:"api_url" yaml:"api_url"`
	StaleTime      time.Duration `json:"stale_time" yaml:"stale_time"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// Supported local storage engines.
const (
	LocalBackendFile   = "file"
	LocalBackendSQLite = "sqlite"
	LocalBackendMemory = "memory"
)

// Defaults applied by WithDefaults.
const (
	DefaultStaleTime      = 60 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// Config validation errors.
var (
	ErrBackendEmpty     = errors.New("local backend must not be empty")
	ErrBackendUnknown   = errors.New("unknown local backend")
	ErrStaleTimeInvalid = errors.New("stale time must not be negative")
	ErrTimeoutInvalid   = errors.New("request timeout must be positive")
	ErrDataDirRequired  = errors.New("data dir is required for persistent backends")
)

var knownBackends = map[string]bool{
	LocalBackendFile:   true,
	LocalBackendSQLite: true,
	LocalBackendMemory: true,
}

// WithDefaults fills zero durations with their defaults.
func (c Config) WithDefaults() Config {
	if c.StaleTime == 0 {
		c.StaleTime = DefaultStaleTime
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

// Validate checks that the Config is well-formed and returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.LocalBackend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.LocalBackend] {
		return ErrBackendUnknown
	}
	if c.LocalBackend != LocalBackendMemory && c.DataDir == "" {
		return ErrDataDirRequired
	}
	if c.StaleTime < 0 {
		return ErrStaleTimeInvalid
	}
	if c.RequestTimeout <= 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

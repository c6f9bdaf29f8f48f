// Package confloader provides configuration loading mechanism.
package confloader

import (
	"sort"

	"github.com/yndnr/guildsync/internal/server/config"
	"github.com/yndnr/guildsync/internal/telemetry/logger"
)

// LoadServerConfig loads a ServerConfig on top of config.Default().
// It does not verify the result.
func LoadServerConfig(opts ...Option) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := NewLoader(opts...).Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UnknownKeys loads the sources named by opts and returns the keys that
// no ServerConfig setting reads, sorted. A misspelt key would otherwise be
// ignored silently.
func UnknownKeys(opts ...Option) ([]string, error) {
	l := NewLoader(opts...)
	if err := l.Load(config.Default()); err != nil {
		return nil, err
	}
	known := make(map[string]bool)
	for _, k := range config.Keys() {
		known[k] = true
	}
	var unknown []string
	for _, k := range l.Keys() {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}

// LogLevelReloader returns a Watcher callback that re-reads the
// configuration and applies a changed log level. Other settings need a
// restart and are ignored.
func LogLevelReloader(log logger.Logger, opts ...Option) func(string) {
	return func(path string) {
		cfg, err := LoadServerConfig(opts...)
		if err != nil {
			log.Warn("config reload failed", "file", path, "error", err)
			return
		}
		if !logger.ValidLevel(cfg.Log.Level) {
			log.Warn("config reload ignored invalid log level", "level", cfg.Log.Level)
			return
		}
		if prev := logger.GetLevel(); prev != cfg.Log.Level {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "from", prev, "to", cfg.Log.Level)
		}
	}
}

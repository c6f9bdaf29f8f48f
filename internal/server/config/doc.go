// Package config provides server configuration for guildsync.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (modes, ranges, path existence)
//   - sanitize.go: Log sanitization (hide the bot token and DSN)
//   - convert.go: Mapping onto component configs
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config

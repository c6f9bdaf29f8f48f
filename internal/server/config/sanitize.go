// Package config defines the server configuration structure.
package config

import "strings"

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg

	if sanitized.Bot.Token != "" {
		sanitized.Bot.Token = maskSecret(sanitized.Bot.Token)
	}
	if sanitized.Report.SentryDSN != "" {
		sanitized.Report.SentryDSN = maskSecret(sanitized.Report.SentryDSN)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// Package logger provides structured logging for guildsync.
//
// It wraps log/slog:
//
//   - logger.go: handler construction, dynamic level, package-level helpers
//   - context.go: logger and correlation ids carried in a context
//   - redact.go: masking of bot tokens and DSNs
//
// Output goes to stderr or to a size-rotated file (lumberjack).
package logger

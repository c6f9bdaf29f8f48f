// Package command provides the CLI command definitions for guildsync-server.
//
// Commands are built with urfave/cli/v2:
//
//   - root.go: App, global flags, loader options
//   - run.go: run the ingestion session until a signal or the end of a replay
//   - check.go: load and verify a configuration without starting anything
//   - version.go: print build information
package command

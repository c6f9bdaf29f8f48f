// Package confloader provides configuration loading mechanism.
//
// This package loads configuration from multiple sources using koanf as
// the underlying library.
//
// Priority (highest to lowest):
//
//  1. Overrides (command-line flags)
//  2. Environment variables (GUILDSYNC_<SECTION>_<KEY>)
//  3. Configuration file (YAML)
//  4. Default values
//
// A Watcher reports writes to the configuration file so a running server
// can re-read the settings that support hot reload, currently the log level.
package confloader

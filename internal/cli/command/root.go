package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guildsync/internal/infra/buildinfo"
	"github.com/yndnr/guildsync/internal/infra/confloader"
	"github.com/yndnr/guildsync/internal/server/config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "guildsync-server",
		Usage:   "Mirror guild state from a chat gateway and export it as metrics",
		Version: buildinfo.Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			RunCommand(),
			CheckConfigCommand(),
			VersionCommand(),
		},
		DefaultCommand: "run",
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML configuration file",
			EnvVars: []string{"GUILDSYNC_CONFIG"},
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Override log.level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "replay",
			Usage: "Read events from an NDJSON file instead of the configured gateway",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config   string
	LogLevel string
	Replay   string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:   c.String("config"),
		LogLevel: c.String("log-level"),
		Replay:   c.String("replay"),
	}
}

// LoaderOptions turns the global flags into configuration loader options.
// Flag overrides win over the file and the environment.
func (f *GlobalFlags) LoaderOptions() []confloader.Option {
	var opts []confloader.Option
	if f.Config != "" {
		opts = append(opts, confloader.WithConfigFile(f.Config))
	}
	overrides := map[string]any{}
	if f.LogLevel != "" {
		overrides["log.level"] = f.LogLevel
	}
	if f.Replay != "" {
		overrides["gateway.mode"] = config.GatewayModeReplay
		overrides["gateway.replay_file"] = f.Replay
	}
	if len(overrides) > 0 {
		opts = append(opts, confloader.WithOverrides(overrides))
	}
	return opts
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}

package command

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guildsync/internal/infra/confloader"
	"github.com/yndnr/guildsync/internal/server/config"
)

// CheckConfigCommand returns the check-config command.
func CheckConfigCommand() *cli.Command {
	return &cli.Command{
		Name:   "check-config",
		Usage:  "Load and verify the configuration, then exit",
		Action: checkConfig,
	}
}

func checkConfig(c *cli.Context) error {
	flags := ParseGlobalFlags(c)
	cfg, err := loadVerified(flags)
	if err != nil {
		return err
	}
	cfg = config.Sanitize(cfg)

	unknown, err := confloader.UnknownKeys(flags.LoaderOptions()...)
	if err != nil {
		return err
	}
	for _, k := range unknown {
		fmt.Fprintf(c.App.Writer, "warning: unknown key %s\n", k)
	}

	storage := "memory"
	if cfg.Storage.DataDir != "" {
		storage = "badger " + cfg.Storage.DataDir
	}
	source := cfg.Gateway.ReplayFile
	if cfg.Gateway.Mode == config.GatewayModeWebSocket {
		source = cfg.Gateway.URL
	}
	metrics := cfg.Metrics.Addr
	if metrics == "" {
		metrics = "disabled"
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "gateway\t%s %s\n", cfg.Gateway.Mode, source)
	fmt.Fprintf(tw, "shards\t%d\n", cfg.Gateway.ShardCount)
	fmt.Fprintf(tw, "token\t%s\n", cfg.Bot.Token)
	fmt.Fprintf(tw, "storage\t%s\n", storage)
	fmt.Fprintf(tw, "metrics\t%s\n", metrics)
	fmt.Fprintf(tw, "log\t%s/%s\n", cfg.Log.Level, cfg.Log.Format)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "configuration OK")
	return nil
}

package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/guildsync/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print build information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "guildsync-server %s\n", buildinfo.String())
			return nil
		},
	}
}

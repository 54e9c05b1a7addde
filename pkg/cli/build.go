package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/cryptorec/pkg/site"
	urfave "github.com/urfave/cli/v3"
)

const flagOut = "out"

func newBuildCmd() *urfave.Command {
	flags := []urfave.Flag{
		&urfave.StringFlag{
			Name:  flagOut,
			Usage: "Output directory, removed before the build",
			Value: site.DefaultOut,
		},
	}
	return &urfave.Command{
		Name:   "build",
		Usage:  "Render the static site",
		Action: cmdBuild,
		Flags:  append(flags, optionFlags()...),
	}
}

func cmdBuild(ctx context.Context, cmd *urfave.Command) error {
	b, err := getConfig(cmd).getBase(ctx)
	if err != nil {
		return err
	}

	r, err := site.Build(ctx, b, cmd.String(flagOut), readOptions(cmd), site.Meta{
		Version: version,
		Commit:  commit,
	})
	if err != nil {
		return fmt.Errorf("error building site: %w", err)
	}

	return encode(cmd, r)
}

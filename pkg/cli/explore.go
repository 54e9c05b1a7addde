package cli

import (
	"context"
	"strings"

	"github.com/mchmarny/cryptorec/pkg/rank"
	urfave "github.com/urfave/cli/v3"
)

const (
	flagSearch = "search"
	flagType   = "type"
	flagSort   = "sort"
)

func newExploreCmd() *urfave.Command {
	return &urfave.Command{
		Name:    "explore",
		Aliases: []string{"ls"},
		Usage:   "List the algorithms of the knowledge base",
		Action:  cmdExplore,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:  flagSearch,
				Usage: "Case-insensitive substring of the algorithm key or name",
			},
			&urfave.StringFlag{
				Name:  flagType,
				Usage: "Algorithm type (e.g. symmetric, asymmetric, hash)",
				Value: rank.TypeAll,
			},
			&urfave.StringFlag{
				Name:  flagSort,
				Usage: "Sort order [" + strings.Join(rank.SortModes, ", ") + "]",
				Value: rank.SortNameAsc,
			},
		},
	}
}

func newCompareCmd() *urfave.Command {
	return &urfave.Command{
		Name:   "compare",
		Usage:  "Compare up to 4 algorithms side by side",
		Action: cmdCompare,
		Flags:  []urfave.Flag{algorithmFlag()},
	}
}

func cmdExplore(ctx context.Context, cmd *urfave.Command) error {
	b, err := getConfig(cmd).getBase(ctx)
	if err != nil {
		return err
	}

	list, err := rank.Explore(b, rank.Filter{
		Search: cmd.String(flagSearch),
		Type:   cmd.String(flagType),
		Sort:   cmd.String(flagSort),
	})
	if err != nil {
		return err
	}

	return encode(cmd, list)
}

func cmdCompare(ctx context.Context, cmd *urfave.Command) error {
	b, err := getConfig(cmd).getBase(ctx)
	if err != nil {
		return err
	}

	c, err := rank.Compare(b, splitList(cmd.StringSlice(flagAlgorithm)))
	if err != nil {
		return err
	}

	return encode(cmd, c)
}

package cli

import (
	"context"
	"database/sql"

	"github.com/mchmarny/cryptorec/pkg/data"
	urfave "github.com/urfave/cli/v3"
)

const (
	topAlgorithmsLimit = 10

	flagID = "id"
)

func newHistoryCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "history",
		Usage:           "Saved recommendation runs",
		HideHelpCommand: true,
		Commands: []*urfave.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the most recent runs",
				Action:  cmdListRuns,
				Flags: []urfave.Flag{
					&urfave.IntFlag{
						Name:  flagLimit,
						Usage: "Maximum number of runs to list",
						Value: data.DefaultListLimit,
					},
				},
			},
			{
				Name:   "show",
				Usage:  "Show a single run with its items",
				Action: cmdShowRun,
				Flags: []urfave.Flag{
					&urfave.StringFlag{
						Name:     flagID,
						Usage:    "Run ID",
						Required: true,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show history counts and the most recommended algorithms",
				Action: cmdHistoryStats,
			},
		},
	}
}

func cmdListRuns(ctx context.Context, cmd *urfave.Command) error {
	db, err := getConfig(cmd).getDB()
	if err != nil {
		return err
	}

	list, err := data.ListRuns(ctx, db, cmd.Int(flagLimit))
	if err != nil {
		return err
	}

	return encode(cmd, list)
}

func cmdShowRun(ctx context.Context, cmd *urfave.Command) error {
	db, err := getConfig(cmd).getDB()
	if err != nil {
		return err
	}

	r, err := data.GetRun(ctx, db, cmd.String(flagID))
	if err != nil {
		return err
	}

	return encode(cmd, r)
}

// HistoryStats summarizes the history database.
type HistoryStats struct {
	Counts map[string]int64     `json:"counts" yaml:"counts"`
	Top    []*data.TopAlgorithm `json:"top" yaml:"top"`
}

func cmdHistoryStats(ctx context.Context, cmd *urfave.Command) error {
	db, err := getConfig(cmd).getDB()
	if err != nil {
		return err
	}

	s, err := historyStats(ctx, db)
	if err != nil {
		return err
	}

	return encode(cmd, s)
}

func historyStats(ctx context.Context, db *sql.DB) (*HistoryStats, error) {
	counts, err := data.GetDataState(ctx, db)
	if err != nil {
		return nil, err
	}
	top, err := data.GetTopAlgorithms(ctx, db, topAlgorithmsLimit)
	if err != nil {
		return nil, err
	}
	return &HistoryStats{Counts: counts, Top: top}, nil
}

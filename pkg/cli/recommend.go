package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/cryptorec/pkg/data"
	"github.com/mchmarny/cryptorec/pkg/rank"
	"github.com/mchmarny/cryptorec/pkg/score"
	urfave "github.com/urfave/cli/v3"
)

const (
	flagAll       = "all"
	flagSave      = "save"
	flagAlgorithm = "algorithm"
)

func algorithmFlag() urfave.Flag {
	return &urfave.StringSliceFlag{
		Name:    flagAlgorithm,
		Aliases: []string{"a"},
		Usage:   "Algorithm key, repeatable (e.g. AES)",
	}
}

func newRecommendCmd() *urfave.Command {
	flags := []urfave.Flag{
		&urfave.BoolFlag{
			Name:  flagAll,
			Usage: "Include the score of every algorithm in the output",
		},
		&urfave.BoolFlag{
			Name:  flagSave,
			Usage: "Save the recommendation to the history database",
		},
	}
	flags = append(flags, optionFlags()...)
	flags = append(flags, requirementFlags()...)

	return &urfave.Command{
		Name:    "recommend",
		Aliases: []string{"rec"},
		Usage:   "Recommend algorithms for the given requirements",
		Action:  cmdRecommend,
		Flags:   flags,
	}
}

func newScoreCmd() *urfave.Command {
	return &urfave.Command{
		Name:   "score",
		Usage:  "Score a single algorithm and show how each rule contributed",
		Action: cmdScore,
		Flags:  append([]urfave.Flag{algorithmFlag()}, requirementFlags()...),
	}
}

func cmdRecommend(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	req, err := readRequirements(cmd)
	if err != nil {
		return err
	}

	b, err := cfg.getBase(ctx)
	if err != nil {
		return err
	}

	opts := readOptions(cmd)
	opts.All = cmd.Bool(flagAll)

	rec, err := rank.Recommend(ctx, b, req, opts)
	if err != nil {
		return fmt.Errorf("error ranking algorithms: %w", err)
	}

	if cmd.Bool(flagSave) {
		id, err := saveRecommendation(ctx, cfg, rec)
		if err != nil {
			return err
		}
		rec.RunID = id
	}

	if rec.NoMatch {
		slog.Warn("no algorithm matches the requirements", "threshold", opts.Threshold)
	}

	return encode(cmd, rec)
}

func saveRecommendation(ctx context.Context, cfg *appConfig, rec *rank.Recommendation) (string, error) {
	db, err := cfg.getDB()
	if err != nil {
		return "", err
	}
	run := data.NewRun(rec)
	if err := data.SaveRun(ctx, db, run); err != nil {
		return "", fmt.Errorf("error saving run: %w", err)
	}
	slog.Debug("run saved", "id", run.ID)
	return run.ID, nil
}

func cmdScore(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	keys := splitList(cmd.StringSlice(flagAlgorithm))
	if len(keys) != 1 {
		return errors.New("exactly one --algorithm required")
	}

	req, err := readRequirements(cmd)
	if err != nil {
		return err
	}

	b, err := cfg.getBase(ctx)
	if err != nil {
		return err
	}

	algo, err := b.GetAlgorithm(keys[0])
	if err != nil {
		return err
	}

	r := score.Evaluate(keys[0], algo, req, b.Standards)
	slog.Debug("scored", "algorithm", keys[0], "score", r.Score)

	return encode(cmd, r)
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mchmarny/cryptorec/pkg/data"
	urfave "github.com/urfave/cli/v3"
)

const flagYes = "yes"

func newResetCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "reset",
		Usage:           "Delete all saved runs and start fresh",
		HideHelpCommand: true,
		Action:          cmdReset,
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:    flagYes,
				Aliases: []string{"y"},
				Usage:   "Do not ask for confirmation",
			},
		},
	}
}

func cmdReset(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	if !cmd.Bool(flagYes) {
		fmt.Fprintf(cfg.out, "This will permanently delete all runs in %s\n", redactDSN(cfg.DSN))
		fmt.Fprint(cfg.out, "Are you sure? [y/N]: ")

		reader := bufio.NewReader(cmd.Root().Reader)
		answer, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Fprintln(cfg.out, "Aborted.")
			return nil
		}
	}

	if data.IsPostgres(cfg.DSN) {
		db, err := cfg.getDB()
		if err != nil {
			return err
		}
		n, err := data.DeleteRuns(ctx, db)
		if err != nil {
			return err
		}
		slog.Info("runs deleted", "count", n)
		fmt.Fprintln(cfg.out, "Reset complete.")
		return nil
	}

	// close the DB before deleting the file
	cfg.close()

	if err := os.Remove(cfg.DSN); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting database: %w", err)
	}
	slog.Info("database deleted", "path", cfg.DSN)

	if err := data.Init(cfg.DSN); err != nil {
		return fmt.Errorf("re-initializing database: %w", err)
	}

	slog.Info("database re-initialized", "path", cfg.DSN)
	fmt.Fprintln(cfg.out, "Reset complete.")
	return nil
}

// redactDSN hides the password of a postgres URL.
func redactDSN(dsn string) string {
	if !data.IsPostgres(dsn) {
		return dsn
	}
	scheme, rest, ok := strings.Cut(dsn, "://")
	if !ok {
		return dsn
	}
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, _ := strings.Cut(creds, ":")
	return scheme + "://" + user + ":***@" + host
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mchmarny/cryptorec/pkg/auth"
	urfave "github.com/urfave/cli/v3"
)

const (
	flagClientID = "client-id"
	flagToken    = "token"
	flagLogout   = "logout"
)

func newAuthCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Authenticate to GitHub for kb pull --github",
		Action:          cmdInitAuthFlow,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:    flagClientID,
				Usage:   "Client ID of the GitHub OAuth app used for the device flow",
				Sources: urfave.EnvVars("CRYPTOREC_GITHUB_CLIENT_ID"),
			},
			&urfave.StringFlag{
				Name:    flagToken,
				Usage:   "Save this GitHub token instead of running the device flow",
				Sources: urfave.EnvVars("GITHUB_TOKEN"),
			},
			&urfave.BoolFlag{
				Name:  flagLogout,
				Usage: "Delete the saved token",
			},
		},
	}
}

func cmdInitAuthFlow(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)
	store := &auth.Store{Dir: cfg.HomeDir}

	if cmd.Bool(flagLogout) {
		if err := store.Delete(); err != nil {
			return fmt.Errorf("deleting token: %w", err)
		}
		fmt.Fprintln(cfg.out, "Token deleted")
		return nil
	}

	if t := cmd.String(flagToken); t != "" {
		if err := store.Save(t); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
		fmt.Fprintln(cfg.out, "Token saved")
		return nil
	}

	clientID := cmd.String(flagClientID)
	if clientID == "" {
		return errors.New("--client-id or --token required")
	}

	code, err := auth.GetDeviceCode(ctx, clientID)
	if err != nil {
		return fmt.Errorf("getting device code: %w", err)
	}

	fmt.Fprintf(cfg.out, "1). Copy this code: %s\n", code.UserCode)
	fmt.Fprintf(cfg.out, "2). Navigate to this URL in your browser to authenticate: %s\n", code.VerificationURL)
	fmt.Fprint(cfg.out, "3). Hit enter to complete the process:\n")
	fmt.Fprint(cfg.out, ">")

	reader := bufio.NewReader(cmd.Root().Reader)
	for {
		if _, err := reader.ReadString('\n'); err != nil {
			return fmt.Errorf("reading user input: %w", err)
		}

		token, err := auth.GetToken(ctx, clientID, code)
		if errors.Is(err, auth.ErrAuthorizationPending) {
			fmt.Fprint(cfg.out, "Not authorized yet, hit enter after entering the code:\n>")
			continue
		}
		if err != nil {
			return fmt.Errorf("getting token: %w", err)
		}

		if err := store.Save(strings.TrimSpace(token.AccessToken)); err != nil {
			return fmt.Errorf("saving token: %w", err)
		}
		break
	}

	fmt.Fprintln(cfg.out, "Token saved")
	return nil
}

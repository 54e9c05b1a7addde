package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mchmarny/cryptorec/pkg/auth"
	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/net"
	urfave "github.com/urfave/cli/v3"
)

const (
	flagDir    = "dir"
	flagAs     = "as"
	flagURL    = "url"
	flagGitHub = "github"
)

func newKBCmd() *urfave.Command {
	dirFlag := func(required bool, usage string) urfave.Flag {
		return &urfave.StringFlag{
			Name:     flagDir,
			Usage:    usage,
			Required: required,
		}
	}

	return &urfave.Command{
		Name:            "kb",
		Usage:           "Knowledge base commands",
		HideHelpCommand: true,
		Commands: []*urfave.Command{
			{
				Name:   "validate",
				Usage:  "Load and validate a knowledge base directory",
				Action: cmdValidateKB,
				Flags: []urfave.Flag{
					dirFlag(false, "Knowledge base directory (default: configured or embedded)"),
				},
			},
			{
				Name:   "export",
				Usage:  "Write the embedded knowledge base into a directory",
				Action: cmdExportKB,
				Flags: []urfave.Flag{
					dirFlag(true, "Target directory"),
					&urfave.StringFlag{
						Name:  flagAs,
						Usage: "Document format [json, yaml]",
						Value: formatJSON,
					},
				},
			},
			{
				Name:   "pull",
				Usage:  "Download a knowledge base from a URL or a GitHub repository",
				Action: cmdPullKB,
				Flags: []urfave.Flag{
					dirFlag(true, "Target directory"),
					&urfave.StringFlag{
						Name:  flagURL,
						Usage: "Base URL serving the knowledge base documents",
					},
					&urfave.StringFlag{
						Name:  flagGitHub,
						Usage: "GitHub location of the documents (owner/repo[/path][@ref])",
					},
				},
			},
		},
	}
}

// KBSummary describes a loaded knowledge base.
type KBSummary struct {
	Source     string     `json:"source" yaml:"source"`
	Algorithms int        `json:"algorithms" yaml:"algorithms"`
	Standards  int        `json:"standards" yaml:"standards"`
	UseCases   int        `json:"useCases" yaml:"useCases"`
	Valid      bool       `json:"valid" yaml:"valid"`
	Issues     []kb.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
	Files      []string   `json:"files,omitempty" yaml:"files,omitempty"`
}

func summarize(b *kb.Base) *KBSummary {
	issues := kb.Validate(b)
	return &KBSummary{
		Source:     b.Source,
		Algorithms: len(b.Algorithms),
		Standards:  len(b.Standards),
		UseCases:   len(b.UseCases),
		Valid:      !kb.HasErrors(issues),
		Issues:     issues,
	}
}

func cmdValidateKB(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	dir := cmd.String(flagDir)
	if dir == "" {
		dir = cfg.Config.KnowledgeBase
	}

	var b *kb.Base
	var err error
	if dir == "" {
		b, err = kb.Default()
	} else {
		b, err = kb.Load(ctx, dir)
	}
	if err != nil {
		return fmt.Errorf("loading knowledge base: %w", err)
	}

	s := summarize(b)
	if err := encode(cmd, s); err != nil {
		return err
	}
	if !s.Valid {
		return kb.ErrInvalid
	}
	return nil
}

func cmdExportKB(_ context.Context, cmd *urfave.Command) error {
	b, err := kb.Default()
	if err != nil {
		return err
	}

	files, err := kb.Export(b, cmd.String(flagDir), cmd.String(flagAs))
	if err != nil {
		return err
	}

	s := summarize(b)
	s.Files = files
	return encode(cmd, s)
}

func cmdPullKB(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)
	dir := cmd.String(flagDir)
	u := cmd.String(flagURL)
	gh := cmd.String(flagGitHub)

	var b *kb.Base
	var err error
	switch {
	case u != "" && gh != "":
		return errors.New("either --url or --github, not both")
	case u != "":
		b, err = kb.PullURL(ctx, u, dir)
	case gh != "":
		ref, perr := kb.ParseGitHubRef(gh)
		if perr != nil {
			return perr
		}
		store := &auth.Store{Dir: cfg.HomeDir}
		token, terr := store.Get()
		if terr != nil {
			slog.Debug("no GitHub token, pulling anonymously", "error", terr)
		}
		svc := kb.NewContentsService(net.GetOAuthClient(ctx, token))
		b, err = kb.PullGitHub(ctx, svc, ref, dir)
	default:
		return errors.New("--url or --github required")
	}
	if err != nil {
		return fmt.Errorf("pulling knowledge base: %w", err)
	}

	s := summarize(b)
	if err := encode(cmd, s); err != nil {
		return err
	}
	if !s.Valid {
		return kb.ErrInvalid
	}
	return nil
}

package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mchmarny/cryptorec/pkg/config"
	"github.com/mchmarny/cryptorec/pkg/data"
	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/logging"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "cryptorec"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"

	flagDebug  = "debug"
	flagDB     = "db"
	flagFormat = "format"
	flagKB     = "kb"
	flagConfig = "config"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// Execute creates and runs the CLI application.
func Execute() {
	logging.SetDefaultCLILogger("info")

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// appConfig is the state shared by all commands of one invocation. The
// database and the knowledge base are opened on first use.
type appConfig struct {
	Config  *config.Config
	HomeDir string
	DSN     string
	Debug   bool

	out io.Writer

	mu   sync.Mutex
	db   *sql.DB
	base *kb.Base
}

func getConfig(cmd *urfave.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

// getDB initializes the history database on first use.
func (a *appConfig) getDB() (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.db != nil {
		return a.db, nil
	}
	if err := data.Init(a.DSN); err != nil {
		return nil, fmt.Errorf("initializing database: %w", err)
	}
	db, err := data.GetDB(a.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	return db, nil
}

// getBase loads the configured knowledge base, or the embedded one when no
// directory is configured.
func (a *appConfig) getBase(ctx context.Context) (*kb.Base, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.base != nil {
		return a.base, nil
	}

	var b *kb.Base
	var err error
	if a.Config.KnowledgeBase == "" {
		b, err = kb.Default()
	} else {
		b, err = kb.Load(ctx, a.Config.KnowledgeBase)
	}
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}

	for _, i := range kb.Validate(b) {
		if i.Severity == kb.SeverityError {
			return nil, fmt.Errorf("%w: %s", kb.ErrInvalid, i)
		}
		slog.Debug("knowledge base issue", "issue", i.String())
	}

	a.base = b
	return b, nil
}

func (a *appConfig) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Debug("error closing database", "error", err)
		}
		a.db = nil
	}
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Recommends cryptographic algorithms for your requirements",
		Metadata:              map[string]any{},
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:  flagDebug,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.StringFlag{
				Name:    flagDB,
				Usage:   "Path to the SQLite history file or a postgres:// URL",
				Sources: urfave.EnvVars("CRYPTOREC_DB"),
			},
			&urfave.StringFlag{
				Name:  flagFormat,
				Usage: "Output format [json, yaml]",
			},
			&urfave.StringFlag{
				Name:    flagKB,
				Usage:   "Knowledge base directory (default: embedded knowledge base)",
				Sources: urfave.EnvVars("CRYPTOREC_KB"),
			},
			&urfave.StringFlag{
				Name:  flagConfig,
				Usage: "Path to the config file (default: ~/.cryptorec/config.yaml)",
			},
		},
		Commands: []*urfave.Command{
			newRecommendCmd(),
			newScoreCmd(),
			newExploreCmd(),
			newCompareCmd(),
			newKBCmd(),
			newHistoryCmd(),
			newBuildCmd(),
			newServerCmd(),
			newAuthCmd(),
			newResetCmd(),
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			debug := cmd.Bool(flagDebug)
			if debug {
				logging.SetDefaultCLILogger("debug")
			}

			home, _, err := config.GetOrCreateHomeDir(appName)
			if err != nil {
				return ctx, fmt.Errorf("getting home dir: %w", err)
			}

			var cfg *config.Config
			if p := cmd.String(flagConfig); p != "" {
				cfg, err = config.Load(p)
			} else {
				cfg, err = config.ReadOrCreate(home)
			}
			if err != nil {
				return ctx, err
			}

			if cmd.IsSet(flagKB) {
				cfg.KnowledgeBase = cmd.String(flagKB)
			}
			if cmd.IsSet(flagDB) {
				cfg.Database = cmd.String(flagDB)
			}
			if cmd.IsSet(flagFormat) {
				cfg.Format = cmd.String(flagFormat)
			}
			if err := cfg.Validate(); err != nil {
				return ctx, err
			}

			dsn := cfg.Database
			if dsn == "" {
				dsn = filepath.Join(home, data.DataFileName)
			}

			out := cmd.Writer
			if out == nil {
				out = os.Stdout
			}

			cmd.Metadata[appConfigKey] = &appConfig{
				Config:  cfg,
				HomeDir: home,
				DSN:     dsn,
				Debug:   debug,
				out:     out,
			}
			return ctx, nil
		},
		After: func(_ context.Context, cmd *urfave.Command) error {
			if cfg, ok := cmd.Metadata[appConfigKey].(*appConfig); ok {
				cfg.close()
			}
			return nil
		},
	}
}

// encode writes v to the command output in the configured format.
func encode(cmd *urfave.Command, v any) error {
	cfg := getConfig(cmd)
	return write(cfg.out, cfg.Config.Format, v)
}

func write(w io.Writer, format string, v any) error {
	if w == nil {
		return errors.New("writer required")
	}
	if format == formatYAML || format == "yml" {
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		if err := e.Encode(v); err != nil {
			return fmt.Errorf("error encoding yaml: %w", err)
		}
		return e.Close()
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

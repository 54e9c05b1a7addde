package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/rank"
	"github.com/mchmarny/cryptorec/pkg/site"
	urfave "github.com/urfave/cli/v3"
)

const (
	serverShutdownWaitSeconds = 5
	serverTimeoutSeconds      = 300
	serverMaxHeaderBytes      = 20
)

const (
	flagPort      = "port"
	flagNoBrowser = "no-browser"
	flagWatch     = "watch"
)

func newServerCmd() *urfave.Command {
	flags := []urfave.Flag{
		&urfave.IntFlag{
			Name:  flagPort,
			Usage: "Port on which the server will listen (default: from config)",
		},
		&urfave.BoolFlag{
			Name:    flagNoBrowser,
			Aliases: []string{"nb"},
			Usage:   "Do not open browser automatically",
		},
		&urfave.BoolFlag{
			Name:  flagWatch,
			Usage: "Reload the --kb directory when its documents change",
		},
	}
	return &urfave.Command{
		Name:    "server",
		Aliases: []string{"serve"},
		Usage:   "Start local HTTP server",
		Action:  cmdStartServer,
		Flags:   append(flags, optionFlags()...),
	}
}

// server is the state shared by the HTTP handlers.
type server struct {
	kb      *kb.Holder
	db      func() (*sql.DB, error)
	opts    rank.Options
	meta    site.Meta
	metrics *metrics
}

func newServer(b *kb.Base, db func() (*sql.DB, error), opts rank.Options, meta site.Meta) *server {
	s := &server{
		kb:      kb.NewHolder(b),
		db:      db,
		opts:    opts,
		meta:    meta,
		metrics: newMetrics(),
	}
	if b != nil {
		s.metrics.loaded(len(b.Algorithms))
	}
	return s
}

func cmdStartServer(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	port := cfg.Config.Port
	if cmd.IsSet(flagPort) {
		port = cmd.Int(flagPort)
	}
	address := fmt.Sprintf("127.0.0.1:%d", port)

	b, err := cfg.getBase(ctx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := newServer(b, cfg.getDB, readOptions(cmd), site.Meta{Version: version, Commit: commit})

	if cmd.Bool(flagWatch) {
		if cfg.Config.KnowledgeBase == "" {
			return errors.New("--watch requires a --kb directory")
		}
		if err := kb.Watch(ctx, cfg.Config.KnowledgeBase, srv.kb, kb.DefaultDebounce, func(nb *kb.Base, err error) {
			if nb != nil {
				srv.metrics.reloaded(len(nb.Algorithms), err)
				return
			}
			srv.metrics.reloaded(0, err)
		}); err != nil {
			return err
		}
	}

	mux, err := makeRouter(srv)
	if err != nil {
		return err
	}

	s := &http.Server{
		Addr:           address,
		Handler:        mux,
		ReadTimeout:    serverTimeoutSeconds * time.Second,
		WriteTimeout:   serverTimeoutSeconds * time.Second,
		MaxHeaderBytes: 1 << serverMaxHeaderBytes,
	}

	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("error starting server", "error", err)
			stop()
		}
	}()

	url := fmt.Sprintf("http://%s", address)
	slog.Info("server started", "address", url, "kb", b.Source)

	if !cmd.Bool(flagNoBrowser) {
		openBrowser(url)
	}

	<-ctx.Done()

	sctx, cancel := context.WithTimeout(context.Background(), serverShutdownWaitSeconds*time.Second)
	defer cancel()

	if err := s.Shutdown(sctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("error shutting down server", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func makeRouter(srv *server) (*http.ServeMux, error) {
	tmpl, err := site.Templates()
	if err != nil {
		return nil, err
	}
	assets, err := site.Assets()
	if err != nil {
		return nil, err
	}

	m := srv.metrics
	mux := http.NewServeMux()

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(assets)))
	mux.HandleFunc("GET /favicon.ico", faviconHandler)

	// Views
	mux.Handle("GET /{$}", m.instrument("home", homeViewHandler(tmpl, srv)))

	// Data API
	mux.Handle("GET /data/algorithms", m.instrument("algorithms", srv.algorithmsAPIHandler))
	mux.Handle("GET /data/algorithm", m.instrument("algorithm", srv.algorithmAPIHandler))
	mux.Handle("GET /data/compare", m.instrument("compare", srv.compareAPIHandler))
	mux.Handle("GET /data/standards", m.instrument("standards", srv.standardsAPIHandler))
	mux.Handle("GET /data/use-cases", m.instrument("use_cases", srv.useCasesAPIHandler))
	mux.Handle("POST /data/recommend", m.instrument("recommend", srv.recommendAPIHandler))
	mux.Handle("POST /data/score", m.instrument("score", srv.scoreAPIHandler))
	mux.Handle("GET /data/history", m.instrument("history", srv.historyAPIHandler))
	mux.Handle("GET /data/history/run", m.instrument("history_run", srv.runAPIHandler))

	// Metrics
	mux.Handle("GET /metrics", m.handler())

	return mux, nil
}

func openBrowser(url string) {
	var cmd string
	args := make([]string, 0, 1)

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "linux":
		cmd = "xdg-open"
	default: // windows
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	}

	args = append(args, url)
	if err := exec.Command(cmd, args...).Start(); err != nil {
		slog.Error("failed to open browser", "error", err)
	}
}

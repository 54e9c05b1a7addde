package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/rank"
)

const (
	// DefaultOut is the default output directory of Build.
	DefaultOut = "dist"

	staticDir = "static"
	dataDir   = "data"
	indexFile = "index.html"

	dirMode  = 0755
	fileMode = 0644
)

// Report describes what Build wrote.
type Report struct {
	Out      string   `json:"out" yaml:"out"`
	Files    []string `json:"files" yaml:"files"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Build renders the site for b into out: index.html at the root, the
// embedded assets under static/ and the knowledge base documents under
// static/data/. The output directory is removed first.
func Build(ctx context.Context, b *kb.Base, out string, opts rank.Options, meta Meta) (*Report, error) {
	if b == nil {
		return nil, errors.New("knowledge base required")
	}
	if out == "" {
		out = DefaultOut
	}

	r := &Report{
		Out:      out,
		Files:    make([]string, 0),
		Warnings: make([]string, 0),
	}

	if err := os.RemoveAll(out); err != nil {
		return nil, fmt.Errorf("error cleaning %s: %w", out, err)
	}
	if err := os.MkdirAll(out, dirMode); err != nil {
		return nil, fmt.Errorf("error creating %s: %w", out, err)
	}

	if err := renderIndex(b, out, opts, meta, r); err != nil {
		return nil, err
	}

	if err := copyAssets(ctx, filepath.Join(out, staticDir), r); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(b.Standards) == 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s document is empty", kb.StandardsFile))
	}
	if len(b.UseCases) == 0 {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%s document is empty", kb.UseCasesFile))
	}

	files, err := kb.Export(b, filepath.Join(out, staticDir, dataDir), "json")
	if err != nil {
		return nil, fmt.Errorf("error writing knowledge base: %w", err)
	}
	r.Files = append(r.Files, files...)

	for _, w := range r.Warnings {
		slog.Warn("site build", "warning", w)
	}
	slog.Debug("site built", "out", out, "files", len(r.Files))

	return r, nil
}

func renderIndex(b *kb.Base, out string, opts rank.Options, meta Meta, r *Report) (retErr error) {
	t, err := Templates()
	if err != nil {
		return err
	}

	p := NewPage(b, opts, meta)
	p.Static = true
	p.StaticPrefix = staticDir + "/"
	p.DataPrefix = staticDir + "/" + dataDir + "/"

	path := filepath.Join(out, indexFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && retErr == nil {
			retErr = fmt.Errorf("error closing %s: %w", path, err)
		}
	}()

	if err := t.ExecuteTemplate(f, HomeTemplate, p); err != nil {
		return fmt.Errorf("error rendering %s: %w", path, err)
	}

	r.Files = append(r.Files, path)
	return nil
}

func copyAssets(ctx context.Context, dst string, r *Report) error {
	assets, err := Assets()
	if err != nil {
		return err
	}

	return fs.WalkDir(assets, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		target := filepath.Join(dst, filepath.FromSlash(p))
		if d.IsDir() {
			return os.MkdirAll(target, dirMode)
		}

		content, err := fs.ReadFile(assets, p)
		if err != nil {
			return fmt.Errorf("error reading asset %s: %w", p, err)
		}
		if err := os.WriteFile(target, content, fileMode); err != nil {
			return fmt.Errorf("error writing %s: %w", target, err)
		}
		r.Files = append(r.Files, target)
		return nil
	})
}

package kb

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

const (
	// EmbeddedSource is the Source of the knowledge base compiled into the binary.
	EmbeddedSource = "embedded"

	extJSON = ".json"
	extYAML = ".yaml"
	extYML  = ".yml"

	dirMode  = 0755
	fileMode = 0644
)

var (
	//go:embed defaults/*.json
	defaultsFS embed.FS

	extensions = []string{extJSON, extYAML, extYML}
)

// Default returns the knowledge base compiled into the binary.
func Default() (*Base, error) {
	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		return nil, fmt.Errorf("error opening embedded knowledge base: %w", err)
	}
	return LoadFS(context.Background(), sub, EmbeddedSource)
}

// Load reads the knowledge base documents from dir.
func Load(ctx context.Context, dir string) (*Base, error) {
	if dir == "" {
		return nil, errors.New("knowledge base directory required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("error reading knowledge base directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("knowledge base path is not a directory: %s", dir)
	}
	return LoadFS(ctx, os.DirFS(dir), dir)
}

// LoadFS reads the three knowledge base documents from the root of fsys
// concurrently. Each document may be JSON or YAML. The algorithms document
// is required, the other two default to empty mappings when absent.
func LoadFS(ctx context.Context, fsys fs.FS, source string) (*Base, error) {
	b := &Base{Source: source}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		found, err := readDoc(gctx, fsys, AlgorithmsFile, &b.Algorithms)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s document in %s: %w", AlgorithmsFile, source, ErrNotFound)
		}
		return nil
	})
	g.Go(func() error {
		found, err := readDoc(gctx, fsys, StandardsFile, &b.Standards)
		if err == nil && !found {
			slog.Warn("knowledge base document missing", "name", StandardsFile, "source", source)
		}
		return err
	})
	g.Go(func() error {
		found, err := readDoc(gctx, fsys, UseCasesFile, &b.UseCases)
		if err == nil && !found {
			slog.Warn("knowledge base document missing", "name", UseCasesFile, "source", source)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if b.Algorithms == nil {
		b.Algorithms = make(map[string]*Algorithm)
	}
	if b.Standards == nil {
		b.Standards = make(map[string]*Standard)
	}
	if b.UseCases == nil {
		b.UseCases = make(map[string]*UseCase)
	}

	slog.Debug("knowledge base loaded",
		"source", source,
		"algorithms", len(b.Algorithms),
		"standards", len(b.Standards),
		"use_cases", len(b.UseCases),
	)

	return b, nil
}

// readDoc decodes the first of name.json, name.yaml, name.yml found in fsys.
func readDoc[T any](ctx context.Context, fsys fs.FS, name string, target *map[string]T) (bool, error) {
	for _, ext := range extensions {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		p := name + ext
		b, err := fs.ReadFile(fsys, p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("error reading %s: %w", p, err)
		}

		if err := decode(ext, b, target); err != nil {
			return false, fmt.Errorf("error decoding %s: %w: %w", p, ErrInvalid, err)
		}
		return true, nil
	}
	return false, nil
}

func decode(ext string, b []byte, v any) error {
	switch ext {
	case extYAML, extYML:
		return yaml.Unmarshal(b, v)
	default:
		return json.Unmarshal(b, v)
	}
}

// Export writes the three documents of b into dir in the given format
// (json or yaml) and returns the written paths.
func Export(b *Base, dir, format string) ([]string, error) {
	if b == nil {
		return nil, errors.New("knowledge base required")
	}
	if dir == "" {
		return nil, errors.New("export directory required")
	}

	ext := extJSON
	switch format {
	case "", "json":
	case "yaml", "yml":
		ext = extYAML
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}

	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("error creating dir %s: %w", dir, err)
	}

	docs := []struct {
		name string
		v    any
	}{
		{AlgorithmsFile, b.Algorithms},
		{StandardsFile, b.Standards},
		{UseCasesFile, b.UseCases},
	}

	list := make([]string, 0, len(docs))
	for _, d := range docs {
		content, err := encode(ext, d.v)
		if err != nil {
			return nil, fmt.Errorf("error encoding %s: %w", d.name, err)
		}
		p := filepath.Join(dir, d.name+ext)
		if err := os.WriteFile(p, content, fileMode); err != nil {
			return nil, fmt.Errorf("error writing %s: %w", p, err)
		}
		list = append(list, p)
	}

	return list, nil
}

func encode(ext string, v any) ([]byte, error) {
	if ext == extYAML {
		return yaml.Marshal(v)
	}
	return json.MarshalIndent(v, "", "  ")
}

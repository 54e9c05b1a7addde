package site

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"

	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/rank"
)

const (
	// HomeTemplate is the name of the page template.
	HomeTemplate = "home"

	defaultTitle = "Cryptographic Algorithm Recommender"
)

var (
	//go:embed assets/* templates/*
	embedFS embed.FS
)

// Assets returns the static assets rooted at the assets directory.
func Assets() (fs.FS, error) {
	sub, err := fs.Sub(embedFS, "assets")
	if err != nil {
		return nil, fmt.Errorf("error opening embedded assets: %w", err)
	}
	return sub, nil
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	t, err := template.ParseFS(embedFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}
	return t, nil
}

// Meta is the build information shown in the page footer.
type Meta struct {
	Version string
	Commit  string
}

// Option is a select option on the page.
type Option struct {
	Key  string
	Name string
}

// Page is the data the home template renders.
type Page struct {
	Title        string
	Error        string
	Static       bool
	StaticPrefix string
	DataPrefix   string
	DataTypes    []string
	UseCases     []Option
	Standards    []Option
	Types        []string
	MaxCompare   int
	Algorithms   int
	Source       string
	Threshold    int
	Limit        int
	Version      string
	Commit       string
}

// NewPage returns the server page for b. The prefixes point at the server
// routes; Build switches them to relative paths.
func NewPage(b *kb.Base, opts rank.Options, meta Meta) *Page {
	if opts.Threshold < 0 {
		opts.Threshold = rank.DefaultThreshold
	}
	if opts.Limit <= 0 {
		opts.Limit = rank.DefaultLimit
	}

	p := &Page{
		Title:        defaultTitle,
		StaticPrefix: "/static/",
		DataPrefix:   "/data/",
		DataTypes:    b.DataTypes(),
		UseCases:     make([]Option, 0),
		Standards:    make([]Option, 0),
		Types:        rank.Types(b),
		MaxCompare:   rank.MaxCompare,
		Threshold:    opts.Threshold,
		Limit:        opts.Limit,
		Version:      meta.Version,
		Commit:       meta.Commit,
	}

	if b == nil {
		p.Error = "knowledge base not loaded"
		return p
	}

	p.Algorithms = len(b.Algorithms)
	p.Source = b.Source

	for _, k := range b.UseCaseKeys() {
		name := k
		if u := b.UseCases[k]; u != nil && u.Name != "" {
			name = u.Name
		}
		p.UseCases = append(p.UseCases, Option{Key: k, Name: name})
	}
	for _, k := range b.StandardKeys() {
		name := k
		if s := b.Standards[k]; s != nil && s.Name != "" {
			name = s.Name
		}
		p.Standards = append(p.Standards, Option{Key: k, Name: name})
	}

	return p
}

package site

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/rank"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultBase(t *testing.T) *kb.Base {
	t.Helper()
	b, err := kb.Default()
	require.NoError(t, err)
	return b
}

func TestAssets(t *testing.T) {
	assets, err := Assets()
	require.NoError(t, err)

	for _, p := range []string{"css/app.css", "js/app.js", "img/favicon.svg"} {
		_, err := assets.Open(p)
		assert.NoError(t, err, p)
	}
}

func TestNewPage(t *testing.T) {
	b := defaultBase(t)
	p := NewPage(b, rank.Options{}, Meta{Version: "v1.0.0", Commit: "abc"})

	assert.Equal(t, len(b.Algorithms), p.Algorithms)
	assert.Equal(t, kb.EmbeddedSource, p.Source)
	assert.Equal(t, rank.DefaultLimit, p.Limit)
	assert.Equal(t, rank.MaxCompare, p.MaxCompare)
	assert.Len(t, p.Standards, len(b.Standards))
	assert.Len(t, p.UseCases, len(b.UseCases))
	assert.Contains(t, p.Types, kb.TypeSymmetric)
	assert.False(t, p.Static)
	assert.Empty(t, p.Error)
}

func TestNewPageNil(t *testing.T) {
	p := NewPage(nil, rank.DefaultOptions(), Meta{})
	assert.NotEmpty(t, p.Error)
	assert.Zero(t, p.Algorithms)
	assert.Empty(t, p.DataTypes)
}

func TestRenderHome(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	var buf bytes.Buffer
	err = tmpl.ExecuteTemplate(&buf, HomeTemplate, NewPage(defaultBase(t), rank.DefaultOptions(), Meta{Version: "v0.1.0"}))
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "/static/js/app.js")
	assert.Contains(t, html, `value="PCI"`)
	assert.Contains(t, html, "v0.1.0")
}

func TestBuild(t *testing.T) {
	out := filepath.Join(t.TempDir(), "dist")
	require.NoError(t, os.MkdirAll(out, dirMode))
	stale := filepath.Join(out, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("x"), fileMode))

	r, err := Build(context.Background(), defaultBase(t), out, rank.DefaultOptions(), Meta{})
	require.NoError(t, err)
	assert.Equal(t, out, r.Out)
	assert.Empty(t, r.Warnings)

	assert.NoFileExists(t, stale)
	for _, p := range []string{
		"index.html",
		"static/css/app.css",
		"static/js/app.js",
		"static/img/favicon.svg",
		"static/data/algorithms.json",
		"static/data/compliance_standards.json",
		"static/data/use_cases.json",
	} {
		assert.FileExists(t, filepath.Join(out, filepath.FromSlash(p)))
	}

	index, err := os.ReadFile(filepath.Join(out, indexFile))
	require.NoError(t, err)
	assert.Contains(t, string(index), `src="static/js/app.js"`)
	assert.Regexp(t, `static:\s+true`, string(index))

	loaded, err := kb.Load(context.Background(), filepath.Join(out, staticDir, dataDir))
	require.NoError(t, err)
	assert.Len(t, loaded.Algorithms, len(defaultBase(t).Algorithms))
}

func TestBuildWarnings(t *testing.T) {
	b := &kb.Base{
		Algorithms: map[string]*kb.Algorithm{"AES": {Name: "AES", SecurityLevel: 5}},
		Source:     "test",
	}

	r, err := Build(context.Background(), b, filepath.Join(t.TempDir(), "out"), rank.DefaultOptions(), Meta{})
	require.NoError(t, err)
	assert.Len(t, r.Warnings, 2)
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(context.Background(), nil, t.TempDir(), rank.DefaultOptions(), Meta{})
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Build(ctx, defaultBase(t), filepath.Join(t.TempDir(), "out"), rank.DefaultOptions(), Meta{})
	assert.ErrorIs(t, err, context.Canceled)
}

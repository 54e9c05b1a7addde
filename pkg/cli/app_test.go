package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mchmarny/cryptorec/pkg/auth"
	"github.com/mchmarny/cryptorec/pkg/data"
	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/rank"
	"github.com/mchmarny/cryptorec/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

func TestMain(m *testing.M) {
	keyring.MockInit()
	os.Exit(m.Run())
}

// runApp runs the CLI with args against the home directory and returns
// what it wrote to the output.
func runApp(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	return runAppWithInput(t, home, "", args...)
}

func runAppWithInput(t *testing.T, home, input string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", home)
	for _, k := range []string{"CRYPTOREC_DB", "CRYPTOREC_KB", "CRYPTOREC_GITHUB_CLIENT_ID", "GITHUB_TOKEN"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(input)

	err := app.Run(context.Background(), append([]string{appName}, args...))
	return out.String(), err
}

func TestRecommendCommand(t *testing.T) {
	out, err := runApp(t, t.TempDir(),
		"recommend", "--data-type", "database", "--security", "9", "--use-case", "storage", "--compliance", "PCI")
	require.NoError(t, err)

	var rec rank.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.NotEmpty(t, rec.Items)
	assert.Equal(t, "AES", rec.Items[0].Key)
	assert.Equal(t, kb.EmbeddedSource, rec.Source)
	assert.Empty(t, rec.RunID)
	assert.Nil(t, rec.Scores)
}

func TestRecommendYAML(t *testing.T) {
	out, err := runApp(t, t.TempDir(),
		"--format", "yaml", "rec", "-d", "streaming", "-p", "9", "-u", "iot", "--limit", "1")
	require.NoError(t, err)

	var rec rank.Recommendation
	require.NoError(t, yaml.Unmarshal([]byte(out), &rec))
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "ChaCha20", rec.Items[0].Key)
}

func TestRecommendFile(t *testing.T) {
	home := t.TempDir()
	p := filepath.Join(home, "req.yaml")
	require.NoError(t, os.WriteFile(p, []byte("dataType: streaming\nsecurityPriority: 5\nperformancePriority: 9\nuseCase: iot\n"), 0600))

	out, err := runApp(t, home, "recommend", "--file", p, "--all")
	require.NoError(t, err)

	var rec rank.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, "ChaCha20", rec.Top().Key)
	assert.Equal(t, 9, rec.Requirements.PerformancePriority)
	assert.Contains(t, rec.Scores, "DES")
}

func TestRecommendNoMatch(t *testing.T) {
	out, err := runApp(t, t.TempDir(), "recommend", "--security", "1", "--performance", "1")
	require.NoError(t, err)

	var rec rank.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.True(t, rec.NoMatch)
	assert.Empty(t, rec.Items)
}

func TestRecommendInvalid(t *testing.T) {
	_, err := runApp(t, t.TempDir(), "recommend", "--security", "11")
	assert.ErrorContains(t, err, "between 1 and 10")
}

func TestRecommendSaveAndHistory(t *testing.T) {
	home := t.TempDir()
	db := filepath.Join(home, "history.db")

	out, err := runApp(t, home, "--db", db, "recommend", "-d", "database", "-s", "9", "--save")
	require.NoError(t, err)

	var rec rank.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	require.NotEmpty(t, rec.RunID)

	out, err = runApp(t, home, "--db", db, "history", "list")
	require.NoError(t, err)
	var runs []*data.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, rec.RunID, runs[0].ID)

	out, err = runApp(t, home, "--db", db, "history", "show", "--id", rec.RunID)
	require.NoError(t, err)
	var run data.Run
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, rec.Top().Key, run.TopKey)
	assert.Len(t, run.Items, len(rec.Items))

	out, err = runApp(t, home, "--db", db, "history", "stats")
	require.NoError(t, err)
	var stats HistoryStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(1), stats.Counts["runs"])

	_, err = runApp(t, home, "--db", db, "reset", "--yes")
	require.NoError(t, err)

	_, err = runApp(t, home, "--db", db, "history", "show", "--id", rec.RunID)
	assert.ErrorIs(t, err, data.ErrRunNotFound)
}

func TestResetAborted(t *testing.T) {
	home := t.TempDir()
	out, err := runAppWithInput(t, home, "n\n", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.NoFileExists(t, filepath.Join(home, "."+appName, data.DataFileName))

	_, err = runApp(t, home, "reset")
	assert.Error(t, err)
}

func TestScoreCommand(t *testing.T) {
	out, err := runApp(t, t.TempDir(), "score", "--algorithm", "DES", "--compliance", "PCI")
	require.NoError(t, err)

	var r score.Result
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, 0, r.Score)
	assert.True(t, r.Vetoed())

	_, err = runApp(t, t.TempDir(), "score")
	assert.Error(t, err)

	_, err = runApp(t, t.TempDir(), "score", "-a", "Nope")
	assert.ErrorIs(t, err, kb.ErrNotFound)
}

func TestExploreCommand(t *testing.T) {
	out, err := runApp(t, t.TempDir(), "explore", "--search", "aes")
	require.NoError(t, err)

	var list []*rank.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "AES", list[0].Key)

	_, err = runApp(t, t.TempDir(), "ls", "--sort", "bogus")
	assert.ErrorIs(t, err, rank.ErrInvalidSort)
}

func TestCompareCommand(t *testing.T) {
	out, err := runApp(t, t.TempDir(), "compare", "-a", "AES", "-a", "ChaCha20")
	require.NoError(t, err)

	var c rank.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &c))
	assert.Equal(t, []string{"AES", "ChaCha20"}, c.Keys)

	_, err = runApp(t, t.TempDir(), "compare", "-a", "AES,RSA,ECC,DES,MD5")
	assert.ErrorIs(t, err, rank.ErrTooMany)
}

func TestKBCommands(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, "kb")

	out, err := runApp(t, home, "kb", "export", "--dir", dir, "--as", "yaml")
	require.NoError(t, err)
	var s KBSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Len(t, s.Files, 3)
	assert.FileExists(t, filepath.Join(dir, kb.AlgorithmsFile+".yaml"))

	out, err = runApp(t, home, "kb", "validate", "--dir", dir)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.True(t, s.Valid)
	assert.Equal(t, dir, s.Source)

	out, err = runApp(t, home, "--kb", dir, "explore")
	require.NoError(t, err)
	var list []*rank.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	assert.Len(t, list, s.Algorithms)

	_, err = runApp(t, home, "kb", "pull", "--dir", dir)
	assert.Error(t, err)
}

func TestBuildCommand(t *testing.T) {
	home := t.TempDir()
	out := filepath.Join(home, "dist")

	_, err := runApp(t, home, "build", "--out", out)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "index.html"))
	assert.FileExists(t, filepath.Join(out, "static", "data", kb.AlgorithmsFile+".json"))
}

func TestAuthCommand(t *testing.T) {
	home := t.TempDir()

	out, err := runApp(t, home, "auth", "--token", "gho_test")
	require.NoError(t, err)
	assert.Contains(t, out, "Token saved")

	store := &auth.Store{Dir: filepath.Join(home, "."+appName)}
	token, err := store.Get()
	require.NoError(t, err)
	assert.Equal(t, "gho_test", token)

	_, err = runApp(t, home, "auth", "--logout")
	require.NoError(t, err)
	_, err = store.Get()
	assert.ErrorIs(t, err, auth.ErrNoToken)

	_, err = runApp(t, home, "auth")
	assert.ErrorContains(t, err, "--client-id")
}

func TestConfigDefaults(t *testing.T) {
	home := t.TempDir()
	cfgPath := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("format: yaml\nlimit: 2\nthreshold: 30\nport: 9090\n"), 0600))

	out, err := runApp(t, home, "--config", cfgPath, "recommend", "-d", "database", "-s", "9")
	require.NoError(t, err)

	var rec rank.Recommendation
	require.NoError(t, yaml.Unmarshal([]byte(out), &rec))
	assert.Equal(t, 2, rec.Options.Limit)
	assert.LessOrEqual(t, len(rec.Items), 2)

	_, err = runApp(t, home, "--format", "xml", "explore")
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"PCI", "FIPS", "GDPR"}, splitList([]string{"PCI, FIPS", " ", "GDPR"}))
	assert.Empty(t, splitList(nil))
}

func TestRedactDSN(t *testing.T) {
	assert.Equal(t, "postgres://app:***@db:5432/rec", redactDSN("postgres://app:secret@db:5432/rec"))
	assert.Equal(t, "/tmp/data.db", redactDSN("/tmp/data.db"))
	assert.Equal(t, "postgres://db/rec", redactDSN("postgres://db/rec"))
}

package kb

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-github/v83/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAlgorithms = `{"AES":{"securityLevel":5,"performanceScore":4}}`
	testStandards  = "PCI:\n  prohibitedAlgorithms: [DES]\n"
)

func TestParseGitHubRef(t *testing.T) {
	tests := []struct {
		in   string
		want GitHubRef
		err  bool
	}{
		{in: "o/r", want: GitHubRef{Owner: "o", Repo: "r"}},
		{in: "o/r/kb/data", want: GitHubRef{Owner: "o", Repo: "r", Path: "kb/data"}},
		{in: "o/r/kb@v1.2.0", want: GitHubRef{Owner: "o", Repo: "r", Path: "kb", Ref: "v1.2.0"}},
		{in: "o", err: true},
		{in: "/r", err: true},
		{in: "", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseGitHubRef(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.TrimSpace(tt.in), got.String())
		})
	}
}

func TestPullURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/kb/algorithms.json":
			io.WriteString(w, testAlgorithms)
		case "/kb/compliance_standards.yaml":
			io.WriteString(w, testStandards)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	// stale variant from an earlier pull
	require.NoError(t, os.WriteFile(filepath.Join(dir, "compliance_standards.json"), []byte(`{}`), fileMode))
	// no longer published upstream
	require.NoError(t, os.WriteFile(filepath.Join(dir, "use_cases.yaml"), []byte("iot:\n  name: IoT\n"), fileMode))

	b, err := PullURL(context.Background(), srv.URL+"/kb/", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"AES"}, b.AlgorithmKeys())
	assert.True(t, b.Standards["PCI"].Prohibits("DES"))
	assert.Empty(t, b.UseCases)

	_, err = os.Stat(filepath.Join(dir, "compliance_standards.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "use_cases.yaml"))
	assert.True(t, os.IsNotExist(err))
}

func TestPullURLMissingAlgorithms(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := PullURL(context.Background(), srv.URL, t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = PullURL(context.Background(), "", t.TempDir())
	assert.Error(t, err)
}

type fakeContents struct {
	files    map[string]string
	listErr  error
	listResp *github.Response
	gotRef   string
}

func (f *fakeContents) GetContents(_ context.Context, _, _, dir string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	if opts != nil {
		f.gotRef = opts.Ref
	}
	if f.listErr != nil {
		return nil, nil, f.listResp, f.listErr
	}
	list := make([]*github.RepositoryContent, 0, len(f.files))
	for p := range f.files {
		if path.Dir(p) == dir {
			list = append(list, &github.RepositoryContent{
				Name: github.Ptr(path.Base(p)),
				Type: github.Ptr("file"),
			})
		}
	}
	return nil, list, &github.Response{Response: &http.Response{StatusCode: http.StatusOK}}, nil
}

func (f *fakeContents) DownloadContents(_ context.Context, _, _, p string, _ *github.RepositoryContentGetOptions) (io.ReadCloser, *github.Response, error) {
	c, ok := f.files[p]
	if !ok {
		return nil, nil, errors.New("no file named " + p)
	}
	return io.NopCloser(strings.NewReader(c)), nil, nil
}

func TestPullGitHub(t *testing.T) {
	svc := &fakeContents{files: map[string]string{
		"kb/algorithms.json":           testAlgorithms,
		"kb/compliance_standards.yaml": testStandards,
		"kb/README.md":                 "docs",
	}}

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "use_cases.json"), []byte(`{"iot":{"name":"IoT"}}`), fileMode))

	ref := GitHubRef{Owner: "o", Repo: "r", Path: "kb", Ref: "main"}
	b, err := PullGitHub(context.Background(), svc, ref, dir)
	require.NoError(t, err)
	assert.Equal(t, "main", svc.gotRef)
	assert.Equal(t, []string{"AES"}, b.AlgorithmKeys())
	assert.Equal(t, []string{"PCI"}, b.StandardKeys())
	assert.Empty(t, b.UseCases)

	_, err = os.Stat(filepath.Join(dir, "use_cases.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestPullGitHubErrors(t *testing.T) {
	ctx := context.Background()
	ref := GitHubRef{Owner: "o", Repo: "r", Path: "kb"}

	_, err := PullGitHub(ctx, nil, ref, t.TempDir())
	assert.Error(t, err)

	_, err = PullGitHub(ctx, &fakeContents{}, GitHubRef{Owner: "o"}, t.TempDir())
	assert.Error(t, err)

	_, err = PullGitHub(ctx, &fakeContents{files: map[string]string{}}, ref, t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)

	notFound := &fakeContents{
		listErr:  errors.New("404"),
		listResp: &github.Response{Response: &http.Response{StatusCode: http.StatusNotFound}},
	}
	_, err = PullGitHub(ctx, notFound, ref, t.TempDir())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = PullGitHub(ctx, &fakeContents{listErr: errors.New("boom")}, ref, t.TempDir())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

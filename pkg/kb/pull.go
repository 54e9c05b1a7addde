package kb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v83/github"
	"github.com/mchmarny/cryptorec/pkg/net"
	"golang.org/x/sync/errgroup"
)

var documents = []string{AlgorithmsFile, StandardsFile, UseCasesFile}

// GitHubRef points at a knowledge base directory in a GitHub repository.
type GitHubRef struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

func (r GitHubRef) String() string {
	s := r.Owner + "/" + r.Repo
	if r.Path != "" {
		s += "/" + r.Path
	}
	if r.Ref != "" {
		s += "@" + r.Ref
	}
	return s
}

// ParseGitHubRef parses owner/repo[/path][@ref].
func ParseGitHubRef(v string) (GitHubRef, error) {
	var r GitHubRef
	v = strings.TrimSpace(v)
	if i := strings.LastIndex(v, "@"); i >= 0 {
		r.Ref = v[i+1:]
		v = v[:i]
	}
	parts := strings.SplitN(strings.Trim(v, "/"), "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return r, fmt.Errorf("invalid GitHub reference %q, expected owner/repo[/path][@ref]", v)
	}
	r.Owner, r.Repo = parts[0], parts[1]
	if len(parts) == 3 {
		r.Path = strings.Trim(parts[2], "/")
	}
	return r, nil
}

// PullURL downloads the knowledge base documents found under baseURL into
// dir and returns the loaded result. For each document the .json, .yaml and
// .yml variants are tried in that order.
func PullURL(ctx context.Context, baseURL, dir string) (*Base, error) {
	if baseURL == "" {
		return nil, errors.New("base URL required")
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("error creating dir %s: %w", dir, err)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range documents {
		g.Go(func() error {
			for _, ext := range extensions {
				u := baseURL + "/" + name + ext
				err := net.Download(gctx, u, filepath.Join(dir, name+ext))
				if errors.Is(err, net.ErrorURLNotFound) {
					continue
				}
				if err != nil {
					return fmt.Errorf("error downloading %s: %w", u, err)
				}
				slog.Debug("downloaded", "url", u)
				return removeVariants(dir, name, ext)
			}
			return missing(dir, name, baseURL)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Load(ctx, dir)
}

// ContentsService is the part of the GitHub repositories API used by PullGitHub.
type ContentsService interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	DownloadContents(ctx context.Context, owner, repo, filepath string, opts *github.RepositoryContentGetOptions) (io.ReadCloser, *github.Response, error)
}

// NewContentsService returns the GitHub repositories service using client.
func NewContentsService(client *http.Client) ContentsService {
	return github.NewClient(client).Repositories
}

// PullGitHub downloads the knowledge base documents from a directory of a
// GitHub repository into dir and returns the loaded result.
func PullGitHub(ctx context.Context, svc ContentsService, ref GitHubRef, dir string) (*Base, error) {
	if svc == nil {
		return nil, errors.New("GitHub contents service required")
	}
	if ref.Owner == "" || ref.Repo == "" {
		return nil, errors.New("GitHub owner and repo required")
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return nil, fmt.Errorf("error creating dir %s: %w", dir, err)
	}

	var opts *github.RepositoryContentGetOptions
	if ref.Ref != "" {
		opts = &github.RepositoryContentGetOptions{Ref: ref.Ref}
	}

	_, list, resp, err := svc.GetContents(ctx, ref.Owner, ref.Repo, ref.Path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("error listing %s: %w", ref, err)
	}
	if resp != nil {
		slog.Debug("listed knowledge base", "ref", ref.String(), "files", len(list), "rate", rateInfo(&resp.Rate))
	}

	available := make(map[string]bool, len(list))
	for _, c := range list {
		if c.GetType() == "file" {
			available[c.GetName()] = true
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range documents {
		g.Go(func() error {
			for _, ext := range extensions {
				if !available[name+ext] {
					continue
				}
				p := path.Join(ref.Path, name+ext)
				if err := downloadContent(gctx, svc, ref, p, opts, filepath.Join(dir, name+ext)); err != nil {
					return err
				}
				return removeVariants(dir, name, ext)
			}
			return missing(dir, name, ref.String())
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Load(ctx, dir)
}

func downloadContent(ctx context.Context, svc ContentsService, ref GitHubRef, p string, opts *github.RepositoryContentGetOptions, target string) (retErr error) {
	rc, _, err := svc.DownloadContents(ctx, ref.Owner, ref.Repo, p, opts)
	if err != nil {
		return fmt.Errorf("error downloading %s from %s/%s: %w", p, ref.Owner, ref.Repo, err)
	}
	defer rc.Close()

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode)
	if err != nil {
		return fmt.Errorf("error creating file %s: %w", target, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	if _, err := io.Copy(f, rc); err != nil {
		return fmt.Errorf("error saving %s: %w", target, err)
	}
	slog.Debug("downloaded", "file", p, "ref", ref.String())
	return nil
}

// missing fails for the algorithms document. For the others it warns and
// removes any copy left in dir by a previous pull, so Load does not serve it.
func missing(dir, name, source string) error {
	if name == AlgorithmsFile {
		return fmt.Errorf("%s document in %s: %w", name, source, ErrNotFound)
	}
	slog.Warn("knowledge base document missing", "name", name, "source", source)
	return removeVariants(dir, name, "")
}

// removeVariants deletes other format variants of name left from a previous
// pull, so the loader picks the one just downloaded.
func removeVariants(dir, name, keep string) error {
	for _, ext := range extensions {
		if ext == keep {
			continue
		}
		p := filepath.Join(dir, name+ext)
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error removing %s: %w", p, err)
		}
	}
	return nil
}

func rateInfo(r *github.Rate) string {
	if r == nil || r.Limit == 0 {
		return ""
	}
	return fmt.Sprintf("rate:%d/%d until:%s", r.Remaining, r.Limit, r.Reset.Format("15:04"))
}

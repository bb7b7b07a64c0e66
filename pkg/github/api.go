// Package github talks to the GitHub REST API for the three queries the
// engine needs: latest release metadata, the official repository's package
// catalog, and the newest commit touching a path. Rate-limited responses are
// reported as a distinguishable error so callers can surface them verbatim.
package github

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/glorpus-work/ashpkg/pkg/errors"
)

//go:generate mockgen -destination=./mocks/api.go -package=mocks . Client

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Release is the subset of release metadata the engine consumes.
type Release struct {
	TagName    string  `json:"tag_name"`
	Assets     []Asset `json:"assets"`
	ZipballURL string  `json:"zipball_url"`
}

// Catalog lists the package names published by the official repository.
type Catalog struct {
	Addons  map[string]bool
	Plugins map[string]bool
}

// Client is the remote-API seam the engine depends on.
type Client interface {
	LatestRelease(ctx context.Context, repoURL string) (*Release, error)
	RemoteCommitHash(ctx context.Context, repoURL, branch, path string) (string, error)
	FetchCatalog(ctx context.Context, repoURL, branch string) (*Catalog, error)
}

const (
	apiBase       = "https://api.github.com"
	maxRetries    = 5
	baseRetryWait = 2 * time.Second
)

// ClientImpl implements Client over net/http.
type ClientImpl struct {
	httpClient *http.Client
	tokenFn    func() string
	baseURL    string
	retryWait  time.Duration
}

// New creates a GitHub API client. tokenFn is consulted per request so a
// token configured mid-session takes effect immediately; it may be nil.
func New(timeout time.Duration, tokenFn func() string) *ClientImpl {
	return &ClientImpl{
		httpClient: &http.Client{Timeout: timeout},
		tokenFn:    tokenFn,
		baseURL:    apiBase,
		retryWait:  baseRetryWait,
	}
}

// ParseOwnerRepo extracts the owner and repository name from a repository URL.
func ParseOwnerRepo(repoURL string) (owner, repo string, err error) {
	parsed, err := url.Parse(repoURL)
	if err != nil {
		return "", "", errors.Wrapf(errors.ErrInvalidPath, "invalid repository URL %s", repoURL)
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.Wrapf(errors.ErrInvalidPath, "repository URL %s has no owner/repo path", repoURL)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// IsGitHubURL reports whether a repository URL points at github.com.
func IsGitHubURL(repoURL string) bool {
	parsed, err := url.Parse(repoURL)
	if err != nil {
		return false
	}
	return strings.Contains(parsed.Host, "github.com")
}

func (c *ClientImpl) get(ctx context.Context, apiURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.tokenFn != nil {
		if token := c.tokenFn(); token != "" {
			req.Header.Set("Authorization", "token "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTransportFailure, err.Error())
	}
	return resp, nil
}

// rateLimitErr inspects a 403 body for the rate-limit message. GitHub uses
// 403 for other denials too, so the message text decides.
func rateLimitErr(resp *http.Response) error {
	if resp.StatusCode != http.StatusForbidden {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.ErrRateLimited
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return errors.ErrRateLimited
	}
	if strings.Contains(strings.ToLower(payload.Message), "rate limit") {
		return errors.ErrRateLimited
	}
	return nil
}

// LatestRelease fetches the latest release of a repository. ErrNotFound means
// the repository has no releases.
func (c *ClientImpl) LatestRelease(ctx context.Context, repoURL string) (*Release, error) {
	owner, repo, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.get(ctx, fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, owner, repo))
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := rateLimitErr(resp); err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Wrapf(errors.ErrNotFound, "no releases for %s/%s", owner, repo)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrTransportFailure, "unexpected status code: %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, errors.Wrap(err, "failed to decode release metadata")
	}
	return &release, nil
}

// RemoteCommitHash returns the newest commit hash on branch, optionally
// scoped to a path. Rate-limited responses are retried up to five times with
// exponential backoff before ErrRateLimited is reported; other failures are
// not retried.
func (c *ClientImpl) RemoteCommitHash(ctx context.Context, repoURL, branch, path string) (string, error) {
	owner, repo, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return "", err
	}

	var apiURL string
	if path != "" {
		apiURL = fmt.Sprintf("%s/repos/%s/%s/commits?path=%s&sha=%s&per_page=1",
			c.baseURL, owner, repo, url.QueryEscape(path), url.QueryEscape(branch))
	} else {
		apiURL = fmt.Sprintf("%s/repos/%s/%s/commits/%s", c.baseURL, owner, repo, url.PathEscape(branch))
	}

	for attempt := 0; ; attempt++ {
		hash, err := c.fetchCommitHash(ctx, apiURL, path != "")
		if err == nil {
			return hash, nil
		}
		if !stderrors.Is(err, errors.ErrRateLimited) || attempt >= maxRetries-1 {
			return "", err
		}
		wait := c.retryWait * (1 << attempt)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (c *ClientImpl) fetchCommitHash(ctx context.Context, apiURL string, isList bool) (string, error) {
	resp, err := c.get(ctx, apiURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := rateLimitErr(resp); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.Wrapf(errors.ErrTransportFailure, "unexpected status code: %d", resp.StatusCode)
	}

	if isList {
		var commits []struct {
			SHA string `json:"sha"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
			return "", errors.Wrap(err, "failed to decode commit list")
		}
		if len(commits) == 0 {
			return "", errors.Wrap(errors.ErrNotFound, "no commits for path")
		}
		return commits[0].SHA, nil
	}

	var commit struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&commit); err != nil {
		return "", errors.Wrap(err, "failed to decode commit")
	}
	if commit.SHA == "" {
		return "", errors.Wrap(errors.ErrNotFound, "commit has no hash")
	}
	return commit.SHA, nil
}

// FetchCatalog lists addon directory names and plugin file stems published
// under the official repository for a branch.
func (c *ClientImpl) FetchCatalog(ctx context.Context, repoURL, branch string) (*Catalog, error) {
	owner, repo, err := ParseOwnerRepo(repoURL)
	if err != nil {
		return nil, err
	}

	catalog := &Catalog{
		Addons:  map[string]bool{},
		Plugins: map[string]bool{},
	}

	if err := c.fetchContents(ctx, owner, repo, "addons", branch, func(name, entryType string) {
		if entryType == "dir" && !strings.HasPrefix(name, ".") && !strings.EqualFold(name, "libs") {
			catalog.Addons[name] = true
		}
	}); err != nil {
		return nil, err
	}
	if err := c.fetchContents(ctx, owner, repo, "plugins", branch, func(name, entryType string) {
		if entryType == "file" && strings.HasSuffix(strings.ToLower(name), ".dll") {
			catalog.Plugins[name[:len(name)-4]] = true
		}
	}); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *ClientImpl) fetchContents(ctx context.Context, owner, repo, dir, branch string, visit func(name, entryType string)) error {
	apiURL := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, dir)
	if branch != "" {
		apiURL += "?ref=" + url.QueryEscape(branch)
	}

	resp, err := c.get(ctx, apiURL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := rateLimitErr(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Wrapf(errors.ErrTransportFailure, "contents of %s: unexpected status code: %d", dir, resp.StatusCode)
	}

	var entries []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return errors.Wrapf(err, "failed to decode contents of %s", dir)
	}
	for _, entry := range entries {
		visit(entry.Name, entry.Type)
	}
	return nil
}

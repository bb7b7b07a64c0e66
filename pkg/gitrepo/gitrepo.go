// Package gitrepo wraps the go-git operations the install and update engines
// need: cloning sources into ephemeral directories, reading HEAD metadata,
// folder-scoped commit lookups, and remote branch listing without a clone.
package gitrepo

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/glorpus-work/ashpkg/pkg/errors"
)

// CloneInfo carries the metadata recorded after a clone.
type CloneInfo struct {
	Commit string
	Branch string
}

// Client performs git operations. It is stateless; every call takes the
// repository path or URL it operates on.
type Client struct{}

// New creates a Client.
func New() *Client {
	return &Client{}
}

// Clone clones url into dest, optionally on a specific branch, recursing into
// submodules. It returns the HEAD commit hash and branch name of the clone.
func (c *Client) Clone(ctx context.Context, url, branch, dest string) (*CloneInfo, error) {
	opts := &git.CloneOptions{
		URL:               url,
		RecurseSubmodules: git.DefaultSubmoduleRecursionDepth,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to clone %s", url)
	}
	return headInfo(repo)
}

// ShallowClone clones only the tip commit of url into dest. Used for content
// comparison against the upstream tree, where history is irrelevant.
func (c *Client) ShallowClone(ctx context.Context, url, branch, dest string) (*CloneInfo, error) {
	opts := &git.CloneOptions{
		URL:   url,
		Depth: 1,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(branch)
		opts.SingleBranch = true
	}

	repo, err := git.PlainCloneContext(ctx, dest, false, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to shallow clone %s", url)
	}
	return headInfo(repo)
}

func headInfo(repo *git.Repository) (*CloneInfo, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve HEAD")
	}
	info := &CloneInfo{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}
	return info, nil
}

// HeadCommit returns the HEAD commit hash of a local repository.
func (c *Client) HeadCommit(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open repository at %s", path)
	}
	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve HEAD")
	}
	return head.Hash().String(), nil
}

// CurrentBranch returns the checked-out branch of a local repository, or an
// empty string for a detached HEAD.
func (c *Client) CurrentBranch(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open repository at %s", path)
	}
	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve HEAD")
	}
	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return "", nil
}

// OriginURL returns the first URL of the origin remote of a local repository.
func (c *Client) OriginURL(path string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open repository at %s", path)
	}
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve origin remote")
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.Wrap(errors.ErrNotFound, "origin remote has no URL")
	}
	return urls[0], nil
}

// IsRepo reports whether path is the root of a git repository.
func (c *Client) IsRepo(path string) bool {
	_, err := git.PlainOpen(path)
	return err == nil
}

// FolderLastCommit returns the most recent commit hash touching relPath
// inside a local repository.
func (c *Client) FolderLastCommit(path, relPath string) (string, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open repository at %s", path)
	}
	head, err := repo.Head()
	if err != nil {
		return "", errors.Wrap(err, "failed to resolve HEAD")
	}

	prefix := filepath.ToSlash(relPath)
	iter, err := repo.Log(&git.LogOptions{
		From: head.Hash(),
		PathFilter: func(p string) bool {
			return p == prefix || strings.HasPrefix(p, prefix+"/")
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to walk history for %s", relPath)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		return "", errors.Wrapf(errors.ErrNotFound, "no commits touch %s", relPath)
	}
	return commit.Hash.String(), nil
}

// CommitTime returns the author timestamp of a commit in a local repository.
func (c *Client) CommitTime(path, hash string) (time.Time, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to open repository at %s", path)
	}
	commit, err := object.GetCommit(repo.Storer, plumbing.NewHash(hash))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to resolve commit %s", hash)
	}
	return commit.Author.When.UTC(), nil
}

// ListRemoteBranches lists branch names on a remote without cloning,
// deduplicated, with baseBranch (when present) moved to the front as the
// default suggestion.
func (c *Client) ListRemoteBranches(url, baseBranch string) ([]string, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	})

	refs, err := remote.List(&git.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list remote refs for %s", url)
	}

	seen := map[string]bool{}
	var branches []string
	for _, ref := range refs {
		if !ref.Name().IsBranch() {
			continue
		}
		name := ref.Name().Short()
		if seen[name] {
			continue
		}
		seen[name] = true
		branches = append(branches, name)
	}

	if baseBranch != "" {
		for i, name := range branches {
			if name == baseBranch && i != 0 {
				copy(branches[1:i+1], branches[:i])
				branches[0] = name
				break
			}
		}
	}
	return branches, nil
}

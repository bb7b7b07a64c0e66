package gitrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a local repository with one commit per entry of each
// files map, in order, and returns its path and commit hashes.
func initTestRepo(t *testing.T, commits []map[string]string) (string, []string) {
	t.Helper()
	path := t.TempDir()
	repo, err := git.PlainInit(path, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}
	var hashes []string
	for i, files := range commits {
		for rel, content := range files {
			full := filepath.Join(path, filepath.FromSlash(rel))
			require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
			require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
			_, err = wt.Add(rel)
			require.NoError(t, err)
		}
		sig.When = sig.When.Add(time.Duration(i) * time.Second)
		hash, err := wt.Commit("commit", &git.CommitOptions{Author: sig, Committer: sig})
		require.NoError(t, err)
		hashes = append(hashes, hash.String())
	}
	return path, hashes
}

func TestHeadCommitAndCurrentBranch(t *testing.T) {
	client := New()
	path, hashes := initTestRepo(t, []map[string]string{
		{"readme.md": "one\n"},
	})

	head, err := client.HeadCommit(path)
	require.NoError(t, err)
	assert.Equal(t, hashes[0], head)

	branch, err := client.CurrentBranch(path)
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

func TestIsRepo(t *testing.T) {
	client := New()
	path, _ := initTestRepo(t, []map[string]string{{"x": "x"}})

	assert.True(t, client.IsRepo(path))
	assert.False(t, client.IsRepo(t.TempDir()))
}

func TestOriginURL(t *testing.T) {
	client := New()
	path, _ := initTestRepo(t, []map[string]string{{"x": "x"}})

	_, err := client.OriginURL(path)
	assert.Error(t, err)

	repo, err := git.PlainOpen(path)
	require.NoError(t, err)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{"https://github.com/someone/project"},
	})
	require.NoError(t, err)

	url, err := client.OriginURL(path)
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/someone/project", url)
}

func TestFolderLastCommit(t *testing.T) {
	client := New()
	path, hashes := initTestRepo(t, []map[string]string{
		{"addons/alpha/alpha.lua": "v1\n"},
		{"addons/beta/beta.lua": "v1\n"},
		{"addons/alpha/alpha.lua": "v2\n"},
	})

	alpha, err := client.FolderLastCommit(path, "addons/alpha")
	require.NoError(t, err)
	assert.Equal(t, hashes[2], alpha)

	beta, err := client.FolderLastCommit(path, "addons/beta")
	require.NoError(t, err)
	assert.Equal(t, hashes[1], beta)

	_, err = client.FolderLastCommit(path, "addons/gamma")
	assert.Error(t, err)
}

func TestCommitTime(t *testing.T) {
	client := New()
	path, hashes := initTestRepo(t, []map[string]string{{"x": "x"}})

	when, err := client.CommitTime(path, hashes[0])
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), when, time.Minute)
	assert.Equal(t, time.UTC, when.Location())

	_, err = client.CommitTime(path, "0000000000000000000000000000000000000000")
	assert.Error(t, err)
}

func TestCloneLocalRepo(t *testing.T) {
	client := New()
	source, hashes := initTestRepo(t, []map[string]string{
		{"myaddon/myaddon.lua": "-- x\n"},
	})

	dest := filepath.Join(t.TempDir(), "clone")
	info, err := client.Clone(context.Background(), source, "", dest)
	require.NoError(t, err)
	assert.Equal(t, hashes[0], info.Commit)
	assert.Equal(t, "master", info.Branch)
	assert.FileExists(t, filepath.Join(dest, "myaddon", "myaddon.lua"))
}

func TestCloneMissingBranch(t *testing.T) {
	client := New()
	source, _ := initTestRepo(t, []map[string]string{{"x": "x"}})

	_, err := client.Clone(context.Background(), source, "no-such-branch", filepath.Join(t.TempDir(), "clone"))
	assert.Error(t, err)
}

func TestListRemoteBranchesLocal(t *testing.T) {
	client := New()
	source, _ := initTestRepo(t, []map[string]string{{"x": "x"}})

	repo, err := git.PlainOpen(source)
	require.NoError(t, err)
	head, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.NewBranchReferenceName("develop"), head.Hash())))

	branches, err := client.ListRemoteBranches(source, "develop")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"master", "develop"}, branches)
	assert.Equal(t, "develop", branches[0])
}

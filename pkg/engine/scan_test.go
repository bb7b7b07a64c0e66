package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/github"
	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestScanExistingClassifiesAgainstCatalog(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, cfg := newTestEngine(t, api)

	writeTestFile(t, filepath.Join(cfg.AddonsDir(), "timestamp", "timestamp.lua"), "-- official\n")
	writeTestFile(t, filepath.Join(cfg.AddonsDir(), "homebrew", "homebrew.lua"), "-- mine\n")
	writeTestFile(t, filepath.Join(cfg.PluginsDir(), "Addons.dll"), "MZ")
	writeTestFile(t, filepath.Join(cfg.PluginsDir(), "custom.dll"), "MZ")

	api.EXPECT().FetchCatalog(gomock.Any(), testOfficialRepo, "main").Return(&github.Catalog{
		Addons:  map[string]bool{"Timestamp": true},
		Plugins: map[string]bool{"Addons": true},
	}, nil)

	result := eng.ScanExisting(context.Background())
	assert.True(t, result.CatalogOK)
	assert.Equal(t, 2, result.AddonsFound)
	assert.Equal(t, 2, result.PluginsFound)
	assert.Len(t, result.ManualFlags, 2)

	official := trk.GetPackage("timestamp", model.KindAddon)
	require.NotNil(t, official)
	assert.Equal(t, model.MethodPreInstalled, official.InstallMethod)
	assert.Equal(t, testOfficialRepo, official.Source)

	manual := trk.GetPackage("homebrew", model.KindAddon)
	require.NotNil(t, manual)
	assert.Equal(t, model.MethodManual, manual.InstallMethod)
	assert.Equal(t, model.SourceUnknown, manual.Source)

	assert.Equal(t, model.MethodPreInstalled, trk.GetPackage("Addons", model.KindPlugin).InstallMethod)
	assert.Equal(t, model.MethodManual, trk.GetPackage("custom", model.KindPlugin).InstallMethod)
}

func TestScanExistingFailsOpenWithoutCatalog(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, cfg := newTestEngine(t, api)

	writeTestFile(t, filepath.Join(cfg.AddonsDir(), "homebrew", "homebrew.lua"), "-- mine\n")
	api.EXPECT().FetchCatalog(gomock.Any(), testOfficialRepo, "main").
		Return(nil, errors.Wrap(errors.ErrRateLimited, "catalog"))

	result := eng.ScanExisting(context.Background())
	assert.False(t, result.CatalogOK)
	assert.NotEmpty(t, result.CatalogError)
	assert.Empty(t, result.ManualFlags)

	// Without a catalog nothing is flagged manual.
	record := trk.GetPackage("homebrew", model.KindAddon)
	require.NotNil(t, record)
	assert.Equal(t, model.MethodPreInstalled, record.InstallMethod)
}

func TestScanExistingSkipsTrackedPackages(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, cfg := newTestEngine(t, api)

	writeTestFile(t, filepath.Join(cfg.AddonsDir(), "mine", "mine.lua"), "-- x\n")
	trk.AddPackage("mine", model.KindAddon, &model.PackageRecord{
		Source:        testRepoURL,
		InstallMethod: model.MethodGit,
		Commit:        "abc123",
	})

	api.EXPECT().FetchCatalog(gomock.Any(), testOfficialRepo, "main").Return(&github.Catalog{
		Addons:  map[string]bool{},
		Plugins: map[string]bool{},
	}, nil)

	result := eng.ScanExisting(context.Background())
	assert.Equal(t, 0, result.AddonsFound)

	// The existing git record is untouched.
	record := trk.GetPackage("mine", model.KindAddon)
	require.NotNil(t, record)
	assert.Equal(t, model.MethodGit, record.InstallMethod)
	assert.Equal(t, "abc123", record.Commit)
}

func TestScanExistingGitCheckoutMetadata(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, cfg := newTestEngine(t, api)

	addonDir := filepath.Join(cfg.AddonsDir(), "checkout")
	writeTestFile(t, filepath.Join(addonDir, "checkout.lua"), "-- x\n")

	repo, err := git.PlainInit(addonDir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("checkout.lua")
	require.NoError(t, err)
	committed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: committed}
	hash, err := wt.Commit("initial", &git.CommitOptions{Author: sig, Committer: sig})
	require.NoError(t, err)

	api.EXPECT().FetchCatalog(gomock.Any(), testOfficialRepo, "main").Return(&github.Catalog{
		Addons:  map[string]bool{},
		Plugins: map[string]bool{},
	}, nil)

	result := eng.ScanExisting(context.Background())
	assert.Equal(t, 1, result.AddonsFound)
	assert.Empty(t, result.ManualFlags)

	record := trk.GetPackage("checkout", model.KindAddon)
	require.NotNil(t, record)
	assert.Equal(t, model.MethodGit, record.InstallMethod)
	assert.Equal(t, hash.String(), record.Commit)
	assert.Equal(t, "master", record.Branch)
	assert.True(t, committed.Equal(record.InstalledDate))
}

func TestScanExistingIgnoresNonAddonDirs(t *testing.T) {
	api := newMockAPI(t)
	eng, _, cfg := newTestEngine(t, api)

	// libs has no libs.lua entrypoint, so it is not an addon.
	writeTestFile(t, filepath.Join(cfg.LibsDir(), "util.lua"), "-- lib\n")
	writeTestFile(t, filepath.Join(cfg.PluginsDir(), "notes.txt"), "x")

	api.EXPECT().FetchCatalog(gomock.Any(), testOfficialRepo, "main").Return(&github.Catalog{
		Addons:  map[string]bool{},
		Plugins: map[string]bool{},
	}, nil)

	result := eng.ScanExisting(context.Background())
	assert.Equal(t, 0, result.AddonsFound)
	assert.Equal(t, 0, result.PluginsFound)
}

package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallGitAddonsMonorepo(t *testing.T) {
	eng, trk, cfg := newTestEngine(t, newMockAPI(t))

	repoPath := t.TempDir()
	writeTestFile(t, filepath.Join(repoPath, "addons", "alpha", "alpha.lua"), "-- alpha\n")
	writeTestFile(t, filepath.Join(repoPath, "addons", "beta", "beta.lua"), "-- beta\n")
	writeTestFile(t, filepath.Join(repoPath, "src", "main.cpp"), "// src\n")

	outcome := eng.installGitAddons(repoPath, testRepoURL, "abc123", "main", InstallOptions{})
	require.True(t, outcome.OK(), "outcome: %+v", outcome)
	assert.Contains(t, outcome.Message, "Installed 2 addon(s) from monorepo")

	for _, name := range []string{"alpha", "beta"} {
		assert.FileExists(t, filepath.Join(cfg.AddonsDir(), name, name+".lua"))
		record := trk.GetPackage(name, model.KindAddon)
		require.NotNil(t, record)
		assert.Equal(t, model.MethodGit, record.InstallMethod)
		assert.Equal(t, "abc123", record.Commit)
		assert.Equal(t, "main", record.Branch)
	}
}

func TestInstallGitAddonsTargetName(t *testing.T) {
	eng, trk, cfg := newTestEngine(t, newMockAPI(t))

	repoPath := t.TempDir()
	writeTestFile(t, filepath.Join(repoPath, "addons", "alpha", "alpha.lua"), "-- alpha\n")
	writeTestFile(t, filepath.Join(repoPath, "addons", "beta", "beta.lua"), "-- beta\n")
	writeTestFile(t, filepath.Join(repoPath, "src", "main.cpp"), "// src\n")

	outcome := eng.installGitAddons(repoPath, testRepoURL, "abc123", "main", InstallOptions{TargetName: "beta"})
	require.True(t, outcome.OK(), "outcome: %+v", outcome)

	assert.FileExists(t, filepath.Join(cfg.AddonsDir(), "beta", "beta.lua"))
	assert.NoFileExists(t, filepath.Join(cfg.AddonsDir(), "alpha", "alpha.lua"))
	assert.Nil(t, trk.GetPackage("alpha", model.KindAddon))
}

func TestInstallAddonEntrypointCheckpoint(t *testing.T) {
	eng, trk, _ := newTestEngine(t, newMockAPI(t))

	sourcePath := t.TempDir()
	writeTestFile(t, filepath.Join(sourcePath, "first.lua"), "-- 1\n")
	writeTestFile(t, filepath.Join(sourcePath, "second.lua"), "-- 2\n")

	outcome := eng.installAddon(sourcePath, testRepoURL, "abc", "main", "", InstallOptions{})
	require.Equal(t, model.OutcomeRequiresEntrypointSelection, outcome.Kind)
	assert.ElementsMatch(t, []string{"first", "second"}, outcome.LuaFiles)
	assert.True(t, outcome.IsGit)
	assert.False(t, outcome.IsRelease)

	outcome = eng.installAddon(sourcePath, testRepoURL, "abc", "main", "", InstallOptions{SelectedEntrypoint: "first"})
	require.True(t, outcome.OK(), "outcome: %+v", outcome)
	require.NotNil(t, trk.GetPackage("first", model.KindAddon))
}

func TestInstallAddonSurfacesCopyWarnings(t *testing.T) {
	eng, trk, cfg := newTestEngine(t, newMockAPI(t))

	sourcePath := t.TempDir()
	writeTestFile(t, filepath.Join(sourcePath, "myaddon.lua"), "-- entry\n")
	writeTestFile(t, filepath.Join(sourcePath, "docs", "readme.md"), "docs\n")
	writeTestFile(t, filepath.Join(sourcePath, "src", "main.cpp"), "// src\n")

	// A stray file where docs/myaddon should be created makes the docs
	// copy fail without blocking the primary artifact.
	writeTestFile(t, filepath.Join(cfg.DocsDir(), "myaddon"), "stray\n")

	outcome := eng.installAddon(sourcePath, testRepoURL, "abc", "main", "", InstallOptions{})
	require.True(t, outcome.OK(), "outcome: %+v", outcome)
	assert.Contains(t, outcome.Message, "with warnings")
	assert.Contains(t, outcome.Message, "error copying docs")

	assert.FileExists(t, filepath.Join(cfg.AddonsDir(), "myaddon", "myaddon.lua"))
	require.NotNil(t, trk.GetPackage("myaddon", model.KindAddon))
}

func TestInstallAddonRejectsExistingForeignTarget(t *testing.T) {
	eng, trk, cfg := newTestEngine(t, newMockAPI(t))

	writeTestFile(t, filepath.Join(cfg.AddonsDir(), "solo", "solo.lua"), "-- old\n")
	trk.AddPackage("solo", model.KindAddon, &model.PackageRecord{
		Source:        "https://github.com/elsewhere/solo",
		InstallMethod: model.MethodGit,
	})

	sourcePath := t.TempDir()
	writeTestFile(t, filepath.Join(sourcePath, "solo", "solo.lua"), "-- new\n")

	outcome := eng.installAddon(sourcePath, testRepoURL, "abc", "main", "", InstallOptions{})
	require.Equal(t, model.OutcomeFailure, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, errors.ErrAlreadyExists)
}

func TestClearOrRejectExistingOfficialReplace(t *testing.T) {
	eng, trk, cfg := newTestEngine(t, newMockAPI(t))

	target := filepath.Join(cfg.AddonsDir(), "official")
	writeTestFile(t, filepath.Join(target, "official.lua"), "-- old\n")
	trk.AddPackage("official", model.KindAddon, &model.PackageRecord{
		Source:        testOfficialRepo,
		InstallMethod: model.MethodGit,
	})

	outcome := eng.clearOrRejectExisting(target, "official", model.KindAddon, testOfficialRepo)
	assert.Nil(t, outcome)
	assert.False(t, fsutil.DirExists(target))
}

func TestFindVariantDirs(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "x86", "plugin.dll"), "MZ")
	writeTestFile(t, filepath.Join(root, "x64", "plugin.dll"), "MZ")
	writeTestFile(t, filepath.Join(root, "docs", "readme.md"), "docs")
	writeTestFile(t, filepath.Join(root, ".git", "hidden.dll"), "MZ")

	variants := findVariantDirs(root)
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		names = append(names, v.name)
	}
	assert.ElementsMatch(t, []string{"x86", "x64"}, names)
}

func TestSelectVariant(t *testing.T) {
	eng, _, _ := newTestEngine(t, newMockAPI(t))
	variants := []variantDir{
		{name: "x86", dlls: []string{"x86/plugin.dll"}},
		{name: "x64", dlls: []string{"x64/plugin.dll"}},
	}

	selected, outcome := eng.selectVariant(variants, testRepoURL, "x64")
	require.Nil(t, outcome)
	assert.Equal(t, "x64", selected.name)

	_, outcome = eng.selectVariant(variants, testRepoURL, "arm")
	require.NotNil(t, outcome)
	assert.ErrorIs(t, outcome.Err, errors.ErrNotFound)

	selected, outcome = eng.selectVariant(nil, testRepoURL, "")
	assert.Nil(t, selected)
	assert.Nil(t, outcome)

	selected, outcome = eng.selectVariant(variants[:1], testRepoURL, "")
	require.Nil(t, outcome)
	assert.Equal(t, "x86", selected.name)

	_, outcome = eng.selectVariant(variants, testRepoURL, "")
	require.NotNil(t, outcome)
	assert.Equal(t, model.OutcomeRequiresVariantSelection, outcome.Kind)
}

func TestInstallGitPluginVariantFlow(t *testing.T) {
	eng, trk, cfg := newTestEngine(t, newMockAPI(t))

	repoPath := t.TempDir()
	writeTestFile(t, filepath.Join(repoPath, "x86", "myplugin.dll"), "MZ86")
	writeTestFile(t, filepath.Join(repoPath, "x64", "myplugin.dll"), "MZ64")

	outcome := eng.installGitPlugin(repoPath, testRepoURL, "abc", "main", InstallOptions{})
	require.Equal(t, model.OutcomeRequiresVariantSelection, outcome.Kind)
	assert.False(t, outcome.IsReleaseAsset)

	outcome = eng.installGitPlugin(repoPath, testRepoURL, "abc", "main", InstallOptions{PluginVariant: "x64"})
	require.True(t, outcome.OK(), "outcome: %+v", outcome)

	data, err := os.ReadFile(filepath.Join(cfg.PluginsDir(), "myplugin.dll"))
	require.NoError(t, err)
	assert.Equal(t, "MZ64", string(data))
	require.NotNil(t, trk.GetPackage("myplugin", model.KindPlugin))
}

func TestInstallGitPluginOfficialLayout(t *testing.T) {
	eng, trk, cfg := newTestEngine(t, newMockAPI(t))

	repoPath := t.TempDir()
	writeTestFile(t, filepath.Join(repoPath, "plugins", "foo.dll"), "MZ")

	outcome := eng.installGitPlugin(repoPath, testOfficialRepo, "abc", "main", InstallOptions{})
	require.True(t, outcome.OK(), "outcome: %+v", outcome)

	assert.FileExists(t, filepath.Join(cfg.PluginsDir(), "foo.dll"))
	record := trk.GetPackage("foo", model.KindPlugin)
	require.NotNil(t, record)
	assert.Equal(t, "abc", record.Commit)
}

func TestNewRecordMethods(t *testing.T) {
	eng, _, _ := newTestEngine(t, newMockAPI(t))

	git := eng.newRecord(testRepoURL, "abc", "main", "", "", "addons/x")
	assert.Equal(t, model.MethodGit, git.InstallMethod)
	assert.Equal(t, "main", git.Branch)
	assert.Empty(t, git.ReleaseTag)

	rel := eng.newRecord(testRepoURL, "", "", "v1", "x.zip", "plugins/x.dll")
	assert.Equal(t, model.MethodRelease, rel.InstallMethod)
	assert.Equal(t, "v1", rel.ReleaseTag)
	assert.Equal(t, "x.zip", rel.ReleaseAssetName)
	assert.Empty(t, rel.Commit)
}

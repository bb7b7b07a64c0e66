package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/github"
	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestUpdatePackageNotTracked(t *testing.T) {
	eng, _, _ := newTestEngine(t, newMockAPI(t))

	outcome := eng.UpdatePackage(context.Background(), "ghost", model.KindAddon, UpdateOptions{}, nil)
	require.Equal(t, model.OutcomeFailure, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, errors.ErrNotFound)
}

func TestUpdateManualPackageRequiresPayload(t *testing.T) {
	eng, trk, _ := newTestEngine(t, newMockAPI(t))

	trk.AddPackage("byhand", model.KindAddon, &model.PackageRecord{
		Source:        model.SourceUnknown,
		InstallMethod: model.MethodManual,
	})

	outcome := eng.UpdatePackage(context.Background(), "byhand", model.KindAddon, UpdateOptions{}, nil)
	require.Equal(t, model.OutcomeRequiresManualUpdate, outcome.Kind)
	assert.Equal(t, "manual", outcome.Reason)
	assert.Equal(t, "byhand", outcome.PackageName)
	assert.Equal(t, model.KindAddon, outcome.PackageKind)
}

func TestUpdateReleaseWithUnknownSourceRequiresPayload(t *testing.T) {
	eng, trk, _ := newTestEngine(t, newMockAPI(t))

	trk.AddPackage("orphan", model.KindPlugin, &model.PackageRecord{
		Source:        model.SourceUnknown,
		InstallMethod: model.MethodRelease,
	})

	outcome := eng.UpdatePackage(context.Background(), "orphan", model.KindPlugin, UpdateOptions{}, nil)
	require.Equal(t, model.OutcomeRequiresManualUpdate, outcome.Kind)
	assert.Equal(t, "unknown-source", outcome.Reason)
}

func TestUpdateGitPackageUpToDate(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, _ := newTestEngine(t, api)

	trk.AddPackage("fresh", model.KindAddon, &model.PackageRecord{
		Source:        testRepoURL,
		InstallMethod: model.MethodGit,
		Commit:        "abc123",
		Branch:        "main",
	})
	api.EXPECT().RemoteCommitHash(gomock.Any(), testRepoURL, "main", "").Return("abc123", nil)

	outcome := eng.UpdatePackage(context.Background(), "fresh", model.KindAddon, UpdateOptions{}, nil)
	require.True(t, outcome.OK(), "outcome: %+v", outcome)
	assert.True(t, outcome.UpToDate)
}

func TestUpdateGitPackageRateLimited(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, _ := newTestEngine(t, api)

	trk.AddPackage("throttled", model.KindAddon, &model.PackageRecord{
		Source:        testRepoURL,
		InstallMethod: model.MethodGit,
		Commit:        "abc123",
		Branch:        "main",
	})
	api.EXPECT().RemoteCommitHash(gomock.Any(), testRepoURL, "main", "").
		Return("", errors.ErrRateLimited)

	outcome := eng.UpdatePackage(context.Background(), "throttled", model.KindAddon, UpdateOptions{}, nil)
	require.Equal(t, model.OutcomeFailure, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, errors.ErrRateLimited)
}

func TestUpdateOfficialPackageScopedCommitLookup(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, _ := newTestEngine(t, api)

	trk.AddPackage("timestamp", model.KindAddon, &model.PackageRecord{
		Source:        testOfficialRepo,
		InstallMethod: model.MethodGit,
		Commit:        "abc123",
		Branch:        "main",
	})
	// Official installs compare against the commit touching just their
	// folder, not the repository head.
	api.EXPECT().RemoteCommitHash(gomock.Any(), testOfficialRepo, "main", "addons/timestamp").
		Return("abc123", nil)

	outcome := eng.UpdatePackage(context.Background(), "timestamp", model.KindAddon, UpdateOptions{}, nil)
	require.True(t, outcome.OK(), "outcome: %+v", outcome)
	assert.True(t, outcome.UpToDate)
}

func TestUpdateReleasePackageUpToDate(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, _ := newTestEngine(t, api)

	trk.AddPackage("pinned", model.KindAddon, &model.PackageRecord{
		Source:        testRepoURL,
		InstallMethod: model.MethodRelease,
		ReleaseTag:    "v2.1",
	})
	api.EXPECT().LatestRelease(gomock.Any(), testRepoURL).Return(&github.Release{TagName: "v2.1"}, nil)

	outcome := eng.UpdatePackage(context.Background(), "pinned", model.KindAddon, UpdateOptions{}, nil)
	require.True(t, outcome.OK(), "outcome: %+v", outcome)
	assert.True(t, outcome.UpToDate)
	assert.Contains(t, outcome.Message, "v2.1")
}

func TestUpdateReleasePackageReinstallsOnNewTag(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, cfg := newTestEngine(t, api)

	writeTestFile(t, filepath.Join(cfg.AddonsDir(), "myaddon", "myaddon.lua"), "-- old\n")
	trk.AddPackage("myaddon", model.KindAddon, &model.PackageRecord{
		Source:           testRepoURL,
		InstallMethod:    model.MethodRelease,
		ReleaseTag:       "v1.0",
		ReleaseAssetName: "myaddon.zip",
	})

	server := serveZip(t, map[string]string{"myaddon/myaddon.lua": "-- new\n"})
	release := &github.Release{
		TagName: "v2.0",
		Assets:  []github.Asset{{Name: "myaddon.zip", BrowserDownloadURL: server.URL + "/myaddon.zip"}},
	}
	// Freshness check, asset resolution, and tag lookup each hit the API.
	api.EXPECT().LatestRelease(gomock.Any(), testRepoURL).Return(release, nil).Times(3)

	outcome := eng.UpdatePackage(context.Background(), "myaddon", model.KindAddon, UpdateOptions{}, nil)
	require.True(t, outcome.OK(), "outcome: %+v", outcome)

	data, err := os.ReadFile(filepath.Join(cfg.AddonsDir(), "myaddon", "myaddon.lua"))
	require.NoError(t, err)
	assert.Equal(t, "-- new\n", string(data))

	record := trk.GetPackage("myaddon", model.KindAddon)
	require.NotNil(t, record)
	assert.Equal(t, "v2.0", record.ReleaseTag)
	assert.False(t, fsutil.DirExists(filepath.Join(cfg.AddonsDir(), "myaddon.backup")))
}

func TestUpdateReleaseFailureRestoresBackup(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, cfg := newTestEngine(t, api)

	writeTestFile(t, filepath.Join(cfg.AddonsDir(), "myaddon", "myaddon.lua"), "-- old\n")
	trk.AddPackage("myaddon", model.KindAddon, &model.PackageRecord{
		Source:           testRepoURL,
		InstallMethod:    model.MethodRelease,
		ReleaseTag:       "v1.0",
		ReleaseAssetName: "myaddon.zip",
	})

	// The freshness check sees a new tag; the reinstall then finds no
	// downloadable asset and fails.
	api.EXPECT().LatestRelease(gomock.Any(), testRepoURL).Return(&github.Release{TagName: "v2.0"}, nil).Times(2)

	outcome := eng.UpdatePackage(context.Background(), "myaddon", model.KindAddon, UpdateOptions{}, nil)
	require.Equal(t, model.OutcomeFailure, outcome.Kind)

	data, err := os.ReadFile(filepath.Join(cfg.AddonsDir(), "myaddon", "myaddon.lua"))
	require.NoError(t, err)
	assert.Equal(t, "-- old\n", string(data))

	record := trk.GetPackage("myaddon", model.KindAddon)
	require.NotNil(t, record)
	assert.Equal(t, "v1.0", record.ReleaseTag)
}

func TestUpdateVariantCheckpointRollsBack(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, cfg := newTestEngine(t, api)

	writeTestFile(t, filepath.Join(cfg.PluginsDir(), "myplugin.dll"), "MZ old")
	// A zipball install records no asset name, so nothing pre-selects
	// among the new release's competing zips.
	trk.AddPackage("myplugin", model.KindPlugin, &model.PackageRecord{
		Source:        testRepoURL,
		InstallMethod: model.MethodRelease,
		ReleaseTag:    "v1.0",
	})

	release := &github.Release{
		TagName: "v2.0",
		Assets: []github.Asset{
			{Name: "x86.zip", BrowserDownloadURL: "https://dl/x86.zip"},
			{Name: "x64.zip", BrowserDownloadURL: "https://dl/x64.zip"},
		},
	}
	api.EXPECT().LatestRelease(gomock.Any(), testRepoURL).Return(release, nil).Times(2)

	outcome := eng.UpdatePackage(context.Background(), "myplugin", model.KindPlugin, UpdateOptions{}, nil)
	require.Equal(t, model.OutcomeRequiresVariantSelection, outcome.Kind)
	assert.Equal(t, "myplugin", outcome.PackageName)
	assert.Equal(t, model.KindPlugin, outcome.PackageKind)
	assert.True(t, outcome.IsUpdate)

	// The old install is back in place, ready for the re-invocation.
	assert.True(t, fsutil.FileExists(filepath.Join(cfg.PluginsDir(), "myplugin.dll")))
	require.NotNil(t, trk.GetPackage("myplugin", model.KindPlugin))
}

func TestUpdateEntrypointCheckpointRollsBackAndRetries(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, cfg := newTestEngine(t, api)

	writeTestFile(t, filepath.Join(cfg.AddonsDir(), "alpha", "alpha.lua"), "-- old\n")
	trk.AddPackage("alpha", model.KindAddon, &model.PackageRecord{
		Source:        testRepoURL,
		InstallMethod: model.MethodRelease,
		ReleaseTag:    "v1.0",
	})

	// The new release ships two root lua files, so the reinstall cannot
	// pick an entrypoint on its own.
	server := serveZip(t, map[string]string{
		"alpha.lua": "-- new\n",
		"beta.lua":  "-- helper\n",
	})
	release := &github.Release{
		TagName: "v2.0",
		Assets:  []github.Asset{{Name: "alpha-v2.zip", BrowserDownloadURL: server.URL + "/alpha-v2.zip"}},
	}
	api.EXPECT().LatestRelease(gomock.Any(), testRepoURL).Return(release, nil).Times(6)

	outcome := eng.UpdatePackage(context.Background(), "alpha", model.KindAddon, UpdateOptions{}, nil)
	require.Equal(t, model.OutcomeRequiresEntrypointSelection, outcome.Kind)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, outcome.LuaFiles)
	assert.Equal(t, "alpha", outcome.PackageName)
	assert.Equal(t, model.KindAddon, outcome.PackageKind)
	assert.True(t, outcome.IsUpdate)

	// The old install is back in place, ready for the re-invocation.
	data, err := os.ReadFile(filepath.Join(cfg.AddonsDir(), "alpha", "alpha.lua"))
	require.NoError(t, err)
	assert.Equal(t, "-- old\n", string(data))
	assert.Equal(t, "v1.0", trk.GetPackage("alpha", model.KindAddon).ReleaseTag)

	outcome = eng.UpdatePackage(context.Background(), "alpha", model.KindAddon,
		UpdateOptions{SelectedEntrypoint: "alpha"}, nil)
	require.True(t, outcome.OK(), "outcome: %+v", outcome)

	data, err = os.ReadFile(filepath.Join(cfg.AddonsDir(), "alpha", "alpha.lua"))
	require.NoError(t, err)
	assert.Equal(t, "-- new\n", string(data))
	assert.Equal(t, "v2.0", trk.GetPackage("alpha", model.KindAddon).ReleaseTag)
	assert.False(t, fsutil.DirExists(filepath.Join(cfg.AddonsDir(), "alpha.backup")))
}

func TestUpdateWithManualPayload(t *testing.T) {
	eng, trk, cfg := newTestEngine(t, newMockAPI(t))

	writeTestFile(t, filepath.Join(cfg.AddonsDir(), "byhand", "byhand.lua"), "-- old\n")
	trk.AddPackage("byhand", model.KindAddon, &model.PackageRecord{
		Source:        model.SourceUnknown,
		InstallMethod: model.MethodManual,
	})

	source := filepath.Join(t.TempDir(), "byhand")
	writeTestFile(t, filepath.Join(source, "byhand.lua"), "-- new\n")

	outcome := eng.UpdatePackage(context.Background(), "byhand", model.KindAddon, UpdateOptions{},
		&model.ManualPayload{AddonPath: source})
	require.True(t, outcome.OK(), "outcome: %+v", outcome)

	data, err := os.ReadFile(filepath.Join(cfg.AddonsDir(), "byhand", "byhand.lua"))
	require.NoError(t, err)
	assert.Equal(t, "-- new\n", string(data))
}

func TestUpdateAllPartitionsOutcomes(t *testing.T) {
	api := newMockAPI(t)
	eng, trk, _ := newTestEngine(t, api)

	trk.AddPackage("fresh", model.KindAddon, &model.PackageRecord{
		Source:        testRepoURL,
		InstallMethod: model.MethodGit,
		Commit:        "abc",
		Branch:        "main",
	})
	trk.AddPackage("byhand", model.KindAddon, &model.PackageRecord{
		Source:        model.SourceUnknown,
		InstallMethod: model.MethodManual,
	})
	api.EXPECT().RemoteCommitHash(gomock.Any(), testRepoURL, "main", "").Return("abc", nil)

	result, err := eng.UpdateAll(context.Background(), model.KindAddon)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, result.Skipped)
	assert.Empty(t, result.Updated)
	assert.Contains(t, result.Failed, "byhand")
}

func TestUpdateAllHonorsCancellation(t *testing.T) {
	eng, trk, _ := newTestEngine(t, newMockAPI(t))

	trk.AddPackage("byhand", model.KindAddon, &model.PackageRecord{
		Source:        model.SourceUnknown,
		InstallMethod: model.MethodManual,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := eng.UpdateAll(ctx, model.KindAddon)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	eng, _, cfg := newTestEngine(t, newMockAPI(t))

	target := filepath.Join(cfg.AddonsDir(), "solo")
	writeTestFile(t, filepath.Join(target, "solo.lua"), "-- x\n")

	backup, err := eng.backupArtifact("solo", model.KindAddon, ".backup")
	require.NoError(t, err)
	assert.False(t, fsutil.DirExists(target))
	assert.True(t, fsutil.DirExists(backup))

	eng.restoreBackup("solo", model.KindAddon, backup)
	assert.True(t, fsutil.DirExists(target))
	assert.False(t, fsutil.DirExists(backup))

	// Nothing on disk means nothing to back up, which is not an error.
	backup, err = eng.backupArtifact("ghost", model.KindAddon, ".backup")
	require.NoError(t, err)
	assert.Empty(t, backup)
}

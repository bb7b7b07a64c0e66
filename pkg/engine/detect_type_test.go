package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/github"
	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDetectKindInPluginWins(t *testing.T) {
	eng, _, _ := newTestEngine(t, newMockAPI(t))

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "plugins", "both.dll"), "MZ")
	writeTestFile(t, filepath.Join(dir, "addons", "both", "both.lua"), "-- x\n")

	kind, err := eng.detectKindIn(dir, testRepoURL)
	require.NoError(t, err)
	assert.Equal(t, model.KindPlugin, kind)
}

func TestDetectKindInAmbiguousAddon(t *testing.T) {
	eng, _, _ := newTestEngine(t, newMockAPI(t))

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "first.lua"), "-- 1\n")
	writeTestFile(t, filepath.Join(dir, "second.lua"), "-- 2\n")

	kind, err := eng.detectKindIn(dir, testRepoURL)
	require.NoError(t, err)
	assert.Equal(t, model.KindAddon, kind)
}

func TestDetectKindInNothingFound(t *testing.T) {
	eng, _, _ := newTestEngine(t, newMockAPI(t))

	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "readme.md"), "docs\n")

	_, err := eng.detectKindIn(dir, testRepoURL)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestDetectPackageTypeFromReleaseBareDLL(t *testing.T) {
	api := newMockAPI(t)
	eng, _, _ := newTestEngine(t, api)

	api.EXPECT().LatestRelease(gomock.Any(), testRepoURL).Return(&github.Release{
		Assets: []github.Asset{{Name: "coolplugin.dll", BrowserDownloadURL: "https://dl/coolplugin.dll"}},
	}, nil)

	kind, err := eng.DetectPackageTypeFromRelease(context.Background(), testRepoURL)
	require.NoError(t, err)
	assert.Equal(t, model.KindPlugin, kind)
}

func TestDetectPackageTypeFromReleaseZip(t *testing.T) {
	api := newMockAPI(t)
	eng, _, _ := newTestEngine(t, api)

	server := serveZip(t, map[string]string{"myaddon/myaddon.lua": "-- x\n"})
	api.EXPECT().LatestRelease(gomock.Any(), testRepoURL).Return(&github.Release{
		Assets: []github.Asset{{Name: "myaddon.zip", BrowserDownloadURL: server.URL + "/myaddon.zip"}},
	}, nil)

	kind, err := eng.DetectPackageTypeFromRelease(context.Background(), testRepoURL)
	require.NoError(t, err)
	assert.Equal(t, model.KindAddon, kind)
}

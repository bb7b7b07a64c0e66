// Package engine implements the install, update, removal, and scan pipelines
// for game-client addons and plugins. Operations are synchronous and blocking;
// callers wanting responsiveness run them on their own goroutine and must
// serialize operations touching the same package name.
package engine

import (
	"path/filepath"
	"strings"

	"github.com/glorpus-work/ashpkg/pkg/archive"
	"github.com/glorpus-work/ashpkg/pkg/config"
	"github.com/glorpus-work/ashpkg/pkg/detect"
	"github.com/glorpus-work/ashpkg/pkg/download"
	"github.com/glorpus-work/ashpkg/pkg/github"
	"github.com/glorpus-work/ashpkg/pkg/gitrepo"
	"github.com/glorpus-work/ashpkg/pkg/tracker"
)

// Engine wires the collaborators of the package pipelines together.
type Engine struct {
	cfg      *config.Config
	tracker  tracker.Manager
	detector *detect.Detector
	git      *gitrepo.Client
	api      github.Client
	dl       *download.ManagerImpl
	archiver *archive.Manager
}

// New creates an Engine over an installation root described by cfg.
func New(cfg *config.Config, trk tracker.Manager, api github.Client) *Engine {
	return &Engine{
		cfg:      cfg,
		tracker:  trk,
		detector: detect.New(),
		git:      gitrepo.New(),
		api:      api,
		dl:       download.NewManager(cfg.HTTPTimeout),
		archiver: archive.NewManager(),
	}
}

// InstallOptions tunes a single install invocation. The selection fields are
// filled on re-invocation after a checkpoint outcome.
type InstallOptions struct {
	// TargetName narrows detection to a specific package inside the source
	// tree, used for monorepos and during updates.
	TargetName string
	// Branch selects the branch to clone; empty means the default branch.
	Branch string
	// Force skips conflict checking.
	Force bool
	// PluginVariant names the variant folder chosen after a
	// variant-selection checkpoint.
	PluginVariant string
	// SelectedEntrypoint names the lua entrypoint chosen after an
	// entrypoint-selection checkpoint; treated as the authoritative name.
	SelectedEntrypoint string
	// AssetURL and AssetName pin a specific release asset.
	AssetURL  string
	AssetName string
}

// UpdateOptions tunes a single update invocation.
type UpdateOptions struct {
	// AssetURL and AssetName pin a specific release asset for
	// release-installed packages.
	AssetURL  string
	AssetName string
	// PluginVariant names the variant folder chosen after a
	// variant-selection checkpoint surfaced by a previous update attempt.
	PluginVariant string
	// SelectedEntrypoint names the lua entrypoint chosen after an
	// entrypoint-selection checkpoint surfaced by a previous update attempt.
	SelectedEntrypoint string
}

func (e *Engine) isOfficial(url string) bool {
	return url != "" && strings.TrimRight(url, "/") == strings.TrimRight(e.cfg.OfficialRepo, "/")
}

func (e *Engine) addonDir(name string) string {
	return filepath.Join(e.cfg.AddonsDir(), name)
}

func (e *Engine) pluginDLL(name string) string {
	return filepath.Join(e.cfg.PluginsDir(), name+".dll")
}

// relToRoot converts an absolute path under the installation root into the
// forward-slash relative form recorded in the tracker.
func (e *Engine) relToRoot(path string) string {
	rel, err := filepath.Rel(e.cfg.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

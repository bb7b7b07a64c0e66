package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/ashpkg/internal/logger"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// ScanExisting registers the addons and plugins already present on disk,
// used on first launch against an existing installation. Git checkouts keep
// their detected metadata; everything else is classified against the
// official catalog as pre-installed or manual. When the catalog fetch itself
// fails the scan classifies optimistically as pre-installed, so a transient
// network error cannot mass-misclassify a healthy installation.
func (e *Engine) ScanExisting(ctx context.Context) *model.ScanResult {
	result := &model.ScanResult{}

	catalog, err := e.api.FetchCatalog(ctx, e.cfg.OfficialRepo, e.cfg.OfficialBranch)
	if err != nil {
		result.CatalogError = err.Error()
		logger.Warn("official catalog fetch failed, classifying optimistically", logger.Fields{"error": err.Error()})
	} else {
		result.CatalogOK = true
	}

	var officialAddons, officialPlugins map[string]bool
	if catalog != nil {
		officialAddons = lowerSet(catalog.Addons)
		officialPlugins = lowerSet(catalog.Plugins)
	}

	e.scanAddons(result, officialAddons)
	e.scanPlugins(result, officialPlugins)

	e.tracker.Save()
	return result
}

func lowerSet(names map[string]bool) map[string]bool {
	out := make(map[string]bool, len(names))
	for name := range names {
		out[strings.ToLower(name)] = true
	}
	return out
}

func (e *Engine) scanAddons(result *model.ScanResult, officialAddons map[string]bool) {
	entries, err := os.ReadDir(e.cfg.AddonsDir())
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		addonDir := filepath.Join(e.cfg.AddonsDir(), name)
		if !fsutil.FileExists(filepath.Join(addonDir, name+".lua")) {
			continue
		}
		if e.tracker.PackageExists(name, model.KindAddon) {
			continue
		}

		record := &model.PackageRecord{
			InstalledDate: time.Now(),
			Path:          e.relToRoot(addonDir),
		}
		e.classifyScanned(record, addonDir, name, model.KindAddon, officialAddons, result)

		e.tracker.AddPackage(name, model.KindAddon, record)
		result.AddonsFound++
	}
}

func (e *Engine) scanPlugins(result *model.ScanResult, officialPlugins map[string]bool) {
	entries, err := os.ReadDir(e.cfg.PluginsDir())
	if err != nil {
		return
	}
	pluginsCommit := e.installRootCommit("plugins")
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".dll") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if e.tracker.PackageExists(name, model.KindPlugin) {
			continue
		}
		dllPath := filepath.Join(e.cfg.PluginsDir(), entry.Name())

		record := &model.PackageRecord{
			InstalledDate: time.Now(),
			Path:          e.relToRoot(dllPath),
		}

		// A sibling checkout directory named after the plugin carries its
		// git identity.
		repoDir := filepath.Join(e.cfg.PluginsDir(), name)
		if fsutil.DirExists(repoDir) && e.applyGitMetadata(record, repoDir) {
			e.tracker.AddPackage(name, model.KindPlugin, record)
			result.PluginsFound++
			continue
		}

		if result.CatalogOK && !officialPlugins[strings.ToLower(name)] {
			record.InstallMethod = model.MethodManual
			record.Source = model.SourceUnknown
			result.ManualFlags = append(result.ManualFlags,
				fmt.Sprintf("Plugin %q flagged as manual: not listed in official catalog", name))
		} else {
			record.InstallMethod = model.MethodPreInstalled
			record.Source = e.cfg.OfficialRepo
			record.Branch = e.cfg.OfficialBranch
			record.Commit = pluginsCommit
		}

		e.tracker.AddPackage(name, model.KindPlugin, record)
		result.PluginsFound++
	}
}

func (e *Engine) classifyScanned(record *model.PackageRecord, dir, name string, kind model.PackageKind, official map[string]bool, result *model.ScanResult) {
	if e.applyGitMetadata(record, dir) {
		return
	}
	if result.CatalogOK && !official[strings.ToLower(name)] {
		record.InstallMethod = model.MethodManual
		record.Source = model.SourceUnknown
		result.ManualFlags = append(result.ManualFlags,
			fmt.Sprintf("Addon %q flagged as manual: not listed in official catalog", name))
		return
	}
	record.InstallMethod = model.MethodPreInstalled
	record.Source = e.cfg.OfficialRepo
	record.Branch = e.cfg.OfficialBranch
	if kind == model.KindAddon {
		record.Commit = e.installRootCommit("addons/" + name)
	}
}

// applyGitMetadata fills a record from a local git checkout, reporting
// whether the directory was one.
func (e *Engine) applyGitMetadata(record *model.PackageRecord, dir string) bool {
	if !e.git.IsRepo(dir) {
		return false
	}
	record.InstallMethod = model.MethodGit
	record.Source = model.SourceUnknown
	if origin, err := e.git.OriginURL(dir); err == nil {
		record.Source = origin
	}
	if branch, err := e.git.CurrentBranch(dir); err == nil && branch != "" {
		record.Branch = branch
	}
	if commit, err := e.git.HeadCommit(dir); err == nil {
		record.Commit = commit
		// The checkout's last commit is a closer install date than now.
		if when, err := e.git.CommitTime(dir, commit); err == nil {
			record.InstalledDate = when
		}
	}
	return true
}

// installRootCommit returns the newest commit touching relPath when the
// installation root itself is a git checkout, else empty.
func (e *Engine) installRootCommit(relPath string) string {
	if !e.git.IsRepo(e.cfg.Root) {
		return ""
	}
	commit, err := e.git.FolderLastCommit(e.cfg.Root, relPath)
	if err != nil {
		return ""
	}
	return commit
}

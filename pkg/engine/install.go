package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/ashpkg/internal/logger"
	"github.com/glorpus-work/ashpkg/pkg/detect"
	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// InstallFromGit clones url into an ephemeral directory and installs the
// addon(s) or plugin it contains.
func (e *Engine) InstallFromGit(ctx context.Context, url string, kind model.PackageKind, opts InstallOptions) *model.Outcome {
	if !kind.Valid() {
		return model.Failure(errors.Wrapf(errors.ErrInvalidPackageKind, "%q", kind))
	}

	tempDir, err := os.MkdirTemp("", "ashpkg-clone-*")
	if err != nil {
		return model.Failure(errors.Wrap(err, "failed to create temp dir"))
	}
	defer func() { _ = fsutil.RemoveAllSafe(tempDir) }()

	repoPath := filepath.Join(tempDir, "repo")
	info, err := e.git.Clone(ctx, url, opts.Branch, repoPath)
	if err != nil {
		return model.Failure(err)
	}
	logger.Debug("cloned repository", logger.Fields{"url": url, "commit": info.Commit})

	if kind == model.KindAddon {
		return e.installGitAddons(repoPath, url, info.Commit, info.Branch, opts)
	}
	return e.installGitPlugin(repoPath, url, info.Commit, info.Branch, opts)
}

func (e *Engine) installGitAddons(repoPath, url, commit, branch string, opts InstallOptions) *model.Outcome {
	allAddons := e.detector.DetectAllAddons(repoPath)

	if len(allAddons) > 1 && opts.TargetName == "" {
		return e.installMonorepo(allAddons, repoPath, url, commit, branch, opts.Force)
	}
	return e.installAddon(repoPath, url, commit, branch, "", opts)
}

// installMonorepo installs every addon found in a multi-addon tree. Failures
// in one addon do not block the others; the tracker is flushed once at the
// end.
func (e *Engine) installMonorepo(addons []detect.AddonDetection, repoPath, url, commit, branch string, force bool) *model.Outcome {
	if !force {
		allConflicts := map[string]*model.ConflictReport{}
		for _, addon := range addons {
			report := e.checkFileConflicts(repoPath, addon.Name, url)
			if report.HasConflicts() {
				allConflicts[addon.Name] = report
			}
		}
		if len(allConflicts) > 0 {
			return model.RequiresConfirmation(allConflicts)
		}
	}

	installed := 0
	var failed []string
	for _, addon := range addons {
		result := e.installSingleAddon(addon, url, commit, branch, "", repoPath, "")
		if result.OK() {
			installed++
		} else {
			failed = append(failed, fmt.Sprintf("%s: %v", addon.Name, result.Err))
		}
	}
	e.tracker.Save()

	if installed == 0 {
		return model.Failure(errors.Wrapf(errors.ErrNotFound, "failed to install addons: %s", strings.Join(failed, "; ")))
	}
	msg := fmt.Sprintf("Installed %d addon(s) from monorepo", installed)
	if len(failed) > 0 {
		msg += fmt.Sprintf(" (%d failed: %s)", len(failed), strings.Join(failed, "; "))
	}
	return model.Success(msg)
}

// installSingleAddon installs one already-detected addon from a monorepo
// tree. It does not flush the tracker; the caller saves once per batch.
func (e *Engine) installSingleAddon(addon detect.AddonDetection, url, commit, branch, releaseTag, repoRoot, releaseAssetName string) *model.Outcome {
	targetDir := e.addonDir(addon.Name)

	if outcome := e.clearOrRejectExisting(targetDir, addon.Name, model.KindAddon, url); outcome != nil {
		return outcome
	}

	if err := fsutil.CopyDir(addon.Path, targetDir); err != nil {
		return model.Failure(errors.Wrapf(err, "failed to copy addon %s", addon.Name))
	}

	record := e.newRecord(url, commit, branch, releaseTag, releaseAssetName, e.relToRoot(targetDir))
	if commit != "" && e.isOfficial(url) && repoRoot != "" {
		if folderCommit, err := e.git.FolderLastCommit(repoRoot, "addons/"+addon.Name); err == nil {
			record.Commit = folderCommit
		}
	}
	e.tracker.AddPackage(addon.Name, model.KindAddon, record)

	if repoRoot != "" {
		if errs := e.copyExtraFolders(repoRoot, addon.Name, model.KindAddon); len(errs) > 0 {
			return model.Success(fmt.Sprintf("Addon %q installed successfully (with warnings: %s)",
				addon.Name, strings.Join(errs, "; ")))
		}
	}
	return model.Success(fmt.Sprintf("Addon %q installed successfully", addon.Name))
}

// installAddon detects and installs a single addon from an extracted tree.
func (e *Engine) installAddon(sourcePath, url, commit, branch, releaseTag string, opts InstallOptions) *model.Outcome {
	addon := e.detector.DetectAddonStructure(sourcePath, opts.TargetName, url)

	if !addon.Found && addon.Ambiguous {
		if opts.SelectedEntrypoint == "" {
			return model.RequiresEntrypointSelection(addon.LuaFiles, url, commit != "", releaseTag != "")
		}
		addon.Found = true
		addon.Name = opts.SelectedEntrypoint
	}
	if !addon.Found {
		return model.Failure(errors.Wrap(errors.ErrNotFound, "could not detect addon structure"))
	}

	targetDir := e.addonDir(addon.Name)
	if outcome := e.clearOrRejectExisting(targetDir, addon.Name, model.KindAddon, url); outcome != nil {
		return outcome
	}

	if !opts.Force {
		report := e.checkFileConflicts(sourcePath, addon.Name, url)
		if report.HasConflicts() {
			return model.RequiresConfirmation(map[string]*model.ConflictReport{addon.Name: report})
		}
	}

	if err := fsutil.CopyDir(addon.Path, targetDir); err != nil {
		return model.Failure(errors.Wrapf(err, "failed to copy addon %s", addon.Name))
	}

	record := e.newRecord(url, commit, branch, releaseTag, opts.AssetName, e.relToRoot(targetDir))
	if commit != "" && e.isOfficial(url) {
		if folderCommit, err := e.git.FolderLastCommit(sourcePath, "addons/"+addon.Name); err == nil {
			record.Commit = folderCommit
		}
	}
	e.tracker.AddPackage(addon.Name, model.KindAddon, record)

	warnings := e.copyExtraFolders(sourcePath, addon.Name, model.KindAddon)
	e.tracker.Save()

	if len(warnings) > 0 {
		return model.Success(fmt.Sprintf("Addon %q installed successfully (with warnings: %s)",
			addon.Name, strings.Join(warnings, "; ")))
	}
	return model.Success(fmt.Sprintf("Addon %q installed successfully", addon.Name))
}

// installPlugin detects and installs a single plugin binary from an
// extracted tree.
func (e *Engine) installPlugin(sourcePath, url, commit, branch, releaseTag string, opts InstallOptions) *model.Outcome {
	plugin := e.detector.DetectPluginStructure(sourcePath, opts.TargetName)
	if !plugin.Found {
		return model.Failure(errors.Wrap(errors.ErrNotFound, "could not detect plugin structure (.dll file)"))
	}

	targetDLL := e.pluginDLL(plugin.Name)
	if outcome := e.clearOrRejectExisting(targetDLL, plugin.Name, model.KindPlugin, url); outcome != nil {
		return outcome
	}

	if err := fsutil.EnsureDir(e.cfg.PluginsDir()); err != nil {
		return model.Failure(err)
	}
	if err := fsutil.CopyFile(plugin.DLLPath, targetDLL); err != nil {
		return model.Failure(errors.Wrapf(err, "failed to copy plugin %s", plugin.Name))
	}

	record := e.newRecord(url, commit, branch, releaseTag, opts.AssetName, e.relToRoot(targetDLL))
	if commit != "" && e.isOfficial(url) {
		if folderCommit, err := e.git.FolderLastCommit(sourcePath, "plugins/"+plugin.Name+".dll"); err == nil {
			record.Commit = folderCommit
		}
	}
	e.tracker.AddPackage(plugin.Name, model.KindPlugin, record)

	warnings := e.copyExtraFolders(sourcePath, plugin.Name, model.KindPlugin)
	e.tracker.Save()

	if len(warnings) > 0 {
		return model.Success(fmt.Sprintf("Plugin %q installed successfully (with warnings: %s)",
			plugin.Name, strings.Join(warnings, "; ")))
	}
	return model.Success(fmt.Sprintf("Plugin %q installed successfully", plugin.Name))
}

// installGitPlugin handles the plugin side of a git install. The official
// repository uses its fixed plugins/ layout; any other repository is scanned
// for variant folders (directories holding .dll files, e.g. 32- and 64-bit
// builds) which require a selection when more than one exists.
func (e *Engine) installGitPlugin(repoPath, url, commit, branch string, opts InstallOptions) *model.Outcome {
	if e.isOfficial(url) {
		return e.installPlugin(repoPath, url, commit, branch, "", opts)
	}

	variants := findVariantDirs(repoPath)
	selected, outcome := e.selectVariant(variants, url, opts.PluginVariant)
	if outcome != nil {
		return outcome
	}
	if selected == nil {
		return e.installPlugin(repoPath, url, commit, branch, "", opts)
	}
	return e.installVariantDLL(selected.dlls[0], repoPath, url, commit, branch, "", "")
}

// variantDir is a directory in a source tree holding plugin binaries.
type variantDir struct {
	path string
	name string
	dlls []string
}

func findVariantDirs(root string) []variantDir {
	var variants []variantDir
	_ = filepath.WalkDir(root, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil
		}
		var dlls []string
		for _, f := range entries {
			if !f.IsDir() && strings.EqualFold(filepath.Ext(f.Name()), ".dll") {
				dlls = append(dlls, filepath.Join(path, f.Name()))
			}
		}
		if len(dlls) > 0 {
			variants = append(variants, variantDir{path: path, name: entry.Name(), dlls: dlls})
		}
		return nil
	})
	return variants
}

// selectVariant applies the variant-selection rules: an explicit choice must
// match, a single variant is used silently, multiple variants surface a
// checkpoint, and none means fall back to ordinary detection (nil, nil).
func (e *Engine) selectVariant(variants []variantDir, url, chosen string) (*variantDir, *model.Outcome) {
	if chosen != "" {
		for i := range variants {
			if variants[i].name == chosen {
				return &variants[i], nil
			}
		}
		return nil, model.Failure(errors.Wrapf(errors.ErrNotFound, "plugin variant %q not found", chosen))
	}
	switch len(variants) {
	case 0:
		return nil, nil
	case 1:
		return &variants[0], nil
	default:
		choices := make([]model.Variant, 0, len(variants))
		for _, v := range variants {
			choices = append(choices, model.Variant{Name: v.name})
		}
		return nil, model.RequiresVariantSelection(choices, url)
	}
}

// installVariantDLL installs the first binary of a chosen variant folder.
func (e *Engine) installVariantDLL(dllPath, sourceRoot, url, commit, branch, releaseTag, assetName string) *model.Outcome {
	name := strings.TrimSuffix(filepath.Base(dllPath), filepath.Ext(dllPath))
	targetDLL := e.pluginDLL(name)

	if outcome := e.clearOrRejectExisting(targetDLL, name, model.KindPlugin, url); outcome != nil {
		return outcome
	}
	if err := fsutil.EnsureDir(e.cfg.PluginsDir()); err != nil {
		return model.Failure(err)
	}
	if err := fsutil.CopyFile(dllPath, targetDLL); err != nil {
		return model.Failure(errors.Wrapf(err, "failed to copy plugin %s", name))
	}

	record := e.newRecord(url, commit, branch, releaseTag, assetName, e.relToRoot(targetDLL))
	e.tracker.AddPackage(name, model.KindPlugin, record)
	warnings := e.copyExtraFolders(sourceRoot, name, model.KindPlugin)
	e.tracker.Save()

	if len(warnings) > 0 {
		return model.Success(fmt.Sprintf("Plugin %q installed successfully (with warnings: %s)",
			name, strings.Join(warnings, "; ")))
	}
	return model.Success(fmt.Sprintf("Plugin %q installed successfully", name))
}

// clearOrRejectExisting enforces the overwrite policy for an existing target
// path: an official-repository re-install over its own earlier install
// replaces silently, anything else is rejected.
func (e *Engine) clearOrRejectExisting(target, name string, kind model.PackageKind, url string) *model.Outcome {
	if !fsutil.DirExists(target) && !fsutil.FileExists(target) {
		return nil
	}
	existing := e.tracker.GetPackage(name, kind)
	if existing != nil && e.isOfficial(existing.Source) && e.isOfficial(url) {
		if err := fsutil.RemoveAllSafe(target); err != nil {
			return model.Failure(errors.Wrapf(err, "failed to replace %s", target))
		}
		return nil
	}
	if kind == model.KindPlugin {
		return model.Failure(errors.Wrapf(errors.ErrAlreadyExists, "plugin %q.dll", name))
	}
	return model.Failure(errors.Wrapf(errors.ErrAlreadyExists, "addon %q", name))
}

func (e *Engine) newRecord(url, commit, branch, releaseTag, assetName, relPath string) *model.PackageRecord {
	method := model.MethodRelease
	if commit != "" {
		method = model.MethodGit
	}
	record := &model.PackageRecord{
		Source:        url,
		InstallMethod: method,
		InstalledDate: time.Now(),
		Path:          relPath,
	}
	if commit != "" {
		record.Commit = commit
		record.Branch = branch
	}
	if releaseTag != "" {
		record.ReleaseTag = releaseTag
	}
	if assetName != "" {
		record.ReleaseAssetName = assetName
	}
	return record
}

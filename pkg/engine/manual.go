package engine

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// ManualInstallAddon installs an addon from a user-selected local folder.
// The recorded source is unknown, so the package can only be updated by a
// later manual payload.
func (e *Engine) ManualInstallAddon(addonPath, docsPath, resourcesPath, expectedName, selectedEntrypoint string) *model.Outcome {
	if !fsutil.DirExists(addonPath) {
		return model.Failure(errors.Wrap(errors.ErrInvalidPath, "selected addon folder does not exist"))
	}

	addon := e.detector.DetectAddonStructure(addonPath, "", "")
	if !addon.Found && addon.Ambiguous {
		if selectedEntrypoint == "" {
			return model.RequiresEntrypointSelection(addon.LuaFiles, addonPath, false, false)
		}
		addon.Found = true
		addon.Name = selectedEntrypoint
	}
	if !addon.Found {
		return model.Failure(errors.Wrap(errors.ErrNotFound, "could not detect addon entry point in selected folder"))
	}

	if expectedName != "" && !strings.EqualFold(addon.Name, expectedName) {
		return model.Failure(errors.Wrapf(errors.ErrInvalidPath,
			"selected addon %q does not match %q", addon.Name, expectedName))
	}

	targetDir := e.addonDir(addon.Name)
	if fsutil.DirExists(targetDir) {
		return model.Failure(errors.Wrapf(errors.ErrAlreadyExists, "addon %q", addon.Name))
	}
	if err := guardNestedPaths(addon.Path, targetDir); err != nil {
		return model.Failure(err)
	}

	if err := fsutil.CopyDir(addon.Path, targetDir); err != nil {
		return model.Failure(errors.Wrapf(err, "failed to copy addon %s", addon.Name))
	}

	record := &model.PackageRecord{
		Source:        model.SourceUnknown,
		InstallMethod: model.MethodManual,
		InstalledDate: time.Now(),
		Path:          e.relToRoot(targetDir),
	}

	e.clearManualArtifacts(addon.Name)

	if docsPath != "" {
		docFiles, err := e.copyManualDocs(docsPath, addon.Name)
		if err != nil {
			_ = fsutil.RemoveAllSafe(targetDir)
			e.clearManualArtifacts(addon.Name)
			return model.Failure(errors.Wrap(err, "failed to copy documentation"))
		}
		record.DocFiles = docFiles
	}
	if resourcesPath != "" {
		resourceFiles, err := e.copyManualResources(resourcesPath, addon.Name)
		if err != nil {
			_ = fsutil.RemoveAllSafe(targetDir)
			e.clearManualArtifacts(addon.Name)
			return model.Failure(errors.Wrap(err, "failed to copy resources"))
		}
		record.ResourceFiles = resourceFiles
	}

	e.tracker.AddPackage(addon.Name, model.KindAddon, record)
	e.tracker.Save()

	outcome := model.Success(fmt.Sprintf("Addon %q installed manually", addon.Name))
	outcome.PackageName = addon.Name
	return outcome
}

// ManualInstallPlugin installs a plugin from a user-selected DLL file.
func (e *Engine) ManualInstallPlugin(dllPath, docsPath, resourcesPath, expectedName string) *model.Outcome {
	if !fsutil.FileExists(dllPath) || !strings.EqualFold(filepath.Ext(dllPath), ".dll") {
		return model.Failure(errors.Wrap(errors.ErrInvalidPath, "please select a valid .dll file"))
	}

	name := strings.TrimSuffix(filepath.Base(dllPath), filepath.Ext(dllPath))
	if expectedName != "" && !strings.EqualFold(name, expectedName) {
		return model.Failure(errors.Wrapf(errors.ErrInvalidPath,
			"selected plugin %q does not match %q", name, expectedName))
	}

	targetDLL := e.pluginDLL(name)
	if fsutil.FileExists(targetDLL) {
		return model.Failure(errors.Wrapf(errors.ErrAlreadyExists, "plugin %q.dll", name))
	}

	if err := fsutil.EnsureDir(e.cfg.PluginsDir()); err != nil {
		return model.Failure(err)
	}
	if err := fsutil.CopyFile(dllPath, targetDLL); err != nil {
		return model.Failure(errors.Wrapf(err, "failed to copy plugin %s", name))
	}

	record := &model.PackageRecord{
		Source:        model.SourceUnknown,
		InstallMethod: model.MethodManual,
		InstalledDate: time.Now(),
		Path:          e.relToRoot(targetDLL),
	}

	e.clearManualArtifacts(name)

	if docsPath != "" {
		docFiles, err := e.copyManualDocs(docsPath, name)
		if err != nil {
			_ = fsutil.RemoveAllSafe(targetDLL)
			e.clearManualArtifacts(name)
			return model.Failure(errors.Wrap(err, "failed to copy documentation"))
		}
		record.DocFiles = docFiles
	}
	if resourcesPath != "" {
		resourceFiles, err := e.copyManualResources(resourcesPath, name)
		if err != nil {
			_ = fsutil.RemoveAllSafe(targetDLL)
			e.clearManualArtifacts(name)
			return model.Failure(errors.Wrap(err, "failed to copy resources"))
		}
		record.ResourceFiles = resourceFiles
	}

	e.tracker.AddPackage(name, model.KindPlugin, record)
	e.tracker.Save()

	outcome := model.Success(fmt.Sprintf("Plugin %q installed manually", name))
	outcome.PackageName = name
	return outcome
}

// applyManualUpdate re-installs a package from user-selected files with the
// same backup-restore transaction as an automatic update.
func (e *Engine) applyManualUpdate(packageName string, kind model.PackageKind, payload *model.ManualPayload, snapshot *model.PackageRecord) *model.Outcome {
	if kind == model.KindAddon && payload.AddonPath == "" {
		return model.Failure(errors.Wrap(errors.ErrInvalidPath, "addon folder is required for manual update"))
	}
	if kind == model.KindPlugin && payload.DLLPath == "" {
		return model.Failure(errors.Wrap(errors.ErrInvalidPath, "plugin DLL is required for manual update"))
	}

	backupPath, err := e.backupArtifact(packageName, kind, ".manual.backup")
	if err != nil {
		return model.Failure(err)
	}
	e.clearManualArtifacts(packageName)

	var result *model.Outcome
	if kind == model.KindAddon {
		result = e.ManualInstallAddon(payload.AddonPath, payload.DocsPath, payload.ResourcesPath, packageName, "")
	} else {
		result = e.ManualInstallPlugin(payload.DLLPath, payload.DocsPath, payload.ResourcesPath, packageName)
	}

	if !result.OK() {
		e.restoreBackup(packageName, kind, backupPath)
		e.tracker.AddPackage(packageName, kind, snapshot)
		return result
	}

	e.discardBackup(backupPath)
	return model.Success(fmt.Sprintf("Package %q updated manually", packageName))
}

// clearManualArtifacts drops a package's docs and resources mirrors so a
// manual install starts from a clean slate.
func (e *Engine) clearManualArtifacts(packageName string) {
	for _, path := range []string{
		filepath.Join(e.cfg.DocsDir(), packageName),
		filepath.Join(e.cfg.ResourcesDir(), packageName),
	} {
		if fsutil.DirExists(path) {
			_ = fsutil.RemoveAllSafe(path)
		}
	}
}

// copyManualDocs mirrors a user-selected documentation folder into
// docs/<package>, avoiding double-nesting when the selection already carries
// a folder named after the package.
func (e *Engine) copyManualDocs(docsSource, packageName string) ([]string, error) {
	target := filepath.Join(e.cfg.DocsDir(), packageName)
	if err := e.copyManualFolder(docsSource, target, packageName); err != nil {
		return nil, err
	}
	return e.listOwnedFiles(target)
}

// copyManualResources mirrors a user-selected resources folder into
// resources/<package> with the same nesting rules as docs.
func (e *Engine) copyManualResources(resourcesSource, packageName string) ([]string, error) {
	if err := fsutil.EnsureDir(e.cfg.ResourcesDir()); err != nil {
		return nil, err
	}
	target := filepath.Join(e.cfg.ResourcesDir(), packageName)
	if err := e.copyManualFolder(resourcesSource, target, packageName); err != nil {
		return nil, err
	}
	return e.listOwnedFiles(target)
}

func (e *Engine) copyManualFolder(source, target, packageName string) error {
	if !fsutil.DirExists(source) {
		return errors.Wrap(errors.ErrInvalidPath, "selected path is not a folder")
	}

	// Prefer an inner folder matching the package name so the original
	// structure is preserved without double-nesting.
	sourceToCopy := ""
	subdirs := nonHiddenSubdirs(source)
	if len(subdirs) == 1 && strings.EqualFold(filepath.Base(subdirs[0]), packageName) {
		sourceToCopy = subdirs[0]
	} else if exact := filepath.Join(source, packageName); fsutil.DirExists(exact) {
		sourceToCopy = exact
	} else {
		for _, d := range subdirs {
			if strings.EqualFold(filepath.Base(d), packageName) {
				sourceToCopy = d
				break
			}
		}
	}

	if fsutil.DirExists(target) {
		if err := fsutil.RemoveAllSafe(target); err != nil {
			return err
		}
	}

	if sourceToCopy == "" {
		sourceToCopy = source
	}
	return fsutil.CopyDir(sourceToCopy, target)
}

func (e *Engine) listOwnedFiles(dir string) ([]string, error) {
	files, err := fsutil.ListFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for _, rel := range files {
		out = append(out, e.relToRoot(filepath.Join(dir, filepath.FromSlash(rel))))
	}
	return out, nil
}

// guardNestedPaths rejects copies where source and destination are the same
// directory or nested within each other, which would recurse forever.
func guardNestedPaths(source, target string) error {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return nil //nolint:nilerr // unresolvable paths fall through to the copy attempt
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return nil //nolint:nilerr
	}
	if absSource == absTarget {
		return errors.Wrap(errors.ErrAlreadyExists, "addon is already installed in the correct location")
	}
	rel, err := filepath.Rel(absSource, absTarget)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return errors.Wrap(errors.ErrInvalidPath, "source and destination are nested within each other")
	}
	rel, err = filepath.Rel(absTarget, absSource)
	if err == nil && !strings.HasPrefix(rel, "..") {
		return errors.Wrap(errors.ErrInvalidPath, "source and destination are nested within each other")
	}
	return nil
}

package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/ashpkg/internal/logger"
	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// RemovePackage deletes a package's primary artifact and its owned shared
// files, then drops the tracker record. A shared file is only deleted when
// no other tracked package claims the same path, and empty parent
// directories are pruned best-effort afterwards. Individual file-deletion
// failures are skipped rather than aborting the removal.
func (e *Engine) RemovePackage(packageName string, kind model.PackageKind) *model.Outcome {
	record := e.tracker.GetPackage(packageName, kind)
	if record == nil {
		return model.Failure(errors.Wrapf(errors.ErrNotFound, "package %q", packageName))
	}

	if kind == model.KindAddon {
		targetDir := e.addonDir(packageName)
		if fsutil.DirExists(targetDir) {
			if err := fsutil.RemoveAllSafe(targetDir); err != nil {
				return model.Failure(errors.Wrapf(err, "failed to remove %s", targetDir))
			}
		}
		e.removeOwnedFiles(packageName, record.LibFiles, e.libOwners(packageName), e.cfg.LibsDir())
	} else {
		targetDLL := e.pluginDLL(packageName)
		if fsutil.FileExists(targetDLL) {
			if err := os.Remove(targetDLL); err != nil {
				return model.Failure(errors.Wrapf(err, "failed to remove %s", targetDLL))
			}
		}
	}

	e.removeOwnedFiles(packageName, record.DocFiles, e.sharedOwners(packageName, docFilesOf), "")
	docsBase := filepath.Join(e.cfg.DocsDir(), packageName)
	if fsutil.DirExists(docsBase) {
		_ = fsutil.RemoveAllSafe(docsBase)
	}

	e.removeOwnedFiles(packageName, record.ResourceFiles, e.sharedOwners(packageName, resourceFilesOf), e.cfg.ResourcesDir())

	e.tracker.RemovePackage(packageName, kind)
	return model.Success(fmt.Sprintf("Package %q removed successfully", packageName))
}

// removeOwnedFiles deletes the files in owned that no other package claims.
// pruneRoot, when non-empty, bounds the upward empty-directory pruning.
func (e *Engine) removeOwnedFiles(packageName string, owned []string, claimedByOthers map[string]bool, pruneRoot string) {
	for _, rel := range owned {
		if claimedByOthers[rel] {
			continue
		}
		path := filepath.Join(e.cfg.Root, filepath.FromSlash(rel))
		if !fsutil.FileExists(path) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logger.Debug("skipping file removal", logger.Fields{"path": path, "error": err.Error()})
			continue
		}
		if pruneRoot != "" {
			fsutil.PruneEmptyParents(path, pruneRoot)
		}
	}
}

// libOwners collects every lib path claimed by other tracked addons.
func (e *Engine) libOwners(packageName string) map[string]bool {
	claimed := map[string]bool{}
	for name, rec := range e.tracker.GetAllPackages()[model.KindAddon] {
		if name == packageName {
			continue
		}
		for _, f := range rec.LibFiles {
			claimed[f] = true
		}
	}
	return claimed
}

// sharedOwners collects every doc or resource path claimed by other tracked
// packages of either kind.
func (e *Engine) sharedOwners(packageName string, filesOf func(*model.PackageRecord) []string) map[string]bool {
	claimed := map[string]bool{}
	for _, bucket := range e.tracker.GetAllPackages() {
		for name, rec := range bucket {
			if name == packageName {
				continue
			}
			for _, f := range filesOf(rec) {
				claimed[f] = true
			}
		}
	}
	return claimed
}

func docFilesOf(r *model.PackageRecord) []string      { return r.DocFiles }
func resourceFilesOf(r *model.PackageRecord) []string { return r.ResourceFiles }

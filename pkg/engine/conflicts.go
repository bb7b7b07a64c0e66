package engine

import (
	"path/filepath"

	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// checkFileConflicts reports which shared files an install would overwrite.
// Library conflicts are file-granular and name the owning package; a conflict
// is only flagged when the owner's recorded source differs from sourceURL, so
// re-installing from the same repository never conflicts with itself. Docs
// and resources conflicts are coarse: a folder for this package name already
// exists.
func (e *Engine) checkFileConflicts(sourcePath, packageName, sourceURL string) *model.ConflictReport {
	report := &model.ConflictReport{}

	libsSource := filepath.Join(sourcePath, "addons", "libs")
	if fsutil.DirExists(libsSource) && fsutil.DirExists(e.cfg.LibsDir()) {
		files, _ := fsutil.ListFiles(libsSource)
		allPackages := e.tracker.GetAllPackages()

		for _, rel := range files {
			targetFile := filepath.Join(e.cfg.LibsDir(), filepath.FromSlash(rel))
			if !fsutil.FileExists(targetFile) {
				continue
			}
			trackedPath := e.relToRoot(targetFile)

			for otherName, other := range allPackages[model.KindAddon] {
				if otherName == packageName {
					continue
				}
				if !containsPath(other.LibFiles, trackedPath) {
					continue
				}
				if other.Source != sourceURL {
					report.Libs = append(report.Libs, model.LibConflict{
						File:        rel,
						Owner:       otherName,
						OwnerSource: other.Source,
					})
				}
				break
			}
		}
	}

	if has, _ := e.detector.HasDocsFolder(sourcePath); has {
		if fsutil.DirExists(filepath.Join(e.cfg.DocsDir(), packageName)) {
			report.Docs = true
		}
	}
	if has, _ := e.detector.HasResourcesFolder(sourcePath); has {
		if fsutil.DirExists(filepath.Join(e.cfg.ResourcesDir(), packageName)) {
			report.Resources = true
		}
	}

	return report
}

func containsPath(list []string, path string) bool {
	for _, p := range list {
		if p == path {
			return true
		}
	}
	return false
}

package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// copyExtraFolders merges a source tree's shared library, documentation, and
// resource folders into the managed layout after the primary artifact is
// placed. Every file actually copied is recorded into the package's
// ownership lists; that bookkeeping is what makes later conflict detection
// and safe removal possible. Errors are collected as warnings rather than
// failing the install.
func (e *Engine) copyExtraFolders(sourcePath, packageName string, kind model.PackageKind) []string {
	var errs []string

	actual := sourcePath
	if subdirs := nonHiddenSubdirs(sourcePath); len(subdirs) == 1 {
		actual = subdirs[0]
	}

	multiFolderRepo := fsutil.DirExists(filepath.Join(actual, "addons")) ||
		fsutil.DirExists(filepath.Join(actual, "plugins"))

	if multiFolderRepo {
		if err := e.mergeLibs(actual, packageName); err != nil {
			errs = append(errs, fmt.Sprintf("error copying libs: %v", err))
		}
	}
	if err := e.copyDocs(actual, packageName, kind); err != nil {
		errs = append(errs, fmt.Sprintf("error copying docs: %v", err))
	}
	if err := e.copyResources(actual, packageName, kind); err != nil {
		errs = append(errs, fmt.Sprintf("error copying resources: %v", err))
	}
	return errs
}

// mergeLibs copies shared library files individually into the managed
// addons/libs tree. Files are merged, never replaced wholesale, because
// multiple addons may share library files.
func (e *Engine) mergeLibs(actual, packageName string) error {
	libsSource := filepath.Join(actual, "addons", "libs")
	if !fsutil.DirExists(libsSource) {
		return nil
	}
	if err := fsutil.EnsureDir(e.cfg.LibsDir()); err != nil {
		return err
	}

	files, err := fsutil.ListFiles(libsSource)
	if err != nil {
		return err
	}

	var libFiles []string
	for _, rel := range files {
		src := filepath.Join(libsSource, filepath.FromSlash(rel))
		dst := filepath.Join(e.cfg.LibsDir(), filepath.FromSlash(rel))
		if err := fsutil.EnsureDir(filepath.Dir(dst)); err != nil {
			return err
		}
		if err := fsutil.CopyFile(src, dst); err != nil {
			return err
		}
		libFiles = append(libFiles, e.relToRoot(dst))
	}

	if len(libFiles) > 0 {
		if rec := e.tracker.GetPackage(packageName, model.KindAddon); rec != nil {
			rec.LibFiles = libFiles
		}
	}
	return nil
}

// copyDocs mirrors a source docs folder into docs/<package>. When the source
// tree hosts multiple packages, a name-variant subfolder scopes the copy to
// this package; otherwise the whole docs folder is taken.
func (e *Engine) copyDocs(actual, packageName string, kind model.PackageKind) error {
	found, docsLocation := e.detector.HasDocsFolder(actual)
	if !found {
		return nil
	}

	sourceToCopy := docsLocation
	if variant := nameVariantSubdir(docsLocation, packageName); variant != "" {
		sourceToCopy = variant
	}

	targetDocs := filepath.Join(e.cfg.DocsDir(), packageName)
	if fsutil.DirExists(targetDocs) {
		if err := fsutil.RemoveAllSafe(targetDocs); err != nil {
			return err
		}
	}
	if err := fsutil.CopyDir(sourceToCopy, targetDocs); err != nil {
		return err
	}

	files, err := fsutil.ListFiles(targetDocs)
	if err != nil {
		return err
	}
	var docFiles []string
	for _, rel := range files {
		docFiles = append(docFiles, e.relToRoot(filepath.Join(targetDocs, filepath.FromSlash(rel))))
	}
	if len(docFiles) > 0 {
		if rec := e.tracker.GetPackage(packageName, kind); rec != nil {
			rec.DocFiles = docFiles
		}
	}
	return nil
}

// copyResources mirrors a source resources folder. With a name-variant
// subfolder present the copy is scoped to resources/<package>; without one,
// each source subfolder is merged into the shared resources tree under its
// own name.
func (e *Engine) copyResources(actual, packageName string, kind model.PackageKind) error {
	found, resLocation := e.detector.HasResourcesFolder(actual)
	if !found {
		return nil
	}
	if err := fsutil.EnsureDir(e.cfg.ResourcesDir()); err != nil {
		return err
	}

	var resourceFiles []string

	if variant := nameVariantSubdir(resLocation, packageName); variant != "" {
		targetResources := filepath.Join(e.cfg.ResourcesDir(), packageName)
		if fsutil.DirExists(targetResources) {
			if err := fsutil.RemoveAllSafe(targetResources); err != nil {
				return err
			}
		}
		if err := fsutil.CopyDir(variant, targetResources); err != nil {
			return err
		}
		files, err := fsutil.ListFiles(targetResources)
		if err != nil {
			return err
		}
		for _, rel := range files {
			resourceFiles = append(resourceFiles, e.relToRoot(filepath.Join(targetResources, filepath.FromSlash(rel))))
		}
	} else {
		for _, subdir := range nonHiddenSubdirs(resLocation) {
			targetSubdir := filepath.Join(e.cfg.ResourcesDir(), filepath.Base(subdir))
			if fsutil.DirExists(targetSubdir) {
				files, err := fsutil.ListFiles(subdir)
				if err != nil {
					return err
				}
				for _, rel := range files {
					dst := filepath.Join(targetSubdir, filepath.FromSlash(rel))
					if err := fsutil.EnsureDir(filepath.Dir(dst)); err != nil {
						return err
					}
					if err := fsutil.CopyFile(filepath.Join(subdir, filepath.FromSlash(rel)), dst); err != nil {
						return err
					}
					resourceFiles = append(resourceFiles, e.relToRoot(dst))
				}
			} else {
				if err := fsutil.CopyDir(subdir, targetSubdir); err != nil {
					return err
				}
				files, err := fsutil.ListFiles(targetSubdir)
				if err != nil {
					return err
				}
				for _, rel := range files {
					resourceFiles = append(resourceFiles, e.relToRoot(filepath.Join(targetSubdir, filepath.FromSlash(rel))))
				}
			}
		}
	}

	if len(resourceFiles) > 0 {
		if rec := e.tracker.GetPackage(packageName, kind); rec != nil {
			rec.ResourceFiles = resourceFiles
		}
	}
	return nil
}

// nameVariantSubdir finds a subfolder of dir matching the package name in
// any of its common case variants.
func nameVariantSubdir(dir, packageName string) string {
	for _, candidate := range []string{
		packageName,
		strings.ToLower(packageName),
		strings.ToUpper(packageName),
		titleCase(packageName),
	} {
		path := filepath.Join(dir, candidate)
		if fsutil.DirExists(path) {
			return path
		}
	}
	return ""
}

func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

func nonHiddenSubdirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			dirs = append(dirs, filepath.Join(root, entry.Name()))
		}
	}
	return dirs
}

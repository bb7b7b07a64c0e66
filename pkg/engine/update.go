package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glorpus-work/ashpkg/internal/logger"
	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// UpdatePackage refreshes an installed package from its recorded source.
// Packages that are fresh short-circuit to an up-to-date success; stale ones
// go through a backup-swap-verify-rollback transaction so a failed update
// leaves the previous files and tracker record intact. manualPayload drives
// a manual re-install for packages that cannot be auto-refreshed.
func (e *Engine) UpdatePackage(ctx context.Context, packageName string, kind model.PackageKind, opts UpdateOptions, manualPayload *model.ManualPayload) *model.Outcome {
	record := e.tracker.GetPackage(packageName, kind)
	if record == nil {
		return model.Failure(errors.Wrapf(errors.ErrNotFound, "package %q", packageName))
	}

	sourceURL := record.Source
	branch := record.Branch
	if branch == "" {
		branch = e.cfg.OfficialBranch
	}
	snapshot := record.Clone()
	preInstalled := record.InstallMethod == model.MethodPreInstalled || record.Source == string(model.MethodPreInstalled)

	if manualPayload != nil {
		return e.applyManualUpdate(packageName, kind, manualPayload, snapshot)
	}

	if record.InstallMethod == model.MethodManual ||
		(record.InstallMethod == model.MethodRelease && (sourceURL == "" || sourceURL == model.SourceUnknown)) {
		reason := "manual"
		if record.InstallMethod != model.MethodManual {
			reason = "unknown-source"
		}
		return model.RequiresManualUpdate(packageName, kind, reason)
	}

	if preInstalled {
		sourceURL = e.cfg.OfficialRepo
	}
	if sourceURL == "" {
		return model.Failure(errors.Wrap(errors.ErrNotFound, "package source URL not found"))
	}

	// Pre-installed packages are compared byte-for-byte against the
	// upstream tree; no content change means no update, but the recorded
	// commit hash is refreshed opportunistically.
	if preInstalled && !e.compareWithRemoteFiles(ctx, packageName, kind, sourceURL, branch) {
		subPath := officialSubPath(packageName, kind)
		if sha, err := e.api.RemoteCommitHash(ctx, sourceURL, branch, subPath); err == nil && sha != "" {
			record.Commit = sha
			e.tracker.AddPackage(packageName, kind, record)
		}
		return model.UpToDate(fmt.Sprintf("Package %q is already up-to-date", packageName))
	}

	if !preInstalled && record.InstallMethod == model.MethodGit && record.Commit != "" {
		subPath := ""
		if e.isOfficial(sourceURL) {
			subPath = officialSubPath(packageName, kind)
		}
		remoteCommit, err := e.api.RemoteCommitHash(ctx, sourceURL, branch, subPath)
		if err != nil {
			if stderrors.Is(err, errors.ErrRateLimited) {
				return model.Failure(err)
			}
			// Lookup failures fall through to a full reinstall.
			logger.Debug("remote commit lookup failed", logger.Fields{"package": packageName, "error": err.Error()})
		} else if remoteCommit == record.Commit {
			return model.UpToDate(fmt.Sprintf("Package %q is already up-to-date", packageName))
		}
	}

	if record.InstallMethod == model.MethodRelease && opts.AssetURL == "" && record.ReleaseTag != "" {
		latestTag, err := e.latestReleaseTag(ctx, sourceURL)
		if err != nil {
			return model.Failure(err)
		}
		if latestTag != model.SourceUnknown && latestTag == record.ReleaseTag {
			return model.UpToDate(fmt.Sprintf("Package %q is already up-to-date (release %s)", packageName, record.ReleaseTag))
		}
	}

	backupPath, err := e.backupArtifact(packageName, kind, ".backup")
	if err != nil {
		return model.Failure(err)
	}

	var result *model.Outcome
	if preInstalled || record.InstallMethod == model.MethodGit {
		installBranch := ""
		if e.isOfficial(sourceURL) {
			installBranch = e.cfg.OfficialBranch
		}
		result = e.InstallFromGit(ctx, sourceURL, kind, InstallOptions{
			TargetName:         packageName,
			Branch:             installBranch,
			PluginVariant:      opts.PluginVariant,
			SelectedEntrypoint: opts.SelectedEntrypoint,
		})
	} else {
		assetName := opts.AssetName
		if assetName == "" {
			assetName = record.ReleaseAssetName
		}
		result = e.InstallFromRelease(ctx, sourceURL, kind, InstallOptions{
			AssetURL:           opts.AssetURL,
			AssetName:          assetName,
			SelectedEntrypoint: opts.SelectedEntrypoint,
		})
	}

	if result.Kind == model.OutcomeRequiresVariantSelection ||
		result.Kind == model.OutcomeRequiresEntrypointSelection {
		// Roll back so a later re-invocation starts from the old state,
		// then tag the checkpoint with the package identity.
		e.restoreBackup(packageName, kind, backupPath)
		e.tracker.AddPackage(packageName, kind, snapshot)
		result.PackageName = packageName
		result.PackageKind = kind
		result.IsUpdate = true
		return result
	}

	if !result.OK() {
		e.restoreBackup(packageName, kind, backupPath)
		e.tracker.AddPackage(packageName, kind, snapshot)
		if result.Kind == model.OutcomeFailure {
			return model.Failure(errors.Wrapf(result.Err, "update of %q failed", packageName))
		}
		return result
	}

	e.discardBackup(backupPath)

	// An update must never silently reclassify a bundled package as a
	// third-party git install.
	if preInstalled {
		if updated := e.tracker.GetPackage(packageName, kind); updated != nil {
			updated.InstallMethod = model.MethodPreInstalled
			e.tracker.AddPackage(packageName, kind, updated)
		}
	}

	return model.Success(fmt.Sprintf("Package %q updated successfully", packageName))
}

// UpdateAll runs a sequential batch update. The loop is deliberately not a
// parallel fan-out: the backup-path naming assumes per-package exclusivity
// and sequential calls keep API rate-limit consumption predictable.
// Cancellation is checked between items, never mid-operation.
func (e *Engine) UpdateAll(ctx context.Context, kind model.PackageKind) (*model.BatchUpdateResult, error) {
	result := &model.BatchUpdateResult{Failed: map[string]string{}}

	all := e.tracker.GetAllPackages()
	for name := range all[kind] {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		outcome := e.UpdatePackage(ctx, name, kind, UpdateOptions{}, nil)
		switch {
		case outcome.OK() && outcome.UpToDate:
			result.Skipped = append(result.Skipped, name)
		case outcome.OK():
			result.Updated = append(result.Updated, name)
		case outcome.NeedsInput():
			result.Failed[name] = fmt.Sprintf("requires attention: %s", outcome.Kind)
		default:
			result.Failed[name] = outcome.Err.Error()
		}
	}
	return result, nil
}

// backupArtifact moves the primary artifact aside. A stale backup from a
// previous failed attempt is purged first.
func (e *Engine) backupArtifact(packageName string, kind model.PackageKind, suffix string) (string, error) {
	var target, backup string
	if kind == model.KindAddon {
		target = e.addonDir(packageName)
		backup = target + suffix
	} else {
		target = e.pluginDLL(packageName)
		backup = target + suffix
	}

	if !fsutil.DirExists(target) && !fsutil.FileExists(target) {
		return "", nil
	}
	if fsutil.DirExists(backup) || fsutil.FileExists(backup) {
		if err := fsutil.RemoveAllSafe(backup); err != nil {
			return "", errors.Wrapf(err, "failed to purge stale backup %s", backup)
		}
	}
	if err := fsutil.Move(target, backup); err != nil {
		return "", errors.Wrapf(err, "failed to back up %s", target)
	}
	return backup, nil
}

func (e *Engine) restoreBackup(packageName string, kind model.PackageKind, backupPath string) {
	if backupPath == "" {
		return
	}
	if !fsutil.DirExists(backupPath) && !fsutil.FileExists(backupPath) {
		return
	}

	var target string
	if kind == model.KindAddon {
		target = e.addonDir(packageName)
	} else {
		target = e.pluginDLL(packageName)
	}
	if fsutil.DirExists(target) || fsutil.FileExists(target) {
		_ = fsutil.RemoveAllSafe(target)
	}
	if err := fsutil.Move(backupPath, target); err != nil {
		logger.Warn("failed to restore backup", logger.Fields{"backup": backupPath, "error": err.Error()})
	}
}

func (e *Engine) discardBackup(backupPath string) {
	if backupPath == "" {
		return
	}
	_ = fsutil.RemoveAllSafe(backupPath)
}

// compareWithRemoteFiles reports whether a pre-installed package's local
// files differ from the upstream official tree. Comparison errors report
// stale so a spurious match never suppresses a real update.
func (e *Engine) compareWithRemoteFiles(ctx context.Context, packageName string, kind model.PackageKind, sourceURL, branch string) bool {
	if !e.isOfficial(sourceURL) {
		return true
	}

	tempDir, err := os.MkdirTemp("", "ashpkg-compare-*")
	if err != nil {
		return true
	}
	defer func() { _ = fsutil.RemoveAllSafe(tempDir) }()

	repoPath := filepath.Join(tempDir, "repo")
	if _, err := e.git.ShallowClone(ctx, sourceURL, branch, repoPath); err != nil {
		return true
	}

	if kind == model.KindAddon {
		remoteDir := filepath.Join(repoPath, "addons", packageName)
		localDir := e.addonDir(packageName)
		if !fsutil.DirExists(remoteDir) || !fsutil.DirExists(localDir) {
			return true
		}
		return directoriesDiffer(localDir, remoteDir)
	}

	remoteDLL := filepath.Join(repoPath, "plugins", packageName+".dll")
	localDLL := e.pluginDLL(packageName)
	if !fsutil.FileExists(remoteDLL) || !fsutil.FileExists(localDLL) {
		return true
	}
	return filesDiffer(localDLL, remoteDLL)
}

// directoriesDiffer compares two trees by file list and content digest.
func directoriesDiffer(localDir, remoteDir string) bool {
	localFiles, err := fsutil.ListFiles(localDir)
	if err != nil {
		return true
	}
	remoteFiles, err := fsutil.ListFiles(remoteDir)
	if err != nil {
		return true
	}
	if len(localFiles) != len(remoteFiles) {
		return true
	}

	remoteSet := make(map[string]bool, len(remoteFiles))
	for _, f := range remoteFiles {
		remoteSet[f] = true
	}
	for _, rel := range localFiles {
		if !remoteSet[rel] {
			return true
		}
		if filesDiffer(
			filepath.Join(localDir, filepath.FromSlash(rel)),
			filepath.Join(remoteDir, filepath.FromSlash(rel)),
		) {
			return true
		}
	}
	return false
}

func filesDiffer(a, b string) bool {
	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil || infoA.Size() != infoB.Size() {
		return true
	}
	hashA, errA := fsutil.FileMD5(a)
	hashB, errB := fsutil.FileMD5(b)
	if errA != nil || errB != nil {
		return true
	}
	return hashA != hashB
}

// officialSubPath is the path of a package inside the official repository.
func officialSubPath(packageName string, kind model.PackageKind) string {
	if kind == model.KindAddon {
		return "addons/" + packageName
	}
	return "plugins/" + packageName + ".dll"
}

package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/ashpkg/internal/logger"
	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// DetectPackageType shallow-clones url and inspects the checkout to decide
// whether it holds a plugin or an addon. Plugins win when both are present.
// An ambiguous addon layout still counts as an addon.
func (e *Engine) DetectPackageType(ctx context.Context, url string) (model.PackageKind, error) {
	tempDir, err := os.MkdirTemp("", "ashpkg-detect-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp dir")
	}
	defer func() { _ = fsutil.RemoveAllSafe(tempDir) }()

	if _, err := e.git.ShallowClone(ctx, url, "", tempDir); err != nil {
		return "", errors.Wrapf(err, "failed to clone %s", url)
	}

	return e.detectKindIn(tempDir, url)
}

// DetectPackageTypeFromRelease resolves the latest release of url and decides
// the package kind from its best asset. A bare .dll asset is a plugin without
// any download; anything else is fetched and extracted first.
func (e *Engine) DetectPackageTypeFromRelease(ctx context.Context, url string) (model.PackageKind, error) {
	resolved, err := e.resolveReleaseAsset(ctx, url, "")
	if err != nil {
		return "", err
	}
	assetURL, assetName := resolved.url, resolved.name
	if len(resolved.variants) > 0 {
		// Competing variants almost always package the same kind; the
		// first one is enough to classify.
		assetURL, assetName = resolved.variants[0].URL, resolved.variants[0].Name
	}

	if strings.HasSuffix(strings.ToLower(assetName), ".dll") {
		return model.KindPlugin, nil
	}

	tempDir, err := os.MkdirTemp("", "ashpkg-detect-*")
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp dir")
	}
	defer func() { _ = fsutil.RemoveAllSafe(tempDir) }()

	archivePath, err := e.dl.Fetch(ctx, assetURL, tempDir, assetName)
	if err != nil {
		return "", err
	}

	extractDir := filepath.Join(tempDir, "extracted")
	if err := fsutil.EnsureDir(extractDir); err != nil {
		return "", err
	}
	if err := e.archiver.ExtractAll(ctx, archivePath, extractDir); err != nil {
		return "", errors.Wrap(err, "failed to extract release asset")
	}

	return e.detectKindIn(extractDir, url)
}

func (e *Engine) detectKindIn(dir, url string) (model.PackageKind, error) {
	if plugin := e.detector.DetectPluginStructure(dir, ""); plugin.Found {
		logger.Debug("detected plugin package", logger.Fields{"url": url, "name": plugin.Name})
		return model.KindPlugin, nil
	}
	addon := e.detector.DetectAddonStructure(dir, "", url)
	if addon.Found || addon.Ambiguous {
		logger.Debug("detected addon package", logger.Fields{"url": url, "name": addon.Name})
		return model.KindAddon, nil
	}
	return "", errors.Wrapf(errors.ErrNotFound, "no addon or plugin found in %s", url)
}

package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// assetResolution is the result of picking a download from a release.
type assetResolution struct {
	url  string
	name string
	// variants is set instead of url/name when several zip assets compete
	// and no preference decides between them.
	variants []model.Variant
}

// InstallFromRelease downloads the best-matching asset of the latest release
// of url and installs the addon or plugin it contains. A bare .dll asset is
// installed directly as a plugin, bypassing extraction.
func (e *Engine) InstallFromRelease(ctx context.Context, repoURL string, kind model.PackageKind, opts InstallOptions) *model.Outcome {
	if !kind.Valid() {
		return model.Failure(errors.Wrapf(errors.ErrInvalidPackageKind, "%q", kind))
	}

	var resolved *assetResolution
	if opts.AssetURL != "" {
		name := opts.AssetName
		if name == "" {
			name = assetNameFromURL(opts.AssetURL)
		}
		resolved = &assetResolution{url: opts.AssetURL, name: name}
	} else {
		var err error
		resolved, err = e.resolveReleaseAsset(ctx, repoURL, opts.AssetName)
		if err != nil {
			return model.Failure(err)
		}
	}
	if len(resolved.variants) > 0 {
		outcome := model.RequiresVariantSelection(resolved.variants, repoURL)
		outcome.IsReleaseAsset = true
		return outcome
	}

	tempDir, err := os.MkdirTemp("", "ashpkg-release-*")
	if err != nil {
		return model.Failure(errors.Wrap(err, "failed to create temp dir"))
	}
	defer func() { _ = fsutil.RemoveAllSafe(tempDir) }()

	assetPath, err := e.dl.Fetch(ctx, resolved.url, tempDir, "release.zip")
	if err != nil {
		return model.Failure(err)
	}

	if strings.HasSuffix(strings.ToLower(resolved.name), ".dll") {
		if kind != model.KindPlugin {
			return model.Failure(errors.Wrap(errors.ErrInvalidPath,
				"cannot install addon from .dll file, expected .zip archive"))
		}
		releaseTag := e.releaseTag(ctx, repoURL)
		return e.installBareDLL(assetPath, resolved.name, repoURL, releaseTag)
	}

	extractPath := filepath.Join(tempDir, "extracted")
	if err := e.archiver.ExtractAll(ctx, assetPath, extractPath); err != nil {
		return model.Failure(err)
	}

	releaseTag := e.releaseTag(ctx, repoURL)
	opts.AssetName = resolved.name

	if kind == model.KindAddon {
		return e.installAddon(extractPath, repoURL, "", "", releaseTag, opts)
	}

	variants := findVariantDirs(extractPath)
	selected, outcome := e.selectVariant(variants, repoURL, opts.PluginVariant)
	if outcome != nil {
		return outcome
	}
	if selected == nil {
		return e.installPlugin(extractPath, repoURL, "", "", releaseTag, opts)
	}
	return e.installVariantDLL(selected.dlls[0], extractPath, repoURL, "", "", releaseTag, resolved.name)
}

// installBareDLL installs a release asset that is itself a plugin binary.
func (e *Engine) installBareDLL(assetPath, assetName, repoURL, releaseTag string) *model.Outcome {
	name := strings.TrimSuffix(assetName, filepath.Ext(assetName))
	targetDLL := e.pluginDLL(name)

	if outcome := e.clearOrRejectExisting(targetDLL, name, model.KindPlugin, repoURL); outcome != nil {
		return outcome
	}
	if err := fsutil.EnsureDir(e.cfg.PluginsDir()); err != nil {
		return model.Failure(err)
	}
	if err := fsutil.CopyFile(assetPath, targetDLL); err != nil {
		return model.Failure(errors.Wrapf(err, "failed to copy plugin %s", name))
	}

	record := e.newRecord(repoURL, "", "", releaseTag, assetName, e.relToRoot(targetDLL))
	e.tracker.AddPackage(name, model.KindPlugin, record)
	e.tracker.Save()

	return model.Success(fmt.Sprintf("Plugin %q installed successfully", name))
}

// resolveReleaseAsset picks a download from the latest release. Zip assets
// are preferred; a preferred name is matched exactly, then by token-overlap
// score, then by substring. Several competing zips without a preference are
// surfaced as variants. With no zips, the first asset of any type is used,
// and the auto-generated source zipball is the last resort.
func (e *Engine) resolveReleaseAsset(ctx context.Context, repoURL, preferredName string) (*assetResolution, error) {
	release, err := e.api.LatestRelease(ctx, repoURL)
	if err != nil {
		return nil, err
	}

	var zipAssets []int
	for i, asset := range release.Assets {
		if strings.HasSuffix(strings.ToLower(asset.Name), ".zip") {
			zipAssets = append(zipAssets, i)
		}
	}

	if preferredName != "" && len(zipAssets) > 0 {
		normalized := strings.ToLower(preferredName)
		for _, i := range zipAssets {
			if strings.ToLower(release.Assets[i].Name) == normalized {
				return &assetResolution{url: release.Assets[i].BrowserDownloadURL, name: release.Assets[i].Name}, nil
			}
		}

		if tokens := tokenizeAssetName(preferredName); len(tokens) > 0 {
			best, bestScore := -1, 0
			for _, i := range zipAssets {
				if score := scoreAssetMatch(release.Assets[i].Name, tokens); score > bestScore {
					best, bestScore = i, score
				}
			}
			if best >= 0 {
				return &assetResolution{url: release.Assets[best].BrowserDownloadURL, name: release.Assets[best].Name}, nil
			}
		}

		for _, i := range zipAssets {
			if strings.Contains(strings.ToLower(release.Assets[i].Name), normalized) {
				return &assetResolution{url: release.Assets[i].BrowserDownloadURL, name: release.Assets[i].Name}, nil
			}
		}
	}

	switch {
	case len(zipAssets) > 1:
		variants := make([]model.Variant, 0, len(zipAssets))
		for _, i := range zipAssets {
			variants = append(variants, model.Variant{
				Name: release.Assets[i].Name,
				URL:  release.Assets[i].BrowserDownloadURL,
			})
		}
		return &assetResolution{variants: variants}, nil
	case len(zipAssets) == 1:
		asset := release.Assets[zipAssets[0]]
		return &assetResolution{url: asset.BrowserDownloadURL, name: asset.Name}, nil
	case len(release.Assets) > 0:
		asset := release.Assets[0]
		return &assetResolution{url: asset.BrowserDownloadURL, name: asset.Name}, nil
	case release.ZipballURL != "":
		return &assetResolution{url: release.ZipballURL}, nil
	default:
		return nil, errors.Wrap(errors.ErrNotFound, "could not find release download URL")
	}
}

// releaseTag returns the latest release tag of a repository, or "unknown"
// when it cannot be determined.
func (e *Engine) releaseTag(ctx context.Context, repoURL string) string {
	release, err := e.api.LatestRelease(ctx, repoURL)
	if err != nil || release.TagName == "" {
		return model.SourceUnknown
	}
	return release.TagName
}

// latestReleaseTag is releaseTag with rate limits surfaced instead of
// swallowed, for the update freshness check.
func (e *Engine) latestReleaseTag(ctx context.Context, repoURL string) (string, error) {
	release, err := e.api.LatestRelease(ctx, repoURL)
	if err != nil {
		if stderrors.Is(err, errors.ErrRateLimited) {
			return "", err
		}
		return model.SourceUnknown, nil
	}
	if release.TagName == "" {
		return model.SourceUnknown, nil
	}
	return release.TagName, nil
}

var assetTokenSplit = regexp.MustCompile(`[^a-z0-9]+`)

// tokenizeAssetName splits an asset filename (extension excluded, it would
// match every candidate) into significant lowercase tokens: alphanumeric
// runs longer than two characters that are not purely numeric.
func tokenizeAssetName(name string) []string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	var tokens []string
	for _, t := range assetTokenSplit.Split(strings.ToLower(name), -1) {
		if len(t) > 2 && !isAllDigits(t) {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// scoreAssetMatch counts how many tokens appear in the candidate name.
func scoreAssetMatch(candidate string, tokens []string) int {
	lower := strings.ToLower(candidate)
	score := 0
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			score++
		}
	}
	return score
}

func assetNameFromURL(downloadURL string) string {
	parsed, err := url.Parse(downloadURL)
	if err != nil || parsed.Path == "" {
		return ""
	}
	return filepath.Base(parsed.Path)
}

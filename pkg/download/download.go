// Package download fetches release assets over HTTP into a local directory.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
)

// ManagerImpl is a simple HTTP-based download manager. Assets are small
// (scripts and plugin binaries), so there is no resume or mirror logic.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a new download manager with the given timeout.
func NewManager(timeout time.Duration) *ManagerImpl {
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout},
		userAgent: "ashpkg/1.0",
	}
}

// Fetch downloads assetURL into dir and returns the path to the downloaded
// file. The file name is taken from the URL path, falling back to fallback
// when the URL carries none.
func (m *ManagerImpl) Fetch(ctx context.Context, assetURL, dir, fallback string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("download dir must not be empty: %w", pkgerrors.ErrInvalidPath)
	}
	if err := os.MkdirAll(dir, fsutil.DirModeDefault); err != nil {
		return "", pkgerrors.Wrap(err, "could not create download dir")
	}

	name := assetFileName(assetURL)
	if name == "" {
		name = fallback
	}
	if name == "" {
		name = "asset"
	}
	destPath := filepath.Join(dir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, http.NoBody)
	if err != nil {
		return "", pkgerrors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.ErrTransportFailure, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, pkgerrors.ErrTransportFailure)
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeDefault)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "failed to create %s", destPath)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(destPath)
		return "", pkgerrors.Wrap(err, "failed to write asset data")
	}
	if err := out.Close(); err != nil {
		return "", pkgerrors.Wrapf(err, "failed to close %s", destPath)
	}
	return destPath, nil
}

// assetFileName extracts the trailing path segment of a download URL.
func assetFileName(assetURL string) string {
	parsed, err := url.Parse(assetURL)
	if err != nil || parsed.Path == "" {
		return ""
	}
	name := filepath.Base(parsed.Path)
	if name == "." || name == "/" || strings.TrimSpace(name) == "" {
		return ""
	}
	return name
}

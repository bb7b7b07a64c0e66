// Package tracker provides the JSON-backed ledger of installed packages. The
// engine treats it as a dictionary of dictionaries keyed by package kind and
// name; several operations mutate the returned record in place and then call
// Save for an explicit flush.
package tracker

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

// TrackerFileName is the ledger file kept at the installation root.
const TrackerFileName = "ashita-packages.json"

// Manager defines the tracker contract used by the engine.
type Manager interface {
	GetPackage(name string, kind model.PackageKind) *model.PackageRecord
	AddPackage(name string, kind model.PackageKind, record *model.PackageRecord) bool
	RemovePackage(name string, kind model.PackageKind) bool
	GetAllPackages() map[model.PackageKind]map[string]*model.PackageRecord
	PackageExists(name string, kind model.PackageKind) bool
	GetSetting(key, def string) string
	SetSetting(key, value string) bool
	Save() bool
}

// ManagerImpl is the on-disk representation of the ledger. The document is
// versioned so the format can evolve without breaking older files.
type ManagerImpl struct {
	FormatVersion string                          `json:"version"`
	LastUpdated   time.Time                       `json:"last_updated"`
	Addons        map[string]*model.PackageRecord `json:"addons"`
	Plugins       map[string]*model.PackageRecord `json:"plugins"`
	Settings      map[string]string               `json:"settings"`

	path    string
	rwMutex sync.RWMutex
}

// New creates a tracker rooted at the installation directory, loading the
// existing ledger file if present. A corrupt or missing file yields an empty
// ledger rather than an error.
func New(root string) *ManagerImpl {
	t := &ManagerImpl{
		FormatVersion: "1.0",
		LastUpdated:   time.Now(),
		Addons:        map[string]*model.PackageRecord{},
		Plugins:       map[string]*model.PackageRecord{},
		Settings:      map[string]string{},
		path:          filepath.Join(root, TrackerFileName),
	}
	_ = t.load()
	return t
}

func (t *ManagerImpl) load() error {
	file, err := os.Open(t.path)
	if err != nil {
		return nil //nolint:nilerr // missing ledger means first launch
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return errors.Wrap(err, "failed to read tracker file")
	}
	if err := json.Unmarshal(data, t); err != nil {
		// Corrupt ledger: start empty instead of failing every operation.
		t.Addons = map[string]*model.PackageRecord{}
		t.Plugins = map[string]*model.PackageRecord{}
		t.Settings = map[string]string{}
		return errors.Wrap(err, "failed to parse tracker file")
	}
	if t.Addons == nil {
		t.Addons = map[string]*model.PackageRecord{}
	}
	if t.Plugins == nil {
		t.Plugins = map[string]*model.PackageRecord{}
	}
	if t.Settings == nil {
		t.Settings = map[string]string{}
	}
	return nil
}

// Save writes the ledger to disk via a temporary file and atomic rename.
func (t *ManagerImpl) Save() bool {
	t.rwMutex.Lock()
	defer t.rwMutex.Unlock()
	return t.saveLocked() == nil
}

func (t *ManagerImpl) saveLocked() error {
	t.LastUpdated = time.Now()

	dir := filepath.Dir(t.path)
	tmpFile, err := os.CreateTemp(dir, "ashpkg-tracker-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary tracker file in %s: %w", dir, err)
	}
	tmpPath := tmpFile.Name()

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to marshal tracker to JSON: %w", err)
	}

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary tracker file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary tracker file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary tracker file: %w", err)
	}

	if err := os.Rename(tmpPath, t.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temporary tracker file to %s: %w", t.path, err)
	}
	return nil
}

func (t *ManagerImpl) bucket(kind model.PackageKind) map[string]*model.PackageRecord {
	switch kind {
	case model.KindAddon:
		return t.Addons
	case model.KindPlugin:
		return t.Plugins
	default:
		return nil
	}
}

// GetPackage returns the record for a tracked package, or nil. The returned
// record is the live instance: callers may mutate it in place and persist
// with Save.
func (t *ManagerImpl) GetPackage(name string, kind model.PackageKind) *model.PackageRecord {
	t.rwMutex.RLock()
	defer t.rwMutex.RUnlock()

	bucket := t.bucket(kind)
	if bucket == nil {
		return nil
	}
	return bucket[name]
}

// AddPackage upserts a record and flushes the ledger.
func (t *ManagerImpl) AddPackage(name string, kind model.PackageKind, record *model.PackageRecord) bool {
	t.rwMutex.Lock()
	defer t.rwMutex.Unlock()

	bucket := t.bucket(kind)
	if bucket == nil || record == nil {
		return false
	}
	if record.InstalledDate.IsZero() {
		record.InstalledDate = time.Now()
	}
	bucket[name] = record
	return t.saveLocked() == nil
}

// RemovePackage drops a record and flushes the ledger.
func (t *ManagerImpl) RemovePackage(name string, kind model.PackageKind) bool {
	t.rwMutex.Lock()
	defer t.rwMutex.Unlock()

	bucket := t.bucket(kind)
	if bucket == nil {
		return false
	}
	if _, ok := bucket[name]; !ok {
		return false
	}
	delete(bucket, name)
	return t.saveLocked() == nil
}

// GetAllPackages returns a shallow copy of both namespaces. The records
// themselves are the live instances.
func (t *ManagerImpl) GetAllPackages() map[model.PackageKind]map[string]*model.PackageRecord {
	t.rwMutex.RLock()
	defer t.rwMutex.RUnlock()

	out := map[model.PackageKind]map[string]*model.PackageRecord{
		model.KindAddon:  make(map[string]*model.PackageRecord, len(t.Addons)),
		model.KindPlugin: make(map[string]*model.PackageRecord, len(t.Plugins)),
	}
	for name, rec := range t.Addons {
		out[model.KindAddon][name] = rec
	}
	for name, rec := range t.Plugins {
		out[model.KindPlugin][name] = rec
	}
	return out
}

// PackageExists checks if a package is tracked.
func (t *ManagerImpl) PackageExists(name string, kind model.PackageKind) bool {
	return t.GetPackage(name, kind) != nil
}

// PackageCount returns the number of tracked addons and plugins.
func (t *ManagerImpl) PackageCount() (addons, plugins int) {
	t.rwMutex.RLock()
	defer t.rwMutex.RUnlock()
	return len(t.Addons), len(t.Plugins)
}

// IsFirstLaunch reports whether the ledger has a configured root but no
// tracked packages yet.
func (t *ManagerImpl) IsFirstLaunch() bool {
	t.rwMutex.RLock()
	defer t.rwMutex.RUnlock()
	return len(t.Addons) == 0 && len(t.Plugins) == 0
}

// GetSetting returns a setting value or the provided default.
func (t *ManagerImpl) GetSetting(key, def string) string {
	t.rwMutex.RLock()
	defer t.rwMutex.RUnlock()
	if v, ok := t.Settings[key]; ok {
		return v
	}
	return def
}

// SetSetting stores a setting value and flushes the ledger.
func (t *ManagerImpl) SetSetting(key, value string) bool {
	t.rwMutex.Lock()
	defer t.rwMutex.Unlock()
	t.Settings[key] = value
	return t.saveLocked() == nil
}

// Export writes the full ledger document to the given file.
func (t *ManagerImpl) Export(outputFile string) error {
	t.rwMutex.RLock()
	defer t.rwMutex.RUnlock()

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tracker: %w", err)
	}
	return os.WriteFile(outputFile, data, 0o644)
}

// Import replaces the ledger with the document in the given file. The file
// must carry both namespaces to be accepted.
func (t *ManagerImpl) Import(inputFile string) error {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}

	var incoming ManagerImpl
	if err := json.Unmarshal(data, &incoming); err != nil {
		return fmt.Errorf("failed to parse import file: %w", err)
	}
	if incoming.Addons == nil || incoming.Plugins == nil {
		return fmt.Errorf("import file is missing addon or plugin sections: %w", errors.ErrInvalidPath)
	}

	t.rwMutex.Lock()
	defer t.rwMutex.Unlock()
	t.Addons = incoming.Addons
	t.Plugins = incoming.Plugins
	if incoming.Settings != nil {
		t.Settings = incoming.Settings
	}
	return t.saveLocked()
}

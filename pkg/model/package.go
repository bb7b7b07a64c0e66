// Package model provides the data structures shared between the ashpkg
// engine, tracker, and CLI: package records, conflict reports, and operation
// outcomes.
package model

import "time"

// PackageKind distinguishes scripted addons from native plugins.
type PackageKind string

const (
	// KindAddon is a scripted package with a .lua entrypoint, installed
	// into addons/<name>/.
	KindAddon PackageKind = "addon"
	// KindPlugin is a native binary package, installed as plugins/<name>.dll.
	KindPlugin PackageKind = "plugin"
)

// Valid reports whether the kind is one of the known package kinds.
func (k PackageKind) Valid() bool {
	return k == KindAddon || k == KindPlugin
}

// InstallMethod records how a package arrived on disk.
type InstallMethod string

const (
	// MethodPreInstalled marks a package bundled with the base installation.
	MethodPreInstalled InstallMethod = "pre-installed"
	// MethodGit marks a package installed by cloning a git repository.
	MethodGit InstallMethod = "git"
	// MethodRelease marks a package installed from a release asset.
	MethodRelease InstallMethod = "release"
	// MethodManual marks a package installed from user-selected local files.
	MethodManual InstallMethod = "manual"
)

// SourceUnknown is the recorded source for manually installed packages.
const SourceUnknown = "unknown"

// PackageRecord is the tracked metadata for one installed addon or plugin,
// keyed by package name. The LibFiles/DocFiles/ResourceFiles lists are the
// ownership ledger: removal and conflict logic consider only these paths as
// owned by the package, never the filesystem state at removal time.
type PackageRecord struct {
	Source           string        `json:"source"`
	InstallMethod    InstallMethod `json:"install_method"`
	InstalledDate    time.Time     `json:"installed_date"`
	Path             string        `json:"path"`
	Commit           string        `json:"commit,omitempty"`
	Branch           string        `json:"branch,omitempty"`
	ReleaseTag       string        `json:"release_tag,omitempty"`
	ReleaseAssetName string        `json:"release_asset_name,omitempty"`
	LibFiles         []string      `json:"lib_files,omitempty"`
	DocFiles         []string      `json:"doc_files,omitempty"`
	ResourceFiles    []string      `json:"resource_files,omitempty"`
}

// Clone returns a deep copy of the record, used to snapshot tracker state
// before an update so a failed update can restore it verbatim.
func (r *PackageRecord) Clone() *PackageRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.LibFiles = append([]string(nil), r.LibFiles...)
	out.DocFiles = append([]string(nil), r.DocFiles...)
	out.ResourceFiles = append([]string(nil), r.ResourceFiles...)
	return &out
}

// LibConflict describes one shared library file that another package owns.
type LibConflict struct {
	File        string `json:"file"`
	Owner       string `json:"owner"`
	OwnerSource string `json:"owner_source"`
}

// ConflictReport describes, per shared-file category, whether installing a
// package would overwrite files claimed by another package. Docs and
// resources are coarse booleans: a folder for this package name already
// exists.
type ConflictReport struct {
	Libs      []LibConflict `json:"libs"`
	Docs      bool          `json:"docs"`
	Resources bool          `json:"resources"`
}

// HasConflicts reports whether any category conflicts.
func (c *ConflictReport) HasConflicts() bool {
	return c != nil && (len(c.Libs) > 0 || c.Docs || c.Resources)
}

// Variant is one of several alternative plugin binaries or release assets
// offered by a repository, requiring explicit selection when more than one
// exists.
type Variant struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// ManualPayload carries user-selected local paths for a manual install or a
// manual update of a package that cannot be auto-refreshed.
type ManualPayload struct {
	AddonPath     string
	DLLPath       string
	DocsPath      string
	ResourcesPath string
}

// ScanResult summarizes a first-launch disk scan.
type ScanResult struct {
	AddonsFound  int
	PluginsFound int
	CatalogOK    bool
	CatalogError string
	ManualFlags  []string
}

// BatchUpdateResult aggregates a sequential batch update.
type BatchUpdateResult struct {
	Updated []string
	Skipped []string
	Failed  map[string]string
}

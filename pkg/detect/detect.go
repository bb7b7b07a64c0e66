// Package detect locates addon entrypoints and plugin binaries inside
// arbitrary extracted trees. Repository clones and release archives commonly
// wrap the real payload in one extra top-level folder, so every entry point
// first collapses that wrapper before pattern matching.
package detect

import (
	"os"
	"path/filepath"
	"strings"
)

// AddonDetection describes where an addon lives inside a source tree.
// Structure is "root" when the entrypoint sits directly at the detected path
// and "nested" when the addon occupies its own subfolder.
type AddonDetection struct {
	Found     bool
	Name      string
	Path      string
	Structure string
	RepoRoot  string

	// Ambiguous is set when several lua files exist and no heuristic wins
	// decisively; LuaFiles then carries the candidate stems for the caller
	// to choose from.
	Ambiguous bool
	LuaFiles  []string
}

// PluginDetection describes where a plugin binary lives inside a source tree.
type PluginDetection struct {
	Found   bool
	Name    string
	DLLPath string
}

// Detector implements the structure heuristics. It is stateless.
type Detector struct{}

// New creates a Detector.
func New() *Detector {
	return &Detector{}
}

func listSubdirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	return dirs
}

func globExt(dir, ext string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// collapseWrapper descends into a lone non-hidden subdirectory. When
// skipIfRootLua is set, lua files directly at root block the descent: a
// root-level entrypoint always takes precedence over wrapper collapsing.
func collapseWrapper(root string, skipIfRootLua bool) string {
	if skipIfRootLua && len(globExt(root, ".lua")) > 0 {
		return root
	}
	subdirs := listSubdirs(root)
	if len(subdirs) == 1 {
		return subdirs[0]
	}
	return root
}

// DetectAllAddons finds every addon in a source tree. Monorepos hosting an
// addons/ folder yield one result per matching subfolder; otherwise a single
// addon detection is attempted.
func (d *Detector) DetectAllAddons(sourcePath string) []AddonDetection {
	actual := collapseWrapper(sourcePath, false)

	var addons []AddonDetection
	addonsFolder := filepath.Join(actual, "addons")
	if info, err := os.Stat(addonsFolder); err == nil && info.IsDir() {
		for _, dir := range listSubdirs(addonsFolder) {
			name := filepath.Base(dir)
			if name == "libs" {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, name+".lua")); err == nil {
				addons = append(addons, AddonDetection{
					Found:     true,
					Name:      name,
					Path:      dir,
					Structure: "nested",
					RepoRoot:  actual,
				})
			}
		}
	}
	if len(addons) > 0 {
		return addons
	}

	single := d.DetectAddonStructure(sourcePath, "", "")
	if single.Found {
		single.RepoRoot = actual
		return []AddonDetection{single}
	}
	return nil
}

// DetectAddonStructure finds a single addon in a source tree. targetName
// narrows the search inside an addons/ folder, and repoURL feeds the name
// inference when several lua files compete for the entrypoint.
func (d *Detector) DetectAddonStructure(sourcePath, targetName, repoURL string) AddonDetection {
	actual := collapseWrapper(sourcePath, true)

	// Pattern 1: an addons/ folder in the tree.
	addonsFolder := filepath.Join(actual, "addons")
	if info, err := os.Stat(addonsFolder); err == nil && info.IsDir() {
		if targetName != "" {
			target := filepath.Join(addonsFolder, targetName)
			if info, err := os.Stat(target); err == nil && info.IsDir() {
				if _, err := os.Stat(filepath.Join(target, targetName+".lua")); err == nil {
					return AddonDetection{Found: true, Name: targetName, Path: target, Structure: "nested"}
				}
			}
		} else {
			for _, dir := range listSubdirs(addonsFolder) {
				name := filepath.Base(dir)
				if name == "libs" {
					continue
				}
				if _, err := os.Stat(filepath.Join(dir, name+".lua")); err == nil {
					return AddonDetection{Found: true, Name: name, Path: dir, Structure: "nested"}
				}
			}
		}
	}

	// Pattern 2: lua files directly at the effective root.
	luaFiles := globExt(actual, ".lua")
	if len(luaFiles) > 0 {
		name := inferAddonName(actual, luaFiles, repoURL)
		if name != "" {
			return AddonDetection{Found: true, Name: name, Path: actual, Structure: "root"}
		}
		stems := make([]string, 0, len(luaFiles))
		for _, f := range luaFiles {
			stems = append(stems, stem(f))
		}
		return AddonDetection{Ambiguous: true, LuaFiles: stems, Path: actual, Structure: "root"}
	}

	// Pattern 3: a subfolder carrying its own <name>/<name>.lua.
	for _, dir := range listSubdirs(actual) {
		name := filepath.Base(dir)
		if _, err := os.Stat(filepath.Join(dir, name+".lua")); err == nil {
			return AddonDetection{Found: true, Name: name, Path: dir, Structure: "nested"}
		}
	}

	return AddonDetection{}
}

// DetectPluginStructure finds a plugin binary in a source tree. Binary names
// are authoritative, so there is no ambiguity path: the first match wins.
func (d *Detector) DetectPluginStructure(sourcePath, targetName string) PluginDetection {
	actual := collapseWrapper(sourcePath, false)

	// Pattern 1: a plugins/ folder.
	pluginsFolder := filepath.Join(actual, "plugins")
	if info, err := os.Stat(pluginsFolder); err == nil && info.IsDir() {
		if targetName != "" {
			target := filepath.Join(pluginsFolder, targetName+".dll")
			if _, err := os.Stat(target); err == nil {
				return PluginDetection{Found: true, Name: targetName, DLLPath: target}
			}
		} else if dlls := globExt(pluginsFolder, ".dll"); len(dlls) > 0 {
			return PluginDetection{Found: true, Name: stem(dlls[0]), DLLPath: dlls[0]}
		}
	}

	// Pattern 2: a .dll at the effective root.
	if dlls := globExt(actual, ".dll"); len(dlls) > 0 {
		return PluginDetection{Found: true, Name: stem(dlls[0]), DLLPath: dlls[0]}
	}

	// Pattern 3: recursive search capped at two path segments.
	var found PluginDetection
	_ = filepath.WalkDir(actual, func(path string, entry os.DirEntry, err error) error {
		if err != nil || found.Found {
			return filepath.SkipAll
		}
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(path), ".dll") {
			return nil
		}
		rel, relErr := filepath.Rel(actual, path)
		if relErr != nil {
			return nil
		}
		if len(strings.Split(filepath.ToSlash(rel), "/")) <= 2 {
			found = PluginDetection{Found: true, Name: stem(path), DLLPath: path}
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// inferAddonName picks the entrypoint among several lua candidates. The
// repository URL's trailing segment beats everything, then a single
// candidate, then an exact folder-name match, then the longest substring
// overlap of at least three characters. An empty return means no heuristic
// won and the caller must ask the user.
func inferAddonName(folderPath string, luaFiles []string, repoURL string) string {
	folderName := strings.ToLower(filepath.Base(folderPath))

	var repoName string
	if repoURL != "" {
		trimmed := strings.TrimRight(repoURL, "/")
		repoName = strings.ToLower(trimmed[strings.LastIndex(trimmed, "/")+1:])
		for _, f := range luaFiles {
			if strings.ToLower(stem(f)) == repoName {
				return stem(f)
			}
		}
	}

	if len(luaFiles) == 1 {
		return stem(luaFiles[0])
	}

	for _, f := range luaFiles {
		if strings.ToLower(stem(f)) == folderName {
			return stem(f)
		}
	}

	var bestMatch string
	bestLen := 0
	for _, f := range luaFiles {
		luaName := strings.ToLower(stem(f))

		if strings.Contains(folderName, luaName) && len(luaName) > bestLen {
			bestMatch = stem(f)
			bestLen = len(luaName)
		} else if strings.Contains(luaName, folderName) && len(folderName) > bestLen {
			bestMatch = stem(f)
			bestLen = len(folderName)
		}

		if repoName != "" {
			if strings.Contains(repoName, luaName) && len(luaName) > bestLen {
				bestMatch = stem(f)
				bestLen = len(luaName)
			} else if strings.Contains(luaName, repoName) && len(repoName) > bestLen {
				bestMatch = stem(f)
				bestLen = len(repoName)
			}
		}
	}
	if bestMatch != "" && bestLen >= 3 {
		return bestMatch
	}
	return ""
}

// HasDocsFolder checks for a docs folder (either case variant) at root.
func (d *Detector) HasDocsFolder(sourcePath string) (bool, string) {
	return findFolder(sourcePath, "docs", "Docs")
}

// HasResourcesFolder checks for a resources folder (either case variant) at root.
func (d *Detector) HasResourcesFolder(sourcePath string) (bool, string) {
	return findFolder(sourcePath, "resources", "Resources")
}

func findFolder(root string, names ...string) (bool, string) {
	for _, name := range names {
		candidate := filepath.Join(root, name)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return true, candidate
		}
	}
	return false, ""
}

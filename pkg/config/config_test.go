package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultOfficialRepo, cfg.OfficialRepo)
	assert.Equal(t, DefaultOfficialBranch, cfg.OfficialBranch)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Root)
}

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	configContent := `root: /games/ffxi/ashita
official_repo: https://github.com/example/official
official_branch: develop
http_timeout: 30s
log_level: debug`

	err := os.WriteFile(configPath, []byte(configContent), fsutil.FileModeDefault)
	require.NoError(t, err)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "/games/ffxi/ashita", cfg.Root)
	assert.Equal(t, "https://github.com/example/official", cfg.OfficialRepo)
	assert.Equal(t, "develop", cfg.OfficialBranch)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultOfficialRepo, cfg.OfficialRepo)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader("root: /tmp/x"))
	require.NoError(t, err)

	assert.Equal(t, DefaultOfficialRepo, cfg.OfficialRepo)
	assert.Equal(t, DefaultOfficialBranch, cfg.OfficialBranch)
	assert.Equal(t, DefaultHTTPTimeout, cfg.HTTPTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader(":\n :::"))
	assert.Error(t, err)
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = "/games/ffxi"
	cfg.LogLevel = "debug"

	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nested", "config.yaml")

	require.NoError(t, cfg.SaveConfig(configPath))

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "/games/ffxi", loaded.Root)
	assert.Equal(t, "debug", loaded.LogLevel)
}

func TestSaveConfigRestrictsPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}
	cfg := DefaultConfig()
	configPath := filepath.Join(t.TempDir(), "private", "config.yaml")
	require.NoError(t, cfg.SaveConfig(configPath))

	// The saved file can hold a GitHub token: no group or other access.
	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0), info.Mode().Perm()&0o077)

	dirInfo, err := os.Stat(filepath.Dir(configPath))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0), dirInfo.Mode().Perm()&0o077)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "negative timeout", mutate: func(c *Config) { c.HTTPTimeout = -time.Second }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: true},
		{name: "warn alias", mutate: func(c *Config) { c.LogLevel = "warning" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GitHubToken = "configured"
	assert.Equal(t, "configured", cfg.Token())

	cfg.GitHubToken = ""
	t.Setenv("GITHUB_TOKEN", "from-env")
	assert.Equal(t, "from-env", cfg.Token())
}

func TestDirectoryHelpers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Root = filepath.Join("game", "ashita")

	assert.Equal(t, filepath.Join("game", "ashita", "addons"), cfg.AddonsDir())
	assert.Equal(t, filepath.Join("game", "ashita", "plugins"), cfg.PluginsDir())
	assert.Equal(t, filepath.Join("game", "ashita", "docs"), cfg.DocsDir())
	assert.Equal(t, filepath.Join("game", "ashita", "resources"), cfg.ResourcesDir())
	assert.Equal(t, filepath.Join("game", "ashita", "addons", "libs"), cfg.LibsDir())
}

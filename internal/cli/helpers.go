// Package cli implements the ashpkg command-line interface.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/glorpus-work/ashpkg/internal/logger"
	"github.com/glorpus-work/ashpkg/pkg/config"
	"github.com/glorpus-work/ashpkg/pkg/engine"
	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/github"
	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/glorpus-work/ashpkg/pkg/tracker"
)

// These variables will be set by the main package.
var (
	ConfigPath *string
	RootDir    *string
	Verbose    *bool
	NoColor    *bool
)

// TabWidth is the column padding used by tabular output.
const TabWidth = 4

// loadConfig loads the configuration file and applies the global CLI flag
// overrides.
func loadConfig() (*config.Config, error) {
	configPath := ""
	if ConfigPath != nil {
		configPath = *ConfigPath
	}
	if configPath == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default config path: %w", err)
		}
		configPath = defaultPath
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if RootDir != nil && *RootDir != "" {
		cfg.Root = *RootDir
	}
	if Verbose != nil && *Verbose {
		cfg.LogLevel = "debug"
	}
	if NoColor != nil && *NoColor {
		color.NoColor = true
	}

	logger.InitLogger(cfg.LogLevel)
	return cfg, nil
}

// configFilePath resolves the path the config commands read and write.
func configFilePath() (string, error) {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath, nil
	}
	return config.GetDefaultConfigPath()
}

// loadEngine builds the engine and its tracker over the configured
// installation root. The root must be set before any package operation.
func loadEngine(cfg *config.Config) (*engine.Engine, *tracker.ManagerImpl, error) {
	if cfg.Root == "" {
		return nil, nil, fmt.Errorf("installation root is not set (use --root or `ashpkg config set root PATH`): %w", errors.ErrConfigValidation)
	}
	trk := tracker.New(cfg.Root)
	api := github.New(cfg.HTTPTimeout, cfg.Token)
	return engine.New(cfg, trk, api), trk, nil
}

// trackedKind resolves the kind of a tracked package from an explicit flag
// or from the ledger. A name tracked under both namespaces needs the flag.
func trackedKind(trk tracker.Manager, name, kindFlag string) (model.PackageKind, error) {
	if kindFlag != "" {
		kind := model.PackageKind(kindFlag)
		if !kind.Valid() {
			return "", errors.Wrapf(errors.ErrInvalidPackageKind, "%q", kindFlag)
		}
		return kind, nil
	}

	isAddon := trk.PackageExists(name, model.KindAddon)
	isPlugin := trk.PackageExists(name, model.KindPlugin)
	switch {
	case isAddon && isPlugin:
		return "", errors.Wrapf(errors.ErrAmbiguousSelection, "%q is tracked as both an addon and a plugin, pass --kind", name)
	case isAddon:
		return model.KindAddon, nil
	case isPlugin:
		return model.KindPlugin, nil
	default:
		return "", errors.Wrapf(errors.ErrNotFound, "package %q is not tracked", name)
	}
}

package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/glorpus-work/ashpkg/pkg/config"
	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command with subcommands.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "View and modify ashpkg configuration settings",
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigSetCmd(),
		newConfigGetCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current configuration settings",
		RunE:  runConfigShow,
	}
}

// Number of arguments expected by the set command.
const setCommandArgs = 2

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration key to a specific value",
		Args:  cobra.ExactArgs(setCommandArgs),
		RunE: func(_ *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Get a configuration value",
		Long:  "Get the value of a specific configuration key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration file",
		Long:  "Create a default configuration file",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runConfigInit(force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration file")

	return cmd
}

func runConfigShow(*cobra.Command, []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "SETTING\tVALUE")
	_, _ = fmt.Fprintln(tabWriter, "-------\t-----")
	for key, value := range configMap(cfg) {
		_, _ = fmt.Fprintf(tabWriter, "%s\t%s\n", key, value)
	}
	_ = tabWriter.Flush()
	return nil
}

func runConfigSet(key, value string) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(key) {
	case "root":
		cfg.Root = value
	case "official_repo":
		cfg.OfficialRepo = value
	case "official_branch":
		cfg.OfficialBranch = value
	case "github_token":
		cfg.GitHubToken = value
	case "http_timeout":
		timeout, parseErr := time.ParseDuration(value)
		if parseErr != nil {
			return errors.Wrapf(errors.ErrConfigValidation, "invalid duration %q", value)
		}
		cfg.HTTPTimeout = timeout
	case "log_level":
		cfg.LogLevel = value
	default:
		return errors.Wrapf(errors.ErrConfigValidation, "unknown config key %q", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveConfig(path); err != nil {
		return err
	}
	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

func runConfigGet(key string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	value, ok := configMap(cfg)[strings.ToLower(key)]
	if !ok {
		return errors.Wrapf(errors.ErrConfigValidation, "unknown config key %q", key)
	}
	fmt.Println(value)
	return nil
}

func runConfigInit(force bool) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}
	if fsutil.FileExists(path) && !force {
		return errors.Wrapf(errors.ErrAlreadyExists, "config file %s (use --force to overwrite)", path)
	}
	if err := config.DefaultConfig().SaveConfig(path); err != nil {
		return err
	}
	fmt.Printf("Created config file: %s\n", path)
	return nil
}

func configMap(cfg *config.Config) map[string]string {
	token := ""
	if cfg.GitHubToken != "" {
		token = "(set)"
	}
	return map[string]string{
		"root":            cfg.Root,
		"official_repo":   cfg.OfficialRepo,
		"official_branch": cfg.OfficialBranch,
		"github_token":    token,
		"http_timeout":    cfg.HTTPTimeout.String(),
		"log_level":       cfg.LogLevel,
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/glorpus-work/ashpkg/internal/cli"
	"github.com/spf13/cobra"
)

var (
	configPath string
	rootDir    string
	verbose    bool
	noColor    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ashpkg",
		Short: "A package manager for game-client addons and plugins",
		Long: `ashpkg installs, updates, and removes game-client addons and plugins from
git repositories and published releases, and keeps a ledger of everything it
manages so shared files can be removed safely.`,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().StringVar(&rootDir, "root", "", "installation root (overrides config)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.RootDir = &rootDir
	cli.Verbose = &verbose
	cli.NoColor = &noColor

	// Add subcommands
	cmd.AddCommand(
		cli.NewInstallCmd(),
		cli.NewManualCmd(),
		cli.NewUpdateCmd(),
		cli.NewRemoveCmd(),
		cli.NewListCmd(),
		cli.NewScanCmd(),
		cli.NewBranchesCmd(),
		cli.NewExportCmd(),
		cli.NewImportCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}

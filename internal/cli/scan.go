package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the installation for untracked packages",
		Long: `Scan the addons and plugins directories and register everything found in
the package ledger. Packages listed in the official catalog are recorded as
pre-installed; the rest are flagged as manual installs.

The scan runs automatically on first launch; --force re-runs it later.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd.Context(), force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Re-scan even when the ledger is already populated")

	return cmd
}

func runScan(ctx context.Context, force bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, trk, err := loadEngine(cfg)
	if err != nil {
		return err
	}

	if !force && !trk.IsFirstLaunch() {
		fmt.Println("Ledger already populated; use --force to re-scan")
		return nil
	}

	result := eng.ScanExisting(ctx)
	if result.CatalogError != "" {
		fmt.Printf("%s official catalog unavailable: %s\n", warnColor("!"), result.CatalogError)
	}
	for _, flag := range result.ManualFlags {
		fmt.Printf("%s %s\n", warnColor("!"), flag)
	}
	fmt.Printf("%s registered %d addon(s) and %d plugin(s)\n",
		successColor("✓"), result.AddonsFound, result.PluginsFound)
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command.
func NewExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Export the package ledger",
		Long:  "Write the tracked package ledger to a file for backup or transfer.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runExport(args[0])
		},
	}
}

// NewImportCmd creates the import command.
func NewImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a package ledger",
		Long: `Replace the tracked package ledger with a previously exported file.
Only the ledger is replaced; no package files are installed or removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runImport(args[0])
		},
	}
}

func runExport(file string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, trk, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	if err := trk.Export(file); err != nil {
		return fmt.Errorf("failed to export ledger: %w", err)
	}
	fmt.Printf("Exported ledger to %s\n", file)
	return nil
}

func runImport(file string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, trk, err := loadEngine(cfg)
	if err != nil {
		return err
	}
	if err := trk.Import(file); err != nil {
		return fmt.Errorf("failed to import ledger: %w", err)
	}
	fmt.Printf("Imported ledger from %s\n", file)
	return nil
}

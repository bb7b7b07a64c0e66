package cli

import (
	"context"
	"fmt"

	"github.com/glorpus-work/ashpkg/pkg/engine"
	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/spf13/cobra"
)

// NewUpdateCmd creates the update command.
func NewUpdateCmd() *cobra.Command {
	var (
		kindFlag string
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "update [NAME]",
		Short: "Update installed packages",
		Long: `Update an installed package from its recorded source.

With --all, every tracked addon and plugin is updated in sequence; packages
that are already up-to-date are skipped, and per-package failures do not stop
the batch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				return runUpdateAll(cmd.Context())
			}
			if len(args) == 0 {
				return fmt.Errorf("a package name is required without --all: %w", errors.ErrNotFound)
			}
			return runUpdate(cmd.Context(), args[0], kindFlag)
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Package kind: addon or plugin (default: whichever is tracked)")
	cmd.Flags().BoolVar(&all, "all", false, "Update every tracked package")

	return cmd
}

func runUpdate(ctx context.Context, name, kindFlag string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, trk, err := loadEngine(cfg)
	if err != nil {
		return err
	}

	kind, err := trackedKind(trk, name, kindFlag)
	if err != nil {
		return err
	}

	var opts engine.UpdateOptions
	for {
		outcome := eng.UpdatePackage(ctx, name, kind, opts, nil)

		switch outcome.Kind {
		case model.OutcomeSuccess:
			printSuccess(outcome)
			return nil
		case model.OutcomeFailure:
			return fmt.Errorf("failed to update %s: %w", name, outcome.Err)
		case model.OutcomeRequiresVariantSelection:
			variant := chooseVariant(outcome)
			if variant == nil {
				return fmt.Errorf("update of %s needs a variant choice: %w", name, errors.ErrAmbiguousSelection)
			}
			if outcome.IsReleaseAsset {
				opts.AssetURL = variant.URL
				opts.AssetName = variant.Name
			} else {
				opts.PluginVariant = variant.Name
			}
		case model.OutcomeRequiresEntrypointSelection:
			entrypoint := chooseEntrypoint(outcome.LuaFiles)
			if entrypoint == "" {
				return fmt.Errorf("update of %s needs an entrypoint choice: %w", name, errors.ErrAmbiguousSelection)
			}
			opts.SelectedEntrypoint = entrypoint
		case model.OutcomeRequiresManualUpdate:
			if outcome.Reason == "unknown-source" {
				fmt.Printf("Package %s has no recorded download source and must be updated manually.\n", nameColor(name))
			} else {
				fmt.Printf("Package %s was installed manually and must be updated manually.\n", nameColor(name))
			}
			fmt.Printf("Use `ashpkg manual %s --update` with fresh files to replace it.\n", name)
			return nil
		default:
			return fmt.Errorf("unexpected outcome %q: %w", outcome.Kind, errors.ErrAmbiguousSelection)
		}
	}
}

func runUpdateAll(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, _, err := loadEngine(cfg)
	if err != nil {
		return err
	}

	for _, kind := range []model.PackageKind{model.KindAddon, model.KindPlugin} {
		result, err := eng.UpdateAll(ctx, kind)
		if err != nil {
			return fmt.Errorf("failed to update %ss: %w", kind, err)
		}
		printBatchResult(kind, result)
	}
	return nil
}

func printBatchResult(kind model.PackageKind, result *model.BatchUpdateResult) {
	for _, name := range result.Updated {
		fmt.Printf("%s updated %s\n", successColor("✓"), nameColor(name))
	}
	for _, name := range result.Skipped {
		fmt.Printf("%s %s is already up-to-date\n", dimColor("="), name)
	}
	for name, reason := range result.Failed {
		fmt.Printf("%s %s: %s\n", warnColor("✗"), name, reason)
	}
	fmt.Printf("%ss: %d updated, %d up-to-date, %d failed\n",
		kind, len(result.Updated), len(result.Skipped), len(result.Failed))
}

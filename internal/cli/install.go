package cli

import (
	"context"
	"fmt"

	"github.com/glorpus-work/ashpkg/pkg/engine"
	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var (
		kindFlag    string
		branch      string
		force       bool
		fromRelease bool
		targetName  string
		assetName   string
	)

	cmd := &cobra.Command{
		Use:   "install URL",
		Short: "Install an addon or plugin",
		Long: `Install an addon or plugin from a git repository URL.

By default the repository is cloned and its contents are inspected to decide
whether it holds an addon or a plugin. Use --release to install from the
latest published release instead of the repository tree.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd.Context(), args[0], kindFlag, branch, targetName, assetName, force, fromRelease)
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Package kind: addon or plugin (default: auto-detect)")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to install from (default: repository default)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite conflicting shared files without asking")
	cmd.Flags().BoolVar(&fromRelease, "release", false, "Install from the latest release instead of the repository tree")
	cmd.Flags().StringVar(&targetName, "name", "", "Install only the named package from a multi-addon repository")
	cmd.Flags().StringVar(&assetName, "asset", "", "Preferred release asset name (implies --release)")

	return cmd
}

func runInstall(ctx context.Context, url, kindFlag, branch, targetName, assetName string, force, fromRelease bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, _, err := loadEngine(cfg)
	if err != nil {
		return err
	}

	if assetName != "" {
		fromRelease = true
	}

	kind, err := resolveKind(ctx, eng, url, kindFlag, fromRelease)
	if err != nil {
		return err
	}

	opts := engine.InstallOptions{
		TargetName: targetName,
		Branch:     branch,
		Force:      force,
		AssetName:  assetName,
	}
	return installLoop(ctx, eng, url, kind, fromRelease, opts)
}

// resolveKind honors an explicit --kind flag and otherwise inspects the
// source to classify it.
func resolveKind(ctx context.Context, eng *engine.Engine, url, kindFlag string, fromRelease bool) (model.PackageKind, error) {
	if kindFlag != "" {
		kind := model.PackageKind(kindFlag)
		if !kind.Valid() {
			return "", errors.Wrapf(errors.ErrInvalidPackageKind, "%q", kindFlag)
		}
		return kind, nil
	}

	fmt.Printf("Detecting package type of %s...\n", url)
	if fromRelease {
		return eng.DetectPackageTypeFromRelease(ctx, url)
	}
	return eng.DetectPackageType(ctx, url)
}

// installLoop runs an install and answers its checkpoints interactively
// until it settles on success or failure.
func installLoop(ctx context.Context, eng *engine.Engine, url string, kind model.PackageKind, fromRelease bool, opts engine.InstallOptions) error {
	for {
		var outcome *model.Outcome
		if fromRelease {
			outcome = eng.InstallFromRelease(ctx, url, kind, opts)
		} else {
			outcome = eng.InstallFromGit(ctx, url, kind, opts)
		}

		switch outcome.Kind {
		case model.OutcomeSuccess:
			printSuccess(outcome)
			return nil
		case model.OutcomeFailure:
			return fmt.Errorf("failed to install %s: %w", url, outcome.Err)
		case model.OutcomeRequiresConfirmation:
			if !printConflicts(outcome.Conflicts) {
				return fmt.Errorf("installation of %s declined: %w", url, errors.ErrConflict)
			}
			opts.Force = true
		case model.OutcomeRequiresVariantSelection:
			variant := chooseVariant(outcome)
			if variant == nil {
				return fmt.Errorf("installation of %s needs a variant choice: %w", url, errors.ErrAmbiguousSelection)
			}
			if outcome.IsReleaseAsset {
				fromRelease = true
				opts.AssetURL = variant.URL
				opts.AssetName = variant.Name
			} else {
				opts.PluginVariant = variant.Name
			}
		case model.OutcomeRequiresEntrypointSelection:
			entrypoint := chooseEntrypoint(outcome.LuaFiles)
			if entrypoint == "" {
				return fmt.Errorf("installation of %s needs an entrypoint choice: %w", url, errors.ErrAmbiguousSelection)
			}
			opts.SelectedEntrypoint = entrypoint
		default:
			return fmt.Errorf("unexpected outcome %q: %w", outcome.Kind, errors.ErrAmbiguousSelection)
		}
	}
}

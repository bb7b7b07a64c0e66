package cli

import (
	"context"
	"fmt"

	"github.com/glorpus-work/ashpkg/pkg/engine"
	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/spf13/cobra"
)

// NewManualCmd creates the manual command.
func NewManualCmd() *cobra.Command {
	var (
		addonPath     string
		dllPath       string
		docsPath      string
		resourcesPath string
		update        bool
	)

	cmd := &cobra.Command{
		Use:   "manual NAME",
		Short: "Install or update a package from local files",
		Long: `Install a package from files on disk instead of a remote source.

Exactly one of --addon or --dll selects the package payload; --docs and
--resources optionally add documentation and resource folders. With --update,
the files replace an already tracked package that cannot be auto-refreshed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManual(cmd.Context(), args[0], addonPath, dllPath, docsPath, resourcesPath, update)
		},
	}

	cmd.Flags().StringVar(&addonPath, "addon", "", "Folder holding the addon files")
	cmd.Flags().StringVar(&dllPath, "dll", "", "Path to the plugin .dll")
	cmd.Flags().StringVar(&docsPath, "docs", "", "Folder holding documentation files")
	cmd.Flags().StringVar(&resourcesPath, "resources", "", "Folder holding resource files")
	cmd.Flags().BoolVar(&update, "update", false, "Replace an already tracked package")

	return cmd
}

func runManual(ctx context.Context, name, addonPath, dllPath, docsPath, resourcesPath string, update bool) error {
	if (addonPath == "") == (dllPath == "") {
		return errors.Wrap(errors.ErrInvalidPath, "exactly one of --addon or --dll is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, trk, err := loadEngine(cfg)
	if err != nil {
		return err
	}

	kind := model.KindAddon
	if dllPath != "" {
		kind = model.KindPlugin
	}

	if update {
		if !trk.PackageExists(name, kind) {
			return errors.Wrapf(errors.ErrNotFound, "package %q is not tracked as a %s", name, kind)
		}
		payload := &model.ManualPayload{
			AddonPath:     addonPath,
			DLLPath:       dllPath,
			DocsPath:      docsPath,
			ResourcesPath: resourcesPath,
		}
		outcome := eng.UpdatePackage(ctx, name, kind, engine.UpdateOptions{}, payload)
		if outcome.NeedsInput() {
			return errors.Wrapf(errors.ErrAmbiguousSelection,
				"the selected folder has no clear %q entrypoint", name)
		}
		if !outcome.OK() {
			return fmt.Errorf("failed to update %s: %w", name, outcome.Err)
		}
		printSuccess(outcome)
		return nil
	}

	entrypoint := ""
	for {
		var outcome *model.Outcome
		if kind == model.KindPlugin {
			outcome = eng.ManualInstallPlugin(dllPath, docsPath, resourcesPath, name)
		} else {
			outcome = eng.ManualInstallAddon(addonPath, docsPath, resourcesPath, name, entrypoint)
		}

		switch outcome.Kind {
		case model.OutcomeSuccess:
			printSuccess(outcome)
			return nil
		case model.OutcomeFailure:
			return fmt.Errorf("failed to install %s: %w", name, outcome.Err)
		case model.OutcomeRequiresEntrypointSelection:
			entrypoint = chooseEntrypoint(outcome.LuaFiles)
			if entrypoint == "" {
				return fmt.Errorf("installation of %s needs an entrypoint choice: %w", name, errors.ErrAmbiguousSelection)
			}
		default:
			return fmt.Errorf("unexpected outcome %q: %w", outcome.Kind, errors.ErrAmbiguousSelection)
		}
	}
}

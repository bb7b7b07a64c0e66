package cli

import (
	"fmt"

	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/spf13/cobra"
)

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	var kindFlag string

	cmd := &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"uninstall"},
		Short:   "Remove an installed package",
		Long: `Remove an installed addon or plugin and the shared library, documentation,
and resource files it owns. Files also claimed by another installed package
are left in place.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRemove(args[0], kindFlag)
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", "", "Package kind: addon or plugin (default: whichever is tracked)")

	return cmd
}

func runRemove(name, kindFlag string) error {
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

	outcome := eng.RemovePackage(name, kind)
	if outcome.Kind == model.OutcomeFailure {
		return fmt.Errorf("failed to remove %s: %w", name, outcome.Err)
	}
	printSuccess(outcome)
	return nil
}

package cli

import (
	"fmt"

	"github.com/glorpus-work/ashpkg/pkg/gitrepo"
	"github.com/spf13/cobra"
)

// NewBranchesCmd creates the branches command.
func NewBranchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branches URL",
		Short: "List the branches of a repository",
		Long: `List the branches offered by a remote repository, for use with
install --branch. The configured official branch is listed first when the
repository has it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBranches(args[0])
		},
	}

	return cmd
}

func runBranches(url string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	branches, err := gitrepo.New().ListRemoteBranches(url, cfg.OfficialBranch)
	if err != nil {
		return fmt.Errorf("failed to list branches of %s: %w", url, err)
	}
	for _, branch := range branches {
		fmt.Println(branch)
	}
	return nil
}

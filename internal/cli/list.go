package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/glorpus-work/ashpkg/pkg/model"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	var nameFilter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed packages",
		Long: `List all tracked addons and plugins with their source and version.

Use --name to filter packages by name.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runList(nameFilter)
		},
	}

	cmd.Flags().StringVar(&nameFilter, "name", "", "Filter packages by name (partial match)")

	return cmd
}

func runList(nameFilter string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	_, trk, err := loadEngine(cfg)
	if err != nil {
		return err
	}

	all := trk.GetAllPackages()
	total := 0

	tabWriter := tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
	_, _ = fmt.Fprintln(tabWriter, "NAME\tKIND\tMETHOD\tVERSION\tSOURCE")

	for _, kind := range []model.PackageKind{model.KindAddon, model.KindPlugin} {
		records := all[kind]
		names := make([]string, 0, len(records))
		for name := range records {
			if nameFilter != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(nameFilter)) {
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			record := records[name]
			_, _ = fmt.Fprintf(tabWriter, "%s\t%s\t%s\t%s\t%s\n",
				nameColor(name), kind, record.InstallMethod, recordVersion(record), record.Source)
			total++
		}
	}
	_ = tabWriter.Flush()

	if total == 0 {
		fmt.Println("No packages tracked")
		return nil
	}
	fmt.Printf("\n%d package(s) tracked\n", total)
	return nil
}

// recordVersion renders the most specific version identity a record has.
func recordVersion(record *model.PackageRecord) string {
	switch {
	case record.ReleaseTag != "" && record.ReleaseTag != model.SourceUnknown:
		return record.ReleaseTag
	case len(record.Commit) >= 8:
		return record.Commit[:8]
	case record.Commit != "":
		return record.Commit
	default:
		return "-"
	}
}

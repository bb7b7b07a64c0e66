package cli

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/glorpus-work/ashpkg/pkg/model"
)

var (
	successColor = color.New(color.FgGreen).SprintFunc()
	warnColor    = color.New(color.FgYellow).SprintFunc()
	nameColor    = color.New(color.FgCyan).SprintFunc()
	dimColor     = color.New(color.FgHiBlack).SprintFunc()
)

// stdinReader is swapped out by tests that script prompt answers.
var stdinReader *bufio.Reader

func promptReader() *bufio.Reader {
	if stdinReader == nil {
		stdinReader = bufio.NewReader(os.Stdin)
	}
	return stdinReader
}

// promptYesNo asks a yes/no question and defaults to no.
func promptYesNo(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	line, err := promptReader().ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// promptChoice presents a numbered list and returns the chosen index, or -1
// when the answer is empty or invalid.
func promptChoice(header string, options []string) int {
	fmt.Println(header)
	for i, option := range options {
		fmt.Printf("  %d) %s\n", i+1, option)
	}
	fmt.Printf("Selection [1-%d]: ", len(options))
	line, err := promptReader().ReadString('\n')
	if err != nil {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(options) {
		return -1
	}
	return n - 1
}

// printConflicts renders a conflict report map and asks whether to proceed.
func printConflicts(conflicts map[string]*model.ConflictReport) bool {
	fmt.Println(warnColor("The following file conflicts were detected:"))
	for name, report := range conflicts {
		if !report.HasConflicts() {
			continue
		}
		fmt.Printf("  %s:\n", nameColor(name))
		for _, lib := range report.Libs {
			fmt.Printf("    lib %s is owned by %s (%s)\n", lib.File, lib.Owner, dimColor(lib.OwnerSource))
		}
		if report.Docs {
			fmt.Println("    a docs folder for this package already exists")
		}
		if report.Resources {
			fmt.Println("    a resources folder for this package already exists")
		}
	}
	return promptYesNo("Overwrite the conflicting files?")
}

// chooseVariant prompts for one of the offered plugin variants or release
// assets. Returns nil when the user declines.
func chooseVariant(outcome *model.Outcome) *model.Variant {
	header := "Multiple plugin variants are available:"
	if outcome.IsReleaseAsset {
		header = "Multiple release assets are available:"
	}
	options := make([]string, 0, len(outcome.Variants))
	for _, v := range outcome.Variants {
		options = append(options, v.Name)
	}
	idx := promptChoice(header, options)
	if idx < 0 {
		return nil
	}
	return &outcome.Variants[idx]
}

// chooseEntrypoint prompts for one of the candidate addon entrypoints.
func chooseEntrypoint(luaFiles []string) string {
	idx := promptChoice("The addon has several possible entrypoints:", luaFiles)
	if idx < 0 {
		return ""
	}
	return luaFiles[idx]
}

// printSuccess renders a success outcome.
func printSuccess(outcome *model.Outcome) {
	marker := successColor("✓")
	if outcome.UpToDate {
		marker = dimColor("=")
	}
	fmt.Printf("%s %s\n", marker, outcome.Message)
}

package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Version is the current version of issuesync (overridden by ldflags at build time)
	Version = "0.3.0"
	// Build can be set via ldflags at compile time
	Build = "dev"
	// Commit and Branch are the git revision the binary was built from.
	// Set via ldflags: -X main.Commit=...
	Commit = ""
	Branch = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		commit := resolveCommitHash()
		out := cmd.OutOrStdout()

		if jsonOutput {
			result := map[string]string{
				"version": Version,
				"build":   Build,
			}
			if commit != "" {
				result["commit"] = commit
			}
			if Branch != "" {
				result["branch"] = Branch
			}
			return outputJSON(out, result)
		}

		fmt.Fprintf(out, "issuesync version %s\n", FullVersionString())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func resolveCommitHash() string {
	if Commit != "" {
		return Commit
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return setting.Value
			}
		}
	}

	return ""
}

func shortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// FullVersionString returns the version with build kind and commit, e.g.
// "0.3.0 (dev: main@280fbcf9a253)" or "0.3.0 (release)".
func FullVersionString() string {
	commit := resolveCommitHash()

	switch {
	case commit != "" && Branch != "":
		return fmt.Sprintf("%s (%s: %s@%s)", Version, Build, Branch, shortCommit(commit))
	case commit != "":
		return fmt.Sprintf("%s (%s: %s)", Version, Build, shortCommit(commit))
	}
	return fmt.Sprintf("%s (%s)", Version, Build)
}

package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

// commit prefers the linker-injected SHA and falls back to the VCS
// revision stamped into the build info by the module-aware toolchain.
func commit() string {
	if CommitSHA != "unknown" {
		return CommitSHA
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return CommitSHA
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			return setting.Value
		}
	}
	return CommitSHA
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rollcall %s\n", Version)
		fmt.Printf("  Commit: %s\n", commit())
		fmt.Printf("  Built:  %s\n", BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package cmd

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
)

var version string
var commitHash string

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of vibify",
	Long:  `All software has versions. This is vibify's.`,
	Run: func(cmd *cobra.Command, args []string) {
		printVibifyVersion()
	},
}

func init() {
	RootCmd.AddCommand(versionCmd)
}

func printVibifyVersion() {
	buildDate := time.Now().Format(time.RFC3339)
	fmt.Printf("vibify Version: %s, %s/%s, BuildDate: %s, Commit: %s\n",
		versionString(), runtime.GOOS, runtime.GOARCH, buildDate, commitHash)
}

// version is typically defined through a git tag and injected during
// compilation; if not, it is "dev"
func versionString() string {
	if version == "" {
		return "dev"
	}
	return version
}

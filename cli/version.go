package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nq-deploy/deployctl/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.GetBuildInfo()
		fmt.Printf("deployctl %s (%s, %s)\n", version.Short(), info.MainModule, info.GoVersion)
	},
}

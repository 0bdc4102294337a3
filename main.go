// deployctl deploys and operates the containerized Natiq Quran API stack.
package main

import (
	"os"

	"github.com/nq-deploy/deployctl/cli"
	"github.com/nq-deploy/deployctl/common"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		common.Logger.Error(err)
		os.Exit(1)
	}
}

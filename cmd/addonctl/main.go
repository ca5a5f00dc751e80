// Command addonctl validates add-on manifests and reports their permission
// risk.
package main

import (
	"fmt"
	"os"

	"github.com/reglet-dev/reglet-addon-host/cli"
	"github.com/reglet-dev/reglet-addon-host/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCommandError)
	}
	logger := cfg.NewLogger(os.Stderr)

	if err := cli.NewRootCommand(cfg, logger).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

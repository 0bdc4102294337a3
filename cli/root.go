// Package cli wires the deployctl command tree: install (the default),
// restart, update and version.
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/config"
	"github.com/nq-deploy/deployctl/deploy"
	"github.com/nq-deploy/deployctl/executor"
	"github.com/nq-deploy/deployctl/lifecycle"
)

var cfgFile string

// RootCmd is the deployctl entry point. Running it without a subcommand is
// equivalent to `deployctl install`.
var RootCmd = &cobra.Command{
	Use:   "deployctl",
	Short: "deployment automation for the Natiq Quran API stack",
	Long: `deployctl deploys and operates the containerized Quran API.

It generates the production credentials, renders the docker-compose template,
drives the container lifecycle and performs the first-run application setup
(migrations, superuser, bootstrap account).

Only one deployctl invocation should operate on a project directory at a
time; concurrent runs on the same directory are undefined.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(func(ctx context.Context, inst *deploy.Installer) error {
			return inst.Install(ctx)
		})
	},
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "full first-time deployment",
	RunE:  RootCmd.RunE,
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "stop and start the stack from the persisted environment file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(func(ctx context.Context, inst *deploy.Installer) error {
			return inst.Restart(ctx)
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "pull newer images and restart the stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(func(ctx context.Context, inst *deploy.Installer) error {
			return inst.Update(ctx)
		})
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./deployctl.yaml, ~/.deployctl, /etc/deployctl)")
	RootCmd.PersistentFlags().Bool("skip-deps", false, "do not install missing dependencies")
	RootCmd.PersistentFlags().Bool("skip-firewall", false, "do not configure the firewall")
	RootCmd.PersistentFlags().Bool("non-interactive", false, "skip the environment edit step")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	viper.BindPFlag("flow.skip_deps", RootCmd.PersistentFlags().Lookup("skip-deps"))
	viper.BindPFlag("flow.skip_firewall", RootCmd.PersistentFlags().Lookup("skip-firewall"))
	viper.BindPFlag("flow.non_interactive", RootCmd.PersistentFlags().Lookup("non-interactive"))
	viper.BindPFlag("logging.verbose", RootCmd.PersistentFlags().Lookup("verbose"))

	RootCmd.AddCommand(installCmd)
	RootCmd.AddCommand(restartCmd)
	RootCmd.AddCommand(updateCmd)
	RootCmd.AddCommand(versionCmd)
}

// runFlow loads configuration, builds the installer and runs one flow under
// a signal-aware context so an interrupt still triggers artifact cleanup.
func runFlow(flow func(context.Context, *deploy.Installer) error) error {
	common.SetVerbose(viper.GetBool("logging.verbose"))

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return err
	}

	docker, err := lifecycle.NewDockerClient(cfg.Docker.Socket)
	if err != nil {
		common.Logger.WithField("error", err).Warn("docker API unavailable, diagnostics disabled")
		docker = nil
	} else {
		defer docker.Close()
	}

	opts := deploy.Options{
		SkipDeps:       viper.GetBool("flow.skip_deps"),
		SkipFirewall:   viper.GetBool("flow.skip_firewall"),
		NonInteractive: viper.GetBool("flow.non_interactive"),
	}
	inst := deploy.NewInstaller(cfg, executor.NewCommandRunner(), docker, opts)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return flow(ctx, inst)
}

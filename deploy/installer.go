// Package deploy orchestrates the install, restart and update flows: secret
// generation, template rendering, container lifecycle and the post-start
// application setup. Only one invocation should operate on a project
// directory at a time; no lock is taken.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/nq-deploy/deployctl/bootstrap"
	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/compose"
	"github.com/nq-deploy/deployctl/config"
	"github.com/nq-deploy/deployctl/environment"
	"github.com/nq-deploy/deployctl/executor"
	"github.com/nq-deploy/deployctl/lifecycle"
	"github.com/nq-deploy/deployctl/secrets"
	"github.com/nq-deploy/deployctl/storage"
)

// Options toggles the optional steps of the install flow.
type Options struct {
	// SkipDeps disables docker installation; a missing docker is then fatal
	SkipDeps bool

	// SkipFirewall disables ufw configuration
	SkipFirewall bool

	// NonInteractive disables the operator edit step
	NonInteractive bool
}

// Installer runs the deployment flows against one project directory.
type Installer struct {
	cfg    *config.Config
	runner executor.Runner
	docker lifecycle.DockerClient
	opts   Options

	// Generator produces the secrets for a fresh environment file
	Generator *secrets.Generator

	// Resolver discovers the host's public address for allowed-hosts
	Resolver *environment.IPResolver

	// Dialer is used by the broker readiness probe
	Dialer lifecycle.AMQPDialer

	// CheckURL is probed to confirm network reachability
	CheckURL string

	// ScriptURL is the docker convenience install script
	ScriptURL string
}

// NewInstaller wires an installer with production defaults. docker may be
// nil; container diagnostics are skipped without it.
func NewInstaller(cfg *config.Config, runner executor.Runner, docker lifecycle.DockerClient, opts Options) *Installer {
	resolver := environment.NewIPResolver()
	if len(cfg.Network.IPEndpoints) > 0 {
		resolver = environment.NewIPResolverWithEndpoints(cfg.Network.IPEndpoints...)
	}
	return &Installer{
		cfg:       cfg,
		runner:    runner,
		docker:    docker,
		opts:      opts,
		Generator: secrets.NewGenerator(),
		Resolver:  resolver,
		Dialer:    &lifecycle.RealAMQPDialer{},
		CheckURL:  dockerInstallScript,
		ScriptURL: dockerInstallScript,
	}
}

func (i *Installer) projectPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(i.cfg.Project.Dir, name)
}

func (i *Installer) envPath() string {
	return i.projectPath(i.cfg.Project.EnvFile)
}

func (i *Installer) templatePath() string {
	return i.projectPath(i.cfg.Project.Template)
}

// Install is the full first-deployment flow: preflight, dependencies,
// firewall, environment creation, rendering, start, readiness and the
// application setup steps. The environment file is securely destroyed once
// its values have been consumed.
func (i *Installer) Install(ctx context.Context) error {
	if err := i.checkNetwork(ctx); err != nil {
		return err
	}
	if err := i.ensureDocker(ctx); err != nil {
		return err
	}
	if !i.opts.SkipFirewall {
		i.configureFirewall(ctx)
	}

	store, fresh, err := i.loadOrGenerate()
	if err != nil {
		return err
	}
	// A generated environment file must not survive a failed install.
	succeeded := false
	if fresh {
		defer func() {
			if !succeeded {
				if err := environment.SecureDestroy(ctx, i.runner, i.envPath()); err != nil {
					common.Logger.WithField("error", err).Warn("could not destroy environment file")
				}
			}
		}()
	}

	if !i.opts.NonInteractive {
		environment.OpenInEditor(ctx, i.runner, i.envPath())
		store, err = environment.Load(i.envPath())
		if err != nil {
			return err
		}
	}

	storage.VerifyStore(ctx, store, "")

	artifact, cleanup, err := i.renderArtifact(store)
	if err != nil {
		return err
	}
	defer cleanup()

	ctrl := lifecycle.NewController(i.runner, i.docker, artifact)
	ctrl.SetReadiness(i.cfg.Readiness.Interval, i.cfg.Readiness.Attempts)

	ctrl.Stop(ctx)
	if err := ctrl.Start(ctx); err != nil {
		return err
	}
	if err := ctrl.AwaitReady(ctx, i.probes(artifact, store)...); err != nil {
		return err
	}

	if err := i.applyMigrations(ctx, artifact); err != nil {
		return err
	}
	i.createSuperuser(ctx, artifact)
	i.seedBootstrapAccount(store)

	if err := environment.SecureDestroy(ctx, i.runner, i.envPath()); err != nil {
		common.Logger.WithField("error", err).Warn("could not destroy environment file")
	}
	succeeded = true

	common.Logger.Info("install complete")
	return nil
}

// Restart re-renders the deployment from the persisted environment file and
// brings the stack back up. No readiness wait; the caller sees the compose
// outcome directly.
func (i *Installer) Restart(ctx context.Context) error {
	return i.cycle(ctx, false)
}

// Update is Restart plus an image pull between stop and start. A failed
// pull aborts before anything is started.
func (i *Installer) Update(ctx context.Context) error {
	return i.cycle(ctx, true)
}

func (i *Installer) cycle(ctx context.Context, pull bool) error {
	store, err := environment.Load(i.envPath())
	if err != nil {
		return err
	}

	artifact, cleanup, err := i.renderArtifact(store)
	if err != nil {
		return err
	}
	defer cleanup()

	ctrl := lifecycle.NewController(i.runner, i.docker, artifact)
	ctrl.Stop(ctx)
	if pull {
		if err := ctrl.Pull(ctx); err != nil {
			return err
		}
		if doc, err := os.ReadFile(artifact); err == nil {
			if ref, err := compose.ServiceImage(string(doc), i.cfg.Project.TargetService); err == nil {
				ctrl.PullImage(ctx, ref)
			}
		}
	}
	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	if err := environment.SecureDestroy(ctx, i.runner, i.envPath()); err != nil {
		common.Logger.WithField("error", err).Warn("could not destroy environment file")
	}

	common.Logger.Info("services restarted")
	return nil
}

// loadOrGenerate returns the existing environment store, or generates and
// persists a fresh one. fresh reports which path was taken.
func (i *Installer) loadOrGenerate() (*environment.Store, bool, error) {
	store, err := environment.Load(i.envPath())
	if err == nil {
		common.Logger.Info("using existing environment file")
		return store, false, nil
	}
	if !errors.Is(err, environment.ErrNotFound) {
		common.Logger.WithField("error", err).Warn("existing environment file unusable, regenerating")
	}

	store, err = environment.NewGenerated(i.Generator, i.Resolver)
	if err != nil {
		return nil, false, err
	}
	if err := store.Persist(i.envPath()); err != nil {
		return nil, false, err
	}
	common.Logger.WithField("path", i.envPath()).Info("environment file generated")
	return store, true, nil
}

// renderArtifact renders the compose template into a uniquely named derived
// document. The artifact holds secrets in cleartext; the returned cleanup
// removes it and must run on every exit path.
func (i *Installer) renderArtifact(store *environment.Store) (string, func(), error) {
	template, err := os.ReadFile(i.templatePath())
	if err != nil {
		return "", nil, err
	}

	templater := compose.NewTemplater(i.cfg.Project.TargetService)
	rendered, err := templater.Render(string(template), store)
	if err != nil {
		return "", nil, err
	}

	artifact := i.projectPath("deploy-" + uuid.New().String() + ".yaml")
	if err := os.WriteFile(artifact, []byte(rendered), 0600); err != nil {
		return "", nil, fmt.Errorf("%w: %v", environment.ErrPersistenceFailed, err)
	}

	cleanup := func() {
		if err := os.Remove(artifact); err != nil && !os.IsNotExist(err) {
			common.Logger.WithField("error", err).Warn("could not remove derived config")
		}
	}
	return artifact, cleanup, nil
}

// probes builds the readiness checks for the install flow: database accepting
// connections, application importable, broker reachable.
func (i *Installer) probes(artifact string, store *environment.Store) []lifecycle.Probe {
	brokerURL := fmt.Sprintf("amqp://%s:%s@127.0.0.1:5672//",
		store.Get(environment.KeyBrokerUser), store.Get(environment.KeyBrokerPass))

	return []lifecycle.Probe{
		lifecycle.NewExecProbe("postgres", i.runner, artifact, "postgres",
			"pg_isready", "-U", store.Get(environment.KeyDatabaseUser)),
		lifecycle.NewExecProbe("app", i.runner, artifact, i.cfg.Project.TargetService,
			"python", "-c", "import api"),
		lifecycle.NewBrokerProbe(i.Dialer, brokerURL),
	}
}

// applyMigrations runs the application's schema migrations. A migration
// failure leaves a half-configured deployment, so it is fatal.
func (i *Installer) applyMigrations(ctx context.Context, artifact string) error {
	common.Logger.Info("applying migrations")
	res, err := i.runner.Run(ctx, "docker", "compose", "-f", artifact,
		"exec", "-T", i.cfg.Project.TargetService, "python", "manage.py", "migrate")
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("migrations failed: exit %d: %s", res.ExitCode, res.Output)
	}
	return nil
}

// createSuperuser creates the admin account inside the container. The
// credentials come from the DJANGO_SUPERUSER_* variables baked into the
// derived config. Already-exists failures are expected on re-install.
func (i *Installer) createSuperuser(ctx context.Context, artifact string) {
	res, err := i.runner.Run(ctx, "docker", "compose", "-f", artifact,
		"exec", "-T", i.cfg.Project.TargetService, "python", "manage.py", "createsuperuser", "--noinput")
	if err != nil || res.ExitCode != 0 {
		common.Logger.Warn("superuser creation failed, it may already exist")
		return
	}
	common.Logger.Info("superuser created")
}

// seedBootstrapAccount ensures the bot account machine imports attribute to.
// The API runs without it, so failure is a warning.
func (i *Installer) seedBootstrapAccount(store *environment.Store) {
	cfg := bootstrap.ConfigFromStore(store, i.cfg.Database.Host, i.cfg.Database.Port, i.cfg.Database.Name)
	if err := bootstrap.Run(cfg); err != nil {
		common.Logger.WithField("error", err).Warn("bootstrap account seeding failed")
	}
}

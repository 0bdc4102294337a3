package deploy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nq-deploy/deployctl/config"
	"github.com/nq-deploy/deployctl/environment"
	"github.com/nq-deploy/deployctl/executor"
	"github.com/nq-deploy/deployctl/lifecycle"
	"github.com/nq-deploy/deployctl/secrets"
)

const testTemplate = `services:
  postgres:
    image: postgres:17
    environment:
      POSTGRES_USER: placeholder
      POSTGRES_PASSWORD: placeholder
  rabbitmq:
    image: rabbitmq:4
    environment:
      RABBITMQ_DEFAULT_USER: placeholder
      RABBITMQ_DEFAULT_PASS: placeholder
  app:
    image: nq-api:latest
    environment:
      SECRET_KEY: placeholder
      DEBUG: "True"
      ALLOWED_HOSTS: placeholder
`

type fakeDialer struct {
	urls []string
	err  error
}

type fakeConn struct{}

func (fakeConn) Channel() (lifecycle.AMQPChannel, error) { return fakeChannel{}, nil }
func (fakeConn) Close() error                            { return nil }

type fakeChannel struct{}

func (fakeChannel) Close() error { return nil }

func (d *fakeDialer) Dial(url string) (lifecycle.AMQPConnection, error) {
	d.urls = append(d.urls, url)
	if d.err != nil {
		return nil, d.err
	}
	return fakeConn{}, nil
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Project: config.ProjectConfig{
			Dir:           dir,
			Template:      "docker-compose.yaml",
			EnvFile:       "production.env",
			TargetService: "app",
		},
		Readiness: config.ReadinessConfig{Interval: time.Millisecond, Attempts: 2},
		// Unroutable port so the bootstrap step fails fast in tests.
		Database: config.DatabaseConfig{Host: "127.0.0.1", Port: 1, Name: "natiq"},
	}
}

func testInstaller(t *testing.T, dir string, runner *executor.MockRunner, opts Options) *Installer {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docker-compose.yaml"), []byte(testTemplate), 0644))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	inst := NewInstaller(testConfig(dir), runner, lifecycle.NewMockDockerClient(), opts)
	inst.Generator = secrets.NewGenerator()
	inst.Resolver = nil
	inst.Dialer = &fakeDialer{}
	inst.CheckURL = srv.URL
	inst.ScriptURL = srv.URL
	return inst
}

func artifacts(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "deploy-*.yaml"))
	require.NoError(t, err)
	return matches
}

func TestNewInstaller_ResolverDefaults(t *testing.T) {
	dir := t.TempDir()

	// No configured endpoints: the stock lookup services are used.
	inst := NewInstaller(testConfig(dir), executor.NewMockRunner(), nil, Options{})
	require.NotNil(t, inst.Resolver)

	// Configured endpoints take precedence.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("203.0.113.9"))
	}))
	t.Cleanup(srv.Close)

	cfg := testConfig(dir)
	cfg.Network.IPEndpoints = []string{srv.URL}
	inst = NewInstaller(cfg, executor.NewMockRunner(), nil, Options{})
	ip, err := inst.Resolver.PublicIP()
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.9", ip)
}

func TestInstall_FullFlow(t *testing.T) {
	dir := t.TempDir()
	runner := executor.NewMockRunner()
	runner.Missing = []string{"shred", "ufw"}

	inst := testInstaller(t, dir, runner, Options{NonInteractive: true, SkipFirewall: true})
	require.NoError(t, inst.Install(context.Background()))

	lines := strings.Join(runner.CommandLines(), "\n")
	assert.Contains(t, lines, "down")
	assert.Contains(t, lines, "up -d")
	assert.Contains(t, lines, "pg_isready")
	assert.Contains(t, lines, "manage.py migrate")
	assert.Contains(t, lines, "createsuperuser --noinput")

	// The derived config and the environment file are both gone.
	assert.Empty(t, artifacts(t, dir))
	_, err := os.Stat(filepath.Join(dir, "production.env"))
	assert.True(t, os.IsNotExist(err))
}

func TestInstall_FirewallConfigured(t *testing.T) {
	dir := t.TempDir()
	runner := executor.NewMockRunner()
	runner.Missing = []string{"shred"}

	inst := testInstaller(t, dir, runner, Options{NonInteractive: true})
	require.NoError(t, inst.Install(context.Background()))

	lines := strings.Join(runner.CommandLines(), "\n")
	assert.Contains(t, lines, "ufw allow OpenSSH")
	assert.Contains(t, lines, "ufw allow 443/tcp")
	assert.Contains(t, lines, "ufw --force enable")
}

func TestInstall_NetworkUnavailable(t *testing.T) {
	dir := t.TempDir()
	inst := testInstaller(t, dir, executor.NewMockRunner(), Options{NonInteractive: true, SkipFirewall: true})
	inst.CheckURL = "http://127.0.0.1:1/unreachable"

	err := inst.Install(context.Background())
	assert.ErrorIs(t, err, ErrNetworkUnavailable)
}

func TestInstall_MissingDockerWithSkipDeps(t *testing.T) {
	dir := t.TempDir()
	runner := executor.NewMockRunner()
	runner.Missing = []string{"docker"}

	inst := testInstaller(t, dir, runner, Options{NonInteractive: true, SkipFirewall: true, SkipDeps: true})
	err := inst.Install(context.Background())
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestInstall_StartFailureRemovesArtifactAndEnv(t *testing.T) {
	dir := t.TempDir()
	runner := executor.NewMockRunner()
	runner.Missing = []string{"shred", "ufw"}

	inst := testInstaller(t, dir, runner, Options{NonInteractive: true, SkipFirewall: true})
	inst.runner = &upFailingRunner{MockRunner: runner}

	err := inst.Install(context.Background())
	require.ErrorIs(t, err, lifecycle.ErrStartFailed)

	assert.Empty(t, artifacts(t, dir))
	_, statErr := os.Stat(filepath.Join(dir, "production.env"))
	assert.True(t, os.IsNotExist(statErr), "freshly generated env file must not survive a failed install")
}

// upFailingRunner fails every `docker compose ... up -d` invocation.
type upFailingRunner struct {
	*executor.MockRunner
}

func (r *upFailingRunner) Run(ctx context.Context, name string, args ...string) (*executor.Result, error) {
	res, err := r.MockRunner.Run(ctx, name, args...)
	if err == nil && len(args) > 0 && args[len(args)-1] == "-d" {
		return &executor.Result{Output: "port already allocated", ExitCode: 1, Duration: res.Duration}, nil
	}
	return res, err
}

func TestRestart_RequiresEnvFile(t *testing.T) {
	dir := t.TempDir()
	inst := testInstaller(t, dir, executor.NewMockRunner(), Options{})

	err := inst.Restart(context.Background())
	assert.ErrorIs(t, err, environment.ErrNotFound)
}

func persistEnv(t *testing.T, dir string) {
	t.Helper()
	store, err := environment.NewGenerated(secrets.NewGenerator(), nil)
	require.NoError(t, err)
	require.NoError(t, store.Persist(filepath.Join(dir, "production.env")))
}

func TestRestart_Flow(t *testing.T) {
	dir := t.TempDir()
	runner := executor.NewMockRunner()
	runner.Missing = []string{"shred"}
	persistEnv(t, dir)

	inst := testInstaller(t, dir, runner, Options{})
	require.NoError(t, inst.Restart(context.Background()))

	lines := strings.Join(runner.CommandLines(), "\n")
	assert.Contains(t, lines, "down")
	assert.Contains(t, lines, "up -d")
	assert.NotContains(t, lines, " pull")
	assert.Empty(t, artifacts(t, dir))
}

func TestUpdate_Flow(t *testing.T) {
	dir := t.TempDir()
	runner := executor.NewMockRunner()
	runner.Missing = []string{"shred"}
	persistEnv(t, dir)

	inst := testInstaller(t, dir, runner, Options{})
	require.NoError(t, inst.Update(context.Background()))

	lines := strings.Join(runner.CommandLines(), "\n")
	assert.Contains(t, lines, "pull")
	assert.Contains(t, lines, "up -d")

	// The target service image is also refreshed through the Docker API.
	docker := inst.docker.(*lifecycle.MockDockerClient)
	assert.True(t, docker.ImagePullCalled)
	assert.Equal(t, "nq-api:latest", docker.LastImageRef)
}

func TestUpdate_PullFailureAborts(t *testing.T) {
	dir := t.TempDir()
	runner := executor.NewMockRunner()
	runner.Missing = []string{"shred"}
	persistEnv(t, dir)

	inst := testInstaller(t, dir, runner, Options{})
	pullFail := &pullFailingRunner{MockRunner: runner}
	inst.runner = pullFail

	err := inst.Update(context.Background())
	require.ErrorIs(t, err, lifecycle.ErrPullFailed)

	lines := strings.Join(runner.CommandLines(), "\n")
	assert.NotContains(t, lines, "up -d")
	assert.Empty(t, artifacts(t, dir))
}

// pullFailingRunner fails every `docker compose ... pull` invocation.
type pullFailingRunner struct {
	*executor.MockRunner
}

func (r *pullFailingRunner) Run(ctx context.Context, name string, args ...string) (*executor.Result, error) {
	res, err := r.MockRunner.Run(ctx, name, args...)
	if err == nil && len(args) > 0 && args[len(args)-1] == "pull" {
		return &executor.Result{Output: "manifest unknown", ExitCode: 1, Duration: res.Duration}, nil
	}
	return res, err
}

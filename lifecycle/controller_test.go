package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nq-deploy/deployctl/executor"
)

func TestStop_IsBestEffort(t *testing.T) {
	runner := executor.NewMockRunner()
	runner.Responses["docker compose -f deploy.yml down"] = executor.MockResponse{
		ExitCode: 1,
		Output:   "no such file",
	}

	ctrl := NewController(runner, nil, "deploy.yml")
	ctrl.Stop(context.Background())

	assert.Equal(t, StateStopped, ctrl.State())
	require.Len(t, runner.Calls, 1)
	assert.Equal(t, "docker compose -f deploy.yml down", runner.CommandLines()[0])
}

func TestPull_Success(t *testing.T) {
	runner := executor.NewMockRunner()
	ctrl := NewController(runner, nil, "deploy.yml")

	require.NoError(t, ctrl.Pull(context.Background()))
	assert.Equal(t, StateConfiguring, ctrl.State())
	assert.Equal(t, "docker compose -f deploy.yml pull", runner.CommandLines()[0])
}

func TestPull_FailureIsFatal(t *testing.T) {
	runner := executor.NewMockRunner()
	runner.Responses["docker compose -f deploy.yml pull"] = executor.MockResponse{
		ExitCode: 18,
		Output:   "manifest unknown",
	}

	ctrl := NewController(runner, nil, "deploy.yml")
	err := ctrl.Pull(context.Background())

	require.ErrorIs(t, err, ErrPullFailed)
	assert.Contains(t, err.Error(), "manifest unknown")
	assert.Equal(t, StateFailed, ctrl.State())
}

func TestPullImage_UsesDockerAPI(t *testing.T) {
	docker := NewMockDockerClient()
	ctrl := NewController(executor.NewMockRunner(), docker, "deploy.yml")

	ctrl.PullImage(context.Background(), "natiq/nq-api:latest")

	assert.True(t, docker.ImagePullCalled)
	assert.Equal(t, "natiq/nq-api:latest", docker.LastImageRef)
}

func TestPullImage_IsBestEffort(t *testing.T) {
	docker := NewMockDockerClient()
	docker.Err = errors.New("daemon unreachable")
	ctrl := NewController(executor.NewMockRunner(), docker, "deploy.yml")

	ctrl.PullImage(context.Background(), "natiq/nq-api:latest")
	assert.True(t, docker.ImagePullCalled)

	// No docker client at all is fine too.
	NewController(executor.NewMockRunner(), nil, "deploy.yml").
		PullImage(context.Background(), "natiq/nq-api:latest")
}

func TestStart_NotValidAfterFailure(t *testing.T) {
	runner := executor.NewMockRunner()
	runner.Responses["docker compose -f deploy.yml pull"] = executor.MockResponse{ExitCode: 1}

	ctrl := NewController(runner, nil, "deploy.yml")
	require.Error(t, ctrl.Pull(context.Background()))
	assert.ErrorIs(t, ctrl.Start(context.Background()), ErrInvalidState)
}

func TestStart_Success(t *testing.T) {
	runner := executor.NewMockRunner()
	ctrl := NewController(runner, nil, "deploy.yml")

	require.NoError(t, ctrl.Pull(context.Background()))
	require.NoError(t, ctrl.Start(context.Background()))

	assert.Equal(t, StateStarting, ctrl.State())
	assert.Equal(t, "docker compose -f deploy.yml up -d", runner.CommandLines()[1])
}

func TestStart_AllowedWithoutPull(t *testing.T) {
	runner := executor.NewMockRunner()
	ctrl := NewController(runner, nil, "deploy.yml")

	require.NoError(t, ctrl.Start(context.Background()))
	assert.Equal(t, StateStarting, ctrl.State())
}

func TestStart_FailureCollectsDiagnostics(t *testing.T) {
	runner := executor.NewMockRunner()
	runner.Responses["docker compose -f deploy.yml up -d"] = executor.MockResponse{
		ExitCode: 1,
		Output:   "port already allocated",
	}

	docker := NewMockDockerClient()
	docker.Containers = []containertypes.Summary{
		{ID: "abc123", Names: []string{"/nq-api-app-1"}, State: "exited"},
	}

	ctrl := NewController(runner, docker, "deploy.yml")
	require.NoError(t, ctrl.Pull(context.Background()))

	err := ctrl.Start(context.Background())
	require.ErrorIs(t, err, ErrStartFailed)
	assert.Equal(t, StateFailed, ctrl.State())
	assert.True(t, docker.ContainerListCalled)
	assert.True(t, docker.ContainerLogsCalled)
	assert.Equal(t, "abc123", docker.LastContainerID)
}

type fakeProbe struct {
	name     string
	failures int
	checks   int
}

func (p *fakeProbe) Name() string { return p.name }

func (p *fakeProbe) Check(ctx context.Context) error {
	p.checks++
	if p.checks <= p.failures {
		return errors.New("not yet")
	}
	return nil
}

func startedController(t *testing.T, runner *executor.MockRunner) *Controller {
	t.Helper()
	ctrl := NewController(runner, nil, "deploy.yml")
	require.NoError(t, ctrl.Pull(context.Background()))
	require.NoError(t, ctrl.Start(context.Background()))
	ctrl.SetReadiness(time.Millisecond, 5)
	return ctrl
}

func TestAwaitReady_AllProbesPass(t *testing.T) {
	ctrl := startedController(t, executor.NewMockRunner())

	db := &fakeProbe{name: "postgres", failures: 2}
	app := &fakeProbe{name: "app"}

	require.NoError(t, ctrl.AwaitReady(context.Background(), db, app))
	assert.Equal(t, StateRunning, ctrl.State())
	assert.Equal(t, 3, db.checks)
	// Probes that already passed are not polled again.
	assert.Equal(t, 1, app.checks)
}

func TestAwaitReady_Timeout(t *testing.T) {
	ctrl := startedController(t, executor.NewMockRunner())

	stuck := &fakeProbe{name: "broker", failures: 100}
	err := ctrl.AwaitReady(context.Background(), stuck)

	require.ErrorIs(t, err, ErrReadinessTimeout)
	assert.Contains(t, err.Error(), "broker")
	assert.Equal(t, StateFailed, ctrl.State())
	assert.Equal(t, 5, stuck.checks)
}

func TestAwaitReady_ContextCancelled(t *testing.T) {
	ctrl := startedController(t, executor.NewMockRunner())
	ctrl.SetReadiness(time.Hour, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ctrl.AwaitReady(ctx, &fakeProbe{name: "app", failures: 100})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, ctrl.State())
}

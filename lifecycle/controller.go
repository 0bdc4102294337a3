package lifecycle

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"

	"github.com/nq-deploy/deployctl/common"
	"github.com/nq-deploy/deployctl/executor"
)

// State names the controller's position in the restart sequence.
type State int

const (
	StateStopped State = iota
	StateConfiguring
	StateStarting
	StateRunning
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateConfiguring:
		return "configuring"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Defaults for readiness polling.
const (
	DefaultReadyInterval = 5 * time.Second
	DefaultReadyAttempts = 30
)

// Controller drives the service stack through stop, pull, start and
// readiness. Compose orchestration goes through the compose binary; the
// Docker SDK client is used for diagnostics when a start goes wrong.
type Controller struct {
	runner      executor.Runner
	docker      DockerClient
	composeFile string
	interval    time.Duration
	attempts    int
	state       State
}

// NewController creates a controller for the compose document at composeFile.
// docker may be nil; diagnostics are skipped without it.
func NewController(runner executor.Runner, docker DockerClient, composeFile string) *Controller {
	return &Controller{
		runner:      runner,
		docker:      docker,
		composeFile: composeFile,
		interval:    DefaultReadyInterval,
		attempts:    DefaultReadyAttempts,
		state:       StateStopped,
	}
}

// SetReadiness overrides the polling interval and attempt count.
func (c *Controller) SetReadiness(interval time.Duration, attempts int) {
	if interval > 0 {
		c.interval = interval
	}
	if attempts > 0 {
		c.attempts = attempts
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	return c.state
}

// Stop brings the stack down. It is best-effort: a failure (typically
// because nothing was running) is logged as a warning and does not stop
// the sequence.
func (c *Controller) Stop(ctx context.Context) {
	common.Logger.Info("stopping services")
	res, err := c.runner.Run(ctx, "docker", "compose", "-f", c.composeFile, "down")
	if err != nil || res.ExitCode != 0 {
		common.Logger.WithField("error", errOrExit(res, err)).Warn("compose down failed, continuing")
	}
	c.state = StateStopped
}

// Pull fetches the images referenced by the compose document. A pull
// failure is fatal: starting a stack from stale or missing images is worse
// than not starting it.
func (c *Controller) Pull(ctx context.Context) error {
	if c.state != StateStopped {
		return fmt.Errorf("%w: pull from %s", ErrInvalidState, c.state)
	}
	common.Logger.Info("pulling images")
	res, err := c.runner.Run(ctx, "docker", "compose", "-f", c.composeFile, "pull")
	if err != nil || res.ExitCode != 0 {
		c.state = StateFailed
		return fmt.Errorf("%w: %s", ErrPullFailed, errOrExit(res, err))
	}
	c.state = StateConfiguring
	return nil
}

// PullImage refreshes one image through the Docker API, on top of the
// compose-level pull. Best-effort: compose already fetched what it needs, so
// a failure here is only a warning.
func (c *Controller) PullImage(ctx context.Context, ref string) {
	if c.docker == nil || ref == "" {
		return
	}
	rc, err := c.docker.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		common.Logger.WithField("image", ref).Warn("image refresh failed: ", err)
		return
	}
	io.Copy(io.Discard, rc)
	rc.Close()
}

// Start brings the stack up detached and records how long compose took.
// On failure it collects recent container logs for diagnostics before
// returning.
func (c *Controller) Start(ctx context.Context) error {
	if c.state != StateConfiguring && c.state != StateStopped {
		return fmt.Errorf("%w: start from %s", ErrInvalidState, c.state)
	}
	common.Logger.Info("starting services")
	begin := time.Now()
	res, err := c.runner.Run(ctx, "docker", "compose", "-f", c.composeFile, "up", "-d")
	if err != nil || res.ExitCode != 0 {
		c.state = StateFailed
		c.logDiagnostics(ctx)
		return fmt.Errorf("%w: %s", ErrStartFailed, errOrExit(res, err))
	}
	common.Logger.WithField("duration", time.Since(begin).Round(time.Millisecond)).Info("services started")
	c.state = StateStarting
	return nil
}

// AwaitReady polls the given probes until all pass in a single round or the
// attempt budget is spent. Probes that already passed are not re-checked.
func (c *Controller) AwaitReady(ctx context.Context, probes ...Probe) error {
	if c.state != StateStarting {
		return fmt.Errorf("%w: await from %s", ErrInvalidState, c.state)
	}

	pending := make([]Probe, len(probes))
	copy(pending, probes)

	for attempt := 1; attempt <= c.attempts; attempt++ {
		remaining := pending[:0]
		for _, p := range pending {
			if err := p.Check(ctx); err != nil {
				common.Logger.WithField("probe", p.Name()).WithField("attempt", attempt).Debug(err)
				remaining = append(remaining, p)
			} else {
				common.Logger.WithField("probe", p.Name()).Info("ready")
			}
		}
		pending = remaining
		if len(pending) == 0 {
			c.state = StateRunning
			return nil
		}
		if attempt < c.attempts {
			select {
			case <-ctx.Done():
				c.state = StateFailed
				return ctx.Err()
			case <-time.After(c.interval):
			}
		}
	}

	c.state = StateFailed
	names := make([]string, len(pending))
	for i, p := range pending {
		names[i] = p.Name()
	}
	c.logDiagnostics(ctx)
	return fmt.Errorf("%w: %s", ErrReadinessTimeout, strings.Join(names, ", "))
}

// logDiagnostics dumps the tail of every container's logs. Failures here
// are swallowed: diagnostics must never mask the original error.
func (c *Controller) logDiagnostics(ctx context.Context) {
	if c.docker == nil {
		return
	}
	containers, err := c.docker.ContainerList(ctx, containertypes.ListOptions{All: true})
	if err != nil {
		common.Logger.WithField("error", err).Warn("could not list containers for diagnostics")
		return
	}
	for _, ctr := range containers {
		rc, err := c.docker.ContainerLogs(ctx, ctr.ID, containertypes.LogsOptions{
			ShowStdout: true,
			ShowStderr: true,
			Tail:       "50",
		})
		if err != nil {
			continue
		}
		logs, _ := io.ReadAll(rc)
		rc.Close()
		name := ctr.ID
		if len(ctr.Names) > 0 {
			name = strings.TrimPrefix(ctr.Names[0], "/")
		}
		common.Logger.WithField("container", name).WithField("state", ctr.State).
			Infof("recent logs:\n%s", string(logs))
	}
}

func errOrExit(res *executor.Result, err error) string {
	if err != nil {
		return err.Error()
	}
	return fmt.Sprintf("exit %d: %s", res.ExitCode, strings.TrimSpace(res.Output))
}

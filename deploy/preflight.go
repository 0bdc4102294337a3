package deploy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/nq-deploy/deployctl/common"
)

// dockerInstallScript is the canonical convenience installer for hosts
// without docker.
const dockerInstallScript = "https://get.docker.com"

// checkNetwork confirms the host can reach the outside world before any
// step that needs it.
func (i *Installer) checkNetwork(ctx context.Context) error {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, i.CheckURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	resp.Body.Close()
	return nil
}

// ensureDocker verifies docker and the compose plugin are usable, installing
// docker from the convenience script when allowed.
func (i *Installer) ensureDocker(ctx context.Context) error {
	if !i.runner.LookPath("docker") {
		if i.opts.SkipDeps {
			return fmt.Errorf("%w: docker (dependency installation skipped)", ErrMissingDependency)
		}
		if err := i.installDocker(ctx); err != nil {
			return err
		}
	}

	res, err := i.runner.Run(ctx, "docker", "compose", "version")
	if err != nil || res.ExitCode != 0 {
		return fmt.Errorf("%w: docker compose plugin", ErrMissingDependency)
	}
	return nil
}

// installDocker downloads and runs the official convenience script.
func (i *Installer) installDocker(ctx context.Context) error {
	common.Logger.Info("docker not found, installing")

	client := &http.Client{Timeout: 2 * time.Minute}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, i.ScriptURL, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrDownloadFailed, resp.StatusCode)
	}

	script, err := os.CreateTemp("", "get-docker-*.sh")
	if err != nil {
		return err
	}
	defer os.Remove(script.Name())
	if _, err := io.Copy(script, resp.Body); err != nil {
		script.Close()
		return fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	script.Close()

	res, err := i.runner.Run(ctx, "sh", script.Name())
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%w: docker install script exited %d", ErrMissingDependency, res.ExitCode)
	}
	common.Logger.Info("docker installed")
	return nil
}

// configureFirewall opens SSH and web ports with ufw. Every failure here is
// a warning: a host without ufw, or with another firewall, is still a valid
// deployment target.
func (i *Installer) configureFirewall(ctx context.Context) {
	if !i.runner.LookPath("ufw") {
		common.Logger.Warn("ufw not found, skipping firewall configuration")
		return
	}
	for _, args := range [][]string{
		{"allow", "OpenSSH"},
		{"allow", "80/tcp"},
		{"allow", "443/tcp"},
		{"--force", "enable"},
	} {
		res, err := i.runner.Run(ctx, "ufw", args...)
		if err != nil || res.ExitCode != 0 {
			common.Logger.WithField("args", args).Warn("ufw command failed, continuing")
		}
	}
	common.Logger.Info("firewall configured")
}

package lifecycle

import (
	"github.com/docker/docker/client"
)

// DefaultDockerSocket is the daemon endpoint used when the configuration
// does not override it.
const DefaultDockerSocket = "unix:///var/run/docker.sock"

// NewDockerClient connects to the Docker daemon at the given socket. The
// returned client satisfies DockerClient.
func NewDockerClient(socket string) (DockerClient, error) {
	if socket == "" {
		socket = DefaultDockerSocket
	}
	cli, err := client.NewClientWithOpts(
		client.WithHost(socket),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, err
	}
	return cli, nil
}

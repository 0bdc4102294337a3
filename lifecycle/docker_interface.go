package lifecycle

import (
	"context"
	"io"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
)

// DockerClient defines the interface for the Docker operations the lifecycle
// controller needs. It abstracts the Docker SDK client to enable dependency
// injection and testing with mock implementations. Compose-level orchestration
// goes through the compose binary; the SDK is used for inspection and
// diagnostics only.
type DockerClient interface {
	// ContainerList lists containers, optionally including stopped ones
	ContainerList(ctx context.Context, options containertypes.ListOptions) ([]containertypes.Summary, error)

	// ContainerLogs retrieves logs from a container
	ContainerLogs(ctx context.Context, containerID string, options containertypes.LogsOptions) (io.ReadCloser, error)

	// ImagePull pulls an image by reference
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)

	// Close closes the client
	Close() error
}

package lifecycle

import (
	"context"
	"io"
	"strings"

	containertypes "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
)

// MockDockerClient is a mock implementation of DockerClient for testing
type MockDockerClient struct {
	// Containers to return from ContainerList
	Containers []containertypes.Summary
	// Logs to return from ContainerLogs
	Logs string
	// Error to return from operations
	Err error
	// Track function calls
	ContainerListCalled bool
	ContainerLogsCalled bool
	ImagePullCalled     bool
	CloseCalled         bool
	// Store last call parameters
	LastContainerID string
	LastImageRef    string
}

// NewMockDockerClient creates a new mock Docker client
func NewMockDockerClient() *MockDockerClient {
	return &MockDockerClient{
		Containers: []containertypes.Summary{},
		Logs:       "mock container logs",
	}
}

// ContainerList mocks listing containers
func (m *MockDockerClient) ContainerList(ctx context.Context, options containertypes.ListOptions) ([]containertypes.Summary, error) {
	m.ContainerListCalled = true
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Containers, nil
}

// ContainerLogs mocks retrieving container logs
func (m *MockDockerClient) ContainerLogs(ctx context.Context, containerID string, options containertypes.LogsOptions) (io.ReadCloser, error) {
	m.ContainerLogsCalled = true
	m.LastContainerID = containerID
	if m.Err != nil {
		return nil, m.Err
	}
	return io.NopCloser(strings.NewReader(m.Logs)), nil
}

// ImagePull mocks pulling an image
func (m *MockDockerClient) ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	m.ImagePullCalled = true
	m.LastImageRef = refStr
	if m.Err != nil {
		return nil, m.Err
	}
	return io.NopCloser(strings.NewReader(`{"status":"Pull complete"}`)), nil
}

// Close mocks closing the client
func (m *MockDockerClient) Close() error {
	m.CloseCalled = true
	return nil
}

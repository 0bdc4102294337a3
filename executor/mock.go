package executor

import (
	"context"
	"strings"
	"time"
)

// MockCall records a single invocation of the mock runner.
type MockCall struct {
	Name string
	Args []string
}

// MockResponse is the canned outcome for a matching command.
type MockResponse struct {
	Output   string
	ExitCode int
	Err      error
}

// MockRunner is a Runner implementation for tests. Responses are matched by
// command prefix ("docker compose up" matches Run(ctx, "docker", "compose",
// "up", "-d", ...)); unmatched commands succeed with empty output.
type MockRunner struct {
	// Responses maps a space-joined command prefix to its canned response
	Responses map[string]MockResponse

	// Missing lists binary names LookPath should report as absent
	Missing []string

	// Calls records every Run invocation in order
	Calls []MockCall
}

// NewMockRunner creates a mock runner with no canned responses.
func NewMockRunner() *MockRunner {
	return &MockRunner{Responses: make(map[string]MockResponse)}
}

// Run records the call and returns the canned response with the longest
// matching prefix.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	m.Calls = append(m.Calls, MockCall{Name: name, Args: args})

	full := strings.Join(append([]string{name}, args...), " ")
	var best string
	for prefix := range m.Responses {
		if strings.HasPrefix(full, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return &Result{Output: "", ExitCode: 0, Duration: time.Millisecond}, nil
	}
	resp := m.Responses[best]
	return &Result{Output: resp.Output, ExitCode: resp.ExitCode, Duration: time.Millisecond}, resp.Err
}

// LookPath reports false for names listed in Missing.
func (m *MockRunner) LookPath(name string) bool {
	for _, missing := range m.Missing {
		if missing == name {
			return false
		}
	}
	return true
}

// CommandLines renders the recorded calls one per line, for assertions.
func (m *MockRunner) CommandLines() []string {
	lines := make([]string, 0, len(m.Calls))
	for _, call := range m.Calls {
		lines = append(lines, strings.Join(append([]string{call.Name}, call.Args...), " "))
	}
	return lines
}

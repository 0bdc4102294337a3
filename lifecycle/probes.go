package lifecycle

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/nq-deploy/deployctl/executor"
)

// Probe reports whether one service of the stack is ready to serve.
type Probe interface {
	// Name identifies the probe in log output
	Name() string

	// Check returns nil when the service is ready
	Check(ctx context.Context) error
}

// ExecProbe checks readiness by running a command inside a compose service.
type ExecProbe struct {
	name        string
	runner      executor.Runner
	composeFile string
	service     string
	command     []string
}

// NewExecProbe creates a probe that runs command inside service via
// `docker compose exec`.
func NewExecProbe(name string, runner executor.Runner, composeFile, service string, command ...string) *ExecProbe {
	return &ExecProbe{
		name:        name,
		runner:      runner,
		composeFile: composeFile,
		service:     service,
		command:     command,
	}
}

func (p *ExecProbe) Name() string { return p.name }

// Check runs the probe command non-interactively inside the service
// container. A non-zero exit means not ready yet.
func (p *ExecProbe) Check(ctx context.Context) error {
	args := append([]string{"compose", "-f", p.composeFile, "exec", "-T", p.service}, p.command...)
	res, err := p.runner.Run(ctx, "docker", args...)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s not ready: exit %d", p.service, res.ExitCode)
	}
	return nil
}

// AMQPConnection defines the interface for the broker connection operations
// the probe needs. It abstracts the RabbitMQ connection to enable dependency
// injection and testing with mock implementations.
type AMQPConnection interface {
	// Channel opens a channel on the connection
	Channel() (AMQPChannel, error)

	// Close closes the connection
	Close() error
}

// AMQPChannel defines the interface for AMQP channel operations.
type AMQPChannel interface {
	// Close closes the channel
	Close() error
}

// AMQPDialer defines the interface for dialing AMQP connections.
// This interface allows injecting custom dialers for testing.
type AMQPDialer interface {
	// Dial connects to the AMQP server
	Dial(url string) (AMQPConnection, error)
}

// RealAMQPConnection wraps a real amqp.Connection to implement AMQPConnection
type RealAMQPConnection struct {
	conn *amqp.Connection
}

// Channel opens a channel on the real connection
func (r *RealAMQPConnection) Channel() (AMQPChannel, error) {
	return r.conn.Channel()
}

// Close closes the real connection
func (r *RealAMQPConnection) Close() error {
	return r.conn.Close()
}

// RealAMQPDialer implements AMQPDialer using the real AMQP library
type RealAMQPDialer struct{}

// Dial connects to the AMQP server using the real library
func (r *RealAMQPDialer) Dial(url string) (AMQPConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &RealAMQPConnection{conn: conn}, nil
}

// BrokerProbe checks readiness by opening an AMQP connection and channel
// against the message broker.
type BrokerProbe struct {
	dialer AMQPDialer
	url    string
}

// NewBrokerProbe creates a probe that dials the broker at url.
func NewBrokerProbe(dialer AMQPDialer, url string) *BrokerProbe {
	return &BrokerProbe{dialer: dialer, url: url}
}

func (p *BrokerProbe) Name() string { return "broker" }

// Check dials the broker and opens a channel. Both must succeed for the
// broker to count as ready.
func (p *BrokerProbe) Check(ctx context.Context) error {
	conn, err := p.dialer.Dial(p.url)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	return ch.Close()
}

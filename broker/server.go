package broker

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog/log"
)

// EmbeddedServer runs a NATS server inside the process, for single-node deployments and
// tests that still want room events to travel through a broker.
type EmbeddedServer struct {
	ns *server.Server

	startupTimeout time.Duration
	host           string
	port           int
}

type EmbeddedServerOpt func(*EmbeddedServer)

func WithStartTimeout(d time.Duration) EmbeddedServerOpt {
	return func(s *EmbeddedServer) {
		s.startupTimeout = d
	}
}

func WithHost(host string) EmbeddedServerOpt {
	return func(s *EmbeddedServer) {
		s.host = host
	}
}

// WithPort sets the listening port. -1 picks a random free port.
func WithPort(port int) EmbeddedServerOpt {
	return func(s *EmbeddedServer) {
		s.port = port
	}
}

func NewEmbeddedServer(opts ...EmbeddedServerOpt) (*EmbeddedServer, error) {
	s := &EmbeddedServer{
		startupTimeout: 10 * time.Second,
		host:           "127.0.0.1",
		port:           server.DEFAULT_PORT,
	}
	for _, opt := range opts {
		opt(s)
	}

	ns, err := server.NewServer(&server.Options{
		Host:   s.host,
		Port:   s.port,
		NoSigs: true,
		NoLog:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	s.ns = ns
	return s, nil
}

func (s *EmbeddedServer) Start() error {
	s.ns.Start()

	if !s.ns.ReadyForConnections(s.startupTimeout) {
		s.ns.Shutdown()
		return fmt.Errorf("nats server not ready for connections after %s", s.startupTimeout)
	}
	log.Info().Str("addr", s.ns.Addr().String()).Msg("embedded nats server listening")
	return nil
}

func (s *EmbeddedServer) ClientURL() string {
	return s.ns.ClientURL()
}

func (s *EmbeddedServer) Shutdown() {
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
}

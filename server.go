package adb

import (
	stderrors "errors"
	"fmt"
	"os/exec"
	"syscall"

	pkgerrors "github.com/pkg/errors"

	"github.com/openadb/goadb/internal/errors"
	"github.com/openadb/goadb/wire"
)

// ServerConfig describes how to reach (and, if necessary, start) the
// adb server.
type ServerConfig struct {
	// Host is the adb server's hostname, default "127.0.0.1".
	Host string
	// Port is the adb server's port, default 5037.
	Port int
	// PathToAdb is the path to the adb binary used to start the server
	// when the initial connection is refused. Default "adb" (resolved
	// via PATH).
	PathToAdb string
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Host == "" {
		c.Host = "127.0.0.1"
	}
	if c.Port == 0 {
		c.Port = 5037
	}
	if c.PathToAdb == "" {
		c.PathToAdb = "adb"
	}
	return c
}

func (c ServerConfig) address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// isLocal reports whether the configured host is one this process could
// plausibly start a server for.
func (c ServerConfig) isLocal() bool {
	return c.Host == "127.0.0.1" || c.Host == "localhost"
}

// server is the minimal surface Adb/Device need from a transport
// provider; it lets tests substitute a MockServer for the real TCP
// dialer.
type server interface {
	Dial() (*wire.Conn, error)
	Start() error
}

type realServer struct {
	config ServerConfig
}

func newServer(config ServerConfig) (server, error) {
	return &realServer{config: config.withDefaults()}, nil
}

func (s *realServer) String() string {
	return fmt.Sprintf("server(%s)", s.config.address())
}

// Dial connects to the configured adb server, starting it once via
// PathToAdb if the initial connection is refused and the host is local.
func (s *realServer) Dial() (*wire.Conn, error) {
	conn, err := wire.Dial(s.config.address())
	if err == nil {
		return conn, nil
	}
	if !isConnRefused(err) || !s.config.isLocal() {
		return nil, err
	}

	if startErr := s.Start(); startErr != nil {
		return nil, errors.WrapErrf(startErr, "error starting server to retry connection")
	}

	conn, err = wire.Dial(s.config.address())
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Start invokes "<PathToAdb> start-server" and waits for it to exit.
func (s *realServer) Start() error {
	cmd := exec.Command(s.config.PathToAdb, "start-server")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.WrapErrorf(pkgerrors.WithMessage(err, string(output)),
			errors.ServerNotAvailable, "error running %s start-server", s.config.PathToAdb)
	}
	return nil
}

// isConnRefused reports whether err is (or wraps, however deeply)
// ECONNREFUSED. Both our own *errors.Err and net.OpError implement
// Unwrap, so a plain errors.Is traversal covers wire.Dial's wrapping.
func isConnRefused(err error) bool {
	return stderrors.Is(err, syscall.ECONNREFUSED)
}

package wire

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/openadb/goadb/internal/errors"
)

// Scanner reads framed responses off an adb connection. Implementations
// must be safe to use from a single goroutine at a time; the protocol is
// inherently sequential.
type Scanner interface {
	io.Reader
	// ReadStatus reads the 4-byte status word for req and, if it is
	// FAIL, consumes and returns the failure message as an error.
	ReadStatus(req string) (string, error)
	// ReadMessage reads one length-prefixed message.
	ReadMessage() ([]byte, error)
	// ReadUntilEof reads until the underlying stream closes.
	ReadUntilEof() ([]byte, error)
	// NewSyncScanner reinterprets this connection as a SYNC-protocol
	// scanner. Callers must have already switched the socket with
	// "sync:".
	NewSyncScanner() SyncScanner
	Close() error
}

// Sender writes framed requests to an adb connection.
type Sender interface {
	io.Writer
	SendMessage(msg []byte) error
	NewSyncSender() SyncSender
	Close() error
}

// Conn is a single ADB host-protocol connection: one TCP transport,
// owned by exactly one command for its lifetime.
type Conn struct {
	Scanner
	Sender

	// ID is a diagnostic identifier for this connection; it is never
	// sent on the wire. Useful for correlating log lines across a
	// multi-step command (dial, switch, stream) when the caller has its
	// own logger.
	ID uuid.UUID
}

// NewConn builds a Conn from a Scanner/Sender pair. Production code gets
// both from Dial; tests may supply a fake implementing both interfaces
// (see server_mock_test.go).
func NewConn(scanner Scanner, sender Sender) *Conn {
	return &Conn{Scanner: scanner, Sender: sender, ID: uuid.New()}
}

// Close closes both halves of the connection. Scanner and Sender usually
// share the same underlying socket, so the second close of a net.Conn
// reports net.ErrClosed; that result is not treated as an error.
func (c *Conn) Close() error {
	senderErr := c.Sender.Close()
	scannerErr := c.Scanner.Close()
	if senderErr != nil {
		return senderErr
	}
	if stderrors.Is(scannerErr, net.ErrClosed) {
		return nil
	}
	return scannerErr
}

// NewSyncConn switches this connection into the SYNC sub-protocol. The
// caller must already have sent "sync:" and read an OKAY status.
func (c *Conn) NewSyncConn() *SyncConn {
	return &SyncConn{
		SyncScanner: c.Scanner.NewSyncScanner(),
		SyncSender:  c.Sender.NewSyncSender(),
		conn:        c,
	}
}

// Dial opens a new TCP connection to the adb server at addr
// ("host:port").
func Dial(addr string) (*Conn, error) {
	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, errors.WrapErrorf(err, errors.ConnectionError,
			"error dialing %s", addr)
	}
	return NewConn(newScanner(netConn), newSender(netConn)), nil
}

type realScanner struct {
	reader io.ReadCloser
	buf    *bufio.Reader
}

func newScanner(r io.ReadCloser) *realScanner {
	return &realScanner{reader: r, buf: bufio.NewReader(r)}
}

func (s *realScanner) Read(p []byte) (int, error) {
	return s.buf.Read(p)
}

func (s *realScanner) ReadStatus(req string) (string, error) {
	status := make([]byte, 4)
	if _, err := io.ReadFull(s.buf, status); err != nil {
		return "", errors.WrapErrorf(err, errors.NetworkError,
			"error reading status for %s", req)
	}

	switch string(status) {
	case StatusSuccess:
		return StatusSuccess, nil
	case StatusFailure:
		return StatusFailure, readStatusFailureAsError(s.buf, req)
	default:
		return string(status), errors.Errorf(errors.ParseError,
			"unexpected status for %s: %q", req, status)
	}
}

func (s *realScanner) ReadMessage() ([]byte, error) {
	return readMessage(s.buf)
}

func (s *realScanner) ReadUntilEof() ([]byte, error) {
	data, err := io.ReadAll(s.buf)
	if err != nil {
		return nil, errors.WrapErrorf(err, errors.NetworkError, "error reading until EOF")
	}
	return data, nil
}

func (s *realScanner) NewSyncScanner() SyncScanner {
	return newRealSyncScanner(s.buf)
}

func (s *realScanner) Close() error {
	return s.reader.Close()
}

type realSender struct {
	writer io.WriteCloser
}

func newSender(w io.WriteCloser) *realSender {
	return &realSender{writer: w}
}

func (s *realSender) Write(p []byte) (int, error) {
	return s.writer.Write(p)
}

func (s *realSender) SendMessage(msg []byte) error {
	return SendMessage(s.writer, msg)
}

func (s *realSender) NewSyncSender() SyncSender {
	return newRealSyncSender(s.writer)
}

func (s *realSender) Close() error {
	return s.writer.Close()
}

var _ fmt.Stringer = (*Conn)(nil)

// String returns a short diagnostic identifier, not part of the wire
// protocol.
func (c *Conn) String() string {
	return "conn:" + c.ID.String()
}

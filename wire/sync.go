package wire

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/openadb/goadb/internal/errors"
)

// SyncScanner reads framed responses from the SYNC sub-protocol: a
// 4-byte ASCII id followed by a 4-byte little-endian length and that
// many bytes of payload, except STAT/DENT records whose fixed fields
// are read individually below.
type SyncScanner interface {
	// ReadOctetString reads a 4-byte ASCII id (STAT, DENT, DATA, DONE,
	// FAIL, ...).
	ReadOctetString() (string, error)
	ReadInt32() (int32, error)
	ReadFileMode() (os.FileMode, error)
	ReadTime() (time.Time, error)
	// ReadString reads a u32 length followed by that many bytes as a
	// string (used for DENT names and FAIL messages).
	ReadString() (string, error)
	// ReadBytes reads a u32 length followed by that many bytes into buf
	// (used for DATA payloads, after the caller has already consumed
	// the DATA id with ReadOctetString).
	ReadBytes(buf *bytes.Buffer) error
	Close() error
}

// SyncSender writes SYNC sub-protocol requests.
type SyncSender interface {
	SendOctetString(string) error
	SendInt32(int32) error
	SendFileMode(os.FileMode) error
	SendTime(time.Time) error
	// SendString writes a u32 length followed by s, with no id prefix
	// (used for the path/path,mode payload that follows a request id).
	SendString(s string) error
	// SendFileData writes data as a sequence of DATA-id-prefixed chunks,
	// each no larger than SyncMaxChunkSize.
	SendFileData(data []byte) error
	Close() error
}

// SyncConn is a connection that has been switched into the SYNC
// sub-protocol via "sync:". It is not safe for concurrent use, and is
// unusable after Close (QUIT).
type SyncConn struct {
	SyncScanner
	SyncSender

	conn *Conn
}

// Close sends QUIT and closes the underlying connection. The SyncConn
// (and the Conn it was created from) must not be used afterwards.
func (c *SyncConn) Close() error {
	sendErr := c.SyncSender.SendOctetString(syncIDQuit)
	var closeErr error
	if c.conn != nil {
		closeErr = c.conn.Close()
	}
	if sendErr != nil {
		return sendErr
	}
	return closeErr
}

// realSyncScanner reads the SYNC wire format off a buffered reader.
type realSyncScanner struct {
	r io.Reader
}

func newRealSyncScanner(r io.Reader) *realSyncScanner {
	return &realSyncScanner{r: r}
}

func (s *realSyncScanner) readN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, errors.WrapErrorf(err, errors.NetworkError, "error reading %d bytes", n)
	}
	return buf, nil
}

func (s *realSyncScanner) ReadOctetString() (string, error) {
	b, err := s.readN(4)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *realSyncScanner) ReadInt32() (int32, error) {
	b, err := s.readN(4)
	if err != nil {
		return 0, err
	}
	return int32(decodeLE32(b)), nil
}

func (s *realSyncScanner) ReadFileMode() (os.FileMode, error) {
	raw, err := s.ReadInt32()
	if err != nil {
		return 0, err
	}
	return unixModeToFileMode(uint32(raw)), nil
}

func (s *realSyncScanner) ReadTime() (time.Time, error) {
	raw, err := s.ReadInt32()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(raw), 0), nil
}

func (s *realSyncScanner) ReadString() (string, error) {
	length, err := s.ReadInt32()
	if err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	b, err := s.readN(int(length))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *realSyncScanner) ReadBytes(buf *bytes.Buffer) error {
	length, err := s.ReadInt32()
	if err != nil {
		return err
	}
	if length == 0 {
		return nil
	}
	if length > SyncMaxChunkSize {
		return errors.Errorf(errors.ParseError,
			"sync data chunk exceeds maximum size: %d", length)
	}
	if _, err := io.CopyN(buf, s.r, int64(length)); err != nil {
		return errors.WrapErrorf(err, errors.NetworkError, "error reading %d data bytes", length)
	}
	return nil
}

func (s *realSyncScanner) Close() error { return nil }

// realSyncSender writes the SYNC wire format to a writer.
type realSyncSender struct {
	w io.Writer
}

func newRealSyncSender(w io.Writer) *realSyncSender {
	return &realSyncSender{w: w}
}

func (s *realSyncSender) SendOctetString(str string) error {
	if len(str) != 4 {
		return errors.Errorf(errors.AssertionError,
			"octet string must be exactly 4 bytes: %q", str)
	}
	_, err := io.WriteString(s.w, str)
	if err != nil {
		return errors.WrapErrorf(err, errors.NetworkError, "error writing octet string %q", str)
	}
	return nil
}

func (s *realSyncSender) SendInt32(v int32) error {
	_, err := s.w.Write(encodeLE32(uint32(v)))
	if err != nil {
		return errors.WrapErrorf(err, errors.NetworkError, "error writing int32")
	}
	return nil
}

func (s *realSyncSender) SendFileMode(mode os.FileMode) error {
	return s.SendInt32(int32(fileModeToUnixMode(mode)))
}

func (s *realSyncSender) SendTime(t time.Time) error {
	return s.SendInt32(int32(t.Unix()))
}

// SendString writes s as a u32 length followed by its bytes, with no id
// prefix.
func (s *realSyncSender) SendString(str string) error {
	if err := s.SendInt32(int32(len(str))); err != nil {
		return err
	}
	if len(str) == 0 {
		return nil
	}
	if _, err := io.WriteString(s.w, str); err != nil {
		return errors.WrapErrorf(err, errors.NetworkError, "error writing string payload")
	}
	return nil
}

// SendFileData writes data as a sequence of DATA-id-prefixed chunks, each
// no larger than SyncMaxChunkSize (the adb DATA frame limit).
func (s *realSyncSender) SendFileData(data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > SyncMaxChunkSize {
			n = SyncMaxChunkSize
		}
		chunk := data[:n]
		if err := s.SendOctetString(syncIDData); err != nil {
			return err
		}
		if err := s.SendInt32(int32(n)); err != nil {
			return err
		}
		if _, err := s.w.Write(chunk); err != nil {
			return errors.WrapErrorf(err, errors.NetworkError, "error writing %d data bytes", n)
		}
		data = data[n:]
	}
	return nil
}

func (s *realSyncSender) Close() error { return nil }

// Unix S_IFMT file type bits, as sent on the wire by the SYNC
// sub-protocol's STAT/DENT records. These don't overlap Go's
// os.FileMode type bits, which is why ReadFileMode/SendFileMode
// translate rather than cast directly.
const (
	unixModeTypeMask = 0170000
	unixModeSocket   = 0140000
	unixModeSymlink  = 0120000
	unixModeRegular  = 0100000
	unixModeBlock    = 0060000
	unixModeDir      = 0040000
	unixModeChar     = 0020000
	unixModeFifo     = 0010000

	unixModeSetuid = 0004000
	unixModeSetgid = 0002000
	unixModeSticky = 0001000
)

// unixModeToFileMode converts a raw Unix st_mode value to the
// equivalent os.FileMode, preserving permission bits and translating
// the type bits to Go's layout so IsDir/IsRegular/etc. work as expected.
func unixModeToFileMode(raw uint32) os.FileMode {
	mode := os.FileMode(raw & 0777)

	switch raw & unixModeTypeMask {
	case unixModeDir:
		mode |= os.ModeDir
	case unixModeSymlink:
		mode |= os.ModeSymlink
	case unixModeFifo:
		mode |= os.ModeNamedPipe
	case unixModeSocket:
		mode |= os.ModeSocket
	case unixModeBlock:
		mode |= os.ModeDevice
	case unixModeChar:
		mode |= os.ModeDevice | os.ModeCharDevice
	case unixModeRegular:
		// No extra bits; a plain permission mode is already "regular".
	}

	if raw&unixModeSetuid != 0 {
		mode |= os.ModeSetuid
	}
	if raw&unixModeSetgid != 0 {
		mode |= os.ModeSetgid
	}
	if raw&unixModeSticky != 0 {
		mode |= os.ModeSticky
	}

	return mode
}

// fileModeToUnixMode is unixModeToFileMode's inverse, used when sending
// a mode the client constructed (e.g. for SYNC SEND) back onto the wire.
func fileModeToUnixMode(mode os.FileMode) uint32 {
	raw := uint32(mode.Perm())

	switch {
	case mode&os.ModeDir != 0:
		raw |= unixModeDir
	case mode&os.ModeSymlink != 0:
		raw |= unixModeSymlink
	case mode&os.ModeNamedPipe != 0:
		raw |= unixModeFifo
	case mode&os.ModeSocket != 0:
		raw |= unixModeSocket
	case mode&os.ModeCharDevice != 0:
		raw |= unixModeChar
	case mode&os.ModeDevice != 0:
		raw |= unixModeBlock
	default:
		raw |= unixModeRegular
	}

	if mode&os.ModeSetuid != 0 {
		raw |= unixModeSetuid
	}
	if mode&os.ModeSetgid != 0 {
		raw |= unixModeSetgid
	}
	if mode&os.ModeSticky != 0 {
		raw |= unixModeSticky
	}

	return raw
}

func decodeLE32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func encodeLE32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

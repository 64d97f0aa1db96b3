package wire

import (
	"fmt"
	"io"

	"github.com/openadb/goadb/internal/errors"
)

// MaxMessageLength is the largest payload the host protocol's 4-hex-digit
// length header can address.
const MaxMessageLength = 0xFFFF

// RemoteError is returned when the server replies with a FAIL status.
// Message is the text the server sent describing the failure.
type RemoteError struct {
	Request string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("adb: server error for %s request: %s", e.Request, e.Message)
}

// SendMessage writes msg as a single host-protocol frame: a 4-character
// lowercase hex length followed by msg itself.
func SendMessage(w io.Writer, msg []byte) error {
	if len(msg) > MaxMessageLength {
		return errors.Errorf(errors.AssertionError,
			"message length exceeds maximum: %d", len(msg))
	}

	lengthPrefix := lengthPrefixBytes(len(msg))

	buf := make([]byte, 0, len(lengthPrefix)+len(msg))
	buf = append(buf, lengthPrefix...)
	buf = append(buf, msg...)

	if _, err := w.Write(buf); err != nil {
		return errors.WrapErrorf(err, errors.NetworkError, "error sending message %s", msg)
	}
	return nil
}

// SendMessageString is SendMessage for a string payload. If w is a
// Sender (such as a *Conn), the frame is sent through its SendMessage.
func SendMessageString(w io.Writer, msg string) error {
	if s, ok := w.(Sender); ok {
		return s.SendMessage([]byte(msg))
	}
	return SendMessage(w, []byte(msg))
}

func lengthPrefixBytes(length int) []byte {
	return []byte(fmt.Sprintf("%04x", length))
}

// readHexLength reads exactly 4 ASCII hex digits from r and parses them
// as the length of the payload that follows.
func readHexLength(r io.Reader) (int, error) {
	lengthBytes := make([]byte, 4)
	if _, err := io.ReadFull(r, lengthBytes); err != nil {
		return 0, errors.WrapErrorf(err, errors.NetworkError, "error reading length")
	}

	length, err := parseHexUint16(lengthBytes)
	if err != nil {
		return 0, errors.WrapErrorf(err, errors.ParseError,
			"could not parse length from %v", lengthBytes)
	}
	return length, nil
}

func parseHexUint16(hexBytes []byte) (int, error) {
	var n int
	for _, b := range hexBytes {
		var v int
		switch {
		case b >= '0' && b <= '9':
			v = int(b - '0')
		case b >= 'a' && b <= 'f':
			v = int(b-'a') + 10
		case b >= 'A' && b <= 'F':
			v = int(b-'A') + 10
		default:
			return 0, fmt.Errorf("invalid hex digit %q", b)
		}
		n = n<<4 | v
	}
	return n, nil
}

// readMessage reads one length-prefixed message from r.
func readMessage(r io.Reader) ([]byte, error) {
	length, err := readHexLength(r)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return []byte{}, nil
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.WrapErrorf(err, errors.NetworkError,
			"error reading message data of length %d", length)
	}
	return data, nil
}

// readStatusFailureAsError reads a FAIL payload and returns it as a
// *RemoteError.
func readStatusFailureAsError(r io.Reader, req string) error {
	msg, err := readMessage(r)
	if err != nil {
		return errors.WrapErrf(err, "server error for %s, could not read error message", req)
	}
	return &RemoteError{Request: req, Message: string(msg)}
}

package adb

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/openadb/goadb/internal/errors"
	"github.com/openadb/goadb/wire"
)

// stat issues a SYNC STAT request and returns the parsed result. A mode
// of 0 means the path doesn't exist; DirEntry.Exists() reflects that.
func stat(conn *wire.SyncConn, path string) (*DirEntry, error) {
	if err := sendSyncRequest(conn, "STAT", path); err != nil {
		return nil, err
	}

	id, err := conn.ReadOctetString()
	if err != nil {
		return nil, err
	}
	if id != "STAT" {
		return nil, errors.Errorf(errors.ParseError, "expected STAT, got %q", id)
	}

	mode, err := conn.ReadFileMode()
	if err != nil {
		return nil, err
	}
	size, err := conn.ReadInt32()
	if err != nil {
		return nil, err
	}
	mtime, err := conn.ReadTime()
	if err != nil {
		return nil, err
	}

	return &DirEntry{Mode: mode, Size: size, ModifiedAt: mtime}, nil
}

// listDirEntries issues a SYNC LIST request and returns a lazily-read
// listing. "." and ".." are filtered out.
func listDirEntries(conn *wire.SyncConn, path string) (*DirEntries, error) {
	if err := sendSyncRequest(conn, "LIST", path); err != nil {
		return nil, err
	}
	return &DirEntries{scanner: &syncListScanner{conn: conn}}, nil
}

type syncListScanner struct {
	conn *wire.SyncConn
	done bool
}

func (s *syncListScanner) ReadNextEntry() (*DirEntry, bool, error) {
	for {
		if s.done {
			return nil, false, nil
		}

		id, err := s.conn.ReadOctetString()
		if err != nil {
			return nil, false, err
		}

		switch id {
		case "DENT":
			mode, err := s.conn.ReadFileMode()
			if err != nil {
				return nil, false, err
			}
			size, err := s.conn.ReadInt32()
			if err != nil {
				return nil, false, err
			}
			mtime, err := s.conn.ReadTime()
			if err != nil {
				return nil, false, err
			}
			name, err := s.conn.ReadString()
			if err != nil {
				return nil, false, err
			}
			if name == "." || name == ".." {
				continue
			}
			return &DirEntry{Name: name, Mode: mode, Size: size, ModifiedAt: mtime}, true, nil

		case "DONE":
			// DONE's fixed fields mirror DENT's (mode, size, mtime,
			// namelen) but are meaningless; consume and discard all four
			// so the connection is left positioned correctly if reused.
			for i := 0; i < 4; i++ {
				if _, err := s.conn.ReadInt32(); err != nil {
					return nil, false, err
				}
			}
			s.done = true
			return nil, false, nil

		case "FAIL":
			msg, err := s.conn.ReadString()
			if err != nil {
				return nil, false, err
			}
			return nil, false, &wire.RemoteError{Request: "LIST", Message: msg}

		default:
			return nil, false, errors.Errorf(errors.ParseError, "unexpected id in LIST response: %q", id)
		}
	}
}

func (s *syncListScanner) Close() error {
	return s.conn.Close()
}

// receiveFile issues a SYNC RECV request and returns a reader that
// streams the remote file's bytes as they arrive.
func receiveFile(conn *wire.SyncConn, path string) (io.ReadCloser, error) {
	if err := sendSyncRequest(conn, "RECV", path); err != nil {
		return nil, err
	}
	return &PullReader{conn: conn}, nil
}

// PullReader streams the bytes of a SYNC RECV and reports transfer
// progress. Closing it before reaching DONE cancels the transfer: the
// underlying SyncConn is closed and any in-flight read fails.
type PullReader struct {
	conn      *wire.SyncConn
	buf       bytes.Buffer
	bytesRead int64
	done      bool
	err       error
}

// BytesRead returns the number of payload bytes read from the wire so
// far, which is also the number of bytes made available to Read.
func (r *PullReader) BytesRead() int64 {
	return r.bytesRead
}

func (r *PullReader) Read(p []byte) (int, error) {
	for r.buf.Len() == 0 && !r.done && r.err == nil {
		r.fill()
	}
	if r.buf.Len() > 0 {
		return r.buf.Read(p)
	}
	if r.err != nil {
		return 0, r.err
	}
	return 0, io.EOF
}

func (r *PullReader) fill() {
	id, err := r.conn.ReadOctetString()
	if err != nil {
		r.err = err
		return
	}

	switch id {
	case "DATA":
		if err := r.conn.ReadBytes(&r.buf); err != nil {
			r.err = err
			return
		}
		r.bytesRead += int64(r.buf.Len())
	case "DONE":
		if _, err := r.conn.ReadInt32(); err != nil {
			r.err = err
			return
		}
		r.done = true
	case "FAIL":
		msg, err := r.conn.ReadString()
		if err != nil {
			r.err = err
			return
		}
		r.err = &wire.RemoteError{Request: "RECV", Message: msg}
	default:
		r.err = errors.Errorf(errors.ParseError, "unexpected id in RECV response: %q", id)
	}
}

// Close cancels the pull if it hasn't finished, and always closes the
// underlying SyncConn.
func (r *PullReader) Close() error {
	return r.conn.Close()
}

// sendFile issues a SYNC SEND request and returns a writer that streams
// bytes to the device as they're written.
func sendFile(conn *wire.SyncConn, path string, perms os.FileMode, mtime time.Time) (io.WriteCloser, error) {
	header := path + "," + modeString(perms)
	if err := conn.SendOctetString("SEND"); err != nil {
		return nil, err
	}
	if err := conn.SendString(header); err != nil {
		return nil, err
	}
	return &PushWriter{conn: conn, mtime: mtime}, nil
}

// PushWriter streams bytes to a SYNC SEND and reports transfer progress.
// Close finalizes the transfer with DONE and the configured mtime
// (MtimeOfClose uses the time Close is called), then reads the server's
// single terminal OKAY/FAIL.
type PushWriter struct {
	conn             *wire.SyncConn
	mtime            time.Time
	bytesTransferred int64
	closed           bool
}

// BytesTransferred returns the number of bytes successfully written to
// the wire so far.
func (w *PushWriter) BytesTransferred() int64 {
	return w.bytesTransferred
}

func (w *PushWriter) Write(p []byte) (int, error) {
	if err := w.conn.SendFileData(p); err != nil {
		return 0, err
	}
	w.bytesTransferred += int64(len(p))
	return len(p), nil
}

func (w *PushWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	mtime := w.mtime
	if mtime.IsZero() {
		mtime = time.Now()
	}

	if err := w.conn.SendOctetString("DONE"); err != nil {
		w.conn.Close()
		return err
	}
	if err := w.conn.SendTime(mtime); err != nil {
		w.conn.Close()
		return err
	}

	status, err := w.conn.ReadOctetString()
	if err != nil {
		w.conn.Close()
		return err
	}
	if status == wire.StatusFailure {
		msg, _ := w.conn.ReadString()
		w.conn.Close()
		return &wire.RemoteError{Request: "SEND", Message: msg}
	}

	return w.conn.Close()
}

// Cancel aborts an in-progress pull by closing the underlying
// SyncConn; any subsequent read/write fails, and the SyncConn is not
// reusable afterwards.
func (r *PullReader) Cancel() error { return r.conn.Close() }

// Cancel aborts an in-progress push by closing the underlying SyncConn
// without sending DONE; the remote file may be left partially written.
func (w *PushWriter) Cancel() error {
	w.closed = true
	return w.conn.Close()
}

func sendSyncRequest(conn *wire.SyncConn, id, path string) error {
	if err := conn.SendOctetString(id); err != nil {
		return err
	}
	return conn.SendString(path)
}

// modeString renders the permission bits adb expects in a SEND request's
// "path,mode" header: a plain decimal integer, not the Go-syntax string
// os.FileMode.String() would produce.
func modeString(mode os.FileMode) string {
	return strconv.Itoa(int(mode.Perm()))
}

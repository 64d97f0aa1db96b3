package adb

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/cheggaaa/pb"
)

// AsyncWriter drives a background copy of a local file to a device over
// SYNC SEND, reporting progress as it goes. Create one with
// Device.DoSyncLocalFile.
type AsyncWriter struct {
	// C receives a (non-blocking, best-effort) notification after each
	// chunk written; read BytesCompleted/Progress in response.
	C chan struct{}
	// DoneCopy is closed once all local bytes have been handed to the
	// device, before the SYNC transfer is finalized.
	DoneCopy chan struct{}
	// Done is closed once the transfer (including finalization) is
	// complete, successfully or not; check Err() afterwards.
	Done chan struct{}

	TotalSize int64

	bar            *pb.ProgressBar
	bytesCompleted int64

	mu  sync.Mutex
	err error
}

// BytesCompleted returns the number of local bytes written to the
// device so far.
func (aw *AsyncWriter) BytesCompleted() int64 {
	return atomic.LoadInt64(&aw.bytesCompleted)
}

// Progress returns BytesCompleted as a fraction of TotalSize, in [0,1].
// It returns 0 if TotalSize is 0.
func (aw *AsyncWriter) Progress() float64 {
	if aw.TotalSize == 0 {
		return 0
	}
	return float64(aw.BytesCompleted()) / float64(aw.TotalSize)
}

// Err returns the error that ended the transfer, if any. Only
// meaningful after Done is closed.
func (aw *AsyncWriter) Err() error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	return aw.err
}

// DoSyncLocalFile pushes localPath to remotePath on the device with the
// given permissions, returning immediately with an AsyncWriter that
// reports progress as the copy proceeds in the background.
func (c *Device) DoSyncLocalFile(remotePath, localPath string, perm os.FileMode) (*AsyncWriter, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, wrapClientError(err, c, "DoSyncLocalFile(%s)", localPath)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, wrapClientError(err, c, "DoSyncLocalFile(%s)", localPath)
	}

	writer, err := c.OpenWrite(remotePath, perm, MtimeOfClose)
	if err != nil {
		f.Close()
		return nil, wrapClientError(err, c, "DoSyncLocalFile(%s)", remotePath)
	}

	// This is a library, not a CLI, so the bar is only used for its
	// byte-counting bookkeeping; suppress the terminal rendering it
	// would otherwise do on Start/Add64.
	bar := pb.New64(info.Size())
	bar.ShowBar = false
	bar.ShowCounters = false
	bar.ShowPercent = false
	bar.ShowTimeLeft = false
	bar.ShowElapsedTime = false
	bar.ShowFinalTime = false
	bar.ShowSpeed = false
	bar.SetUnits(pb.U_BYTES)
	bar.Start()

	aw := &AsyncWriter{
		C:         make(chan struct{}, 1),
		DoneCopy:  make(chan struct{}),
		Done:      make(chan struct{}),
		TotalSize: info.Size(),
		bar:       bar,
	}

	go aw.run(f, writer)

	return aw, nil
}

func (aw *AsyncWriter) run(src *os.File, dst io.WriteCloser) {
	defer src.Close()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				dst.Close()
				aw.finish(epipeAsEOF(writeErr))
				return
			}
			aw.progress(int64(n))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			dst.Close()
			aw.finish(readErr)
			return
		}
	}

	close(aw.DoneCopy)
	aw.finish(epipeAsEOF(dst.Close()))
}

// epipeAsEOF treats a broken-pipe write/close error (the device end of
// the SYNC transfer going away, e.g. the process on the other end was
// killed) as a clean end of the transfer rather than a failure.
func epipeAsEOF(err error) error {
	if errors.Is(err, syscall.EPIPE) {
		return nil
	}
	return err
}

func (aw *AsyncWriter) progress(n int64) {
	atomic.AddInt64(&aw.bytesCompleted, n)
	aw.bar.Add64(n)
	select {
	case aw.C <- struct{}{}:
	default:
	}
}

func (aw *AsyncWriter) finish(err error) {
	aw.mu.Lock()
	aw.err = err
	aw.mu.Unlock()
	aw.bar.Finish()
	close(aw.Done)
}

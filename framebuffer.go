package adb

import (
	"io"

	"github.com/openadb/goadb/internal/errors"
)

// framebuffer versions, as reported by the first u32 of the header.
const (
	framebufferVersion1 = 1
	framebufferVersion2 = 2
)

// FramebufferInfo describes the layout of a raw framebuffer image
// returned by the "framebuffer:" service. Version 1 devices send a
// 12-word header; version 2 devices prepend a 13th word identifying a
// possibly nonstandard pixel format.
type FramebufferInfo struct {
	Version     uint32
	Bpp         uint32
	Size        uint32
	Width       uint32
	Height      uint32
	RedOffset   uint32
	RedLength   uint32
	BlueOffset  uint32
	BlueLength  uint32
	GreenOffset uint32
	GreenLength uint32
	AlphaOffset uint32
	AlphaLength uint32

	// Format is the raw format word from a version 2 header. It is 0 for
	// version 1 headers, where pixel layout is fully described by the
	// offset/length fields above.
	Format uint32
}

// FormatName returns a conventional name for the pixel layout the
// offset/length fields describe: "rgba"/"bgra" when AlphaLength is
// non-zero, "rgb"/"bgr" otherwise, with the "bgr" forms chosen when
// RedOffset is greater than BlueOffset. Format is not consulted, so a
// nonstandard version 2 format still gets one of these four names.
func (f *FramebufferInfo) FormatName() string {
	hasAlpha := f.AlphaLength > 0
	bgr := f.RedOffset > f.BlueOffset

	switch {
	case !hasAlpha && !bgr:
		return "rgb"
	case hasAlpha && !bgr:
		return "rgba"
	case !hasAlpha && bgr:
		return "bgr"
	case hasAlpha && bgr:
		return "bgra"
	}
	return "unknown"
}

// readFramebuffer reads the versioned framebuffer header from conn and
// returns the parsed info along with a reader for the remaining Size
// bytes of raw pixel data. The caller is responsible for closing conn
// once the pixel reader has been fully consumed or abandoned.
func readFramebuffer(conn io.ReadCloser) (*FramebufferInfo, io.ReadCloser, error) {
	version, err := readU32(conn)
	if err != nil {
		return nil, nil, err
	}

	info := &FramebufferInfo{Version: version}

	switch version {
	case framebufferVersion2:
		format, err := readU32(conn)
		if err != nil {
			return nil, nil, err
		}
		info.Format = format
	case framebufferVersion1:
		// No leading format word.
	default:
		return nil, nil, errors.Errorf(errors.ParseError,
			"unsupported framebuffer version: %d", version)
	}

	fields := []*uint32{
		&info.Bpp, &info.Size, &info.Width, &info.Height,
		&info.RedOffset, &info.RedLength,
		&info.BlueOffset, &info.BlueLength,
		&info.GreenOffset, &info.GreenLength,
		&info.AlphaOffset, &info.AlphaLength,
	}
	for _, f := range fields {
		v, err := readU32(conn)
		if err != nil {
			return nil, nil, err
		}
		*f = v
	}

	return info, &limitedReadCloser{r: io.LimitReader(conn, int64(info.Size)), c: conn}, nil
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.WrapErrorf(err, errors.NetworkError, "error reading framebuffer header")
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

// limitedReadCloser pairs an io.Reader bounded to a fixed size with a
// Closer for the underlying connection it reads from.
type limitedReadCloser struct {
	r io.Reader
	c io.Closer
}

func (l *limitedReadCloser) Read(p []byte) (int, error) { return l.r.Read(p) }
func (l *limitedReadCloser) Close() error                { return l.c.Close() }

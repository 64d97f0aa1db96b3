package adb

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func TestReadFramebufferVersion1(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(le32(1))  // version
	buf.Write(le32(32)) // bpp
	buf.Write(le32(4))  // size
	buf.Write(le32(2))  // width
	buf.Write(le32(2))  // height
	buf.Write(le32(0))  // red offset
	buf.Write(le32(8))  // red length
	buf.Write(le32(16)) // blue offset
	buf.Write(le32(8))  // blue length
	buf.Write(le32(8))  // green offset
	buf.Write(le32(8))  // green length
	buf.Write(le32(24)) // alpha offset
	buf.Write(le32(0))  // alpha length (no alpha -> rgb)
	buf.WriteString("pixl")

	nc := nopCloseReader{&buf}
	info, pixels, err := readFramebuffer(nc)
	assert.NoError(t, err)
	assert.EqualValues(t, 1, info.Version)
	assert.EqualValues(t, 4, info.Size)
	assert.Equal(t, "rgb", info.FormatName())

	data, err := io.ReadAll(pixels)
	assert.NoError(t, err)
	assert.Equal(t, "pixl", string(data))
}

func TestReadFramebufferVersion2HasFormatWord(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(le32(2))   // version
	buf.Write(le32(99))  // nonstandard format word
	buf.Write(le32(32))  // bpp
	buf.Write(le32(0))   // size
	buf.Write(le32(0))   // width
	buf.Write(le32(0))   // height
	buf.Write(le32(0))   // red offset
	buf.Write(le32(0))   // red length
	buf.Write(le32(0))   // blue offset
	buf.Write(le32(0))   // blue length
	buf.Write(le32(0))   // green offset
	buf.Write(le32(0))   // green length
	buf.Write(le32(0))   // alpha offset
	buf.Write(le32(0))   // alpha length

	nc := nopCloseReader{&buf}
	info, _, err := readFramebuffer(nc)
	assert.NoError(t, err)
	assert.EqualValues(t, 2, info.Version)
	assert.EqualValues(t, 99, info.Format)
}

func TestReadFramebufferUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(le32(3))
	nc := nopCloseReader{&buf}
	_, _, err := readFramebuffer(nc)
	assert.Error(t, err)
}

type nopCloseReader struct {
	io.Reader
}

func (nopCloseReader) Close() error { return nil }

package etf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// inflater decompresses the payload of compressed terms.  A reuse-mode
// decoder keeps one inflater and resets it for every payload.
type inflater struct {
	src bytes.Reader
	zr  io.ReadCloser
}

// errShortPayload reports compressed input that ends before its stream does.
var errShortPayload = newError(Truncated, -1, "compressed payload ends early")

// inflate decompresses src into dst, reusing dst's capacity and growing it
// only as output arrives, and returns the inflated bytes.  The stream must
// produce exactly size bytes and then end cleanly, with a valid checksum.
// Input left over after the end of the stream is ignored.  The returned
// slice is valid even when an error is returned, so its storage can be kept.
func (f *inflater) inflate(dst []byte, size int, src []byte) ([]byte, error) {
	dst = dst[:0]
	f.src.Reset(src)
	if f.zr == nil {
		zr, err := zlib.NewReader(&f.src)
		if err != nil {
			return dst, inflateError(err)
		}
		f.zr = zr
	} else if err := f.zr.(zlib.Resetter).Reset(&f.src, nil); err != nil {
		return dst, inflateError(err)
	}

	for len(dst) < size {
		if len(dst) == cap(dst) {
			dst = grow(dst, size)
		}
		limit := cap(dst)
		if limit > size {
			limit = size
		}
		n, err := f.zr.Read(dst[len(dst):limit])
		dst = dst[:len(dst)+n]
		if err == io.EOF {
			if len(dst) < size {
				return dst, fmt.Errorf("inflated %d bytes, declared %d", len(dst), size)
			}
			return dst, nil
		}
		if err != nil {
			return dst, inflateError(err)
		}
	}

	var extra [1]byte
	_, err := io.ReadFull(f.zr, extra[:])
	switch err {
	case io.EOF:
		return dst, nil
	case nil:
		return dst, errors.New("inflated data exceeds declared size")
	default:
		return dst, inflateError(err)
	}
}

// inflateError maps the zlib reader's report of exhausted input to a
// truncation error.
func inflateError(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errShortPayload
	}
	return err
}

// sliceWriter is an io.Writer that appends to a byte slice.
type sliceWriter struct {
	b []byte
}

func (w *sliceWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// deflater compresses terms for the compressed wrapper.  A reuse-mode
// encoder keeps one deflater and resets it for every message.
type deflater struct {
	level int
	out   sliceWriter
	zw    *zlib.Writer
}

// deflate appends the zlib compression of src to out.
func (f *deflater) deflate(out, src []byte) ([]byte, error) {
	f.out.b = out
	if f.zw == nil {
		zw, err := zlib.NewWriterLevel(&f.out, f.level)
		if err != nil {
			return nil, err
		}
		f.zw = zw
	} else {
		f.zw.Reset(&f.out)
	}
	if _, err := f.zw.Write(src); err != nil {
		return nil, err
	}
	if err := f.zw.Close(); err != nil {
		return nil, err
	}
	out = f.out.b
	f.out.b = nil
	return out, nil
}

package util

import (
	"compress/gzip"
	"errors"
	"io"
)

// ErrBodyTooLarge is returned by a BodyReader when the request body exceeds its limit.
var ErrBodyTooLarge = errors.New("request body exceeds the maximum size")

// BodyReader reads a request body, optionally decompressing it, and fails with ErrBodyTooLarge once
// more than MaxBytes have been read. The limit applies to both the compressed and decompressed size,
// so that a small gzip payload cannot expand without bound.
type BodyReader struct {
	MaxBytes int64

	base         *countingReader
	stream       io.Reader
	uncompressed int64
}

// NewBodyReader wraps r. If isGzipped is false and maxBytes is zero or negative, r is returned as is.
func NewBodyReader(r io.ReadCloser, isGzipped bool, maxBytes int64) (io.ReadCloser, error) {
	if !isGzipped && maxBytes <= 0 {
		return r, nil
	}

	base := &countingReader{base: r}
	var s io.Reader = base
	if isGzipped {
		gz, err := gzip.NewReader(s)
		if err != nil {
			return nil, err
		}
		s = gz
	}
	if maxBytes > 0 {
		// read one byte beyond the limit so that a body of exactly maxBytes is accepted
		s = io.LimitReader(s, maxBytes+1)
	}
	return &BodyReader{MaxBytes: maxBytes, base: base, stream: s}, nil
}

// BytesRead returns the number of bytes read from the underlying stream.
func (b *BodyReader) BytesRead() int64 {
	return b.base.n
}

// UncompressedBytesRead returns the number of bytes returned to the caller so far.
func (b *BodyReader) UncompressedBytesRead() int64 {
	return b.uncompressed
}

func (b *BodyReader) Read(p []byte) (int, error) {
	n, err := b.stream.Read(p)
	b.uncompressed += int64(n)
	if b.MaxBytes > 0 && (b.uncompressed > b.MaxBytes || b.base.n > b.MaxBytes) {
		_ = b.Close()
		return n, ErrBodyTooLarge
	}
	return n, err
}

// Close closes the underlying stream.
func (b *BodyReader) Close() error {
	if c, ok := b.base.base.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

type countingReader struct {
	base io.Reader
	n    int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.base.Read(p)
	c.n += int64(n)
	return n, err
}

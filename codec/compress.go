// Package codec provides Compressor and Checksum implementations for
// enet.HostSettings, built on real compression and hashing libraries
// rather than a hand-rolled range coder or CRC loop.
package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// DeflateCompressor implements enet.Compressor with DEFLATE, via
// klauspost/compress's faster drop-in replacement for compress/flate.
type DeflateCompressor struct {
	level int
}

// NewDeflateCompressor returns a DeflateCompressor at level (use
// flate.DefaultCompression for a sensible default).
func NewDeflateCompressor(level int) *DeflateCompressor {
	return &DeflateCompressor{level: level}
}

// Compress writes the DEFLATE encoding of in's concatenation into out.
// It returns an error if the compressed form would not fit in out,
// which the caller treats as "send uncompressed instead."
func (c *DeflateCompressor) Compress(in [][]byte, out []byte) (int, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, c.level)
	if err != nil {
		return 0, err
	}
	for _, b := range in {
		if _, err := w.Write(b); err != nil {
			return 0, err
		}
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	if buf.Len() > len(out) {
		return 0, io.ErrShortBuffer
	}
	return copy(out, buf.Bytes()), nil
}

// Decompress inflates in into out.
func (c *DeflateCompressor) Decompress(in []byte, out []byte) (int, error) {
	r := flate.NewReader(bytes.NewReader(in))
	defer r.Close()
	n := 0
	for {
		m, err := r.Read(out[n:])
		n += m
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if n == len(out) {
			return n, nil
		}
	}
}

// Package sink buffers a response body as an append-only chain of owned
// byte slices, mirroring an output buffer chain built up as segment data is
// produced and flushed to the client once complete.
package sink

import "io"

// Bucket is an io.Writer that retains a copy of everything written to it as
// a chain of chunks, plus a terminal flag set once the body is complete.
type Bucket struct {
	chunks [][]byte
	length int
	last   bool
}

// New returns an empty Bucket.
func New() *Bucket { return &Bucket{} }

// Write appends a copy of p as a new chunk. Always succeeds.
func (b *Bucket) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	b.chunks = append(b.chunks, cp)
	b.length += len(cp)
	return len(p), nil
}

// Finish marks the bucket's content as complete.
func (b *Bucket) Finish() { b.last = true }

// Len returns the total bytes written so far.
func (b *Bucket) Len() int { return b.length }

// Last reports whether Finish has been called.
func (b *Bucket) Last() bool { return b.last }

// WriteTo streams every chunk to w in order, stopping at the first error.
func (b *Bucket) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, c := range b.chunks {
		written, err := w.Write(c)
		n += int64(written)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// Reset clears the bucket so it can be reused for another response.
func (b *Bucket) Reset() {
	b.chunks = b.chunks[:0]
	b.length = 0
	b.last = false
}

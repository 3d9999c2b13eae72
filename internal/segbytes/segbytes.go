// Package segbytes implements SegmentedBytes: an ordered sequence of byte
// slices with a precomputed total length, iterable without concatenation.
// It backs request bodies throughout pkg/s3 so a PUT body or a multipart
// part can be replayed (for the one-shot RetryHead retry) without copying
// the underlying bytes.
package segbytes

import "io"

// Bytes is an immutable, ref-counted-by-sharing sequence of byte slices.
// The zero value is an empty SegmentedBytes.
type Bytes struct {
	segments [][]byte
	length   int64
}

// FromSlice wraps a single byte slice with no copying.
func FromSlice(b []byte) Bytes {
	if len(b) == 0 {
		return Bytes{}
	}
	return Bytes{segments: [][]byte{b}, length: int64(len(b))}
}

// Join concatenates multiple segments into one SegmentedBytes without
// copying any of them.
func Join(segments ...[]byte) Bytes {
	var total int64
	kept := make([][]byte, 0, len(segments))
	for _, s := range segments {
		if len(s) == 0 {
			continue
		}
		kept = append(kept, s)
		total += int64(len(s))
	}
	return Bytes{segments: kept, length: total}
}

// Len returns the total byte length across all segments.
func (b Bytes) Len() int64 { return b.length }

// Segments returns the underlying slices in order. Callers must not mutate
// them: SegmentedBytes is shared, zero-copy state.
func (b Bytes) Segments() [][]byte { return b.segments }

// NewReader returns a fresh io.Reader over the segments, independent of any
// other reader over the same Bytes (iteration is repeatable).
func (b Bytes) NewReader() io.Reader {
	return &reader{segs: b.segments}
}

// WriteTo streams every segment to w without an intermediate copy,
// implementing io.WriterTo. (The aws-chunked encoder reads through
// NewReader instead.)
func (b Bytes) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, seg := range b.segments {
		written, err := w.Write(seg)
		n += int64(written)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

type reader struct {
	segs [][]byte
	i    int
	off  int
}

func (r *reader) Read(p []byte) (int, error) {
	total := 0
	for total < len(p) {
		if r.i >= len(r.segs) {
			if total > 0 {
				return total, nil
			}
			return 0, io.EOF
		}
		cur := r.segs[r.i]
		n := copy(p[total:], cur[r.off:])
		total += n
		r.off += n
		if r.off >= len(cur) {
			r.i++
			r.off = 0
		}
	}
	return total, nil
}

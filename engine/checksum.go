package engine

import (
	"errors"
	"fmt"
	"hash"
	"hash/crc64"
	"io"
	"sync"
)

// DefaultBufferSize is the size of the buffers used to copy files that are
// not images.
const DefaultBufferSize = 256 * 1024

// ErrChecksumMismatch is wrapped by the CopyError returned when a copied
// file does not read back as the bytes that were written.
var ErrChecksumMismatch = errors.New("checksum mismatch")

var crcTable = crc64.MakeTable(crc64.ISO)

// ChecksumReader computes a CRC64 of everything read through it.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash64
	n    int64
}

// NewChecksumReader wraps r. A nil h gets a fresh CRC64 (ISO) hasher.
func NewChecksumReader(r io.Reader, h hash.Hash64) *ChecksumReader {
	if h == nil {
		h = crc64.New(crcTable)
	}
	return &ChecksumReader{r: r, hash: h}
}

func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.n += int64(n)
		cr.hash.Write(p[:n])
	}
	return n, err
}

// Sum returns the checksum and length of what has been read so far.
func (cr *ChecksumReader) Sum() (uint64, int64) {
	return cr.hash.Sum64(), cr.n
}

// copyScratch is the per-copy state taken from a CopyPool: the copy buffer
// and one hasher for each side of a verified copy.
type copyScratch struct {
	buf      []byte
	src, dst hash.Hash64
}

// CopyPool hands out copy buffers together with their CRC64 hashers so
// concurrent copies allocate neither per file.
type CopyPool struct {
	pool sync.Pool
}

// NewCopyPool creates a CopyPool with buffers of the given size.
// If size is <= 0, DefaultBufferSize is used.
func NewCopyPool(size int) *CopyPool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &CopyPool{
		pool: sync.Pool{
			New: func() any {
				return &copyScratch{
					buf: make([]byte, size),
					src: crc64.New(crcTable),
					dst: crc64.New(crcTable),
				}
			},
		},
	}
}

func (cp *CopyPool) get() *copyScratch {
	s := cp.pool.Get().(*copyScratch)
	s.src.Reset()
	s.dst.Reset()
	return s
}

func (cp *CopyPool) put(s *copyScratch) {
	cp.pool.Put(s)
}

// copy streams r into w through the pooled buffer and returns the CRC64
// and length of the source bytes.
func (s *copyScratch) copy(w io.Writer, r io.Reader) (uint64, int64, error) {
	cr := NewChecksumReader(r, s.src)
	// Neither side exposes ReadFrom/WriteTo, so the pooled buffer is used.
	if _, err := io.CopyBuffer(struct{ io.Writer }{w}, cr, s.buf); err != nil {
		return 0, 0, err
	}
	sum, n := cr.Sum()
	return sum, n, nil
}

// verify hashes r with the destination hasher and compares it to the
// source checksum and length.
func (s *copyScratch) verify(r io.Reader, want uint64, wantN int64) error {
	n, err := io.CopyBuffer(s.dst, struct{ io.Reader }{r}, s.buf)
	if err != nil {
		return err
	}
	if got := s.dst.Sum64(); got != want || n != wantN {
		return fmt.Errorf("%w: wrote %d bytes (crc64 %016x), read back %d bytes (crc64 %016x)",
			ErrChecksumMismatch, wantN, want, n, got)
	}
	return nil
}

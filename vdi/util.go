package vdi

import (
	"bytes"
	"io"
	"sync"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// readExactAt loops read_at until buf is full, surfacing a short final read
// as io.ErrUnexpectedEOF rather than a partial, silently-truncated buffer.
func readExactAt(r io.ReaderAt, off int64, buf []byte) error {
	total := 0
	for total < len(buf) {
		n, err := r.ReadAt(buf[total:], off+int64(total))
		total += n
		if err != nil {
			if err == io.EOF {
				if total < len(buf) {
					return io.ErrUnexpectedEOF
				}
				return nil
			}
			return err
		}
		if n == 0 {
			return io.ErrUnexpectedEOF
		}
	}
	return nil
}

// readPodAt decodes a fixed little-endian record at an absolute offset.
func readPodAt(r io.ReaderAt, off int64, v interface{}) error {
	size := struc.Sizeof(v)
	buf := make([]byte, size)
	if err := readExactAt(r, off, buf); err != nil {
		return errors.Wrap(err, "read POD record")
	}
	return struc.Unpack(bytes.NewReader(buf), v)
}

// seekerReaderAt adapts a Read+Seek backing store into io.ReaderAt by
// serialising seek-then-read pairs behind a mutex, the same guard the
// original VDI decoder places around its backing reader.
type seekerReaderAt struct {
	mu sync.Mutex
	rs io.ReadSeeker
}

func (s *seekerReaderAt) ReadAt(buf []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(s.rs, buf)
}

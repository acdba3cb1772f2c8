package ext4

import (
	"bytes"
	"io"

	"github.com/lunixbochs/struc"
	"golang.org/x/xerrors"
)

// readExactAt loops ReadAt until buf is full, turning a short final read
// into an explicit unexpected-EOF rather than a silently truncated buffer.
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

// readPodAt decodes a single fixed little-endian record at an absolute
// offset using the record's struc tags.
func readPodAt(r io.ReaderAt, off int64, v interface{}) error {
	size := struc.Sizeof(v)
	buf := make([]byte, size)
	if err := readExactAt(r, off, buf); err != nil {
		return xerrors.Errorf("read POD record at %d: %w", off, err)
	}
	return struc.Unpack(bytes.NewReader(buf), v)
}

func divCeil(a, b uint32) uint32 {
	if b == 0 {
		return 0
	}
	n := a / b
	if a%b != 0 {
		n++
	}
	return n
}

package ext4

import (
	"io"

	"golang.org/x/xerrors"
)

// File is a seekable, read-only stream over a regular file's contents,
// opened via Reader.Open. Multiple Files may be open concurrently against
// the same Reader provided the backing io.ReaderAt is itself concurrency
// safe; each File carries its own independent cursor.
type File struct {
	reader   *Reader
	inode    Inode
	position int64
	size     int64
}

// Size returns the file's declared byte size.
func (f *File) Size() int64 { return f.size }

// Read fills p with up to len(p) bytes starting at the current cursor,
// advancing the cursor by the number of bytes returned. It returns
// (0, io.EOF) once the cursor reaches the file's size.
func (f *File) Read(p []byte) (int, error) {
	if f.position >= f.size {
		return 0, io.EOF
	}

	remaining := f.size - f.position
	want := int64(len(p))
	if want > remaining {
		want = remaining
	}
	if want == 0 {
		return 0, nil
	}

	n, err := f.reader.readFileRange(&f.inode, f.position, p[:want])
	f.position += int64(n)
	return n, err
}

// Seek repositions the cursor within [0, size]; seeking beyond size fails.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = f.position + offset
	case io.SeekEnd:
		newPos = f.size + offset
	default:
		return 0, xerrors.New("invalid whence")
	}

	if newPos < 0 || newPos > f.size {
		return 0, xerrors.Errorf("seek out of range: %d (size %d)", newPos, f.size)
	}
	f.position = newPos
	return f.position, nil
}

// readFileRange serves up to len(out) bytes of inode's data starting at
// logical byte offset start, by locating the containing blocks via the
// inode's block list (direct pointers or extent tree) and indexing
// directly into it rather than skipping blocks one at a time.
func (r *Reader) readFileRange(inode *Inode, start int64, out []byte) (int, error) {
	blocks, err := r.blockList(inode)
	if err != nil {
		return 0, xerrors.Errorf("list file blocks: %w", err)
	}

	startBlock := start / r.blockSize
	startOffset := start % r.blockSize
	if startBlock >= int64(len(blocks)) {
		return 0, io.EOF
	}

	var written int
	remaining := len(out)
	for i := startBlock; i < int64(len(blocks)) && remaining > 0; i++ {
		block := blocks[i]
		skip := int64(0)
		if i == startBlock {
			skip = startOffset
		}

		readSize := r.blockSize - skip
		if int64(remaining) < readSize {
			readSize = int64(remaining)
		}

		if err := readExactAt(r.r, block*r.blockSize+skip, out[written:written+int(readSize)]); err != nil {
			return written, xerrors.Errorf("read file block %d: %w", block, err)
		}

		written += int(readSize)
		remaining -= int(readSize)
	}

	return written, nil
}

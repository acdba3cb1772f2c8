package vdi

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Disk is a positioned-read view over a VirtualBox Dynamic Image: reads
// against virtual disk offsets are translated through the allocation table
// onto the backing file, with unallocated blocks materialised as zeros.
// A Disk is immutable after Open and safe for concurrent ReadAt calls
// whenever the backing io.ReaderAt is itself safe for concurrent use.
type Disk struct {
	Header VdiHeader

	blockSize    int64
	blockOffsets []int64 // file offset of block i, or -1 when unallocated

	backing io.ReaderAt
	log     *zap.SugaredLogger
}

// Option configures a Disk at Open time.
type Option func(*Disk)

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Disk) { d.log = l }
}

// Open decodes the VDI header and allocation table from r and returns a
// ready-to-use positioned reader. r must support concurrent ReadAt if the
// resulting Disk will be shared across goroutines.
func Open(r io.ReaderAt, opts ...Option) (*Disk, error) {
	d := &Disk{backing: r, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(d)
	}

	var hdr VdiHeader
	if err := readPodAt(r, 0, &hdr); err != nil {
		return nil, errors.Wrap(err, "read VDI header")
	}
	if hdr.Signature != vdiSignature {
		return nil, ErrInvalidSignature
	}
	if hdr.Version != vdiVersion {
		return nil, ErrUnsupportedVersion
	}
	if hdr.ImageType != vdiImageTypeDynamic {
		return nil, ErrUnsupportedImgType
	}

	d.Header = hdr
	d.blockSize = int64(hdr.BlockSize)
	d.log.Debugw("vdi header decoded",
		"blockSize", d.blockSize,
		"blocksInImage", hdr.BlocksInImage,
		"diskSize", hdr.DiskSize,
	)

	table := make([]byte, int(hdr.BlocksInImage)*4)
	if err := readExactAt(r, int64(hdr.BlockOffsetsOff), table); err != nil {
		return nil, errors.Wrap(err, "read VDI allocation table")
	}

	d.blockOffsets = make([]int64, hdr.BlocksInImage)
	for i := range d.blockOffsets {
		loc := binary.LittleEndian.Uint32(table[i*4 : i*4+4])
		if loc == unallocatedEntry {
			d.blockOffsets[i] = -1
		} else {
			d.blockOffsets[i] = int64(hdr.DataOffset) + int64(loc)*d.blockSize
		}
	}

	return d, nil
}

// OpenSeeker is a convenience for backing stores that only implement
// Read+Seek (e.g. a pipe-backed or non-ReaderAt source); reads are
// serialised internally.
func OpenSeeker(rs io.ReadSeeker, opts ...Option) (*Disk, error) {
	return Open(&seekerReaderAt{rs: rs}, opts...)
}

// BlockSize returns the VDI's block size in bytes.
func (d *Disk) BlockSize() int64 { return d.blockSize }

// DiskSize returns the virtual disk size in bytes.
func (d *Disk) DiskSize() int64 { return int64(d.Header.DiskSize) }

// ReadAt implements io.ReaderAt over the virtual, contiguous disk address
// space, zero-filling unallocated blocks and issuing at most one backing
// read per physical block crossed.
func (d *Disk) ReadAt(buf []byte, pos int64) (int, error) {
	total := 0
	for total < len(buf) {
		blockIndex := pos / d.blockSize
		if blockIndex >= int64(len(d.blockOffsets)) {
			break
		}
		blockOffset := pos % d.blockSize
		chunk := len(buf) - total
		if rem := d.blockSize - blockOffset; int64(chunk) > rem {
			chunk = int(rem)
		}

		fileOffset := d.blockOffsets[blockIndex]
		if fileOffset < 0 {
			for i := 0; i < chunk; i++ {
				buf[total+i] = 0
			}
			total += chunk
			pos += int64(chunk)
			continue
		}

		n, err := d.backing.ReadAt(buf[total:total+chunk], fileOffset+blockOffset)
		total += n
		pos += int64(n)
		if err != nil && err != io.EOF {
			return total, err
		}
		if n == 0 {
			break
		}
	}

	if total < len(buf) {
		return total, io.EOF
	}
	return total, nil
}

// Slice returns a positioned reader over [start, end) of the virtual disk,
// borrowing d; d must outlive the returned Slice.
func (d *Disk) Slice(start, end int64) *Slice {
	return &Slice{underlying: d, start: start, end: end}
}

// SliceOwned returns a positioned reader over [start, end) of the virtual
// disk, taking its own copy of d's decoded state. Once SliceOwned has been
// called the caller should treat d as consumed and prefer the returned
// OwnedSlice.
func (d *Disk) SliceOwned(start, end int64) *OwnedSlice {
	owned := *d
	return &OwnedSlice{disk: &owned, start: start, end: end}
}

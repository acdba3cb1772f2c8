// Package partition supplies the minimal "list partitions" collaborator
// the ext4/vdi core treats as external: given a positioned reader over a
// disk image, return the byte ranges of the partitions it contains. Only
// classic MBR (up to four primary entries, no extended/logical chain) is
// implemented — enough to exercise the VDI→ext4 composition end-to-end in
// this module's own tests without depending on a third-party partitioning
// library the example corpus doesn't otherwise supply.
package partition

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Entry describes one partition's byte range within the backing image.
type Entry struct {
	ID        int
	FirstByte int64
	Len       int64
}

// Lister is the external collaborator contract the ext4/vdi core consumes.
type Lister interface {
	ListPartitions(r io.ReaderAt) ([]Entry, error)
}

// MBR lists classic MBR primary partitions.
type MBR struct{}

const (
	mbrSignatureOffset = 510
	mbrSignatureLo     = 0x55
	mbrSignatureHi     = 0xAA
	mbrPartitionTable  = 446
	mbrEntrySize       = 16
	mbrEntryCount      = 4
	sectorSize         = 512
)

// ListPartitions reads the boot sector at offset 0 and returns every
// non-empty primary partition entry (type byte != 0).
func (MBR) ListPartitions(r io.ReaderAt) ([]Entry, error) {
	sector := make([]byte, sectorSize)
	if _, err := r.ReadAt(sector, 0); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "read boot sector")
	}

	if sector[mbrSignatureOffset] != mbrSignatureLo || sector[mbrSignatureOffset+1] != mbrSignatureHi {
		return nil, errors.New("missing MBR boot signature")
	}

	var entries []Entry
	for i := 0; i < mbrEntryCount; i++ {
		raw := sector[mbrPartitionTable+i*mbrEntrySize : mbrPartitionTable+(i+1)*mbrEntrySize]
		partType := raw[4]
		if partType == 0 {
			continue
		}

		lbaStart := binary.LittleEndian.Uint32(raw[8:12])
		numSectors := binary.LittleEndian.Uint32(raw[12:16])
		entries = append(entries, Entry{
			ID:        i,
			FirstByte: int64(lbaStart) * sectorSize,
			Len:       int64(numSectors) * sectorSize,
		})
	}

	return entries, nil
}

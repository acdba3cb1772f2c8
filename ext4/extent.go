package ext4

import (
	"bytes"

	"github.com/lunixbochs/struc"
	"golang.org/x/xerrors"
)

const extentHeaderLen = 12 // struc.Sizeof(extentHeader{})
const extentEntryLen = 12  // struc.Sizeof(extentLeaf{}) == struc.Sizeof(extentIndex{})

// walkExtents recursively interprets a 60-byte (inode root) or block-sized
// (internal node) extent tree buffer and returns the flat, logical-order
// list of physical block numbers it covers.
func (r *Reader) walkExtents(data []byte) ([]int64, error) {
	if len(data) < extentHeaderLen {
		return nil, errUnsupported("extents")
	}

	var hdr extentHeader
	if err := struc.Unpack(bytes.NewReader(data[:extentHeaderLen]), &hdr); err != nil {
		return nil, xerrors.Errorf("decode extent header: %w", err)
	}
	if hdr.Magic != extentHeaderMagic {
		return nil, errUnsupported("extents")
	}

	var blocks []int64
	for entry := uint16(0); entry < hdr.Entries; entry++ {
		base := extentHeaderLen + int(entry)*extentEntryLen
		if base+extentEntryLen > len(data) {
			// Entry falls outside the (possibly truncated, 60-byte root)
			// buffer; spec calls for skipping rather than failing.
			break
		}
		raw := data[base : base+extentEntryLen]

		if hdr.Depth == 0 {
			var leaf extentLeaf
			if err := struc.Unpack(bytes.NewReader(raw), &leaf); err != nil {
				return nil, xerrors.Errorf("decode extent leaf: %w", err)
			}
			start := leaf.physicalStart()
			for j := uint16(0); j < leaf.Len; j++ {
				blocks = append(blocks, start+int64(j))
			}
		} else {
			var idx extentIndex
			if err := struc.Unpack(bytes.NewReader(raw), &idx); err != nil {
				return nil, xerrors.Errorf("decode extent index: %w", err)
			}

			child := make([]byte, r.blockSize)
			childOffset := idx.childBlock() * r.blockSize
			if err := readExactAt(r.r, childOffset, child); err != nil {
				return nil, xerrors.Errorf("read extent child block: %w", err)
			}

			childBlocks, err := r.walkExtents(child)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, childBlocks...)
		}
	}

	return blocks, nil
}

// blockList returns the inode's data blocks in logical order, dispatching
// to the extent-tree walker or the direct-pointer array depending on
// whether the extents-enabled flag is set.
func (r *Reader) blockList(inode *Inode) ([]int64, error) {
	if inode.UsesExtents() {
		return r.walkExtents(inode.Block[:])
	}

	var blocks []int64
	for _, b := range inode.directBlocks() {
		blocks = append(blocks, int64(b))
	}
	return blocks, nil
}

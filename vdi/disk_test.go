package vdi

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// buildImage assembles a minimal dynamic VDI image in memory: header,
// allocation table, and whatever data bytes the caller pokes in afterward.
func buildImage(t *testing.T, imageType, blockSize, blocksInImage, dataOffset uint32, allocation []uint32, diskSize uint64) []byte {
	t.Helper()

	const headerSize = 0x40 + 4*5 + 0x100 + 4*2 + 4*5 + 8 + 4*4 + 16*4
	blockOffsetsOff := uint32(headerSize)

	size := int(dataOffset) + int(blocksInImage)*int(blockSize)
	if tableEnd := headerSize + int(blocksInImage)*4; tableEnd > size {
		size = tableEnd
	}
	buf := make([]byte, size)
	putU32 := func(off int, v uint32) { le32(buf[off:off+4], v) }
	putU32(0x40, vdiSignature)
	putU32(0x44, vdiVersion)
	putU32(0x48, 0) // header size, unused by this reader
	putU32(0x4c, imageType)
	putU32(0x50, 0) // image flags
	off := 0x54 + 0x100
	putU32(off, blockOffsetsOff)
	putU32(off+4, dataOffset)
	off += 8 + 4*5 // cylinders, heads, sectors, sector_size, unused1
	le64(buf[off:off+8], diskSize)
	off += 8
	putU32(off, blockSize)
	putU32(off+4, 0) // block_extra
	putU32(off+8, blocksInImage)
	putU32(off+12, blocksInImage)

	for i, v := range allocation {
		putU32(int(blockOffsetsOff)+i*4, v)
	}

	return buf
}

func le32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func le64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func TestOpenRejectsNonDynamicImageType(t *testing.T) {
	img := buildImage(t, 2, 1048576, 4, 0x200000, []uint32{0xFFFFFFFF, 0, 0xFFFFFFFF, 1}, 4*1048576)
	_, err := Open(bytes.NewReader(img))
	if !errors.Is(err, ErrUnsupportedImgType) {
		t.Fatalf("expected ErrUnsupportedImgType, got %v", err)
	}
}

func TestOpenRejectsBadSignature(t *testing.T) {
	img := buildImage(t, 1, 1048576, 4, 0x200000, []uint32{0xFFFFFFFF, 0, 0xFFFFFFFF, 1}, 4*1048576)
	le32(img[0x40:0x44], 0xDEADBEEF)
	_, err := Open(bytes.NewReader(img))
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestDiskReadAtZerosUnallocatedAndTranslatesAllocated(t *testing.T) {
	const blockSize = 1048576
	const dataOffset = 0x200000
	img := buildImage(t, 1, blockSize, 4, dataOffset, []uint32{0xFFFFFFFF, 0, 0xFFFFFFFF, 1}, 4*blockSize)

	want := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	copy(img[dataOffset:], want)

	disk, err := Open(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	zeros := make([]byte, 16)
	n, err := disk.ReadAt(zeros, 0)
	if err != nil && err != io.EOF {
		t.Fatalf("ReadAt(0): %v", err)
	}
	if n != 16 {
		t.Fatalf("expected 16 bytes, got %d", n)
	}
	for _, b := range zeros {
		if b != 0 {
			t.Fatalf("expected unallocated block to read as zero, got %v", zeros)
		}
	}

	got := make([]byte, 4)
	n, err = disk.ReadAt(got, blockSize)
	if err != nil {
		t.Fatalf("ReadAt(blockSize): %v", err)
	}
	if n != 4 || !bytes.Equal(got, want) {
		t.Fatalf("expected %v, got %v (n=%d)", want, got, n)
	}
}

func TestDiskReadAtEOFBeyondDiskSize(t *testing.T) {
	const blockSize = 16
	img := buildImage(t, 1, blockSize, 2, 0x100, []uint32{0, 0xFFFFFFFF}, 2*blockSize)
	disk, err := Open(bytes.NewReader(img))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	buf := make([]byte, 8)
	n, err := disk.ReadAt(buf, 2*blockSize)
	if n != 0 || err != io.EOF {
		t.Fatalf("expected (0, io.EOF) past disk size, got (%d, %v)", n, err)
	}
}

func TestSliceClampsAtRangeEnd(t *testing.T) {
	underlying := bytes.NewReader([]byte("0123456789"))
	s := NewSlice(underlying, 2, 6) // "2345"

	buf := make([]byte, 10)
	n, err := s.ReadAt(buf, 0)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(buf[:n]) != "2345" {
		t.Fatalf("expected 2345, got %q", buf[:n])
	}

	n, err = s.ReadAt(buf, 4)
	if n != 0 || err != io.EOF {
		t.Fatalf("expected (0, io.EOF) past slice end, got (%d, %v)", n, err)
	}
}

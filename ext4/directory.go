package ext4

import (
	"encoding/binary"
	"unicode/utf8"

	"golang.org/x/xerrors"
)

// readDirectoryEntries returns every directory record for inode, scanning
// its data blocks in logical order up to the inode's declared byte size.
// Records are parsed by hand rather than through struc because the scan
// must validate rec_len/name_len bounds before trusting them to index the
// buffer — struc's fixed-layout decode (as used for on-disk inode and
// superblock records elsewhere in this package) has no hook to reject a
// malformed length ahead of the read it implies.
func (r *Reader) readDirectoryEntries(inode *Inode) ([]dirRecord, error) {
	blocks, err := r.blockList(inode)
	if err != nil {
		return nil, xerrors.Errorf("list directory blocks: %w", err)
	}

	size := inode.GetSize()
	var entries []dirRecord
	var consumed int64

	for _, block := range blocks {
		if consumed >= size {
			break
		}

		buf := make([]byte, r.blockSize)
		if err := readExactAt(r.r, block*r.blockSize, buf); err != nil {
			return nil, xerrors.Errorf("read directory block %d: %w", block, err)
		}

		limit := int64(len(buf))
		if remaining := size - consumed; remaining < limit {
			limit = remaining
		}

		recs, used, err := scanDirectoryBlock(buf, limit)
		if err != nil {
			return nil, err
		}
		entries = append(entries, recs...)
		consumed += used
	}

	return entries, nil
}

// scanDirectoryBlock parses directory records from the start of buf up to
// limit bytes, per the ext4 directory-record layout: inode:u32, rec_len:u16,
// name_len:u8, file_type:u8, name:[name_len]byte, 4-byte aligned.
func scanDirectoryBlock(buf []byte, limit int64) ([]dirRecord, int64, error) {
	var entries []dirRecord
	var offset int64

	for offset < limit {
		if offset+8 > int64(len(buf)) {
			break
		}

		inode := binary.LittleEndian.Uint32(buf[offset : offset+4])
		recLen := binary.LittleEndian.Uint16(buf[offset+4 : offset+6])
		nameLen := buf[offset+6]
		fileType := buf[offset+7]

		if recLen == 0 || int64(recLen) > int64(len(buf))-offset {
			return nil, 0, ErrInvalidDirectoryEntry
		}
		if int64(nameLen)+8 > int64(recLen) {
			return nil, 0, ErrInvalidDirectoryEntry
		}

		nameBytes := buf[offset+8 : offset+8+int64(nameLen)]
		var name string
		if utf8.Valid(nameBytes) {
			name = string(nameBytes)
		} else {
			name = toValidUTF8Lossy(nameBytes)
		}

		if inode != 0 && name != "" {
			entries = append(entries, dirRecord{
				Inode:    inode,
				RecLen:   recLen,
				NameLen:  nameLen,
				FileType: fileType,
				Name:     name,
			})
		}

		offset += int64(recLen)
	}

	return entries, offset, nil
}

// toValidUTF8Lossy decodes b as UTF-8, substituting the replacement
// character for any invalid byte sequence.
func toValidUTF8Lossy(b []byte) string {
	out := make([]rune, 0, len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		out = append(out, r)
		b = b[size:]
	}
	return string(out)
}

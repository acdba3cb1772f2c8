package ext4

import (
	"io"
	"path"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/xerrors"
)

// Reader provides read-only, random-access queries against an ext2/3/4
// filesystem image exposed as an io.ReaderAt — typically a raw partition,
// or a *vdi.Slice re-based over one MBR partition of a VDI-backed disk.
// Reader is immutable after New and may be shared across goroutines
// whenever the backing io.ReaderAt is itself safe for concurrent use.
type Reader struct {
	r io.ReaderAt

	superblock Superblock
	groups     []GroupDescriptor
	blockSize  int64

	log *zap.SugaredLogger
}

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithLogger overrides the default no-op logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(r *Reader) { r.log = l }
}

// New bootstraps a Reader: decodes the superblock, derives the block size,
// and decodes the group descriptor table.
func New(r io.ReaderAt, opts ...Option) (*Reader, error) {
	fs := &Reader{r: r, log: zap.NewNop().Sugar()}
	for _, opt := range opts {
		opt(fs)
	}

	var sb Superblock
	if err := readPodAt(r, 1024, &sb); err != nil {
		return nil, xerrors.Errorf("read superblock: %w", err)
	}
	if sb.Magic != ext4SuperMagic {
		return nil, ErrInvalidSuperblock
	}

	fs.superblock = sb
	fs.blockSize = sb.GetBlockSize()

	gdtOffset := fs.blockSize
	if fs.blockSize == 1024 {
		gdtOffset = 2048
	}
	groupCount := divCeil(sb.BlocksCountLo, sb.BlocksPerGroup)

	fs.log.Debugw("ext4 superblock decoded",
		"blockSize", fs.blockSize,
		"groupCount", groupCount,
		"inodesPerGroup", sb.InodesPerGroup,
		"inodeSize", sb.InodeSize,
	)

	groups := make([]GroupDescriptor, groupCount)
	for i := range groups {
		if err := readPodAt(r, gdtOffset+int64(i)*32, &groups[i]); err != nil {
			return nil, xerrors.Errorf("read group descriptor %d: %w", i, err)
		}
	}
	fs.groups = groups

	return fs, nil
}

// readInode looks up a 1-based inode number and decodes its fixed record.
func (r *Reader) readInode(n uint32) (*Inode, error) {
	if n == 0 {
		return nil, ErrInvalidInode
	}

	group := (n - 1) / r.superblock.InodesPerGroup
	index := (n - 1) % r.superblock.InodesPerGroup
	if int(group) >= len(r.groups) {
		return nil, ErrInvalidInode
	}

	gd := r.groups[group]
	offset := gd.GetInodeTableLoc()*r.blockSize + int64(index)*int64(r.superblock.InodeSize)

	var inode Inode
	if err := readPodAt(r.r, offset, &inode); err != nil {
		return nil, xerrors.Errorf("read inode %d: %w", n, err)
	}
	return &inode, nil
}

// DirEntry is one entry in a ReadDir listing.
type DirEntry struct {
	Name   string
	Path   string
	IsFile bool
	IsDir  bool
	Size   int64
}

// Metadata describes the attributes of a resolved path.
type Metadata struct {
	IsFile bool
	IsDir  bool
	Size   int64
	Mode   uint16
}

// ReadDir resolves path to a directory inode and returns its entries,
// sorted ascending by name, with "." and ".." dropped.
func (r *Reader) ReadDir(dirPath string) ([]DirEntry, error) {
	inodeNum, err := r.findInode(dirPath)
	if err != nil {
		return nil, err
	}
	inode, err := r.readInode(inodeNum)
	if err != nil {
		return nil, err
	}
	if !inode.IsDir() {
		return nil, ErrNotADirectory
	}

	records, err := r.readDirectoryEntries(inode)
	if err != nil {
		return nil, err
	}

	var out []DirEntry
	for _, rec := range records {
		if rec.Name == "." || rec.Name == ".." {
			continue
		}

		isDir := rec.FileType == dirEntryFileTypeDir
		isFile := rec.FileType == dirEntryFileTypeRegular

		var size int64
		if isFile {
			childInode, err := r.readInode(rec.Inode)
			if err != nil {
				r.log.Warnw("failed to read child inode while listing directory; reporting size 0",
					"dir", dirPath, "name", rec.Name, "inode", rec.Inode, "error", err)
				size = 0
			} else {
				size = childInode.GetSize()
			}
		}

		out = append(out, DirEntry{
			Name:   rec.Name,
			Path:   path.Join(dirPath, rec.Name),
			IsFile: isFile,
			IsDir:  isDir,
			Size:   size,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Open resolves path to a regular file and returns a seekable stream over
// its contents.
func (r *Reader) Open(filePath string) (*File, error) {
	inodeNum, err := r.findInode(filePath)
	if err != nil {
		return nil, err
	}
	inode, err := r.readInode(inodeNum)
	if err != nil {
		return nil, err
	}
	if !inode.IsRegular() {
		return nil, ErrNotARegularFile
	}

	return &File{
		reader: r,
		inode:  *inode,
		size:   inode.GetSize(),
	}, nil
}

// Metadata resolves path and reports its attributes. Any failure (path not
// found, I/O error) yields (nil, error) from findInode/readInode collapsed
// to a nil Metadata — callers that only care about presence should use
// Exists.
func (r *Reader) Metadata(p string) *Metadata {
	inodeNum, err := r.findInode(p)
	if err != nil {
		return nil
	}
	inode, err := r.readInode(inodeNum)
	if err != nil {
		return nil
	}

	return &Metadata{
		IsFile: inode.IsRegular(),
		IsDir:  inode.IsDir(),
		Size:   inode.GetSize(),
		Mode:   inode.Mode,
	}
}

// Exists reports whether path resolves to an inode.
func (r *Reader) Exists(p string) bool {
	_, err := r.findInode(p)
	return err == nil
}

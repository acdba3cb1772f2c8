package ext4

import "golang.org/x/xerrors"

// Sentinel errors surfaced by the ext4 reader. Callers compare with
// errors.Is; UnsupportedFeatureError additionally carries the feature name.
var (
	ErrInvalidSuperblock     = xerrors.New("invalid ext4 superblock magic")
	ErrInvalidInode          = xerrors.New("invalid inode number")
	ErrNotFound              = xerrors.New("path not found")
	ErrNotADirectory         = xerrors.New("path component is not a directory")
	ErrNotARegularFile       = xerrors.New("not a regular file")
	ErrInvalidDirectoryEntry = xerrors.New("malformed directory record")
)

// UnsupportedFeatureError names an on-disk feature this reader does not
// implement, e.g. an extent node with a missing/invalid magic.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return "unsupported filesystem feature: " + e.Feature
}

func errUnsupported(feature string) error {
	return &UnsupportedFeatureError{Feature: feature}
}

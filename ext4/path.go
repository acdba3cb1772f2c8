package ext4

import "strings"

// findInode resolves a Unix-style, slash-separated path to its inode
// number, walking from the root (inode 2) one component at a time.
// Matching is exact bytes: no case folding, no normalisation.
func (r *Reader) findInode(path string) (uint32, error) {
	if path == "/" || path == "" {
		return rootInodeNumber, nil
	}

	current := uint32(rootInodeNumber)
	for _, component := range strings.Split(path, "/") {
		if component == "" {
			continue
		}

		inode, err := r.readInode(current)
		if err != nil {
			return 0, err
		}
		if !inode.IsDir() {
			return 0, ErrNotADirectory
		}

		entries, err := r.readDirectoryEntries(inode)
		if err != nil {
			return 0, err
		}

		found := false
		for _, e := range entries {
			if e.Name == component {
				current = e.Inode
				found = true
				break
			}
		}
		if !found {
			return 0, ErrNotFound
		}
	}

	return current, nil
}

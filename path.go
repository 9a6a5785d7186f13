package fat32

import (
	"strings"

	"github.com/l09dm0zgus/fat32-emulation/checkpoint"
)

// FindInDirectory iterates the directory at dirAddress and returns the
// first entry whose presented name case-insensitively matches name, or
// ErrNotFound.
func (fs *FS) FindInDirectory(dirAddress int64, name string) (*DirectoryIteratorEntry, error) {
	it := NewDirectoryIterator(dirAddress)
	upperName := strings.ToUpper(name)

	for {
		entry, err := fs.Next(it)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, checkpoint.From(ErrNotFound)
		}
		if strings.ToUpper(strings.TrimSpace(entry.Name())) == upperName {
			return entry, nil
		}
	}
}

// OpenPath resolves a '/'-separated path against the root directory,
// descending through intermediate directories via FindInDirectory. An
// entry resolved mid-path that is not a directory is ErrNotADirectory.
func (fs *FS) OpenPath(path string) (*DirectoryIteratorEntry, error) {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil, checkpoint.From(ErrInvalidArg)
	}

	return fs.openPathAt(fs.rootDirectoryAddress, path)
}

// openPathAt resolves path against the directory at dirAddress,
// splitting at the first '/' and recursing into subdirectories.
func (fs *FS) openPathAt(dirAddress int64, path string) (*DirectoryIteratorEntry, error) {
	head, rest, hasRest := strings.Cut(path, "/")

	entry, err := fs.FindInDirectory(dirAddress, head)
	if err != nil {
		return nil, err
	}

	if !hasRest || rest == "" {
		return entry, nil
	}

	if !entry.Entry.IsDirectory() {
		return nil, checkpoint.From(ErrNotADirectory)
	}

	return fs.openPathAt(fs.DataAddressOf(entry.Entry.FirstCluster()), rest)
}

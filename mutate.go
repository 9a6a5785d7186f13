package fat32

import (
	"encoding/binary"
	"strings"

	"github.com/go-restruct/restruct"

	"github.com/l09dm0zgus/fat32-emulation/checkpoint"
)

// Placeholder directory-entry timestamps for newly created entries.
// There is no time source here; every new entry is stamped with these
// fixed values.
const (
	placeholderCreationTenthSec = 0x25
	placeholderTime             = 0x7e3c
	placeholderDate             = 0x4262
)

// RenameVolume relabels the volume: validates the new name, uppercases
// it with a warning if it contained lowercase letters, overwrites the
// root directory's volume-label record in place, and mirrors the label
// into the EBPB cache. Fails with ErrInvalidArg if name is too long, or
// ErrNotFound if the volume carries no label record.
func (fs *FS) RenameVolume(name string) (warning string, err error) {
	if len(name) > 11 {
		return "", checkpoint.From(ErrInvalidArg)
	}

	if hasLower(name) {
		warning = "volume label '" + name + "' is not uppercase, using '" + strings.ToUpper(name) + "'"
	}
	upper := strings.ToUpper(name)
	padded := padLabel(upper)

	labelEntry, err := fs.findVolumeLabel()
	if err != nil {
		return warning, err
	}

	if _, err := fs.dev.WriteAt(padded, labelEntry.Address); err != nil {
		return warning, checkpoint.Wrap(err, ErrIO)
	}

	copy(fs.ebpb.Label[:], padded)
	fs.ebpbDirty = true

	return warning, nil
}

func hasLower(s string) bool {
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			return true
		}
	}
	return false
}

// findVolumeLabel scans the root directory for the short record
// carrying the VOLUME_ID attribute (and neither an LFN nor the
// DIRECTORY bit).
func (fs *FS) findVolumeLabel() (*DirectoryIteratorEntry, error) {
	it := NewDirectoryIterator(fs.rootDirectoryAddress)
	for {
		entry, err := fs.Next(it)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, checkpoint.From(ErrNotFound)
		}
		if entry.Entry.IsVolumeLabel() {
			return entry, nil
		}
	}
}

// CreateDirectoryEntry resolves currentFolder to a directory, appends a
// new SHORT record for entryName with the given size and attributes,
// allocates a free cluster for it, marks that cluster EndOfChain in the
// FAT, and writes a fresh end-of-directory sentinel after the new
// record. The FAT mark and the sentinel keep the new chain and the
// directory listing well-formed.
func (fs *FS) CreateDirectoryEntry(currentFolder, entryName string, size uint32, attributes byte) error {
	dirAddress, err := fs.resolveDirectory(currentFolder)
	if err != nil {
		return err
	}

	insertAddress := dirAddress
	it := NewDirectoryIterator(dirAddress)
	for {
		entry, err := fs.Next(it)
		if err != nil {
			return err
		}
		if entry == nil {
			break
		}
		insertAddress = entry.Address + dirEntrySize
	}

	cluster, err := fs.FindFreeCluster()
	if err != nil {
		return err
	}
	fs.setFATEntry(cluster, ClusterPtr(clusterEndOfChain))

	shortName, err := buildShortName(entryName)
	if err != nil {
		return err
	}

	newEntry := ShortDirEntry{
		FileName:             shortName,
		Attributes:           attributes,
		CreationTimeTenthSec: placeholderCreationTenthSec,
		CreationTime:         placeholderTime,
		CreationDate:         placeholderDate,
		AccessDate:           placeholderDate,
		FirstClusterHi:       uint16(cluster >> 16),
		ModificationTime:     placeholderTime,
		ModificationDate:     placeholderDate,
		FirstClusterLo:       uint16(cluster & 0xFFFF),
		FileSize:             size,
	}

	buf, err := restruct.Pack(binary.LittleEndian, &newEntry)
	if err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}
	if _, err := fs.dev.WriteAt(buf, insertAddress); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}

	sentinel := make([]byte, dirEntrySize)
	if _, err := fs.dev.WriteAt(sentinel, insertAddress+dirEntrySize); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}

	return nil
}

// resolveDirectory returns the byte address of path's data, treating
// "/" as the root directory.
func (fs *FS) resolveDirectory(path string) (int64, error) {
	if path == "/" {
		return fs.rootDirectoryAddress, nil
	}

	entry, err := fs.OpenPath(path)
	if err != nil {
		return 0, err
	}
	if !entry.Entry.IsDirectory() {
		return 0, checkpoint.From(ErrNotADirectory)
	}
	return fs.DataAddressOf(entry.Entry.FirstCluster()), nil
}

// buildShortName uppercases and space-pads entryName into the 11-byte
// short-name form. This mutator never synthesizes LFN fragments, so
// names longer than 11 bytes are rejected rather than shortened.
func buildShortName(entryName string) ([11]byte, error) {
	var name [11]byte
	if len(entryName) > 11 {
		return name, checkpoint.From(ErrInvalidArg)
	}
	for i := range name {
		name[i] = ' '
	}
	copy(name[:], strings.ToUpper(entryName))
	return name, nil
}

package fat32

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	"github.com/l09dm0zgus/fat32-emulation/checkpoint"
)

// flushDirty writes every dirty superblock region (BPB, EBPB, FSInfo,
// FAT) to its primary offset and to its mirrored backup offset. Both
// writes come from the in-memory copy; the on-disk state is never
// consulted, since it may be stale mid-session.
func (fs *FS) flushDirty() error {
	backupOffset := int64(fs.ebpb.BackupSectorNumber) * int64(fs.bpb.SectorSize)

	if fs.bpbDirty {
		buf, err := restruct.Pack(binary.LittleEndian, fs.bpb)
		if err != nil {
			return checkpoint.Wrap(err, ErrIO)
		}
		if err := fs.writeMirrored(buf, 0, backupOffset); err != nil {
			return err
		}
		fs.bpbDirty = false
	}

	if fs.ebpbDirty {
		buf, err := restruct.Pack(binary.LittleEndian, fs.ebpb)
		if err != nil {
			return checkpoint.Wrap(err, ErrIO)
		}
		if err := fs.writeMirrored(buf, bpbSize, backupOffset); err != nil {
			return err
		}
		fs.ebpbDirty = false
	}

	if fs.fsinfoDirty {
		buf, err := restruct.Pack(binary.LittleEndian, fs.fsinfo)
		if err != nil {
			return checkpoint.Wrap(err, ErrIO)
		}
		fsInfoOffset := int64(fs.ebpb.FSInfoSectorNumber) * int64(fs.bpb.SectorSize)
		if err := fs.writeMirrored(buf, fsInfoOffset, backupOffset); err != nil {
			return err
		}
		fs.fsinfoDirty = false
	}

	if fs.fatDirty {
		fatOffset := int64(fs.bpb.ReservedSectorCount) * int64(fs.bpb.SectorSize)
		if err := fs.writeMirrored(fs.fat, fatOffset, backupOffset); err != nil {
			return err
		}
		fs.fatDirty = false
	}

	return nil
}

// writeMirrored writes buf at primary, then again at primary+backupOffset.
func (fs *FS) writeMirrored(buf []byte, primary, backupOffset int64) error {
	if _, err := fs.dev.WriteAt(buf, primary); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}
	if _, err := fs.dev.WriteAt(buf, primary+backupOffset); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}
	return nil
}

// Close flushes every dirty cache to both the primary and backup
// regions, then releases the device. Safe to call once.
func (fs *FS) Close() error {
	flushErr := fs.flushDirty()
	closeErr := fs.dev.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

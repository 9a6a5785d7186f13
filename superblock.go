package fat32

import (
	"encoding/binary"

	"github.com/go-restruct/restruct"

	"github.com/l09dm0zgus/fat32-emulation/checkpoint"
)

// FS is the assembled filesystem context: the superblock cache (BPB,
// EBPB, FSInfo plus dirty flags), the FAT cache, and the layout anchors
// every other component computes offsets from. It is created by Open,
// Create, or Format and destroyed by Close; it is not reentrant - all
// operations on one FS execute on a single goroutine, in call order.
type FS struct {
	dev Device

	bpb    *BPB
	ebpb   *EBPB
	fsinfo *FSInfo
	fat    []byte

	bpbDirty    bool
	ebpbDirty   bool
	fsinfoDirty bool
	fatDirty    bool

	firstDataSector      uint32
	rootDirectoryAddress int64
	countOfClusters      uint32
	isFAT32              bool
}

// IsFAT32 reports whether the volume qualifies as FAT32 by cluster
// count: 65526 clusters or more. Smaller volumes would be FAT12/FAT16
// under the standard type-determination rule.
func (fs *FS) IsFAT32() bool {
	return fs.isFAT32
}

// RootDirectoryAddress returns the byte offset of the root directory's
// first cluster's data.
func (fs *FS) RootDirectoryAddress() int64 {
	return fs.rootDirectoryAddress
}

// Label returns the current volume label with trailing spaces removed.
func (fs *FS) Label() string {
	return trimTrailingSpaces(fs.ebpb.Label[:])
}

// Device returns the underlying Device, for callers (such as the shell's
// "format" command) that need to reformat in place without reopening it.
func (fs *FS) Device() Device {
	return fs.dev
}

// Open reads BPB, EBPB, FSInfo and the first FAT from dev into memory
// and returns the assembled context. dev is owned by the returned FS for
// the rest of its lifetime; Close releases it.
func Open(dev Device) (*FS, error) {
	fs := &FS{dev: dev}

	bpbBuf := make([]byte, bpbSize)
	if _, err := dev.ReadAt(bpbBuf, 0); err != nil {
		return nil, closeOnError(dev, checkpoint.Wrap(err, ErrIO))
	}
	fs.bpb = &BPB{}
	if err := restruct.Unpack(bpbBuf, binary.LittleEndian, fs.bpb); err != nil {
		return nil, closeOnError(dev, checkpoint.Wrap(err, ErrIO))
	}

	ebpbBuf := make([]byte, ebpbSize)
	if _, err := dev.ReadAt(ebpbBuf, bpbSize); err != nil {
		return nil, closeOnError(dev, checkpoint.Wrap(err, ErrIO))
	}
	fs.ebpb = &EBPB{}
	if err := restruct.Unpack(ebpbBuf, binary.LittleEndian, fs.ebpb); err != nil {
		return nil, closeOnError(dev, checkpoint.Wrap(err, ErrIO))
	}

	fsInfoOffset := int64(fs.ebpb.FSInfoSectorNumber) * int64(fs.bpb.SectorSize)
	fsInfoBuf := make([]byte, fsInfoSize)
	if _, err := dev.ReadAt(fsInfoBuf, fsInfoOffset); err != nil {
		return nil, closeOnError(dev, checkpoint.Wrap(err, ErrIO))
	}
	fs.fsinfo = &FSInfo{}
	if err := restruct.Unpack(fsInfoBuf, binary.LittleEndian, fs.fsinfo); err != nil {
		return nil, closeOnError(dev, checkpoint.Wrap(err, ErrIO))
	}

	fatOffset := int64(fs.bpb.ReservedSectorCount) * int64(fs.bpb.SectorSize)
	fatSize := int64(fs.ebpb.SectorsPerFAT32) * int64(fs.bpb.SectorSize)
	fs.fat = make([]byte, fatSize)
	if _, err := dev.ReadAt(fs.fat, fatOffset); err != nil {
		return nil, closeOnError(dev, checkpoint.Wrap(err, ErrIO))
	}

	fs.computeLayout()

	return fs, nil
}

// computeLayout derives firstDataSector, rootDirectoryAddress,
// countOfClusters and isFAT32 from the loaded BPB/EBPB.
func (fs *FS) computeLayout() {
	fs.firstDataSector = uint32(fs.bpb.ReservedSectorCount) + uint32(fs.bpb.FATCount)*fs.ebpb.SectorsPerFAT32
	fs.rootDirectoryAddress = int64(fs.firstDataSector) * int64(fs.bpb.SectorSize)

	totalSectors := fs.bpb.EffectiveSectorCount()
	dataSectors := totalSectors - fs.firstDataSector
	fs.countOfClusters = dataSectors / uint32(fs.bpb.SectorsPerCluster)
	fs.isFAT32 = fs.countOfClusters >= 65526
}

// Create formats a fresh diskSize-byte image on dev: zero-fills it,
// then writes the canonical BPB/EBPB/FSInfo, a FAT that is zero except
// for the root cluster's EndOfChain entry, and the initial
// root-directory volume-label record.
func Create(dev Device, diskSize int64) (*FS, error) {
	fs := &FS{dev: dev}

	if err := zeroFill(dev, diskSize); err != nil {
		return nil, closeOnError(dev, err)
	}

	totalSectors := diskSize / DefaultSectorSize
	clusters := uint32(float64(totalSectors-2) / (1 + float64(DefaultFATCount*fatEntryBytes)/float64(DefaultSectorSize)))
	sectorsPerFAT32 := (clusters*fatEntryBytes + DefaultSectorSize - 1) / DefaultSectorSize

	fs.bpb = &BPB{
		Reserved0:           [3]byte{0xEB, 0x58, 0x90},
		SectorSize:          DefaultSectorSize,
		SectorsPerCluster:   DefaultSectorsPerCluster,
		ReservedSectorCount: DefaultReservedSectors,
		FATCount:            DefaultFATCount,
		MediaType:           DefaultMediaType,
		LargeSectorCount32:  uint32(totalSectors),
	}
	copy(fs.bpb.OEMIdentifier[:], "MSDOS4.1")
	fs.bpbDirty = true

	fs.ebpb = &EBPB{
		SectorsPerFAT32:            sectorsPerFAT32,
		RootDirectoryClusterNumber: DefaultRootCluster,
		FSInfoSectorNumber:         DefaultFSInfoSector,
		BackupSectorNumber:         DefaultBackupSector,
		Signature:                  ebpbSignatureB,
		SerialNumber:               fixedSerialNumber,
	}
	copy(fs.ebpb.Label[:], padLabel("MSDOS 4.1  "))
	copy(fs.ebpb.SystemID[:], "FAT32   ")
	fs.ebpbDirty = true

	fs.fsinfo = &FSInfo{
		LeadSignature:  fsInfoLeadSignature,
		Signature:      fsInfoSignature,
		FreeCount:      clusters - 1,
		NextFree:       3,
		TrailSignature: fsInfoTrailSignature,
	}
	fs.fsinfoDirty = true

	fs.fat = make([]byte, int64(sectorsPerFAT32)*DefaultSectorSize)
	fs.fatDirty = true

	fs.computeLayout()

	// The root directory occupies cluster 2 from the moment the volume
	// exists; without this, FindFreeCluster would treat it as free and
	// hand it out to the next file created.
	fs.setFATEntry(DefaultRootCluster, ClusterPtr(clusterEndOfChain))

	if err := fs.flushDirty(); err != nil {
		return nil, closeOnError(dev, err)
	}

	if err := fs.writeInitialVolumeLabel(); err != nil {
		return nil, closeOnError(dev, err)
	}

	return fs, nil
}

// writeInitialVolumeLabel writes the root directory's volume-label
// record matching EBPB.Label, followed by the end-of-directory
// sentinel. RenameVolume fails on a volume with no label record, so a
// fresh image must start with one.
func (fs *FS) writeInitialVolumeLabel() error {
	label := ShortDirEntry{Attributes: AttrVolumeID}
	copy(label.FileName[:], fs.ebpb.Label[:])

	buf, err := restruct.Pack(binary.LittleEndian, &label)
	if err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}
	if _, err := fs.dev.WriteAt(buf, fs.rootDirectoryAddress); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}

	sentinel := make([]byte, dirEntrySize)
	if _, err := fs.dev.WriteAt(sentinel, fs.rootDirectoryAddress+dirEntrySize); err != nil {
		return checkpoint.Wrap(err, ErrIO)
	}

	return nil
}

// Format wipes diskSize bytes of dev and writes a fresh canonical
// volume to it - identical to Create, operating on an already-open
// device.
func Format(dev Device, diskSize int64) (*FS, error) {
	return Create(dev, diskSize)
}

// fixedSerialNumber stands in for a wall-clock-derived serial number;
// directory entries are stamped with fixed values throughout, and the
// serial number follows the same rule.
const fixedSerialNumber uint32 = 0x5A5A5A5A

// zeroFill overwrites the first size bytes of dev with zeros, so a
// reformat of a used image leaves no stale directory data behind.
func zeroFill(dev Device, size int64) error {
	zero := make([]byte, 1<<20)
	var written int64
	for written < size {
		n := int64(len(zero))
		if remaining := size - written; remaining < n {
			n = remaining
		}
		if _, err := dev.WriteAt(zero[:n], written); err != nil {
			return checkpoint.Wrap(err, ErrIO)
		}
		written += n
	}
	return nil
}

func padLabel(label string) []byte {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, label)
	return buf
}

func trimTrailingSpaces(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

func closeOnError(dev Device, err error) error {
	_ = dev.Close()
	return err
}

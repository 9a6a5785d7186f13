// Package fat32 implements the on-disk model of a FAT32 volume image:
// the boot parameter block, its FAT32 extension, the FSInfo sector, the
// file allocation table, and the directory-entry stream including long
// file name reconstruction.
package fat32

// BPB is the 36-byte BIOS Parameter Block at offset 0 of the image.
// Field order and sizes mirror the on-disk layout exactly; restruct
// packs/unpacks it without padding.
type BPB struct {
	Reserved0           [3]byte
	OEMIdentifier       [8]byte
	SectorSize          uint16
	SectorsPerCluster   byte
	ReservedSectorCount uint16
	FATCount            byte
	RootEntryCount      uint16
	SectorCount16       uint16
	MediaType           byte
	FATSize16           uint16
	SectorsPerTrack     uint16
	HeadCount           uint16
	HiddenSectorCount   uint32
	LargeSectorCount32  uint32
}

// EffectiveSectorCount returns SectorCount16 when it is nonzero, else
// LargeSectorCount32. FAT32 volumes always carry the count in the 32-bit
// field since SectorCount16 must be 0.
func (b *BPB) EffectiveSectorCount() uint32 {
	if b.SectorCount16 != 0 {
		return uint32(b.SectorCount16)
	}
	return b.LargeSectorCount32
}

const bpbSize = 36

// EBPB is the FAT32 Extended BPB, immediately following the BPB.
type EBPB struct {
	SectorsPerFAT32            uint32
	Flags                      uint16
	FATVersion                 uint16
	RootDirectoryClusterNumber uint32
	FSInfoSectorNumber         uint16
	BackupSectorNumber         uint16
	Reserved0                  [12]byte
	DriveNumber                byte
	NTFlags                    byte
	Signature                  byte
	SerialNumber               uint32
	Label                      [11]byte
	SystemID                   [8]byte
}

const ebpbSize = 54

// EBPB signature byte values defined by the FAT32 spec; either marks
// that SerialNumber/Label/SystemID are present.
const (
	ebpbSignatureA = 0x28
	ebpbSignatureB = 0x29
)

// FSInfo is the auxiliary sector caching the free-cluster count and the
// next-free-cluster hint.
type FSInfo struct {
	LeadSignature  uint32
	Reserved0      [480]byte
	Signature      uint32
	FreeCount      uint32
	NextFree       uint32
	Reserved1      [12]byte
	TrailSignature uint32
}

const fsInfoSize = 512

const (
	fsInfoLeadSignature  = 0x41615252
	fsInfoSignature      = 0x61417272
	fsInfoTrailSignature = 0xAA550000

	// FreeCountUnknown / NextFreeUnknown mark the corresponding FSInfo
	// counter as not authoritative. Format never writes these; they exist
	// so a consumer opening a third-party image can recognize them.
	FreeCountUnknown uint32 = 0xFFFFFFFF
	NextFreeUnknown  uint32 = 0xFFFFFFFF
)

// Canonical constants used by Create/Format, per the FAT32 spec and this
// project's original reference implementation.
const (
	DefaultDiskSize          = 20 * 1024 * 1024
	DefaultSectorSize        = 512
	DefaultSectorsPerCluster = 1
	DefaultReservedSectors   = 32
	DefaultFATCount          = 2
	DefaultMediaType         = 0xF8
	DefaultRootCluster       = 2
	DefaultFSInfoSector      = 1
	DefaultBackupSector      = 6
)

package fat32

import (
	"encoding/binary"

	"github.com/l09dm0zgus/fat32-emulation/checkpoint"
)

// clusterPtrMask keeps the low 28 bits of a FAT entry; the high 4 bits
// are reserved, ignored on read, and preserved on write.
const clusterPtrMask = 0x0FFFFFFF

const (
	clusterFree       = 0x00000000
	clusterBad        = 0x0FFFFFF7
	clusterEndOfChain = 0x0FFFFFF8 // and above
)

// ClusterPtr is a FAT entry's low 28 bits, interpreted as one of the
// four states a FAT32 entry can be in: Free, Bad, EndOfChain, or
// Next(n).
type ClusterPtr uint32

func newClusterPtr(raw uint32) ClusterPtr {
	return ClusterPtr(raw & clusterPtrMask)
}

// IsFree reports whether the entry marks its cluster as unused.
func (p ClusterPtr) IsFree() bool {
	return uint32(p) == clusterFree
}

// IsBad reports whether the entry marks its cluster as bad.
func (p ClusterPtr) IsBad() bool {
	return uint32(p) == clusterBad
}

// IsEndOfChain reports whether the entry terminates a cluster chain.
func (p ClusterPtr) IsEndOfChain() bool {
	return uint32(p) >= clusterEndOfChain
}

// Next returns the next cluster number and true, or 0 and false if p is
// not a Next(n) entry (i.e. it is Free, Bad, or EndOfChain).
func (p ClusterPtr) Next() (uint32, bool) {
	if p.IsFree() || p.IsBad() || p.IsEndOfChain() {
		return 0, false
	}
	return uint32(p), true
}

// fatEntryBytes is the on-disk width of one FAT32 entry.
const fatEntryBytes = 4

// NextOf looks up cluster's FAT entry in the in-memory FAT cache.
func (fs *FS) NextOf(cluster uint32) (ClusterPtr, error) {
	offset := int(cluster) * fatEntryBytes
	if offset < 0 || offset+fatEntryBytes > len(fs.fat) {
		return 0, checkpoint.From(ErrIntegrity)
	}
	raw := binary.LittleEndian.Uint32(fs.fat[offset : offset+fatEntryBytes])
	return newClusterPtr(raw), nil
}

// setFATEntry stores ptr's low 28 bits into cluster's FAT entry, in
// place in the cache, preserving the existing high 4 reserved bits, and
// marks the FAT dirty.
func (fs *FS) setFATEntry(cluster uint32, ptr ClusterPtr) {
	offset := int(cluster) * fatEntryBytes
	existing := binary.LittleEndian.Uint32(fs.fat[offset : offset+fatEntryBytes])
	reserved := existing &^ clusterPtrMask
	binary.LittleEndian.PutUint32(fs.fat[offset:offset+fatEntryBytes], reserved|uint32(ptr)&clusterPtrMask)
	fs.fatDirty = true
}

// FirstSectorOf returns the first sector number of cluster's data.
func (fs *FS) FirstSectorOf(cluster uint32) uint32 {
	return (cluster-2)*uint32(fs.bpb.SectorsPerCluster) + fs.firstDataSector
}

// DataAddressOf returns the byte offset of cluster's data in the image.
func (fs *FS) DataAddressOf(cluster uint32) int64 {
	return int64(fs.FirstSectorOf(cluster)) * int64(fs.bpb.SectorSize)
}

// clusterSizeBytes returns the size, in bytes, of one cluster.
func (fs *FS) clusterSizeBytes() int64 {
	return int64(fs.bpb.SectorsPerCluster) * int64(fs.bpb.SectorSize)
}

// FindFreeCluster linearly scans the FAT for the first Free entry.
// The scan is bounded by the volume's cluster count; a full FAT yields
// ErrNoSpace rather than running off the table.
func (fs *FS) FindFreeCluster() (uint32, error) {
	for cluster := uint32(2); cluster < fs.countOfClusters+2; cluster++ {
		ptr, err := fs.NextOf(cluster)
		if err != nil {
			return 0, err
		}
		if ptr.IsFree() {
			return cluster, nil
		}
	}
	return 0, checkpoint.From(ErrNoSpace)
}

package fat32

import (
	"encoding/binary"
	"strings"

	"github.com/go-restruct/restruct"
	"golang.org/x/text/encoding/unicode"

	"github.com/l09dm0zgus/fat32-emulation/checkpoint"
)

// maxLFNFragments bounds an LFN group at 20 fragments (255 / 13,
// rounded up), matching the glossary's "up to 20 fragments".
const maxLFNFragments = 20

// DirectoryIterator is a lazy, restartable cursor over one directory's
// cluster chain. It accumulates LFN fragments as it walks and resets
// that accumulator at every short record and at Rewind.
type DirectoryIterator struct {
	initAddress    int64
	currentAddress int64 // 0 means exhausted

	accumulated  [maxLFNFragments * lfnCharsPerFragment]uint16
	checksums    [maxLFNFragments]byte
	haveChecksum [maxLFNFragments]bool
}

// NewDirectoryIterator positions a cursor at addr, typically a
// directory's first cluster's data address.
func NewDirectoryIterator(addr int64) *DirectoryIterator {
	it := &DirectoryIterator{}
	it.SetAddress(addr)
	return it
}

// SetAddress reseats both initAddress and currentAddress.
func (it *DirectoryIterator) SetAddress(addr int64) {
	it.initAddress = addr
	it.currentAddress = addr
	it.resetLFN()
}

// Rewind resets the cursor back to its initial address and clears any
// accumulated LFN state.
func (it *DirectoryIterator) Rewind() {
	it.currentAddress = it.initAddress
	it.resetLFN()
}

func (it *DirectoryIterator) resetLFN() {
	for i := range it.accumulated {
		it.accumulated[i] = 0
	}
	for i := range it.haveChecksum {
		it.haveChecksum[i] = false
	}
}

// DirectoryIteratorEntry is one logical entry yielded by Next: the
// decoded short record, its reconstructed long filename (empty if none
// or checksum-mismatched), and the short record's byte address.
type DirectoryIteratorEntry struct {
	Entry    ShortDirEntry
	LongName string
	Address  int64
}

// Name returns the presented filename. A non-empty long name is
// authoritative; a file without one gets its short name rendered as
// BASE.EXT; a directory or volume label without one keeps its 11 raw
// name bytes verbatim.
func (e *DirectoryIteratorEntry) Name() string {
	if e.LongName != "" {
		return e.LongName
	}
	if e.Entry.IsDirectory() || e.Entry.IsVolumeLabel() {
		return string(e.Entry.FileName[:])
	}
	return presentShortFileName(e.Entry.FileName)
}

// presentShortFileName reconstructs BASE.EXT from an 8.3 short name,
// stripping trailing spaces from the base and identifying the
// extension by scanning back from position 10 to the first space.
func presentShortFileName(raw [11]byte) string {
	extEnd := 11
	extStart := 10
	for extStart > 8 && raw[extStart-1] != ' ' {
		extStart--
	}
	ext := strings.TrimRight(string(raw[extStart:extEnd]), " ")
	base := strings.TrimRight(string(raw[:8]), " ")

	if ext == "" {
		return base
	}
	return base + "." + ext
}

var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// decodeLFNUnits converts a sequence of UCS-2 code units to a Go string,
// stopping at the first 0x0000 terminator and skipping 0xFFFF padding
// units.
func decodeLFNUnits(units []uint16) string {
	raw := make([]byte, 0, len(units)*2)
	for _, u := range units {
		if u == 0x0000 {
			break
		}
		if u == 0xFFFF {
			continue
		}
		raw = append(raw, byte(u), byte(u>>8))
	}
	decoded, err := utf16Decoder.Bytes(raw)
	if err != nil {
		return ""
	}
	return string(decoded)
}

// Next yields the next logical directory entry, or nil when iteration
// is exhausted. Deleted records are skipped transparently; LFN
// fragments are accumulated and attached to the short record that
// follows them.
func (fs *FS) Next(it *DirectoryIterator) (*DirectoryIteratorEntry, error) {
	for {
		if it.currentAddress == 0 {
			return nil, nil
		}

		raw := make([]byte, dirEntrySize)
		if _, err := fs.dev.ReadAt(raw, it.currentAddress); err != nil {
			return nil, checkpoint.Wrap(err, ErrIO)
		}

		newAddress := it.currentAddress + dirEntrySize

		if fs.crossesClusterBoundary(newAddress) {
			nextAddr, err := fs.advanceClusterBoundary(it.currentAddress)
			if err != nil {
				return nil, err
			}
			newAddress = nextAddr
		}

		if raw[0] == nameFreeEndOfDirectory {
			it.currentAddress = 0
			return nil, nil
		}

		if raw[0] == nameDeleted {
			it.currentAddress = newAddress
			continue
		}

		attrs := raw[11]
		if isLongNameFragment(attrs) {
			var frag LFNEntry
			if err := restruct.Unpack(raw, binary.LittleEndian, &frag); err != nil {
				return nil, checkpoint.Wrap(err, ErrIO)
			}

			ordinal := ordinalIndex(frag.Ordinal)
			if ordinal < 0 || ordinal >= maxLFNFragments {
				return nil, checkpoint.From(ErrIntegrity)
			}
			if it.haveChecksum[ordinal] {
				panic("fat32: duplicate LFN ordinal during directory iteration")
			}

			copy(it.accumulated[ordinal*lfnCharsPerFragment:], frag.codeUnits())
			it.checksums[ordinal] = frag.Checksum
			it.haveChecksum[ordinal] = true

			it.currentAddress = newAddress
			continue
		}

		var entry ShortDirEntry
		if err := restruct.Unpack(raw, binary.LittleEndian, &entry); err != nil {
			return nil, checkpoint.Wrap(err, ErrIO)
		}

		longName := it.resolveLongName(entry)

		result := &DirectoryIteratorEntry{
			Entry:    entry,
			LongName: longName,
			Address:  it.currentAddress,
		}

		it.currentAddress = newAddress
		it.resetLFN()

		return result, nil
	}
}

// ReadDirectory iterates the directory at addr to exhaustion and
// returns every logical entry it yields, in on-disk order.
func (fs *FS) ReadDirectory(addr int64) ([]*DirectoryIteratorEntry, error) {
	it := NewDirectoryIterator(addr)
	var entries []*DirectoryIteratorEntry
	for {
		entry, err := fs.Next(it)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return entries, nil
		}
		entries = append(entries, entry)
	}
}

// resolveLongName validates every accumulated LFN fragment's checksum
// against entry's short name and, if they all agree, decodes the
// accumulated UCS-2 buffer. A mismatch silently downgrades to "no long
// filename" rather than failing the iteration.
func (it *DirectoryIterator) resolveLongName(entry ShortDirEntry) string {
	expected := shortNameChecksum(entry.FileName)

	haveAny := false
	fragmentCount := 0
	for i := 0; i < maxLFNFragments; i++ {
		if !it.haveChecksum[i] {
			continue
		}
		haveAny = true
		if it.checksums[i] != expected {
			return ""
		}
		if i+1 > fragmentCount {
			fragmentCount = i + 1
		}
	}
	if !haveAny {
		return ""
	}

	return decodeLFNUnits(it.accumulated[:fragmentCount*lfnCharsPerFragment])
}

// advanceClusterBoundary translates currentAddress's cluster to its FAT
// entry and returns the next cluster's data address, or 0 on a clean
// EndOfChain. Bad or Free (Null) mid-walk is a fatal integrity error.
func (fs *FS) advanceClusterBoundary(currentAddress int64) (int64, error) {
	cluster := fs.clusterOfAddress(currentAddress)

	ptr, err := fs.NextOf(cluster)
	if err != nil {
		return 0, err
	}

	if ptr.IsEndOfChain() {
		return 0, nil
	}
	if ptr.IsBad() || ptr.IsFree() {
		panic("fat32: bad or null cluster encountered mid-chain")
	}

	next, _ := ptr.Next()
	return fs.DataAddressOf(next), nil
}

// clusterOfAddress inverts DataAddressOf: given a byte address within
// the data region, returns the cluster number it falls in.
func (fs *FS) clusterOfAddress(address int64) uint32 {
	return uint32(fs.offsetIntoData(address)/fs.clusterSizeBytes()) + 2
}

// crossesClusterBoundary reports whether address lands exactly on a
// cluster's first byte - i.e. whether the entry just read ended a
// cluster's worth of directory records.
func (fs *FS) crossesClusterBoundary(address int64) bool {
	return fs.offsetIntoData(address)%fs.clusterSizeBytes() == 0
}

func (fs *FS) offsetIntoData(address int64) int64 {
	firstDataAddress := int64(fs.firstDataSector) * int64(fs.bpb.SectorSize)
	return address - firstDataAddress
}

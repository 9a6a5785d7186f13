package fat32

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenameVolume_Uppercases(t *testing.T) {
	fs := newTestFS(t)

	warning, err := fs.RenameVolume("mydisk")
	require.NoError(t, err)
	require.NotEmpty(t, warning)
	require.Equal(t, "MYDISK", fs.Label())

	entries, err := fs.ReadDirectory(fs.RootDirectoryAddress())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "MYDISK", strings.TrimSpace(string(entries[0].Entry.FileName[:])))
}

func TestRenameVolume_AlreadyUppercaseNoWarning(t *testing.T) {
	fs := newTestFS(t)

	warning, err := fs.RenameVolume("MYDISK")
	require.NoError(t, err)
	require.Empty(t, warning)
	require.Equal(t, "MYDISK", fs.Label())
}

func TestRenameVolume_TooLongIsInvalidArg(t *testing.T) {
	fs := newTestFS(t)
	before := fs.Label()

	_, err := fs.RenameVolume("ThisLabelIsWayTooLong")
	require.ErrorIs(t, err, ErrInvalidArg)
	require.Equal(t, before, fs.Label())
}

func TestCreateDirectoryEntry_InRoot(t *testing.T) {
	fs := newTestFS(t)

	err := fs.CreateDirectoryEntry("/", "FILE    TXT", 123, AttrArchive)
	require.NoError(t, err)

	entries, err := fs.ReadDirectory(fs.RootDirectoryAddress())
	require.NoError(t, err)

	var found *DirectoryIteratorEntry
	for _, e := range entries {
		if e.Entry.IsRegularFile() {
			found = e
		}
	}
	require.NotNil(t, found)
	require.Equal(t, uint32(123), found.Entry.FileSize)

	cluster := found.Entry.FirstCluster()
	ptr, err := fs.NextOf(cluster)
	require.NoError(t, err)
	require.True(t, ptr.IsEndOfChain())
}

func TestCreateDirectoryEntry_WritesFreshSentinel(t *testing.T) {
	fs := newTestFS(t)

	require.NoError(t, fs.CreateDirectoryEntry("/", "A       TXT", 1, AttrArchive))
	require.NoError(t, fs.CreateDirectoryEntry("/", "B       TXT", 2, AttrArchive))

	entries, err := fs.ReadDirectory(fs.RootDirectoryAddress())
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, e := range entries {
		names[strings.TrimSpace(string(e.Entry.FileName[:8]))] = true
	}
	require.True(t, names["A"])
	require.True(t, names["B"])
}

func TestCreateDirectoryEntry_UnknownParentIsNotFound(t *testing.T) {
	fs := newTestFS(t)

	err := fs.CreateDirectoryEntry("/NOSUCH", "FILE    TXT", 0, AttrArchive)
	require.ErrorIs(t, err, ErrNotFound)
}

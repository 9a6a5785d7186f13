package fat32

import "errors"

// Error taxonomy for the core. Callers compare with errors.Is; the shell
// layer prints the wrapped chain checkpoint.Wrap attaches to each of these.
var (
	// ErrInvalidArg means user-supplied input failed a precondition (e.g. a
	// volume label longer than 11 characters).
	ErrInvalidArg = errors.New("fat32: invalid argument")

	// ErrNotFound means path resolution did not find the requested entry.
	ErrNotFound = errors.New("fat32: not found")

	// ErrNotADirectory means an intermediate path component resolved to a
	// file, not a directory.
	ErrNotADirectory = errors.New("fat32: not a directory")

	// ErrIntegrity means an on-disk inconsistency was found: an LFN
	// fragment ordinal outside the supported range, or a FAT lookup past
	// the end of the table. A Bad or Null cluster mid-chain and a
	// duplicate LFN ordinal are not returned as errors; they panic.
	// Recoverable LFN checksum mismatches are downgraded silently and
	// never surface as ErrIntegrity.
	ErrIntegrity = errors.New("fat32: integrity error")

	// ErrIO means a device read or write was short or failed.
	ErrIO = errors.New("fat32: device i/o error")

	// ErrNoSpace means no free cluster could be found within the volume's
	// cluster count.
	ErrNoSpace = errors.New("fat32: no free cluster")
)

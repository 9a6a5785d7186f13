package fat32

import (
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/l09dm0zgus/fat32-emulation/checkpoint"
)

// Device is the byte-addressable, seekable, read/write store backing a
// FAT32 image. It is the leaf dependency of the whole core: every other
// component only ever talks to the image through it.
type Device interface {
	io.ReaderAt
	io.WriterAt
	// Size reports the device's total length in bytes.
	Size() int64
	// Close releases the underlying resource. Safe to call once.
	Close() error
}

// fileDevice adapts an afero.File (and the afero.Fs that produced it) to
// Device. afero lets the real CLI run against an afero.OsFs-backed file
// while every test runs the exact same code against an in-memory
// afero.MemMapFs, without checked-in binary fixtures.
type fileDevice struct {
	file afero.File
	size int64
}

func (d *fileDevice) ReadAt(p []byte, off int64) (int, error) {
	n, err := d.file.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return n, checkpoint.Wrap(err, ErrIO)
	}
	return n, err
}

func (d *fileDevice) WriteAt(p []byte, off int64) (int, error) {
	n, err := d.file.WriteAt(p, off)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrIO)
	}
	return n, nil
}

func (d *fileDevice) Size() int64 {
	return d.size
}

func (d *fileDevice) Close() error {
	return d.file.Close()
}

// OpenDevice opens an existing image file at path on fs as a Device.
func OpenDevice(fs afero.Fs, path string) (Device, error) {
	file, err := fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrIO)
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, checkpoint.Wrap(err, ErrIO)
	}

	return &fileDevice{file: file, size: info.Size()}, nil
}

// CreateDevice creates (or truncates) the image file at path on fs,
// extends it to size bytes of zeros, and returns it as a Device.
func CreateDevice(fs afero.Fs, path string, size int64) (Device, error) {
	file, err := fs.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrIO)
	}

	if err := file.Truncate(size); err != nil {
		_ = file.Close()
		return nil, checkpoint.Wrap(err, ErrIO)
	}

	return &fileDevice{file: file, size: size}, nil
}

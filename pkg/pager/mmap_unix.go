//go:build unix

// pkg/pager/mmap_unix.go
package pager

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile maps a relation segment file read-only.
type MmapFile struct {
	file *os.File
	data []byte
	size int64
}

// OpenMmapFile opens path and maps it read-only. The checker reads every
// block once in order, so the kernel is told to read ahead.
func OpenMmapFile(path string) (*MmapFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := stat.Size()
	if size == 0 {
		// Can't mmap empty file
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	// advisory only
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)

	return &MmapFile{
		file: f,
		data: data,
		size: size,
	}, nil
}

// Size returns the file size
func (m *MmapFile) Size() int64 {
	return m.size
}

// Slice returns a slice of the mapped memory at the given offset and length
func (m *MmapFile) Slice(offset, length int) []byte {
	if offset < 0 || length < 0 || offset+length > len(m.data) {
		return nil
	}
	return m.data[offset : offset+length]
}

// Close unmaps and closes the file
func (m *MmapFile) Close() error {
	var firstErr error

	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil && firstErr == nil {
			firstErr = err
		}
		m.data = nil
	}

	if m.file != nil {
		if err := m.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		m.file = nil
	}

	return firstErr
}

//go:build !unix

// pkg/pager/mmap_other.go
package pager

import (
	"fmt"
	"os"
)

// MmapFile holds a relation segment file read into memory. Platforms
// without unix mmap read the whole file instead of mapping it.
type MmapFile struct {
	data []byte
	size int64
}

// OpenMmapFile reads path into memory.
func OpenMmapFile(path string) (*MmapFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}
	return &MmapFile{data: data, size: int64(len(data))}, nil
}

// Size returns the file size
func (m *MmapFile) Size() int64 {
	return m.size
}

// Slice returns a slice of the file data at the given offset and length
func (m *MmapFile) Slice(offset, length int) []byte {
	if offset < 0 || length < 0 || offset+length > len(m.data) {
		return nil
	}
	return m.data[offset : offset+length]
}

// Close drops the file data
func (m *MmapFile) Close() error {
	m.data = nil
	return nil
}

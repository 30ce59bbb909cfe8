// pkg/pager/storage.go
package pager

// Storage is a read-only byte range holding a relation segment. The pager
// reads blocks from it; file-backed (mmap) and in-memory implementations
// exist.
type Storage interface {
	// Size returns the size of the storage in bytes.
	Size() int64

	// Slice returns the bytes at [offset, offset+length), or nil if the
	// range is out of bounds. The slice aliases the storage and must not be
	// modified or kept past Close.
	Slice(offset, length int) []byte

	// Close releases any resources associated with the storage.
	Close() error
}

// MemoryStorage implements Storage over a byte slice.
type MemoryStorage struct {
	data []byte
}

// NewMemoryStorage wraps data. The slice is used as is, not copied.
func NewMemoryStorage(data []byte) *MemoryStorage {
	return &MemoryStorage{data: data}
}

// Size returns the length of the wrapped slice.
func (m *MemoryStorage) Size() int64 {
	return int64(len(m.data))
}

// Slice returns a sub-slice of the wrapped data.
func (m *MemoryStorage) Slice(offset, length int) []byte {
	if offset < 0 || length < 0 || offset+length > len(m.data) {
		return nil
	}
	return m.data[offset : offset+length]
}

// Close drops the reference to the data.
func (m *MemoryStorage) Close() error {
	m.data = nil
	return nil
}

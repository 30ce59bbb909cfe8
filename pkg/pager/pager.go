// pkg/pager/pager.go
// Package pager serves fixed-size blocks of an index relation segment to
// the checker. Storage is read-only; blocks are handed out as copies so
// callers may keep or modify them.
package pager

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/ristretto/v2"

	"idxcheck/pkg/page"
)

const defaultCacheBytes = 64 << 20

var (
	ErrPageNotFound    = errors.New("page not found")
	ErrInvalidFileSize = errors.New("file size is not a multiple of the page size")
	ErrEmptyFile       = errors.New("empty file")
	ErrClosed          = errors.New("pager is closed")
)

// Options configures the pager
type Options struct {
	PageSize   int   // Page size in bytes (default page.BlockSize)
	CacheBytes int64 // Block cache budget in bytes (default 64 MiB, negative disables)
}

// Pager reads blocks from a Storage. It is safe for concurrent use.
type Pager struct {
	mu        sync.RWMutex
	storage   Storage
	pageSize  int
	pageCount uint32
	cache     *ristretto.Cache[uint64, []byte]
}

// Open maps the segment file at path and returns a pager over it.
func Open(path string, opts Options) (*Pager, error) {
	mf, err := OpenMmapFile(path)
	if err != nil {
		return nil, err
	}

	p, err := New(mf, opts)
	if err != nil {
		mf.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// New returns a pager over storage. The storage size must be a non-zero
// multiple of the page size. The pager owns storage and closes it.
func New(storage Storage, opts Options) (*Pager, error) {
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = page.BlockSize
	}

	size := storage.Size()
	if size == 0 {
		return nil, ErrEmptyFile
	}
	if size%int64(pageSize) != 0 {
		return nil, fmt.Errorf("%w: %d bytes, page size %d", ErrInvalidFileSize, size, pageSize)
	}

	p := &Pager{
		storage:   storage,
		pageSize:  pageSize,
		pageCount: uint32(size / int64(pageSize)),
	}

	cacheBytes := opts.CacheBytes
	if cacheBytes == 0 {
		cacheBytes = defaultCacheBytes
	}
	if cacheBytes > 0 {
		cache, err := ristretto.NewCache(&ristretto.Config[uint64, []byte]{
			NumCounters: max(10*(cacheBytes/int64(pageSize)), 1000),
			MaxCost:     cacheBytes,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("block cache: %w", err)
		}
		p.cache = cache
	}

	return p, nil
}

// PageSize returns the page size
func (p *Pager) PageSize() int {
	return p.pageSize
}

// BlockCount returns the number of blocks in the segment
func (p *Pager) BlockCount() uint32 {
	return p.pageCount
}

// ReadBlock returns a copy of block.
func (p *Pager) ReadBlock(block uint32) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.storage == nil {
		return nil, ErrClosed
	}
	if block >= p.pageCount {
		return nil, fmt.Errorf("%w: block %d of %d", ErrPageNotFound, block, p.pageCount)
	}

	if p.cache != nil {
		if data, ok := p.cache.Get(uint64(block)); ok {
			return bytes.Clone(data), nil
		}
	}

	offset := int(block) * p.pageSize
	data := p.storage.Slice(offset, p.pageSize)
	if data == nil {
		return nil, fmt.Errorf("%w: block %d", ErrPageNotFound, block)
	}

	out := bytes.Clone(data)
	if p.cache != nil {
		p.cache.Set(uint64(block), bytes.Clone(out), int64(p.pageSize))
	}
	return out, nil
}

// Close releases the cache and the storage
func (p *Pager) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.storage == nil {
		return nil
	}
	if p.cache != nil {
		p.cache.Close()
		p.cache = nil
	}
	err := p.storage.Close()
	p.storage = nil
	return err
}

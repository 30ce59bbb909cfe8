// pkg/page/builder.go
package page

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrPageFull is returned when a tuple does not fit between the slot table
// and the tuple space.
var ErrPageFull = errors.New("page is full")

// Builder lays out a page image: header, slot table, tuples, metapage body
// and trailer. Tuples are placed top-down from the special space the same
// way the storage engine fills pages.
type Builder struct {
	block   BlockNumber
	header  Header
	meta    *Meta
	trailer Trailer
	items   []ItemID
	data    []byte
}

// NewBuilder creates an empty page for block. Block MetaBlock starts with a
// valid metapage body; every other block starts as an empty leaf.
func NewBuilder(block BlockNumber) *Builder {
	special := uint16(BlockSize - TrailerSize)
	b := &Builder{
		block: block,
		header: Header{
			Lower:           HeaderSize,
			Upper:           special,
			Special:         special,
			PageSizeVersion: BlockSize | LayoutVersion,
		},
		data: make([]byte, BlockSize),
	}

	if block == MetaBlock {
		b.meta = &Meta{Magic: MetaMagic, Version: MetaVersion}
		b.header.Lower = MetaOffset + MetaSize
		b.trailer = ActiveTrailer{TrailerCommon: TrailerCommon{Flags: FlagMeta}}
	} else {
		b.trailer = ActiveTrailer{TrailerCommon: TrailerCommon{Flags: FlagLeaf}}
	}
	return b
}

// Header returns the header that Bytes will write. Callers may edit it.
func (b *Builder) Header() *Header {
	return &b.header
}

// SetMeta replaces the metapage body.
func (b *Builder) SetMeta(m Meta) *Builder {
	b.meta = &m
	return b
}

// SetTrailer replaces the special-space trailer.
func (b *Builder) SetTrailer(t Trailer) *Builder {
	b.trailer = t
	return b
}

// AddTuple stores tuple in the tuple space and appends a NORMAL slot for it.
func (b *Builder) AddTuple(tuple []byte) (OffsetNumber, error) {
	upper := (int(b.header.Upper) - len(tuple)) &^ (MaxAlignment - 1)
	if upper < int(b.header.Lower)+ItemIDSize {
		return 0, fmt.Errorf("%w: tuple of %d bytes", ErrPageFull, len(tuple))
	}
	copy(b.data[upper:], tuple)
	b.header.Upper = uint16(upper)

	return b.AddItem(ItemID{Offset: upper, Flags: ItemNormal, Length: len(tuple)}), nil
}

// AddItem appends a slot without touching the tuple space.
func (b *Builder) AddItem(id ItemID) OffsetNumber {
	b.items = append(b.items, id)
	b.header.Lower = uint16(HeaderSize + len(b.items)*ItemIDSize)
	return OffsetNumber(len(b.items))
}

// Item returns the slot at offnum.
func (b *Builder) Item(offnum OffsetNumber) ItemID {
	return b.items[offnum-1]
}

// SetItem overwrites the slot at offnum.
func (b *Builder) SetItem(offnum OffsetNumber, id ItemID) *Builder {
	b.items[offnum-1] = id
	return b
}

// Bytes renders the page image.
func (b *Builder) Bytes() []byte {
	out := make([]byte, BlockSize)
	copy(out, b.data)

	if b.meta != nil {
		m := out[MetaOffset:]
		binary.LittleEndian.PutUint32(m[0:], b.meta.Magic)
		binary.LittleEndian.PutUint32(m[4:], b.meta.Version)
		binary.LittleEndian.PutUint32(m[8:], b.meta.Root)
		binary.LittleEndian.PutUint32(m[12:], b.meta.Level)
		binary.LittleEndian.PutUint32(m[16:], b.meta.FastRoot)
		binary.LittleEndian.PutUint32(m[20:], b.meta.FastLevel)
	}

	if off := int(b.header.Special); b.trailer != nil && off+TrailerSize <= BlockSize {
		encodeTrailer(out[off:], b.trailer)
	}

	for i, id := range b.items {
		binary.LittleEndian.PutUint32(out[HeaderSize+i*ItemIDSize:], id.Encode())
	}

	b.header.Encode(out)
	return out
}

// Build renders and classifies the page.
func (b *Builder) Build() (Page, error) {
	return Classify(b.block, b.Bytes())
}

func encodeTrailer(dst []byte, t Trailer) {
	c := t.Common()
	var word uint32
	switch v := t.(type) {
	case ActiveTrailer:
		word = v.Level
	case DeletedTrailer:
		word = v.XID
		c.Flags |= FlagDeleted
	}
	binary.LittleEndian.PutUint32(dst[0:], c.Prev)
	binary.LittleEndian.PutUint32(dst[4:], c.Next)
	binary.LittleEndian.PutUint32(dst[8:], word)
	binary.LittleEndian.PutUint16(dst[12:], uint16(c.Flags))
	binary.LittleEndian.PutUint16(dst[14:], c.CycleID)
}

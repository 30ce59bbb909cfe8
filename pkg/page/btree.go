// pkg/page/btree.go
package page

import "fmt"

// MetaBlock is the block number reserved for the index metapage.
const MetaBlock BlockNumber = 0

const (
	// MetaMagic identifies a B-tree metapage.
	MetaMagic = 0x053162

	// MetaVersion is the metapage format version this checker expects.
	MetaVersion = 2

	// MetaOffset is where the metapage body starts (the maxaligned header end).
	MetaOffset = HeaderSize

	// MetaSize is the size of the metapage body.
	MetaSize = 24

	// TrailerSize is the size of the B-tree special-space trailer.
	TrailerSize = 16
)

// TrailerFlags classify a B-tree page.
type TrailerFlags uint16

const (
	FlagLeaf            TrailerFlags = 1 << 0
	FlagRoot            TrailerFlags = 1 << 1
	FlagDeleted         TrailerFlags = 1 << 2
	FlagMeta            TrailerFlags = 1 << 3
	FlagHalfDead        TrailerFlags = 1 << 4
	FlagSplitEnd        TrailerFlags = 1 << 5
	FlagHasGarbage      TrailerFlags = 1 << 6
	FlagIncompleteSplit TrailerFlags = 1 << 7
)

func (f TrailerFlags) IsLeaf() bool    { return f&FlagLeaf != 0 }
func (f TrailerFlags) IsDeleted() bool { return f&FlagDeleted != 0 }

// Page is a classified page: either *MetaPage or *RegularPage.
type Page interface {
	Block() BlockNumber
	Header() *Header
	Span() Span
	// NumItems returns the number of slots in the slot table.
	NumItems() int
	// Item returns slot i (0-based).
	Item(i int) (ItemID, error)

	isPage()
}

type base struct {
	block  BlockNumber
	header *Header
	span   Span
}

func (b *base) Block() BlockNumber { return b.block }
func (b *base) Header() *Header    { return b.header }
func (b *base) Span() Span         { return b.span }
func (*base) isPage()              {}

// NumItems returns the slot count from the header, clamped to the slots
// that fit in the buffer.
func (b *base) NumItems() int {
	return min(b.header.MaxOffsetNumber(), max((b.span.Len()-HeaderSize)/ItemIDSize, 0))
}

func (b *base) Item(i int) (ItemID, error) {
	if i < 0 || i >= b.NumItems() {
		return ItemID{}, fmt.Errorf("item %d: %w", i+1, ErrOutOfBounds)
	}
	w, err := b.span.Uint32(HeaderSize + i*ItemIDSize)
	if err != nil {
		return ItemID{}, fmt.Errorf("item %d: %w", i+1, err)
	}
	return DecodeItemID(w), nil
}

// Meta is the metapage body.
type Meta struct {
	Magic     uint32
	Version   uint32
	Root      uint32
	Level     uint32
	FastRoot  uint32
	FastLevel uint32
}

// MetaPage is the reserved block holding the index format magic and version.
type MetaPage struct {
	base
	Meta Meta
}

// TrailerCommon holds the trailer fields meaningful in every page state.
type TrailerCommon struct {
	Prev    uint32
	Next    uint32
	Flags   TrailerFlags
	CycleID uint16
}

// IsRightmost reports whether the page has no right sibling.
func (t TrailerCommon) IsRightmost() bool {
	return t.Next == 0
}

// Trailer is the special-space trailer: either ActiveTrailer or DeletedTrailer.
// The 4-byte word after the sibling links holds the tree level for live
// pages and a transaction id for deleted ones.
type Trailer interface {
	Common() TrailerCommon
}

// ActiveTrailer is the trailer of a page that is part of the tree.
type ActiveTrailer struct {
	TrailerCommon
	Level uint32
}

func (t ActiveTrailer) Common() TrailerCommon { return t.TrailerCommon }

// DeletedTrailer is the trailer of a page removed from the tree.
type DeletedTrailer struct {
	TrailerCommon
	XID uint32
}

func (t DeletedTrailer) Common() TrailerCommon { return t.TrailerCommon }

// RegularPage is any index page other than the metapage.
type RegularPage struct {
	base
	// Trailer is nil when the special space cannot hold a full trailer.
	Trailer Trailer
}

// IsLeaf reports whether the trailer marks the page as a leaf.
func (p *RegularPage) IsLeaf() bool {
	return p.Trailer != nil && p.Trailer.Common().Flags.IsLeaf()
}

// FirstDataKey returns the offset number of the first data item. Pages with
// a right sibling store their high key in slot 1.
func (p *RegularPage) FirstDataKey() OffsetNumber {
	if p.Trailer == nil || p.Trailer.Common().IsRightmost() {
		return 1
	}
	return 2
}

// Classify decodes the header of data and builds the page variant for block.
// Only the block number decides which variant is built.
func Classify(block BlockNumber, data []byte) (Page, error) {
	h, err := DecodeHeader(data)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", block, err)
	}
	b := base{block: block, header: h, span: NewSpan(data)}

	if block == MetaBlock {
		m, err := decodeMeta(b.span)
		if err != nil {
			return nil, fmt.Errorf("block %d: metapage: %w", block, err)
		}
		return &MetaPage{base: b, Meta: m}, nil
	}

	return &RegularPage{base: b, Trailer: decodeTrailer(b.span, int(h.Special))}, nil
}

func decodeMeta(s Span) (Meta, error) {
	var words [6]uint32
	for i := range words {
		w, err := s.Uint32(MetaOffset + i*4)
		if err != nil {
			return Meta{}, err
		}
		words[i] = w
	}
	return Meta{
		Magic:     words[0],
		Version:   words[1],
		Root:      words[2],
		Level:     words[3],
		FastRoot:  words[4],
		FastLevel: words[5],
	}, nil
}

func decodeTrailer(s Span, off int) Trailer {
	if !s.Contains(off, TrailerSize) {
		return nil
	}
	prev, _ := s.Uint32(off)
	next, _ := s.Uint32(off + 4)
	word, _ := s.Uint32(off + 8)
	flags, _ := s.Uint16(off + 12)
	cycle, _ := s.Uint16(off + 14)

	common := TrailerCommon{Prev: prev, Next: next, Flags: TrailerFlags(flags), CycleID: cycle}
	if common.Flags.IsDeleted() {
		return DeletedTrailer{TrailerCommon: common, XID: word}
	}
	return ActiveTrailer{TrailerCommon: common, Level: word}
}

// pkg/page/page.go
// Package page decodes the fixed layout of a slotted index page: the page
// header, the line pointer (slot) table, the B-tree metapage body and the
// B-tree special-space trailer.
package page

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// BlockSize is the size of every page in bytes.
	BlockSize = 8192

	// HeaderSize is the size of the fixed page header.
	HeaderSize = 24

	// ItemIDSize is the size of one line pointer in the slot table.
	ItemIDSize = 4

	// LayoutVersion is the only page layout version understood here.
	LayoutVersion = 4

	// MaxAlignment is the maximum alignment boundary of the storage format.
	MaxAlignment = 8
)

// Header field offsets
const (
	offsetLSN             = 0  // 8 bytes: xlogid, xrecoff
	offsetChecksum        = 8  // 2 bytes
	offsetFlags           = 10 // 2 bytes
	offsetLower           = 12 // 2 bytes: end of slot table
	offsetUpper           = 14 // 2 bytes: start of tuple space
	offsetSpecial         = 16 // 2 bytes: start of special space
	offsetPageSizeVersion = 18 // 2 bytes: page size | layout version
	offsetPruneXID        = 20 // 4 bytes
)

// ValidFlagBits are the page header flag bits that may legitimately be set.
const ValidFlagBits = 0x0007

var (
	ErrShortBuffer = errors.New("page buffer too short")
)

// BlockNumber identifies a page within a relation file.
type BlockNumber uint32

// OffsetNumber is a 1-based slot number.
type OffsetNumber uint16

// Header is the decoded page header.
type Header struct {
	LSN             uint64
	Checksum        uint16
	Flags           uint16
	Lower           uint16
	Upper           uint16
	Special         uint16
	PageSizeVersion uint16
	PruneXID        uint32
}

// DecodeHeader reads the page header from the start of data.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrShortBuffer, len(data), HeaderSize)
	}

	hi := binary.LittleEndian.Uint32(data[offsetLSN:])
	lo := binary.LittleEndian.Uint32(data[offsetLSN+4:])

	return &Header{
		LSN:             uint64(hi)<<32 | uint64(lo),
		Checksum:        binary.LittleEndian.Uint16(data[offsetChecksum:]),
		Flags:           binary.LittleEndian.Uint16(data[offsetFlags:]),
		Lower:           binary.LittleEndian.Uint16(data[offsetLower:]),
		Upper:           binary.LittleEndian.Uint16(data[offsetUpper:]),
		Special:         binary.LittleEndian.Uint16(data[offsetSpecial:]),
		PageSizeVersion: binary.LittleEndian.Uint16(data[offsetPageSizeVersion:]),
		PruneXID:        binary.LittleEndian.Uint32(data[offsetPruneXID:]),
	}, nil
}

// Encode writes the header into the first HeaderSize bytes of data.
func (h *Header) Encode(data []byte) {
	binary.LittleEndian.PutUint32(data[offsetLSN:], uint32(h.LSN>>32))
	binary.LittleEndian.PutUint32(data[offsetLSN+4:], uint32(h.LSN))
	binary.LittleEndian.PutUint16(data[offsetChecksum:], h.Checksum)
	binary.LittleEndian.PutUint16(data[offsetFlags:], h.Flags)
	binary.LittleEndian.PutUint16(data[offsetLower:], h.Lower)
	binary.LittleEndian.PutUint16(data[offsetUpper:], h.Upper)
	binary.LittleEndian.PutUint16(data[offsetSpecial:], h.Special)
	binary.LittleEndian.PutUint16(data[offsetPageSizeVersion:], h.PageSizeVersion)
	binary.LittleEndian.PutUint32(data[offsetPruneXID:], h.PruneXID)
}

// PageSize returns the page size recorded in the header.
func (h *Header) PageSize() int {
	return int(h.PageSizeVersion & 0xFF00)
}

// Version returns the layout version recorded in the header.
func (h *Header) Version() int {
	return int(h.PageSizeVersion & 0x00FF)
}

// IsNew reports whether the page was never initialized.
func (h *Header) IsNew() bool {
	return h.Upper == 0
}

// MaxOffsetNumber returns the number of slots in the slot table.
func (h *Header) MaxOffsetNumber() int {
	if h.Lower <= HeaderSize {
		return 0
	}
	return (int(h.Lower) - HeaderSize) / ItemIDSize
}

// ItemFlags is the state of a slot.
type ItemFlags uint8

const (
	ItemUnused   ItemFlags = 0
	ItemNormal   ItemFlags = 1
	ItemRedirect ItemFlags = 2
	ItemDead     ItemFlags = 3
)

// String returns the name of the slot state
func (f ItemFlags) String() string {
	switch f {
	case ItemUnused:
		return "UNUSED"
	case ItemNormal:
		return "NORMAL"
	case ItemRedirect:
		return "REDIRECT"
	case ItemDead:
		return "DEAD"
	default:
		return fmt.Sprintf("ItemFlags(%d)", uint8(f))
	}
}

// ItemID is one slot: where a tuple lives on the page and what state it is in.
type ItemID struct {
	Offset int
	Flags  ItemFlags
	Length int
}

// DecodeItemID unpacks a 32-bit line pointer word:
// bits 0-14 offset, bits 15-16 flags, bits 17-31 length.
func DecodeItemID(w uint32) ItemID {
	return ItemID{
		Offset: int(w & 0x7FFF),
		Flags:  ItemFlags((w >> 15) & 0x03),
		Length: int(w >> 17),
	}
}

// Encode packs the slot back into its 32-bit form.
func (id ItemID) Encode() uint32 {
	return uint32(id.Offset)&0x7FFF |
		(uint32(id.Flags)&0x03)<<15 |
		(uint32(id.Length)&0x7FFF)<<17
}

// End returns the first byte past the slot's range.
func (id ItemID) End() int {
	return id.Offset + id.Length
}

// IsNormal reports whether the slot points at live tuple data.
func (id ItemID) IsNormal() bool {
	return id.Flags == ItemNormal
}

// MaxAlign rounds off up to the maximum alignment boundary.
func MaxAlign(off int) int {
	return (off + MaxAlignment - 1) &^ (MaxAlignment - 1)
}

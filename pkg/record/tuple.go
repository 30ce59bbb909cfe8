// pkg/record/tuple.go
// Package record implements the encoding rules of index tuples: the fixed
// tuple header, the null bitmap, attribute alignment and varlena headers.
package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"idxcheck/pkg/page"
	"idxcheck/pkg/schema"
)

const (
	// TupleHeaderSize is the size of the fixed index tuple header.
	TupleHeaderSize = 8

	// NullBitmapSize is the size of the null bitmap, one bit per key column.
	NullBitmapSize = (schema.MaxAttributes + 7) / 8
)

// Info field masks
const (
	InfoSizeMask uint16 = 0x1FFF
	InfoVarMask  uint16 = 0x4000
	InfoNullMask uint16 = 0x8000
)

var (
	ErrValueLength   = errors.New("value length does not match attribute width")
	ErrTupleTooLarge = errors.New("tuple too large")
	ErrValueCount    = errors.New("value count does not match schema")
)

// TID points at a heap tuple. It is carried but never resolved here.
type TID struct {
	Block  uint32
	Offset uint16
}

// String returns the (block,offset) form of the tid
func (t TID) String() string {
	return fmt.Sprintf("(%d,%d)", t.Block, t.Offset)
}

// TupleHeader is the fixed 8-byte index tuple header.
type TupleHeader struct {
	TID  TID
	Info uint16
}

// ReadTupleHeader decodes the tuple header at off.
func ReadTupleHeader(s page.Span, off int) (TupleHeader, error) {
	raw, err := s.Bytes(off, TupleHeaderSize)
	if err != nil {
		return TupleHeader{}, err
	}
	hi := binary.LittleEndian.Uint16(raw[0:])
	lo := binary.LittleEndian.Uint16(raw[2:])
	return TupleHeader{
		TID: TID{
			Block:  uint32(hi)<<16 | uint32(lo),
			Offset: binary.LittleEndian.Uint16(raw[4:]),
		},
		Info: binary.LittleEndian.Uint16(raw[6:]),
	}, nil
}

// Size returns the total tuple size recorded in the header.
func (h TupleHeader) Size() int {
	return int(h.Info & InfoSizeMask)
}

// HasNulls reports whether a null bitmap follows the header.
func (h TupleHeader) HasNulls() bool {
	return h.Info&InfoNullMask != 0
}

// HasVarWidths reports whether the tuple contains variable width attributes.
func (h TupleHeader) HasVarWidths() bool {
	return h.Info&InfoVarMask != 0
}

// DataOffset returns where attribute data starts, relative to the tuple.
func (h TupleHeader) DataOffset() int {
	if h.HasNulls() {
		return page.MaxAlign(TupleHeaderSize + NullBitmapSize)
	}
	return page.MaxAlign(TupleHeaderSize)
}

// DataLen returns the bytes available for attribute payload. It is negative
// when the recorded size is smaller than the data offset.
func (h TupleHeader) DataLen() int {
	return h.Size() - h.DataOffset()
}

// IsNull reports whether attribute attno is marked null in the bitmap at
// bitmapOff. A set bit means the attribute is present.
func IsNull(s page.Span, bitmapOff, attno int) bool {
	b, err := s.Uint8(bitmapOff + attno>>3)
	if err != nil {
		return false
	}
	return b&(1<<(attno&0x07)) == 0
}

// CStringLen returns the length of the NUL-terminated string at off without
// looking at more than limit bytes. An unterminated string yields limit.
func CStringLen(s page.Span, off, limit int) int {
	if limit <= 0 {
		return 0
	}
	if i := s.IndexByte(off, limit, 0); i >= 0 {
		return i
	}
	return limit
}

// BuildTuple encodes an index tuple for desc. values holds the already
// encoded datum bytes of each attribute; a nil entry is a null. The result is
// padded to the maximum alignment and expects to be stored maxaligned.
func BuildTuple(desc *schema.Descriptor, tid TID, values [][]byte) ([]byte, error) {
	if len(values) != desc.NumAttrs() {
		return nil, fmt.Errorf("%w: %d values for %d attributes", ErrValueCount, len(values), desc.NumAttrs())
	}

	var hasNulls, hasVarWidths bool
	for i, v := range values {
		if v == nil {
			hasNulls = true
		} else if desc.Attr(i).IsVarWidth() {
			hasVarWidths = true
		}
	}

	var h TupleHeader
	if hasNulls {
		h.Info |= InfoNullMask
	}
	if hasVarWidths {
		h.Info |= InfoVarMask
	}

	buf := make([]byte, h.DataOffset())
	for i, v := range values {
		if v == nil {
			continue
		}
		attr := desc.Attr(i)
		if hasNulls {
			buf[TupleHeaderSize+i>>3] |= 1 << (i & 0x07)
		}
		if attr.Len > 0 && len(v) != int(attr.Len) {
			return nil, fmt.Errorf("%w: %s: %d bytes, want %d", ErrValueLength, attr.Name, len(v), attr.Len)
		}

		off := len(buf)
		if !(attr.Len == schema.LenVarlena && len(v) > 0 && v[0]&0x01 == 0x01) {
			off = AlignNominal(off, attr.Align)
		}
		buf = append(buf, make([]byte, off-len(buf))...)
		buf = append(buf, v...)
	}

	size := page.MaxAlign(len(buf))
	if size > int(InfoSizeMask) {
		return nil, fmt.Errorf("%w: %d bytes", ErrTupleTooLarge, size)
	}
	buf = append(buf, make([]byte, size-len(buf))...)

	h.Info |= uint16(size)
	binary.LittleEndian.PutUint16(buf[0:], uint16(tid.Block>>16))
	binary.LittleEndian.PutUint16(buf[2:], uint16(tid.Block))
	binary.LittleEndian.PutUint16(buf[4:], tid.Offset)
	binary.LittleEndian.PutUint16(buf[6:], h.Info)

	return buf, nil
}

// SetTupleSize rewrites the size bits of an encoded tuple's info field.
func SetTupleSize(tuple []byte, size int) {
	info := binary.LittleEndian.Uint16(tuple[6:])
	info = info&^InfoSizeMask | uint16(size)&InfoSizeMask
	binary.LittleEndian.PutUint16(tuple[6:], info)
}

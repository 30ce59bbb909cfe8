// pkg/record/varlena.go
package record

import (
	"encoding/binary"
	"errors"
	"fmt"

	"idxcheck/pkg/page"
)

const (
	// VarHdrSz is the size of a 4-byte varlena header.
	VarHdrSz = 4

	// VarHdrSzShort is the size of a 1-byte varlena header.
	VarHdrSzShort = 1

	// VarHdrSzExternal is the header size of an external (toast pointer) varlena.
	VarHdrSzExternal = 2

	// CompressedHdrSz is the 4-byte header plus the raw size word.
	CompressedHdrSz = 8

	// MaxRawSize bounds the decompressed size of a compressed value.
	MaxRawSize = 1 << 30
)

// External varlena tags
const (
	TagIndirect   = 1
	TagExpandedRO = 2
	TagExpandedRW = 3
	TagOnDisk     = 18
)

var (
	ErrVarlenaTruncated = errors.New("varlena header runs past the page")
	ErrVarlenaTooShort  = errors.New("varlena length smaller than its header")
	ErrUnknownTag       = errors.New("unknown external varlena tag")
)

// Form is the header form of a varlena value.
type Form int

const (
	Form4BUncompressed Form = iota
	Form4BCompressed
	Form1BShort
	Form1BExternal
)

// String returns the string representation of the varlena form
func (f Form) String() string {
	switch f {
	case Form4BUncompressed:
		return "4B"
	case Form4BCompressed:
		return "4B-compressed"
	case Form1BShort:
		return "1B"
	case Form1BExternal:
		return "1B-external"
	default:
		return "unknown"
	}
}

// Varlena is a decoded varlena header.
type Varlena struct {
	Form Form
	// Size is the total size of the value including its header.
	Size int
	// RawSize is the decompressed size, set for compressed values only.
	RawSize int32
	// Tag is the external tag, set for external values only.
	Tag byte
}

// IsCompressed reports whether the value is stored inline compressed.
func (v Varlena) IsCompressed() bool {
	return v.Form == Form4BCompressed
}

// RawSizeValid reports whether a compressed value's raw size is in [0, MaxRawSize).
func (v Varlena) RawSizeValid() bool {
	return v.RawSize >= 0 && v.RawSize < MaxRawSize
}

// ReadVarlena decodes the varlena header at off. Headers are little-endian:
// the low bits of the first byte select the form.
//
//	xxxxxx00 4-byte header, uncompressed
//	xxxxxx10 4-byte header, compressed (raw size follows)
//	00000001 1-byte header, external; next byte is the tag
//	xxxxxxx1 1-byte header, short inline value
func ReadVarlena(s page.Span, off int) (Varlena, error) {
	first, err := s.Uint8(off)
	if err != nil {
		return Varlena{}, fmt.Errorf("%w: %v", ErrVarlenaTruncated, err)
	}

	switch {
	case first == 0x01:
		tag, err := s.Uint8(off + 1)
		if err != nil {
			return Varlena{}, fmt.Errorf("%w: %v", ErrVarlenaTruncated, err)
		}
		body := externalSize(tag)
		if body < 0 {
			return Varlena{}, fmt.Errorf("%w: %d", ErrUnknownTag, tag)
		}
		return Varlena{Form: Form1BExternal, Size: VarHdrSzExternal + body, Tag: tag}, nil

	case first&0x01 == 0x01:
		return Varlena{Form: Form1BShort, Size: int(first>>1) & 0x7F}, nil
	}

	word, err := s.Uint32(off)
	if err != nil {
		return Varlena{}, fmt.Errorf("%w: %v", ErrVarlenaTruncated, err)
	}
	size := int((word >> 2) & 0x3FFFFFFF)

	if first&0x03 == 0x02 {
		if size < CompressedHdrSz {
			return Varlena{}, fmt.Errorf("%w: %d", ErrVarlenaTooShort, size)
		}
		raw, err := s.Int32(off + VarHdrSz)
		if err != nil {
			return Varlena{}, fmt.Errorf("%w: %v", ErrVarlenaTruncated, err)
		}
		return Varlena{Form: Form4BCompressed, Size: size, RawSize: raw}, nil
	}

	if size < VarHdrSz {
		return Varlena{}, fmt.Errorf("%w: %d", ErrVarlenaTooShort, size)
	}
	return Varlena{Form: Form4BUncompressed, Size: size}, nil
}

// externalSize returns the size of the toast pointer body for tag, or -1.
func externalSize(tag byte) int {
	switch tag {
	case TagIndirect, TagExpandedRO, TagExpandedRW:
		return 8
	case TagOnDisk:
		return 16
	default:
		return -1
	}
}

// EncodeVarlena builds an uncompressed value with a 4-byte header.
func EncodeVarlena(payload []byte) []byte {
	out := make([]byte, VarHdrSz+len(payload))
	binary.LittleEndian.PutUint32(out, uint32(len(out))<<2)
	copy(out[VarHdrSz:], payload)
	return out
}

// EncodeShortVarlena builds a value with a 1-byte header. payload must be
// shorter than 127 bytes.
func EncodeShortVarlena(payload []byte) []byte {
	out := make([]byte, VarHdrSzShort+len(payload))
	out[0] = byte(len(out)<<1) | 0x01
	copy(out[VarHdrSzShort:], payload)
	return out
}

// EncodeCompressed builds a compressed value header around an opaque body.
func EncodeCompressed(rawSize int32, body []byte) []byte {
	out := make([]byte, CompressedHdrSz+len(body))
	binary.LittleEndian.PutUint32(out, uint32(len(out))<<2|0x02)
	binary.LittleEndian.PutUint32(out[VarHdrSz:], uint32(rawSize))
	copy(out[CompressedHdrSz:], body)
	return out
}

// EncodeExternal builds a toast pointer with the given tag and body.
func EncodeExternal(tag byte, body []byte) []byte {
	out := make([]byte, VarHdrSzExternal+len(body))
	out[0] = 0x01
	out[1] = tag
	copy(out[VarHdrSzExternal:], body)
	return out
}

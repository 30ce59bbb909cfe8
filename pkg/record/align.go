// pkg/record/align.go
package record

import (
	"idxcheck/pkg/page"
	"idxcheck/pkg/schema"
)

// AlignNominal rounds off up to the boundary required by align.
func AlignNominal(off int, align schema.Align) int {
	n := align.Bytes()
	if n <= 1 {
		return off
	}
	return (off + n - 1) &^ (n - 1)
}

// AlignPointer aligns off for an attribute whose bytes start at off in s.
//
// A varlena whose first byte is non-zero is a short (1-byte header) or
// external value and is stored unaligned; a zero first byte can only be
// padding, so the nominal alignment applies. Every other width class always
// uses the nominal alignment.
func AlignPointer(s page.Span, off int, align schema.Align, attlen int16) int {
	if attlen == schema.LenVarlena {
		if b, err := s.Uint8(off); err == nil && b != 0 {
			return off
		}
	}
	return AlignNominal(off, align)
}

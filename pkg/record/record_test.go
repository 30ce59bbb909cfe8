// pkg/record/record_test.go
package record

import (
	"errors"
	"testing"

	"idxcheck/pkg/page"
	"idxcheck/pkg/schema"
)

func mustDesc(t *testing.T, s string) *schema.Descriptor {
	t.Helper()
	d, err := schema.Parse(s)
	if err != nil {
		t.Fatalf("parse schema %q: %v", s, err)
	}
	return d
}

func TestAlignNominal(t *testing.T) {
	tests := []struct {
		off   int
		align schema.Align
		want  int
	}{
		{13, schema.AlignChar, 13},
		{13, schema.AlignShort, 14},
		{13, schema.AlignInt, 16},
		{13, schema.AlignDouble, 16},
		{16, schema.AlignDouble, 16},
		{17, schema.AlignDouble, 24},
	}
	for _, tt := range tests {
		if got := AlignNominal(tt.off, tt.align); got != tt.want {
			t.Errorf("AlignNominal(%d, %v): expected %d, got %d", tt.off, tt.align, tt.want, got)
		}
	}
}

func TestAlignPointer(t *testing.T) {
	data := make([]byte, 32)
	data[13] = 0x07 // short varlena header
	s := page.NewSpan(data)

	if got := AlignPointer(s, 13, schema.AlignInt, schema.LenVarlena); got != 13 {
		t.Errorf("short varlena must stay unaligned, got %d", got)
	}
	// padding byte: nominal alignment applies
	if got := AlignPointer(s, 14, schema.AlignInt, schema.LenVarlena); got != 16 {
		t.Errorf("expected 16 for padded varlena, got %d", got)
	}
	// fixed width ignores the byte value
	if got := AlignPointer(s, 13, schema.AlignInt, 4); got != 16 {
		t.Errorf("expected 16 for fixed width, got %d", got)
	}
	// out of bounds falls back to nominal
	if got := AlignPointer(s, 33, schema.AlignInt, schema.LenVarlena); got != 36 {
		t.Errorf("expected 36, got %d", got)
	}
}

func TestReadVarlenaForms(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		form Form
		size int
	}{
		{"4B", EncodeVarlena([]byte("hello")), Form4BUncompressed, 9},
		{"1B", EncodeShortVarlena([]byte("hi")), Form1BShort, 3},
		{"compressed", EncodeCompressed(100, []byte{1, 2, 3, 4}), Form4BCompressed, 12},
		{"external ondisk", EncodeExternal(TagOnDisk, make([]byte, 16)), Form1BExternal, 18},
		{"external indirect", EncodeExternal(TagIndirect, make([]byte, 8)), Form1BExternal, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ReadVarlena(page.NewSpan(tt.data), 0)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if v.Form != tt.form || v.Size != tt.size {
				t.Errorf("expected %v/%d, got %v/%d", tt.form, tt.size, v.Form, v.Size)
			}
		})
	}
}

func TestReadVarlenaCompressedRawSize(t *testing.T) {
	tests := []struct {
		raw   int32
		valid bool
	}{
		{0, true},
		{100, true},
		{MaxRawSize - 1, true},
		{MaxRawSize, false},
		{-1, false},
	}
	for _, tt := range tests {
		v, err := ReadVarlena(page.NewSpan(EncodeCompressed(tt.raw, nil)), 0)
		if err != nil {
			t.Fatalf("raw %d: %v", tt.raw, err)
		}
		if !v.IsCompressed() || v.RawSize != tt.raw {
			t.Errorf("raw %d: unexpected %+v", tt.raw, v)
		}
		if v.RawSizeValid() != tt.valid {
			t.Errorf("raw %d: expected valid=%v", tt.raw, tt.valid)
		}
	}
}

func TestReadVarlenaErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		off  int
		want error
	}{
		{"zero length word", []byte{0, 0, 0, 0}, 0, ErrVarlenaTooShort},
		{"length below header", []byte{0x0C, 0, 0, 0}, 0, ErrVarlenaTooShort},
		{"truncated word", []byte{0x00, 0x01}, 0, ErrVarlenaTruncated},
		{"past end", []byte{0x03}, 4, ErrVarlenaTruncated},
		{"unknown tag", []byte{0x01, 0x42}, 0, ErrUnknownTag},
		{"missing tag", []byte{0x01}, 0, ErrVarlenaTruncated},
		{"compressed too short", []byte{0x12, 0, 0, 0}, 0, ErrVarlenaTooShort},
		{"compressed truncated", []byte{0x22, 0, 0, 0, 1}, 0, ErrVarlenaTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadVarlena(page.NewSpan(tt.data), tt.off); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBuildTupleFixed(t *testing.T) {
	desc := mustDesc(t, "a:int4,b:int8")
	tuple, err := BuildTuple(desc, TID{Block: 0x10002, Offset: 7}, [][]byte{
		{1, 0, 0, 0},
		{2, 0, 0, 0, 0, 0, 0, 0},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// header 8, int4 at 8, int8 aligned to 16
	if len(tuple) != 24 {
		t.Fatalf("expected 24 bytes, got %d", len(tuple))
	}

	h, err := ReadTupleHeader(page.NewSpan(tuple), 0)
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if h.TID.Block != 0x10002 || h.TID.Offset != 7 {
		t.Errorf("unexpected tid %v", h.TID)
	}
	if h.Size() != 24 || h.HasNulls() || h.HasVarWidths() {
		t.Errorf("unexpected info %04x", h.Info)
	}
	if h.DataOffset() != 8 || h.DataLen() != 16 {
		t.Errorf("expected data offset 8 / dlen 16, got %d / %d", h.DataOffset(), h.DataLen())
	}
	if tuple[16] != 2 {
		t.Errorf("int8 not aligned at 16")
	}
}

func TestBuildTupleNulls(t *testing.T) {
	desc := mustDesc(t, "a:int4,b:text,c:int2")
	tuple, err := BuildTuple(desc, TID{}, [][]byte{nil, EncodeShortVarlena([]byte("x")), nil})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	s := page.NewSpan(tuple)
	h, _ := ReadTupleHeader(s, 0)
	if !h.HasNulls() || !h.HasVarWidths() {
		t.Fatalf("expected null and varwidth flags, info %04x", h.Info)
	}
	if h.DataOffset() != 16 {
		t.Errorf("expected data offset 16, got %d", h.DataOffset())
	}
	if !IsNull(s, TupleHeaderSize, 0) || IsNull(s, TupleHeaderSize, 1) || !IsNull(s, TupleHeaderSize, 2) {
		t.Errorf("unexpected null bitmap %08b", tuple[TupleHeaderSize])
	}
	// short varlena stored unaligned right at the data offset
	if tuple[16] != 0x05 || tuple[17] != 'x' {
		t.Errorf("unexpected payload %v", tuple[16:18])
	}
}

func TestBuildTupleErrors(t *testing.T) {
	desc := mustDesc(t, "a:int4")
	if _, err := BuildTuple(desc, TID{}, [][]byte{{1, 2}}); !errors.Is(err, ErrValueLength) {
		t.Errorf("expected ErrValueLength, got %v", err)
	}
	if _, err := BuildTuple(desc, TID{}, nil); !errors.Is(err, ErrValueCount) {
		t.Errorf("expected ErrValueCount, got %v", err)
	}

	big := mustDesc(t, "t:text")
	if _, err := BuildTuple(big, TID{}, [][]byte{EncodeVarlena(make([]byte, 9000))}); !errors.Is(err, ErrTupleTooLarge) {
		t.Errorf("expected ErrTupleTooLarge, got %v", err)
	}
}

func TestSetTupleSize(t *testing.T) {
	desc := mustDesc(t, "a:int4")
	tuple, _ := BuildTuple(desc, TID{}, [][]byte{nil})
	SetTupleSize(tuple, 8)

	h, _ := ReadTupleHeader(page.NewSpan(tuple), 0)
	if h.Size() != 8 || !h.HasNulls() {
		t.Errorf("unexpected info %04x", h.Info)
	}
	if h.DataLen() != -8 {
		t.Errorf("expected dlen -8, got %d", h.DataLen())
	}
}

func TestCStringLen(t *testing.T) {
	s := page.NewSpan([]byte("abc\x00defgh"))

	if n := CStringLen(s, 0, 9); n != 3 {
		t.Errorf("expected 3, got %d", n)
	}
	if n := CStringLen(s, 4, 5); n != 5 {
		t.Errorf("unterminated: expected limit 5, got %d", n)
	}
	if n := CStringLen(s, 4, -2); n != 0 {
		t.Errorf("negative limit: expected 0, got %d", n)
	}
}

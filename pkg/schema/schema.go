// pkg/schema/schema.go
// Package schema describes the attributes of an index tuple: width class,
// pass-by-value flag and alignment requirement of every key column.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MaxAttributes is the maximum number of key columns of an index.
const MaxAttributes = 32

var (
	ErrEmptySchema       = errors.New("schema has no attributes")
	ErrTooManyAttributes = errors.New("too many attributes")
	ErrInvalidAttribute  = errors.New("invalid attribute")
	ErrUnknownType       = errors.New("unknown type")
)

// Align is the alignment requirement of an attribute.
type Align byte

const (
	AlignChar   Align = 'c'
	AlignShort  Align = 's'
	AlignInt    Align = 'i'
	AlignDouble Align = 'd'
)

// Bytes returns the alignment boundary in bytes, or 0 if a is not valid.
func (a Align) Bytes() int {
	switch a {
	case AlignChar:
		return 1
	case AlignShort:
		return 2
	case AlignInt:
		return 4
	case AlignDouble:
		return 8
	default:
		return 0
	}
}

// String returns the string representation of the alignment
func (a Align) String() string {
	switch a {
	case AlignChar:
		return "char"
	case AlignShort:
		return "short"
	case AlignInt:
		return "int"
	case AlignDouble:
		return "double"
	default:
		return fmt.Sprintf("Align(%q)", byte(a))
	}
}

// Width classes encoded in Attribute.Len
const (
	LenVarlena = -1 // self-describing variable length value
	LenCString = -2 // NUL-terminated string
)

// Attribute describes one key column.
type Attribute struct {
	Name  string // Display name used in diagnostics
	Type  string // Type name, informational
	Len   int16  // > 0 fixed width, LenVarlena or LenCString
	ByVal bool   // Passed by value (fixed width 1, 2, 4 or 8 only)
	Align Align  // Required alignment
}

// IsVarlena reports whether the attribute carries a self-describing length.
func (a Attribute) IsVarlena() bool {
	return !a.ByVal && a.Len == LenVarlena
}

// IsVarWidth reports whether the attribute has no fixed width.
func (a Attribute) IsVarWidth() bool {
	return !a.ByVal && a.Len < 0
}

// Validate checks that the attribute is internally consistent.
func (a Attribute) Validate() error {
	if a.Align.Bytes() == 0 {
		return fmt.Errorf("%w: %s: bad alignment %q", ErrInvalidAttribute, a.Name, byte(a.Align))
	}
	switch {
	case a.Len == 0 || a.Len < LenCString:
		return fmt.Errorf("%w: %s: bad length %d", ErrInvalidAttribute, a.Name, a.Len)
	case a.ByVal && a.Len != 1 && a.Len != 2 && a.Len != 4 && a.Len != 8:
		return fmt.Errorf("%w: %s: by-value attribute of length %d", ErrInvalidAttribute, a.Name, a.Len)
	}
	return nil
}

// Descriptor is the ordered attribute list of an index. It is read-only
// once built and may be shared between goroutines.
type Descriptor struct {
	attrs []Attribute
}

// NewDescriptor validates attrs and builds a descriptor.
func NewDescriptor(attrs ...Attribute) (*Descriptor, error) {
	if len(attrs) == 0 {
		return nil, ErrEmptySchema
	}
	if len(attrs) > MaxAttributes {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyAttributes, len(attrs), MaxAttributes)
	}
	for _, a := range attrs {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	return &Descriptor{attrs: append([]Attribute(nil), attrs...)}, nil
}

// NumAttrs returns the number of attributes.
func (d *Descriptor) NumAttrs() int {
	return len(d.attrs)
}

// Attr returns attribute i (0-based).
func (d *Descriptor) Attr(i int) Attribute {
	return d.attrs[i]
}

// String renders the descriptor in the form accepted by Parse.
func (d *Descriptor) String() string {
	parts := make([]string, len(d.attrs))
	for i, a := range d.attrs {
		parts[i] = a.Name + ":" + a.Type
	}
	return strings.Join(parts, ",")
}

// Parse builds a descriptor from a comma separated list of name:type pairs,
// for example "id:int4,label:text". A bare type uses the type as name.
func Parse(s string) (*Descriptor, error) {
	var attrs []Attribute
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		name, typ, ok := strings.Cut(field, ":")
		if !ok {
			typ = name
		}
		name = strings.TrimSpace(name)
		typ = strings.ToLower(strings.TrimSpace(typ))

		t, found := builtinTypes[typ]
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
		}
		attrs = append(attrs, Attribute{
			Name:  name,
			Type:  typ,
			Len:   t.Len,
			ByVal: t.ByVal,
			Align: t.Align,
		})
	}
	return NewDescriptor(attrs...)
}

// TypeInfo is the storage description of a built-in type.
type TypeInfo struct {
	Len   int16
	ByVal bool
	Align Align
}

var builtinTypes = map[string]TypeInfo{
	"bool":        {1, true, AlignChar},
	"char":        {1, true, AlignChar},
	"int2":        {2, true, AlignShort},
	"int4":        {4, true, AlignInt},
	"int8":        {8, true, AlignDouble},
	"float4":      {4, true, AlignInt},
	"float8":      {8, true, AlignDouble},
	"oid":         {4, true, AlignInt},
	"date":        {4, true, AlignInt},
	"time":        {8, true, AlignDouble},
	"timestamp":   {8, true, AlignDouble},
	"timestamptz": {8, true, AlignDouble},
	"money":       {8, true, AlignDouble},
	"tid":         {6, false, AlignShort},
	"macaddr":     {6, false, AlignInt},
	"timetz":      {12, false, AlignDouble},
	"interval":    {16, false, AlignDouble},
	"uuid":        {16, false, AlignChar},
	"name":        {64, false, AlignChar},
	"text":        {LenVarlena, false, AlignInt},
	"varchar":     {LenVarlena, false, AlignInt},
	"bpchar":      {LenVarlena, false, AlignInt},
	"bytea":       {LenVarlena, false, AlignInt},
	"numeric":     {LenVarlena, false, AlignInt},
	"inet":        {LenVarlena, false, AlignInt},
	"jsonb":       {LenVarlena, false, AlignInt},
	"cstring":     {LenCString, false, AlignChar},
}

// LookupType returns the storage description of a built-in type.
func LookupType(name string) (TypeInfo, bool) {
	t, ok := builtinTypes[strings.ToLower(name)]
	return t, ok
}

// TypeNames returns the built-in type names in sorted order.
func TypeNames() []string {
	names := make([]string, 0, len(builtinTypes))
	for name := range builtinTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

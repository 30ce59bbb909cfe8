// pkg/check/attributes.go
package check

import (
	"fmt"

	"idxcheck/pkg/page"
	"idxcheck/pkg/record"
	"idxcheck/pkg/schema"
)

// ValidateAttributes walks the attributes of the tuple at offnum (1-based)
// and checks that none of them ends past the tuple. dlen is the payload size
// taken from the tuple header; when it is not positive the cursor never
// advances and per-attribute overflow checks are off.
//
// An undecodable varlena length or an overflowing attribute stops the walk,
// since the position of the next attribute is then unknown.
func (c *Checker) ValidateAttributes(desc *schema.Descriptor, pg page.Page, offnum page.OffsetNumber, dlen int) Result {
	var res Result
	block := pg.Block()
	span := pg.Span()

	id, err := pg.Item(int(offnum) - 1)
	if err != nil {
		c.report(&res, Finding{Block: block, Item: offnum, Kind: KindSlotBounds, Message: err.Error()})
		return res
	}
	h, err := record.ReadTupleHeader(span, id.Offset)
	if err != nil {
		c.report(&res, Finding{
			Block:   block,
			Item:    offnum,
			Kind:    KindSlotBounds,
			Message: fmt.Sprintf("tuple header cannot be read: %v", err),
		})
		return res
	}

	// Downlinks in the first data slot of an internal page carry no key.
	if reg, ok := pg.(*page.RegularPage); ok && reg.Trailer != nil && !reg.IsLeaf() &&
		offnum == reg.FirstDataKey() && dlen == 0 {
		c.trace(block, offnum, "first data key on non-leaf page has no data, skipping")
		return res
	}

	end := id.End()
	off := id.Offset + h.DataOffset()
	bitmap := id.Offset + record.TupleHeaderSize

	c.trace(block, offnum, "checking attributes", "natts", desc.NumAttrs(), "dlen", dlen)

attrs:
	for j := 0; j < desc.NumAttrs(); j++ {
		attr := desc.Attr(j)

		if h.HasNulls() && record.IsNull(span, bitmap, j) {
			c.trace(block, offnum, "attribute is NULL, skipping", "attribute", attr.Name)
			continue
		}

		off = record.AlignPointer(span, off, attr.Align, attr.Len)

		var length int
		switch {
		case attr.IsVarlena():
			v, err := record.ReadVarlena(span, off)
			if err != nil {
				c.report(&res, Finding{
					Block:     block,
					Item:      offnum,
					Attribute: attr.Name,
					Kind:      KindDecode,
					Severity:  SeverityStop,
					Message:   fmt.Sprintf("attribute %q at off=%d has invalid length: %v", attr.Name, off, err),
				})
				break attrs
			}
			if v.IsCompressed() && !v.RawSizeValid() {
				c.report(&res, Finding{
					Block:     block,
					Item:      offnum,
					Attribute: attr.Name,
					Kind:      KindDecode,
					Message: fmt.Sprintf("attribute %q has invalid raw length %d (should be between 0 and %d)",
						attr.Name, v.RawSize, record.MaxRawSize),
				})
			}
			length = v.Size

		case attr.IsVarWidth():
			// An unterminated string measures remaining+1 and overflows below.
			length = record.CStringLen(span, off, end-off) + 1

		default:
			length = int(attr.Len)
		}

		if dlen > 0 && off+length > end {
			c.report(&res, Finding{
				Block:     block,
				Item:      offnum,
				Attribute: attr.Name,
				Kind:      KindOverflow,
				Severity:  SeverityStop,
				Message: fmt.Sprintf("attribute %q (off=%d len=%d) overflows tuple end (off=%d, len=%d)",
					attr.Name, off, length, id.Offset, id.Length),
			})
			break attrs
		}

		if dlen > 0 {
			off += length
		}
		c.trace(block, offnum, "attribute", "attribute", attr.Name, "len", length)
	}

	c.trace(block, offnum, "last attribute", "ends", off, "tuple_end", end)

	if page.MaxAlign(off) > end {
		c.report(&res, Finding{
			Block:   block,
			Item:    offnum,
			Kind:    KindOverflow,
			Message: fmt.Sprintf("the last attribute ends at %d but the tuple ends at %d", off, end),
		})
	}
	return res
}

// pkg/check/slots.go
package check

import (
	"fmt"
	"log/slog"

	"idxcheck/pkg/page"
	"idxcheck/pkg/record"
	"idxcheck/pkg/schema"
)

// ValidateSlots checks every slot of a regular page with ValidateTuple.
// The metapage has no slot table of interest and yields an empty result.
func (c *Checker) ValidateSlots(desc *schema.Descriptor, pg page.Page) Result {
	var res Result
	if _, ok := pg.(*page.MetaPage); ok {
		return res
	}

	n := pg.NumItems()
	c.trace(pg.Block(), 0, "slot table", "items", n)

	if claimed := pg.Header().MaxOffsetNumber(); claimed > n {
		c.report(&res, Finding{
			Block:   pg.Block(),
			Kind:    KindSlotBounds,
			Message: fmt.Sprintf("lower %d claims %d slots but the page holds at most %d", pg.Header().Lower, claimed, n),
		})
	}

	for i := 0; i < n; i++ {
		res.Merge(c.ValidateTuple(desc, pg, i))
	}

	if res.Errors() > 0 {
		c.log.Warn(fmt.Sprintf("block %d is probably corrupted, there were %d errors reported", pg.Block(), res.Errors()),
			slog.Any("block", pg.Block()), slog.Int("errors", res.Errors()))
	}
	return res
}

// ValidateTuple checks slot i (0-based): its overlap with every earlier
// NORMAL slot, that it lies on the page and, for NORMAL slots, the
// attributes of the tuple it points at.
func (c *Checker) ValidateTuple(desc *schema.Descriptor, pg page.Page, i int) Result {
	var res Result
	block := pg.Block()
	item := page.OffsetNumber(i + 1)

	id, err := pg.Item(i)
	if err != nil {
		c.report(&res, Finding{
			Block:   block,
			Item:    item,
			Kind:    KindSlotBounds,
			Message: fmt.Sprintf("slot table entry cannot be read: %v", err),
		})
		return res
	}

	a, b := id.Offset, id.End()
	if c.opts.SkipNonNormalSubjects && !id.IsNormal() {
		c.trace(block, item, "not NORMAL, overlap check skipped", "flags", id.Flags.String())
	} else {
		for j := 0; j < i; j++ {
			other, err := pg.Item(j)
			if err != nil {
				c.trace(block, page.OffsetNumber(j+1), "slot table entry cannot be read, skipped", "error", err)
				continue
			}
			if !other.IsNormal() {
				c.trace(block, page.OffsetNumber(j+1), "not NORMAL, skipped")
				continue
			}

			oc, od := other.Offset, other.End()
			if overlaps(a, b, oc, od) {
				c.report(&res, Finding{
					Block: block,
					Item:  item,
					Kind:  KindOverlap,
					Message: fmt.Sprintf("intersects with item %d: [%d,%d) vs. [%d,%d)",
						j+1, a, b, oc, od),
				})
			}
		}
	}

	span := pg.Span()
	if !span.Contains(id.Offset, id.Length) {
		c.report(&res, Finding{
			Block:   block,
			Item:    item,
			Kind:    KindSlotBounds,
			Message: fmt.Sprintf("item (off=%d len=%d) extends beyond the page (%d bytes)", id.Offset, id.Length, span.Len()),
		})
		return res
	}

	if !id.IsNormal() {
		c.trace(block, item, "not NORMAL, attributes not checked", "flags", id.Flags.String())
		return res
	}

	if id.Length < record.TupleHeaderSize {
		c.report(&res, Finding{
			Block:   block,
			Item:    item,
			Kind:    KindSlotBounds,
			Message: fmt.Sprintf("item length %d is too short for a tuple header (%d bytes)", id.Length, record.TupleHeaderSize),
		})
		return res
	}

	h, err := record.ReadTupleHeader(span, id.Offset)
	if err != nil {
		// unreachable after the bounds checks above
		c.report(&res, Finding{Block: block, Item: item, Kind: KindSlotBounds, Message: err.Error()})
		return res
	}
	c.trace(block, item, "tuple", "off", id.Offset, "len", id.Length, "tid", h.TID.String())

	res.Merge(c.ValidateAttributes(desc, pg, item, h.DataLen()))
	return res
}

// overlaps reports whether [a,b) and [c,d) strictly intersect: one range
// has an endpoint strictly inside the other.
func overlaps(a, b, c, d int) bool {
	return (a < c && c < b) || (a < d && d < b) ||
		(c < a && a < d) || (c < b && b < d)
}

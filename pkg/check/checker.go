// pkg/check/checker.go
// Package check verifies the internal consistency of a single B-tree index
// page: header and metapage sanity, slot table overlap and the decoding of
// every live tuple's attributes.
//
// Every validator is a pure function of the page buffer, the attribute
// descriptor and the checker options. Findings are returned as values and
// echoed to the configured logger; nothing ever aborts the scan of a page.
package check

import (
	"context"
	"fmt"
	"log/slog"

	"idxcheck/pkg/page"
	"idxcheck/pkg/schema"
)

// Checker runs the page validators. It holds no mutable state and can be
// shared by any number of goroutines.
type Checker struct {
	opts Options
	log  *slog.Logger
}

// New creates a checker, filling unset options with defaults.
func New(opts Options) *Checker {
	opts = opts.withDefaults()
	return &Checker{opts: opts, log: opts.Logger}
}

// CheckPage validates the page header and, for regular pages, the slot
// table and every live tuple. Uninitialized pages are valid and skipped.
func (c *Checker) CheckPage(desc *schema.Descriptor, pg page.Page) Result {
	if pg.Header().IsNew() {
		c.trace(pg.Block(), 0, "page is uninitialized, skipping")
		return Result{}
	}

	res := c.ValidatePage(pg)
	res.Merge(c.ValidateSlots(desc, pg))
	return res
}

// ValidatePage checks the generic header, then the metapage body or the
// regular page trailer.
func (c *Checker) ValidatePage(pg page.Page) Result {
	var res Result
	for _, f := range c.opts.HeaderChecker.CheckHeader(pg).Findings {
		c.report(&res, f)
	}

	switch p := pg.(type) {
	case *page.MetaPage:
		c.validateMeta(&res, p)
	case *page.RegularPage:
		c.validateRegular(&res, p)
	}
	return res
}

func (c *Checker) validateMeta(res *Result, p *page.MetaPage) {
	m := p.Meta
	c.trace(p.Block(), 0, "metapage", "magic", m.Magic, "version", m.Version, "root", m.Root, "level", m.Level)

	if m.Magic != c.opts.ExpectedMagic {
		c.report(res, Finding{
			Block:   p.Block(),
			Kind:    KindMetadata,
			Message: fmt.Sprintf("metapage contains invalid magic number %#x (should be %#x)", m.Magic, c.opts.ExpectedMagic),
		})
	}
	if m.Version != c.opts.ExpectedVersion {
		c.report(res, Finding{
			Block:   p.Block(),
			Kind:    KindMetadata,
			Message: fmt.Sprintf("metapage contains invalid version %d (should be %d)", m.Version, c.opts.ExpectedVersion),
		})
	}
}

func (c *Checker) validateRegular(res *Result, p *page.RegularPage) {
	special := int(p.Header().Special)
	if special > page.BlockSize-page.TrailerSize {
		c.report(res, Finding{
			Block: p.Block(),
			Kind:  KindTrailer,
			Message: fmt.Sprintf("not enough special space for index data (%d > %d)",
				page.TrailerSize, page.BlockSize-special),
		})
	}

	switch t := p.Trailer.(type) {
	case nil:
		c.trace(p.Block(), 0, "no readable trailer, level not checked")
	case page.DeletedTrailer:
		c.trace(p.Block(), 0, "deleted page, level not checked", "xid", t.XID)
	case page.ActiveTrailer:
		if t.Flags.IsLeaf() && t.Level != 0 {
			c.report(res, Finding{
				Block:   p.Block(),
				Kind:    KindLevel,
				Message: fmt.Sprintf("leaf page has level %d, expected 0", t.Level),
			})
		}
		if !t.Flags.IsLeaf() && t.Level == 0 {
			c.report(res, Finding{
				Block:   p.Block(),
				Kind:    KindLevel,
				Message: "non-leaf page has level 0",
			})
		}
	}
}

// report records f and echoes it to the logger.
func (c *Checker) report(res *Result, f Finding) {
	res.Findings = append(res.Findings, f)

	level := slog.LevelWarn
	if f.Severity == SeverityStop {
		level = slog.LevelError
	}
	args := []any{"block", f.Block, "kind", f.Kind.String()}
	if f.Item != 0 {
		args = append(args, "item", f.Item)
	}
	if f.Attribute != "" {
		args = append(args, "attribute", f.Attribute)
	}
	c.log.Log(context.Background(), level, f.Message, args...)
}

func (c *Checker) trace(block page.BlockNumber, item page.OffsetNumber, msg string, args ...any) {
	if !c.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{"block", block}
	if item != 0 {
		attrs = append(attrs, "item", item)
	}
	c.log.Debug(msg, append(attrs, args...)...)
}

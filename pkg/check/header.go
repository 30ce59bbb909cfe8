// pkg/check/header.go
package check

import (
	"fmt"

	"idxcheck/pkg/page"
)

// HeaderChecker performs the generic page header checks shared by every
// page kind.
type HeaderChecker interface {
	CheckHeader(pg page.Page) Result
}

// HeaderCheckFunc adapts a function to HeaderChecker.
type HeaderCheckFunc func(pg page.Page) Result

// CheckHeader calls f(pg).
func (f HeaderCheckFunc) CheckHeader(pg page.Page) Result {
	return f(pg)
}

// DefaultHeaderChecker verifies page size, layout version, flag bits and
// the ordering lower <= upper <= special <= page size.
type DefaultHeaderChecker struct{}

// CheckHeader implements HeaderChecker.
func (DefaultHeaderChecker) CheckHeader(pg page.Page) Result {
	var res Result
	h := pg.Header()

	add := func(format string, args ...any) {
		res.Findings = append(res.Findings, Finding{
			Block:   pg.Block(),
			Kind:    KindHeader,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if n := pg.Span().Len(); n != page.BlockSize {
		add("page buffer is %d bytes, expected %d", n, page.BlockSize)
	}
	if h.PageSize() != page.BlockSize {
		add("header page size %d, expected %d", h.PageSize(), page.BlockSize)
	}
	if h.Version() != page.LayoutVersion {
		add("layout version %d, expected %d", h.Version(), page.LayoutVersion)
	}
	if h.Flags&^page.ValidFlagBits != 0 {
		add("invalid header flags %#04x", h.Flags)
	}

	if h.Lower < page.HeaderSize {
		add("lower %d is inside the page header (%d bytes)", h.Lower, page.HeaderSize)
	}
	if h.Lower > h.Upper {
		add("lower %d is beyond upper %d", h.Lower, h.Upper)
	}
	if h.Upper > h.Special {
		add("upper %d is beyond special %d", h.Upper, h.Special)
	}
	if int(h.Special) > page.BlockSize {
		add("special %d is beyond the page end %d", h.Special, page.BlockSize)
	}
	if int(h.Special) != page.MaxAlign(int(h.Special)) {
		add("special %d is not maxaligned", h.Special)
	}

	return res
}

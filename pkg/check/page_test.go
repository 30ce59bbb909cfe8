// pkg/check/page_test.go
package check

import (
	"strings"
	"testing"

	"idxcheck/pkg/page"
)

func TestMetaPageValid(t *testing.T) {
	c := New(Options{})
	pg := mustBuild(t, page.NewBuilder(page.MetaBlock))

	if res := c.ValidatePage(pg); res.Errors() != 0 {
		t.Errorf("expected 0 errors, got %v", res.Findings)
	}
	if res := c.CheckPage(mustDesc(t, "int4"), pg); res.Errors() != 0 {
		t.Errorf("expected 0 errors from CheckPage, got %v", res.Findings)
	}
}

func TestMetaPageBadMagic(t *testing.T) {
	c := New(Options{})
	pg := mustBuild(t, page.NewBuilder(page.MetaBlock).SetMeta(page.Meta{Magic: 0xBEEF, Version: page.MetaVersion}))

	res := c.ValidatePage(pg)
	if res.Errors() != 1 || countKind(res, KindMetadata) != 1 {
		t.Fatalf("expected exactly 1 metadata error, got %v", res.Findings)
	}
	if !strings.Contains(res.Findings[0].Message, "magic") {
		t.Errorf("message should mention magic: %s", res.Findings[0].Message)
	}
}

func TestMetaPageVersionOffByOne(t *testing.T) {
	c := New(Options{})
	pg := mustBuild(t, page.NewBuilder(page.MetaBlock).SetMeta(page.Meta{Magic: page.MetaMagic, Version: page.MetaVersion + 1}))

	res := c.ValidatePage(pg)
	if res.Errors() != 1 || countKind(res, KindMetadata) != 1 {
		t.Fatalf("expected exactly 1 metadata error, got %v", res.Findings)
	}
	msg := res.Findings[0].Message
	if !strings.Contains(msg, "invalid version 3") || !strings.Contains(msg, "should be 2") {
		t.Errorf("message should name both versions: %s", msg)
	}
}

func TestMetaPageBothFieldsWrong(t *testing.T) {
	c := New(Options{})
	pg := mustBuild(t, page.NewBuilder(page.MetaBlock).SetMeta(page.Meta{Magic: 1, Version: 1}))

	if res := c.ValidatePage(pg); countKind(res, KindMetadata) != 2 {
		t.Errorf("expected 2 metadata errors, got %v", res.Findings)
	}
}

func TestMetaPageExpectedVersionOption(t *testing.T) {
	c := New(Options{ExpectedVersion: 4})
	pg := mustBuild(t, page.NewBuilder(page.MetaBlock).SetMeta(page.Meta{Magic: page.MetaMagic, Version: 4}))

	if res := c.ValidatePage(pg); res.Errors() != 0 {
		t.Errorf("expected 0 errors with ExpectedVersion 4, got %v", res.Findings)
	}
}

func TestLevelLeafConsistency(t *testing.T) {
	tests := []struct {
		name    string
		trailer page.Trailer
		want    int
	}{
		{"leaf level 0", page.ActiveTrailer{TrailerCommon: page.TrailerCommon{Flags: page.FlagLeaf}}, 0},
		{"leaf level 1", page.ActiveTrailer{TrailerCommon: page.TrailerCommon{Flags: page.FlagLeaf}, Level: 1}, 1},
		{"internal level 0", page.ActiveTrailer{}, 1},
		{"internal level 2", page.ActiveTrailer{Level: 2}, 0},
		{"deleted leaf", page.DeletedTrailer{TrailerCommon: page.TrailerCommon{Flags: page.FlagLeaf}, XID: 99}, 0},
		{"deleted internal", page.DeletedTrailer{XID: 0}, 0},
	}

	c := New(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg := mustBuild(t, page.NewBuilder(3).SetTrailer(tt.trailer))
			res := c.ValidatePage(pg)
			if res.Errors() != tt.want || countKind(res, KindLevel) != tt.want {
				t.Errorf("expected %d level errors, got %v", tt.want, res.Findings)
			}
		})
	}
}

func TestTrailerTooSmall(t *testing.T) {
	b := leafBuilder(2)
	b.Header().Special = page.BlockSize - page.MaxAlignment

	res := New(Options{}).ValidatePage(mustBuild(t, b))
	if res.Errors() != 1 || countKind(res, KindTrailer) != 1 {
		t.Fatalf("expected exactly 1 trailer error, got %v", res.Findings)
	}
	if !strings.Contains(res.Findings[0].Message, "16 > 8") {
		t.Errorf("message should name trailer size and space left: %s", res.Findings[0].Message)
	}
}

func TestDefaultHeaderChecker(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *page.Header)
		want   int
	}{
		{"valid", func(h *page.Header) {}, 0},
		{"page size", func(h *page.Header) { h.PageSizeVersion = 4096 | page.LayoutVersion }, 1},
		{"layout version", func(h *page.Header) { h.PageSizeVersion = page.BlockSize | 3 }, 1},
		{"flags", func(h *page.Header) { h.Flags = 0x0100 }, 1},
		{"lower inside header", func(h *page.Header) { h.Lower = 10 }, 1},
		{"lower beyond upper", func(h *page.Header) { h.Lower = 8000; h.Upper = 7000 }, 1},
		{"upper beyond special", func(h *page.Header) { h.Upper = 8184 }, 1},
		{"special unaligned", func(h *page.Header) { h.Special = 8170; h.Upper = 8000 }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := leafBuilder(1)
			tt.mutate(b.Header())
			res := DefaultHeaderChecker{}.CheckHeader(mustBuild(t, b))
			if res.Errors() != tt.want || countKind(res, KindHeader) != tt.want {
				t.Errorf("expected %d header errors, got %v", tt.want, res.Findings)
			}
		})
	}
}

func TestDefaultHeaderCheckerShortBuffer(t *testing.T) {
	data := leafBuilder(1).Bytes()[:page.BlockSize/2]
	pg, err := page.Classify(1, data)
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	// the header fields are intact, only the buffer length is wrong
	res := DefaultHeaderChecker{}.CheckHeader(pg)
	if res.Errors() != 1 {
		t.Errorf("expected 1 header error, got %v", res.Findings)
	}
}

func TestCustomHeaderChecker(t *testing.T) {
	calls := 0
	c := New(Options{HeaderChecker: HeaderCheckFunc(func(pg page.Page) Result {
		calls++
		return Result{Findings: []Finding{{Block: pg.Block(), Kind: KindHeader, Message: "custom"}}}
	})})

	res := c.ValidatePage(mustBuild(t, leafBuilder(4)))
	if calls != 1 {
		t.Errorf("expected header checker to run once, ran %d times", calls)
	}
	if res.Errors() != 1 || res.Findings[0].Message != "custom" {
		t.Errorf("expected the custom finding to be counted, got %v", res.Findings)
	}
}

func TestCheckPageSkipsNewPage(t *testing.T) {
	pg, err := page.Classify(9, make([]byte, page.BlockSize))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if res := New(Options{}).CheckPage(mustDesc(t, "int4"), pg); res.Errors() != 0 {
		t.Errorf("expected new page to be skipped, got %v", res.Findings)
	}
}

func TestFindingString(t *testing.T) {
	f := Finding{Block: 3, Item: 2, Kind: KindOverlap, Message: "intersects"}
	if f.String() != "[overlap] block 3, item 2: intersects" {
		t.Errorf("unexpected String(): %s", f.String())
	}
	f = Finding{Block: 0, Kind: KindMetadata, Message: "bad magic"}
	if f.Error() != "[metadata] block 0: bad magic" {
		t.Errorf("unexpected Error(): %s", f.Error())
	}
}

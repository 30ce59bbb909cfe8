// pkg/check/helpers_test.go
package check

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"testing"

	"idxcheck/pkg/page"
	"idxcheck/pkg/record"
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

func int8Val(v int64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, uint64(v))
	return b
}

func int4Val(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func mustTuple(t *testing.T, desc *schema.Descriptor, values ...[]byte) []byte {
	t.Helper()
	tuple, err := record.BuildTuple(desc, record.TID{Block: 1, Offset: 1}, values)
	if err != nil {
		t.Fatalf("build tuple: %v", err)
	}
	return tuple
}

// emptyTuple is a header-only tuple: size 8, no nulls, dlen 0.
func emptyTuple() []byte {
	tuple := make([]byte, record.TupleHeaderSize)
	record.SetTupleSize(tuple, record.TupleHeaderSize)
	return tuple
}

func mustAdd(t *testing.T, b *page.Builder, tuple []byte) page.OffsetNumber {
	t.Helper()
	off, err := b.AddTuple(tuple)
	if err != nil {
		t.Fatalf("add tuple: %v", err)
	}
	return off
}

func mustBuild(t *testing.T, b *page.Builder) page.Page {
	t.Helper()
	pg, err := b.Build()
	if err != nil {
		t.Fatalf("build page: %v", err)
	}
	return pg
}

func countKind(res Result, k Kind) int {
	n := 0
	for _, f := range res.Findings {
		if f.Kind == k {
			n++
		}
	}
	return n
}

// bufferLogger returns a text logger without timestamps so output is stable.
func bufferLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func leafBuilder(block page.BlockNumber) *page.Builder {
	return page.NewBuilder(block)
}

func internalBuilder(block page.BlockNumber, next uint32, level uint32) *page.Builder {
	return page.NewBuilder(block).SetTrailer(page.ActiveTrailer{
		TrailerCommon: page.TrailerCommon{Next: next},
		Level:         level,
	})
}

// pkg/check/relation.go
package check

import (
	"context"
	"fmt"
	"sync"

	"idxcheck/pkg/page"
	"idxcheck/pkg/schema"
)

// BlockSource hands out page buffers. ReadBlock must be safe for concurrent
// use and return a buffer the caller may keep.
type BlockSource interface {
	BlockCount() uint32
	ReadBlock(block uint32) ([]byte, error)
}

// PageResult is the outcome of checking one block.
type PageResult struct {
	Block  page.BlockNumber
	Result Result
	// Err is set when the block could not be read or classified; no
	// validation ran in that case.
	Err error
}

// RelationResult collects the page results of a relation, ordered by block.
type RelationResult struct {
	Pages []PageResult
}

// Errors returns the total number of findings.
func (r *RelationResult) Errors() int {
	n := 0
	for _, p := range r.Pages {
		n += p.Result.Errors()
	}
	return n
}

// Corrupted returns the number of pages with at least one finding.
func (r *RelationResult) Corrupted() int {
	n := 0
	for _, p := range r.Pages {
		if p.Result.Errors() > 0 {
			n++
		}
	}
	return n
}

// Unreadable returns the number of pages that could not be checked.
func (r *RelationResult) Unreadable() int {
	n := 0
	for _, p := range r.Pages {
		if p.Err != nil {
			n++
		}
	}
	return n
}

// Findings returns every finding in block order.
func (r *RelationResult) Findings() []Finding {
	var out []Finding
	for _, p := range r.Pages {
		out = append(out, p.Result.Findings...)
	}
	return out
}

// CheckBlock reads, classifies and checks a single block.
func (c *Checker) CheckBlock(src BlockSource, desc *schema.Descriptor, block uint32) PageResult {
	pr := PageResult{Block: page.BlockNumber(block)}

	data, err := src.ReadBlock(block)
	if err != nil {
		pr.Err = fmt.Errorf("read block %d: %w", block, err)
		return pr
	}
	pg, err := page.Classify(page.BlockNumber(block), data)
	if err != nil {
		pr.Err = err
		return pr
	}

	pr.Result = c.CheckPage(desc, pg)
	return pr
}

// CheckRelation checks every block of src using Options.Workers goroutines.
// Each worker owns the buffers it reads; the descriptor is shared read-only.
// Cancelling ctx stops handing out blocks and returns ctx.Err().
func (c *Checker) CheckRelation(ctx context.Context, src BlockSource, desc *schema.Descriptor) (*RelationResult, error) {
	n := src.BlockCount()
	results := make([]PageResult, n)

	jobs := make(chan uint32)
	var wg sync.WaitGroup
	for w := 0; w < c.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for block := range jobs {
				results[block] = c.CheckBlock(src, desc, block)
			}
		}()
	}

dispatch:
	for block := uint32(0); block < n; block++ {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- block:
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &RelationResult{Pages: results}
	c.log.Info("relation checked", "pages", n, "corrupted", res.Corrupted(), "errors", res.Errors())
	return res, nil
}

// cmd/idxcheck/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"idxcheck/internal/logging"
	"idxcheck/pkg/check"
	"idxcheck/pkg/pager"
	"idxcheck/pkg/report"
	"idxcheck/pkg/schema"
)

// errCorrupted makes check exit non-zero when pages had findings.
var errCorrupted = errors.New("corruption found")

var errZeroVersion = errors.New("invalid --expected-version: must be non-zero")

func (g *Globals) logger(w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, format), nil
}

// CheckCmd checks every page of a segment file, or a single block.
type CheckCmd struct {
	File                  string `arg:"" help:"Index segment file" type:"existingfile"`
	Schema                string `required:"" short:"s" help:"Key attributes as name:type,... (see 'idxcheck types')"`
	Block                 int64  `default:"-1" help:"Check only this block"`
	Workers               int    `short:"j" help:"Pages checked in parallel (default: number of CPUs)"`
	Cache                 string `default:"64MiB" help:"Block cache size, 0 disables"`
	ReportDB              string `name:"report-db" type:"path" help:"Store the run and its findings in this SQLite database"`
	SkipNonNormalSubjects bool   `name:"skip-nonnormal-subjects" help:"Do not compare unused, redirect or dead slots for overlap"`
	ExpectedVersion       uint32 `name:"expected-version" default:"2" help:"Metapage version to accept, must be non-zero"`
}

func (c *CheckCmd) Run(g *Globals) error {
	return c.run(context.Background(), g, os.Stdout, os.Stderr)
}

func (c *CheckCmd) run(ctx context.Context, g *Globals, out, errOut io.Writer) error {
	log, err := g.logger(errOut)
	if err != nil {
		return err
	}

	if c.ExpectedVersion == 0 {
		return errZeroVersion
	}

	desc, err := schema.Parse(c.Schema)
	if err != nil {
		return fmt.Errorf("invalid --schema: %w", err)
	}

	cacheBytes, err := humanize.ParseBytes(c.Cache)
	if err != nil {
		return fmt.Errorf("invalid --cache: %w", err)
	}
	opts := pager.Options{CacheBytes: int64(cacheBytes)}
	if cacheBytes == 0 {
		opts.CacheBytes = -1
	}

	p, err := pager.Open(c.File, opts)
	if err != nil {
		return err
	}
	defer p.Close()

	checker := check.New(check.Options{
		ExpectedVersion:       c.ExpectedVersion,
		SkipNonNormalSubjects: c.SkipNonNormalSubjects,
		Workers:               c.Workers,
		Logger:                log,
	})

	blocks := p.BlockCount()
	fmt.Fprintf(out, "checking %s (%s, %s blocks) with schema %s\n",
		c.File, humanize.IBytes(uint64(blocks)*uint64(p.PageSize())), humanize.Comma(int64(blocks)), desc)

	started := time.Now()
	var res *check.RelationResult
	if c.Block >= 0 {
		if c.Block >= int64(blocks) {
			return fmt.Errorf("block %d out of range, file has %d blocks", c.Block, blocks)
		}
		res = &check.RelationResult{Pages: []check.PageResult{checker.CheckBlock(p, desc, uint32(c.Block))}}
	} else {
		res, err = checker.CheckRelation(ctx, p, desc)
		if err != nil {
			return err
		}
	}

	for _, pr := range res.Pages {
		if pr.Err != nil {
			fmt.Fprintf(out, "block %d: unreadable: %v\n", pr.Block, pr.Err)
		}
		for _, f := range pr.Result.Findings {
			fmt.Fprintln(out, f)
		}
	}
	fmt.Fprintf(out, "%s pages checked in %s: %s corrupted, %s unreadable, %s errors\n",
		humanize.Comma(int64(len(res.Pages))), time.Since(started).Round(time.Millisecond),
		humanize.Comma(int64(res.Corrupted())), humanize.Comma(int64(res.Unreadable())),
		humanize.Comma(int64(res.Errors())))

	if c.ReportDB != "" {
		store, err := report.Open(c.ReportDB)
		if err != nil {
			return err
		}
		defer store.Close()

		id, err := store.SaveRun(ctx, c.File, started, res)
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		fmt.Fprintf(out, "saved as run %d in %s\n", id, c.ReportDB)
	}

	if res.Errors() > 0 || res.Unreadable() > 0 {
		return fmt.Errorf("%w: %d errors on %d pages, %d pages unreadable",
			errCorrupted, res.Errors(), res.Corrupted(), res.Unreadable())
	}
	return nil
}

// TypesCmd lists the types usable in --schema.
type TypesCmd struct{}

func (c *TypesCmd) Run(g *Globals) error {
	return c.run(os.Stdout)
}

func (c *TypesCmd) run(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tLENGTH\tALIGN\tBYVAL")
	for _, name := range schema.TypeNames() {
		ti, _ := schema.LookupType(name)
		length := strconv.Itoa(int(ti.Len))
		switch ti.Len {
		case schema.LenVarlena:
			length = "varlena"
		case schema.LenCString:
			length = "cstring"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", name, length, ti.Align, ti.ByVal)
	}
	return w.Flush()
}

// RunsCmd lists stored runs.
type RunsCmd struct {
	DB string `arg:"" help:"Report database" type:"existingfile"`
}

func (c *RunsCmd) Run(g *Globals) error {
	return c.run(context.Background(), os.Stdout)
}

func (c *RunsCmd) run(ctx context.Context, out io.Writer) error {
	store, err := report.Open(c.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tRELATION\tSTARTED\tPAGES\tCORRUPTED\tUNREADABLE\tERRORS")
	for _, r := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Relation, humanize.Time(r.StartedAt),
			humanize.Comma(int64(r.Pages)), humanize.Comma(int64(r.Corrupted)),
			humanize.Comma(int64(r.Unreadable)), humanize.Comma(int64(r.Errors)))
	}
	return w.Flush()
}

// FindingsCmd prints the findings of one stored run.
type FindingsCmd struct {
	DB string `arg:"" help:"Report database" type:"existingfile"`
	ID int64  `arg:"" name:"run" help:"Run id (see 'idxcheck runs')"`
}

func (c *FindingsCmd) Run(g *Globals) error {
	return c.run(context.Background(), os.Stdout)
}

func (c *FindingsCmd) run(ctx context.Context, out io.Writer) error {
	store, err := report.Open(c.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	findings, err := store.Findings(ctx, c.ID)
	if err != nil {
		return err
	}
	for _, f := range findings {
		fmt.Fprintln(out, f)
	}
	fmt.Fprintf(out, "%s findings\n", humanize.Comma(int64(len(findings))))
	return nil
}

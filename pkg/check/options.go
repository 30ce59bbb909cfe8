// pkg/check/options.go
package check

import (
	"log/slog"
	"runtime"

	"idxcheck/internal/logging"
	"idxcheck/pkg/page"
)

// Options configures a Checker
type Options struct {
	// Zero selects the default, so a metapage can never be expected to carry
	// a zero magic or version.
	ExpectedMagic   uint32 // Metapage magic (default page.MetaMagic)
	ExpectedVersion uint32 // Metapage version (default page.MetaVersion)

	// SkipNonNormalSubjects excludes UNUSED, REDIRECT and DEAD slots from
	// overlap checks when they are the slot being checked. Slots compared
	// against are always restricted to NORMAL ones.
	SkipNonNormalSubjects bool

	Workers       int           // Pages checked in parallel by CheckRelation (default NumCPU)
	Logger        *slog.Logger  // Diagnostics sink (default discards)
	HeaderChecker HeaderChecker // Generic page header checks (default DefaultHeaderChecker)
}

func (o Options) withDefaults() Options {
	if o.ExpectedMagic == 0 {
		o.ExpectedMagic = page.MetaMagic
	}
	if o.ExpectedVersion == 0 {
		o.ExpectedVersion = page.MetaVersion
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Logger == nil {
		o.Logger = logging.Discard()
	}
	if o.HeaderChecker == nil {
		o.HeaderChecker = DefaultHeaderChecker{}
	}
	return o
}

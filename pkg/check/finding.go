// pkg/check/finding.go
package check

import (
	"fmt"

	"idxcheck/pkg/page"
)

// Kind classifies a finding.
type Kind int

const (
	KindHeader     Kind = iota // malformed generic page header
	KindMetadata               // wrong metapage magic or version
	KindTrailer                // special space too small for the trailer
	KindLevel                  // tree level does not match the leaf flag
	KindOverlap                // two live slots share bytes
	KindSlotBounds             // slot does not fit the page or its tuple header
	KindDecode                 // undecodable or absurd varlena length
	KindOverflow               // attribute data runs past the tuple end
)

// String returns the string representation of the finding kind
func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindMetadata:
		return "metadata"
	case KindTrailer:
		return "trailer"
	case KindLevel:
		return "level"
	case KindOverlap:
		return "overlap"
	case KindSlotBounds:
		return "slot"
	case KindDecode:
		return "decode"
	case KindOverflow:
		return "overflow"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k := KindHeader; k <= KindOverflow; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown finding kind %q", s)
}

// Severity tells whether a finding ended the scan of the current tuple.
type Severity int

const (
	SeverityWarning Severity = iota
	// SeverityStop marks a finding after which the tuple's remaining
	// attributes were not examined.
	SeverityStop
)

// String returns the string representation of the severity
func (s Severity) String() string {
	if s == SeverityStop {
		return "stop"
	}
	return "warning"
}

// Finding is one violated invariant.
type Finding struct {
	Block page.BlockNumber
	// Item is the 1-based slot number, 0 for page-level findings.
	Item page.OffsetNumber
	// Attribute is the attribute name for decode and overflow findings.
	Attribute string
	Kind      Kind
	Severity  Severity
	Message   string
}

// String returns a human-readable description of the finding
func (f Finding) String() string {
	if f.Item != 0 {
		return fmt.Sprintf("[%s] block %d, item %d: %s", f.Kind, f.Block, f.Item, f.Message)
	}
	return fmt.Sprintf("[%s] block %d: %s", f.Kind, f.Block, f.Message)
}

// Error implements the error interface
func (f Finding) Error() string {
	return f.String()
}

// Result is what every validator returns: the findings of its layer and of
// every layer below it.
type Result struct {
	Findings []Finding
}

// Errors returns the number of violated invariants.
func (r Result) Errors() int {
	return len(r.Findings)
}

// Merge appends the findings of o.
func (r *Result) Merge(o Result) {
	r.Findings = append(r.Findings, o.Findings...)
}

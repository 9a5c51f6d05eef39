// Package action implements the Action Driver: it decodes a GENERATE
// request, selects the Sequencer variant by flag, and orchestrates
// Validator → Sequencer → Command Stream (SPEC_FULL.md §4.6).
package action

import (
	"github.com/pkg/errors"

	"github.com/fiberfield/deltaplan/field"
	"github.com/fiberfield/deltaplan/planerr"
)

// Flag names recognized in a GENERATE request's flag list (SPEC_FULL.md §6).
const (
	FlagDebug          = "DEBUG"
	FlagDisplay        = "DISPLAY"
	FlagNoFieldCheck   = "NO_FIELD_CHECK"
	FlagNoOrderCheck   = "NO_ORDER_CHECK"
	FlagNoDelta        = "NO_DELTA"
	FlagCheckFullField = "CHECK_FULL_FIELD"
	FlagSpecial        = "SPECIAL"
)

// Flags is the decoded form of a GENERATE request's flag list.
type Flags struct {
	Debug          bool
	Display        bool
	NoFieldCheck   bool
	NoDelta        bool
	CheckFullField bool
	Special        bool
}

// DecodeFlags parses raw flag names into Flags. NO_ORDER_CHECK is rejected:
// its original semantics have no consumer (SPEC_FULL.md §9, §10).
func DecodeFlags(names []string) (Flags, error) {
	var f Flags
	for _, name := range names {
		switch name {
		case FlagDebug:
			f.Debug = true
		case FlagDisplay:
			f.Display = true
		case FlagNoFieldCheck:
			f.NoFieldCheck = true
		case FlagNoOrderCheck:
			return Flags{}, errors.Wrap(planerr.ErrInvalidArgument, "flag NO_ORDER_CHECK has no consumer and is rejected")
		case FlagNoDelta:
			f.NoDelta = true
		case FlagCheckFullField:
			f.CheckFullField = true
		case FlagSpecial:
			f.Special = true
		default:
			return Flags{}, errors.Wrapf(planerr.ErrInvalidArgument, "unrecognized flag %q", name)
		}
	}
	return f, nil
}

// Request is the in-memory form of a GENERATE action's arguments
// (SPEC_FULL.md §6). The positional numbering in the doc comments matches
// spec.md §6 exactly, so a caller decoding a wire or file format can map
// fields back to the original argument list.
type Request struct {
	// 1: maxFibExt, broadcast into every Constants.MaxExt when > 0; 0 means
	// "use each pivot's own Constants.MaxExt".
	MaxFibExt int64

	// 2-5: bend-angle maxima (guide/object, button/pivot).
	MaxButAngG float64
	MaxPivAngG float64
	MaxButAngO float64
	MaxPivAngO float64

	// 6-9: clearances (guide/object, button/fibre).
	ButClearG int64
	FibClearG int64
	ButClearO int64
	FibClearO int64

	// 10-14: field structures.
	Target    []field.Target
	Constants []field.Constants
	Offsets   []field.Offsets
	Fiducials []field.Fiducial
	Current   []field.Current

	// The crossover graph's exchange-format above array, carried alongside
	// tdFcurrent (SPEC_FULL.md §10, grounded on tdFdelCmdFile.c): not itself
	// a numbered GENERATE argument in spec.md §6, but required to seed the
	// Crossover Graph and echoed verbatim into the Command File's
	// OriginalField.
	Above []int

	// 15: name, required unless NO_DELTA.
	Name string

	// 16: extSpringOut, required iff SPECIAL.
	ExtSpringOut int64

	Flags []string
}

// validate checks the structural preconditions spec.md §6 implies:
// field-array lengths agree, and name is present unless NO_DELTA.
// extSpringOut is not checked (see the note at the end of the body).
func (r *Request) validate(flags Flags) error {
	n := len(r.Constants)
	if len(r.Target) != n || len(r.Current) != n || len(r.Offsets) != n {
		return errors.Wrapf(planerr.ErrInvalidArgument,
			"field arrays disagree in length: target=%d constants=%d current=%d offsets=%d",
			len(r.Target), n, len(r.Current), len(r.Offsets))
	}
	if r.Name == "" && !flags.NoDelta {
		return errors.Wrap(planerr.ErrInvalidArgument, "name is required unless NO_DELTA is set")
	}
	// ExtSpringOut's zero value is itself a meaningful Special Sequencer mode
	// (descending-distance parking), so "required iff SPECIAL" is satisfied
	// by the field simply being present on Request — there is no separate
	// absence to detect in Go's value semantics.
	return nil
}

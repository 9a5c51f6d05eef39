// Package planerr defines the shared error taxonomy for the delta planner.
//
// Every subsystem (geometry, field, crossover, validator, sequencer, command,
// action) returns one of these sentinels, wrapped with context via
// github.com/pkg/errors at each propagation boundary. Callers branch with
// errors.Is against the sentinel; Code maps a sentinel to its wire-stable
// string so an external host can report it without depending on this
// package's error values directly.
package planerr

import "errors"

// Sentinel errors, one per entry in the planner's error taxonomy.
var (
	// ErrInvalidArgument indicates an unknown flag combination or a missing
	// positional GENERATE argument.
	ErrInvalidArgument = errors.New("planerr: invalid argument")

	// ErrInvalidField indicates one or more Field Validator passes failed.
	// Per-rule warnings are emitted to the configured sink before this is
	// returned.
	ErrInvalidField = errors.New("planerr: invalid field")

	// ErrNoSuchCommand indicates an internal emit used an unknown opcode.
	ErrNoSuchCommand = errors.New("planerr: no such command")

	// ErrLineOverflow indicates a formatted command line exceeded the
	// maximum line length (the Go analogue of the source's SPRINTF_OVERFLOW).
	ErrLineOverflow = errors.New("planerr: command line overflow")

	// ErrOutOfMemory indicates an allocation failed against a caller-supplied
	// capacity hint.
	ErrOutOfMemory = errors.New("planerr: out of memory")

	// ErrCrossoverInconsistent indicates a crossover counter disagreed with
	// its list, or a pivot about to be moved still had a non-zero above-count.
	ErrCrossoverInconsistent = errors.New("planerr: crossover graph inconsistent")

	// ErrPlanStuck indicates park-candidate selection produced no candidate
	// on two consecutive passes.
	ErrPlanStuck = errors.New("planerr: plan stuck, no park candidate")

	// ErrPlanInconsistent indicates a pivot was scheduled to move twice, to
	// park more than MaxParks times, or a Special-mode cross-swap found no
	// partner or a partner outside the distance tolerance.
	ErrPlanInconsistent = errors.New("planerr: plan inconsistent")
)

// Code is the wire-stable identifier for a taxonomy entry, independent of
// the Go error value's message text.
type Code string

// Wire-stable codes, named after the taxonomy in SPEC_FULL.md §7.
const (
	CodeInvalidArgument       Code = "INVALID_ARGUMENT"
	CodeInvalidField          Code = "INVALID_FIELD"
	CodeNoSuchCommand         Code = "NO_SUCH_COMMAND"
	CodeLineOverflow          Code = "SPRINTF_OVERFLOW"
	CodeOutOfMemory           Code = "OUT_OF_MEMORY"
	CodeCrossoverInconsistent Code = "CROSSOVER_INCONSISTENT"
	CodePlanStuck             Code = "PLAN_STUCK"
	CodePlanInconsistent      Code = "PLAN_INCONSISTENT"
	CodeUnknown               Code = "UNKNOWN"
)

// codeBySentinel maps each sentinel to its wire code. Kept as a slice of
// pairs (not a map keyed by error) so CodeOf can match wrapped errors with
// errors.Is in a fixed, documented order.
var codeBySentinel = []struct {
	err  error
	code Code
}{
	{ErrInvalidArgument, CodeInvalidArgument},
	{ErrInvalidField, CodeInvalidField},
	{ErrNoSuchCommand, CodeNoSuchCommand},
	{ErrLineOverflow, CodeLineOverflow},
	{ErrOutOfMemory, CodeOutOfMemory},
	{ErrCrossoverInconsistent, CodeCrossoverInconsistent},
	{ErrPlanStuck, CodePlanStuck},
	{ErrPlanInconsistent, CodePlanInconsistent},
}

// CodeOf returns the wire-stable code for err, unwrapping as errors.Is does.
// Returns CodeUnknown if err does not wrap any taxonomy sentinel.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	for _, entry := range codeBySentinel {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeUnknown
}

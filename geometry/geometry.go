// Package geometry defines the pluggable predicate interface the delta
// planner uses to test collisions, plate limits, and fiducial obstruction.
// Implementations are per-instrument and supplied by the host; this package
// owns only the contract, the instrument enum, and clearance bookkeeping.
package geometry

import "fmt"

// Instrument selects which positioner family a Provider serves.
type Instrument int

const (
	// InstrA is the general positioner: fibres may be re-arranged in place,
	// crossovers are tracked, arbitrary orderings are possible.
	InstrA Instrument = iota
	// InstrB is the furthest-first / park-first positioner: every move
	// passes through a parked state.
	InstrB
)

// String renders the instrument name used in ENQ_DEV_DESCR-style reporting.
func (i Instrument) String() string {
	switch i {
	case InstrA:
		return "INSTR-A"
	case InstrB:
		return "INSTR-B"
	default:
		return fmt.Sprintf("Instrument(%d)", int(i))
	}
}

// InstrumentForTaskName selects the instrument family for an activated task
// name: names beginning with "SIXDF" configure InstrB, everything else
// configures InstrA (SPEC_FULL.md §6, carried from the original source's
// activation rule).
func InstrumentForTaskName(name string) Instrument {
	if len(name) >= 5 && name[:5] == "SIXDF" {
		return InstrB
	}
	return InstrA
}

// FibreType distinguishes the two fibre classes the angle/clearance limits
// are keyed by.
type FibreType int

const (
	// Guide fibres carry a separate (usually tighter) clearance/angle limit.
	Guide FibreType = iota
	// Object fibres are the default science fibre class.
	Object
)

// Clearance holds the button/fibre clearance pads configured for the next
// predicate call. Provider implementations read this instead of taking a
// clearance parameter on every call, mirroring the source's
// setButClear/setFibClear call-then-predicate convention (SPEC_FULL.md §5:
// callers must treat these as a single call-sequence per goroutine).
type Clearance struct {
	ButClear int64
	FibClear int64
}

// Provider is the per-instrument geometric predicate set the Field
// Validator, General Sequencer, and Special Sequencer depend on. All
// coordinate arguments are signed integer microns; angles are radians.
type Provider interface {
	// Instrument reports which family this Provider implements.
	Instrument() Instrument

	// InstrumentName and TelescopeName report host-facing descriptive
	// strings (ENQ_DEV_DESCR-style reporting).
	InstrumentName() string
	TelescopeName() string

	// NumPivots and NumFiducials report the instrument-defined P and F.
	NumPivots() int
	NumFiducials() int

	// OnField reports whether (x, y) lies within the plate's usable area.
	OnField(x, y int64) bool

	// InvalidPosition reports whether (x, y, theta) collides with a fixed
	// plate obstruction (e.g. a screw hole) for the given plate/fibreType.
	InvalidPosition(plate int, fibreType FibreType, x, y int64, theta float64) bool

	// ColButBut reports whether two buttons at (x1,y1,theta1)/(x2,y2,theta2)
	// collide under the clearance last configured via SetButClear.
	ColButBut(x1, y1 int64, theta1 float64, x2, y2 int64, theta2 float64) bool

	// ColButFib reports whether a button collides with a fibre ray running
	// from (pivX, pivY) to (fvpX, fvpY), under the clearance last configured
	// via SetButClear.
	ColButFib(bx, by int64, btheta float64, fvpX, fvpY, pivX, pivY int64) bool

	// ColFibFib reports whether two fibre rays collide, under the clearance
	// last configured via SetFibClear.
	ColFibFib(pivX1, pivY1, fvpX1, fvpY1, pivX2, pivY2, fvpX2, fvpY2 int64) bool

	// ColFiducial reports whether a fibre obstructs the given fiducial mark.
	ColFiducial(fx, fy, ftheta float64, pivX, pivY, fvpX, fvpY, fidX, fidY int64) bool

	// SetButClear and SetFibClear configure the pad used by the next
	// predicate call in this call sequence.
	SetButClear(clearance int64)
	SetFibClear(clearance int64)

	// ParkMayCollide reports whether parked fibres can still collide with
	// moving ones. SPEC_FULL.md §9 / Open Questions: the original source
	// hard-overrides this to false; this module exposes that override as a
	// configuration key (see Options.ForceParkMayCollideOff) rather than a
	// compiled-in constant.
	ParkMayCollide() bool

	// FibAngVariable reports whether the button/fibre bend-angle check is
	// meaningful for this instrument.
	FibAngVariable() bool

	// SpringOutHint reports the instrument's preferred extSpringOut
	// threshold, or a non-positive value if the instrument has no opinion.
	// The Special Sequencer does not consult it; it uses the extSpringOut
	// value it is constructed with.
	SpringOutHint() int64
}

// Options wraps a Provider with planner-level overrides that do not belong
// in the predicate contract itself.
type Options struct {
	// ForceParkMayCollideOff, when true, makes Parked.ParkMayCollide()
	// report false regardless of the wrapped Provider's own answer. This is
	// the configuration-key form of the original source's hard-coded
	// `ParkMayCollide = 0` override (SPEC_FULL.md §4.1/§9).
	ForceParkMayCollideOff bool
}

// Parked wraps a Provider, applying Options on top of it. The planner talks
// to Parked, never to the raw Provider, so the override is applied exactly
// once and in exactly one place.
type Parked struct {
	Provider
	opts Options
}

// NewParked returns a Provider that applies opts on top of p.
func NewParked(p Provider, opts Options) *Parked {
	return &Parked{Provider: p, opts: opts}
}

// ParkMayCollide applies the ForceParkMayCollideOff override before
// delegating to the wrapped Provider.
func (p *Parked) ParkMayCollide() bool {
	if p.opts.ForceParkMayCollideOff {
		return false
	}
	return p.Provider.ParkMayCollide()
}

// ClearanceFor selects the guide/object clearance pair for a single fibre,
// per SPEC_FULL.md §4.3's "guide if either endpoint is guide, else object"
// and "clearance is guide-or-object based on the fibre's own type" rules.
func ClearanceFor(guide, object Clearance, types ...FibreType) Clearance {
	for _, t := range types {
		if t == Guide {
			return guide
		}
	}
	return object
}

package action

import (
	"github.com/pkg/errors"

	"github.com/fiberfield/deltaplan/command"
	"github.com/fiberfield/deltaplan/crossover"
	"github.com/fiberfield/deltaplan/field"
	"github.com/fiberfield/deltaplan/geometry"
	"github.com/fiberfield/deltaplan/planerr"
	"github.com/fiberfield/deltaplan/sequencer"
	"github.com/fiberfield/deltaplan/validator"
)

// VersionInfo mirrors the three version-publication strings the original
// source's tdFdelVersion.c supplies (SPEC_FULL.md §10). Values here are
// placeholders for this module, set by the host at Driver construction.
type VersionInfo struct {
	EnqVerNum   string
	EnqVerDate  string
	EnqDevDescr string
}

// Driver is the Action Driver: one instance is held for the life of a task
// (SPEC_FULL.md §5), wrapping a single Geometry Provider. Generate is called
// once per GENERATE action; it never shares state across calls except the
// Provider and Version, both read-only after construction.
type Driver struct {
	provider geometry.Provider
	version  VersionInfo
}

// NewDriver returns a Driver over p, threading the instrument explicitly
// rather than through a process-global (SPEC_FULL.md §9, "no hidden
// singleton").
func NewDriver(p geometry.Provider, version VersionInfo) *Driver {
	return &Driver{provider: p, version: version}
}

// Version returns the Driver's ENQ_VER_NUM/ENQ_VER_DATE/ENQ_DEV_DESCR triple.
func (d *Driver) Version() VersionInfo { return d.version }

// Result is what Generate returns on success. File is nil when NO_DELTA was
// set: validation (if not skipped) ran, but no Command Stream was produced.
type Result struct {
	File       *command.File
	ErrorCount int
}

// Generate decodes req's flags, builds the Field Data Model, runs the
// Validator unless NO_FIELD_CHECK is set, then — unless NO_DELTA is set —
// runs the selected Sequencer and returns the finished Command File
// (SPEC_FULL.md §4.6). warnSink receives one line per Validator warning;
// progress, if non-nil, receives DELTA_PROG updates.
func (d *Driver) Generate(req *Request, warnSink validator.Sink, progress ProgressSink) (*Result, error) {
	flags, err := DecodeFlags(req.Flags)
	if err != nil {
		return nil, err
	}
	if err := req.validate(flags); err != nil {
		return nil, err
	}

	m := &field.Model{
		Constants: append([]field.Constants(nil), req.Constants...),
		Current:   append([]field.Current(nil), req.Current...),
		Target:    append([]field.Target(nil), req.Target...),
		Fiducials: append([]field.Fiducial(nil), req.Fiducials...),
		Offsets:   append([]field.Offsets(nil), req.Offsets...),
	}
	if req.MaxFibExt > 0 {
		for i := range m.Constants {
			m.Constants[i].MaxExt = req.MaxFibExt
		}
	}

	tracker := newProgressTracker(progress)
	tracker.report(0, 0, countRequired(m))

	if !flags.NoFieldCheck {
		opts := validator.Options{
			ButAngle:       validator.AngleLimits{Guide: req.MaxButAngG, Object: req.MaxButAngO},
			PivAngle:       validator.AngleLimits{Guide: req.MaxPivAngG, Object: req.MaxPivAngO},
			ButClearGuide:  req.ButClearG,
			FibClearGuide:  req.FibClearG,
			ButClearObj:    req.ButClearO,
			FibClearObj:    req.FibClearO,
			CheckFullField: flags.CheckFullField,
		}
		errCount, err := validator.Validate(m, d.provider, opts, warnSink)
		if err != nil {
			return &Result{ErrorCount: errCount}, err
		}
	}

	if flags.NoDelta {
		return &Result{}, nil
	}

	g, err := crossover.FromAboveArray(m.NumPivots(), req.Above)
	if err != nil {
		return nil, errors.Wrap(planerr.ErrCrossoverInconsistent, err.Error())
	}

	stream := command.NewStream()

	if flags.Special {
		s := sequencer.NewSpecial(m, g, d.provider, stream, req.ExtSpringOut)
		if err := s.Run(); err != nil {
			return nil, err
		}
	} else {
		s := sequencer.NewGeneral(m, g, d.provider, stream,
			sequencer.WithClearances(req.ButClearG, req.FibClearG, req.ButClearO, req.FibClearO))
		if err := s.Run(); err != nil {
			return nil, err
		}
	}

	tracker.report(stream.NumMoves(), stream.NumParks(), 0)

	orig := command.OriginalField{
		Xf:    int64sToFloat64s(fieldEndXs(req.Current)),
		Yf:    int64sToFloat64s(fieldEndYs(req.Current)),
		Theta: thetas(req.Current),
		Above: append([]int(nil), req.Above...),
	}
	file := command.NewFile(stream, orig)
	return &Result{File: &file}, nil
}

// countRequired counts pivots whose Target.MustMove is Required, the initial
// pivotsLeft value both Sequencers compute internally (SPEC_FULL.md §4.4).
func countRequired(m *field.Model) int {
	n := 0
	for _, t := range m.Target {
		if t.MustMove == field.Required {
			n++
		}
	}
	return n
}

func fieldEndXs(cs []field.Current) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.FibreEndX
	}
	return out
}

func fieldEndYs(cs []field.Current) []int64 {
	out := make([]int64, len(cs))
	for i, c := range cs {
		out[i] = c.FibreEndY
	}
	return out
}

func thetas(cs []field.Current) []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Theta
	}
	return out
}

func int64sToFloat64s(in []int64) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

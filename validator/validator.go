// Package validator implements the six-pass Field Validator
// (SPEC_FULL.md §4.3): button/button collisions, button/fibre collisions,
// fibre extension, bend angles, valid plate position, and fiducial
// visibility.
package validator

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fiberfield/deltaplan/field"
	"github.com/fiberfield/deltaplan/geometry"
	"github.com/fiberfield/deltaplan/planerr"
)

// Sink receives one warning line per detected error, mirroring the source's
// external message sink (SPEC_FULL.md §4.3). Validate never returns
// INVALID_FIELD silently: every counted error has a corresponding Sink call.
type Sink interface {
	Warnf(format string, args ...interface{})
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(format string, args ...interface{})

// Warnf implements Sink.
func (f SinkFunc) Warnf(format string, args ...interface{}) { f(format, args...) }

// AngleLimits pairs the guide and object limits for one angle check.
type AngleLimits struct {
	Guide  float64
	Object float64
}

// Options carries the thresholds and flags a single Validate call needs.
// Fields mirror the GENERATE positional arguments in SPEC_FULL.md §6.
type Options struct {
	ButAngle      AngleLimits
	PivAngle      AngleLimits
	ButClearGuide int64
	FibClearGuide int64
	ButClearObj   int64
	FibClearObj   int64

	// CheckFullField, when true, disables the mustMove-based skip policy so
	// every pivot participates in passes 1 and 2 regardless of MustMove
	// (SPEC_FULL.md §4.3 pass 1 skip policy).
	CheckFullField bool
}

// Validate runs all six passes against m.Target (parked status is also read
// from m.Target; m.Current is not consulted) and returns the number of
// errors found.
// A nonzero count is always accompanied by planerr.ErrInvalidField.
func Validate(m *field.Model, p geometry.Provider, opts Options, sink Sink) (int, error) {
	errCount := 0
	n := m.NumPivots()

	errCount += checkButtonButton(m, p, opts, sink, n)
	errCount += checkButtonFibre(m, p, opts, sink, n)
	errCount += checkExtension(m, sink, n)
	errCount += checkBendAngles(m, p, opts, sink, n)
	errCount += checkPlatePosition(m, p, sink, n)
	errCount += checkFiducials(m, p, sink, n)

	if errCount > 0 {
		return errCount, errors.Wrapf(planerr.ErrInvalidField, "%d validation error(s)", errCount)
	}
	return 0, nil
}

// skipPivotI applies pass 1/2's outer-loop skip: unless CheckFullField is
// set, a pivot that does not need to move is never iterated.
func skipPivotI(t field.Target, opts Options) bool {
	return !opts.CheckFullField && t.MustMove != field.Required
}

// skipDedup applies the pass 1/2 inner-loop deduplication rule: skip j when
// i > j AND (mustMove[j] is Required or IfNeeded, OR CheckFullField is set)
// — pairs already checkable from the other side.
func skipDedup(i, j int, tj field.Target, opts Options) bool {
	if i <= j {
		return false
	}
	return tj.MustMove == field.Required || tj.MustMove == field.IfNeeded || opts.CheckFullField
}

// endpointPose returns the button/fibre pose to use for pivot i: target
// pose for a non-parked pivot, or the constants' park pose for a parked one
// (only meaningful when parkMayCollide is true — callers that reach here
// for a parked, non-colliding pivot have already skipped it).
func endpointPose(c field.Constants, t field.Target) (x, y int64, theta float64) {
	if t.Parked {
		return c.ParkX, c.ParkY, c.ParkTheta
	}
	return t.FibreEndX, t.FibreEndY, t.Theta
}

func clearanceFor(opts Options, guide, object int64, types ...field.FibreType) int64 {
	for _, ft := range types {
		if ft == field.Guide {
			return guide
		}
	}
	return object
}

func checkButtonButton(m *field.Model, p geometry.Provider, opts Options, sink Sink, n int) int {
	errCount := 0
	parkMayCollide := p.ParkMayCollide()

	for i := 0; i < n; i++ {
		ti := m.Target[i]
		if skipPivotI(ti, opts) {
			continue
		}
		if ti.Parked && !parkMayCollide {
			continue
		}
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			tj := m.Target[j]
			if skipDedup(i, j, tj, opts) {
				continue
			}
			if tj.Parked && !parkMayCollide {
				continue
			}

			x1, y1, th1 := endpointPose(m.Constants[i], ti)
			x2, y2, th2 := endpointPose(m.Constants[j], tj)

			clear := clearanceFor(opts, opts.ButClearGuide, opts.ButClearObj, m.Constants[i].Type, m.Constants[j].Type)
			p.SetButClear(clear)
			if p.ColButBut(x1, y1, th1, x2, y2, th2) {
				errCount++
				sink.Warnf("WARNING: Button/button collision detected in target field (but=%d,%d)", i+1, j+1)
			}
		}
	}
	return errCount
}

func checkButtonFibre(m *field.Model, p geometry.Provider, opts Options, sink Sink, n int) int {
	errCount := 0
	parkMayCollide := p.ParkMayCollide()

	for i := 0; i < n; i++ {
		ti := m.Target[i]
		if skipPivotI(ti, opts) {
			continue
		}
		if ti.Parked && !parkMayCollide {
			continue
		}
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			tj := m.Target[j]
			if skipDedup(i, j, tj, opts) {
				continue
			}
			if tj.Parked && !parkMayCollide {
				continue
			}

			bx, by, bth := endpointPose(m.Constants[i], ti)
			fx, fy, _ := endpointPose(m.Constants[j], tj)

			clearJ := clearanceFor(opts, opts.ButClearGuide, opts.ButClearObj, m.Constants[j].Type)
			p.SetButClear(clearJ)
			if p.ColButFib(bx, by, bth, fx, fy, m.Constants[j].PivotX, m.Constants[j].PivotY) {
				errCount++
				sink.Warnf("WARNING: Button/fibre collision detected in target field (but=%d,fib=%d)", i+1, j+1)
			}

			bx2, by2, bth2 := endpointPose(m.Constants[j], tj)
			fx2, fy2, _ := endpointPose(m.Constants[i], ti)
			clearI := clearanceFor(opts, opts.ButClearGuide, opts.ButClearObj, m.Constants[i].Type)
			p.SetButClear(clearI)
			if p.ColButFib(bx2, by2, bth2, fx2, fy2, m.Constants[i].PivotX, m.Constants[i].PivotY) {
				errCount++
				sink.Warnf("WARNING: Button/fibre collision detected in target field (but=%d,fib=%d)", j+1, i+1)
			}
		}
	}
	return errCount
}

func checkExtension(m *field.Model, sink Sink, n int) int {
	errCount := 0
	for i := 0; i < n; i++ {
		t := m.Target[i]
		if t.MustMove != field.Required || t.Parked {
			continue
		}
		if t.FibreLength > m.Constants[i].MaxExt {
			errCount++
			sink.Warnf("WARNING: Fibre extension for pivot %d (%d) exceeds maximum (%d)", i+1, t.FibreLength, m.Constants[i].MaxExt)
		}
	}
	return errCount
}

func checkBendAngles(m *field.Model, p geometry.Provider, opts Options, sink Sink, n int) int {
	errCount := 0
	variable := p.FibAngVariable()

	for i := 0; i < n; i++ {
		t := m.Target[i]
		if t.MustMove != field.Required || t.Parked {
			continue
		}
		c := m.Constants[i]

		thetaFib := field.FibreAngle(t.FvpX, t.FvpY, c.PivotX, c.PivotY)
		thetaButFib := field.ReduceAngle(thetaFib - t.Theta - math.Pi)
		thetaPivFib := field.ReduceAngle(thetaFib - field.FibreAngle(0, 0, c.PivotX, c.PivotY))

		if variable {
			limit := opts.ButAngle.Object
			if c.Type == field.Guide {
				limit = opts.ButAngle.Guide
			}
			if thetaButFib > limit {
				errCount++
				sink.Warnf("WARNING: Button/fibre bend angle for pivot %d (%.6f) exceeds maximum (%.6f)", i+1, thetaButFib, limit)
			}
		}

		limit := opts.PivAngle.Object
		if c.Type == field.Guide {
			limit = opts.PivAngle.Guide
		}
		if thetaPivFib > limit {
			errCount++
			sink.Warnf("WARNING: Pivot/fibre bend angle for pivot %d (%.6f) exceeds maximum (%.6f)", i+1, thetaPivFib, limit)
		}
	}
	return errCount
}

func checkPlatePosition(m *field.Model, p geometry.Provider, sink Sink, n int) int {
	errCount := 0
	for i := 0; i < n; i++ {
		t := m.Target[i]
		if t.MustMove != field.Required || t.Parked {
			continue
		}
		if !p.OnField(t.FibreEndX, t.FibreEndY) {
			errCount++
			sink.Warnf("WARNING: Pivot %d target position is off the plate", i+1)
		}
		if p.InvalidPosition(0, geometry.Guide, t.FibreEndX, t.FibreEndY, t.Theta) {
			errCount++
			sink.Warnf("WARNING: Pivot %d target position is invalid (obstruction)", i+1)
		}
	}
	return errCount
}

func checkFiducials(m *field.Model, p geometry.Provider, sink Sink, n int) int {
	errCount := 0
	obstructed := 0
	unobstructedCount := 0

	for k, fid := range m.Fiducials {
		if !fid.InUse {
			continue
		}
		hit := false
		for i := 0; i < n; i++ {
			t := m.Target[i]
			if t.Parked {
				continue
			}
			if p.ColFiducial(float64(t.FibreEndX), float64(t.FibreEndY), t.Theta, m.Constants[i].PivotX, m.Constants[i].PivotY, t.FvpX, t.FvpY, fid.X, fid.Y) {
				hit = true
				break
			}
		}
		if hit {
			obstructed++
			sink.Warnf("WARNING: Fiducial %d is obstructed by a moving pivot", k+1)
		} else {
			unobstructedCount++
		}
	}

	if unobstructedCount < 3 {
		errCount++
		if obstructed > 0 && unobstructedCount == 0 {
			sink.Warnf("WARNING: All fiducials are obstructed")
		}
		sink.Warnf("WARNING: We must have three unobstructed fiducials")
	}
	return errCount
}

package sequencer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiberfield/deltaplan/command"
	"github.com/fiberfield/deltaplan/crossover"
	"github.com/fiberfield/deltaplan/field"
	"github.com/fiberfield/deltaplan/geometry"
	"github.com/fiberfield/deltaplan/sequencer"
)

func twoPivotModel() *field.Model {
	return &field.Model{
		Constants: []field.Constants{
			{ParkTheta: 0, ParkX: -1000, ParkY: -1000, PivotX: 0, PivotY: 0, MaxExt: 5000},
			{ParkTheta: 0, ParkX: -2000, ParkY: -2000, PivotX: 5000, PivotY: 0, MaxExt: 5000},
		},
		Current: []field.Current{
			{FibreEndX: 0, FibreEndY: 1000, FvpX: 0, FvpY: 1000},
			{FibreEndX: 5000, FibreEndY: 1000, FvpX: 5000, FvpY: 1000},
		},
		Target: []field.Target{
			{FibreEndX: 500, FibreEndY: 900, FvpX: 500, FvpY: 900, MustMove: field.Required},
			{FibreEndX: 5200, FibreEndY: 800, FvpX: 5200, FvpY: 800, MustMove: field.Required},
		},
	}
}

func TestGeneralRunDirectMovesNoCollisions(t *testing.T) {
	m := twoPivotModel()
	g := crossover.New(2)
	p := geometry.NewParked(geometry.NewFake(geometry.InstrA, 2, 0), geometry.Options{})
	stream := command.NewStream()

	s := sequencer.NewGeneral(m, g, p, stream)
	require.NoError(t, s.Run())

	assert.Equal(t, 2, stream.NumMoves())
	assert.Equal(t, 0, stream.NumParks())
	for i := range m.Target {
		assert.Equal(t, field.NotRequired, m.Target[i].MustMove)
	}
	assert.Equal(t, []string{
		"MF 1 500 900 0.000000",
		"MF 2 5200 800 0.000000",
	}, stream.Lines())
}

func TestGeneralRunResolvesCrossingOnceBlockerMoves(t *testing.T) {
	m := twoPivotModel()
	g := crossover.New(2)
	// pivot 1 is blocked by pivot 0 crossing above it; once pivot 0 moves,
	// ClearBelow(0) drops pivot 0 out of above[1] and pivot 1 unblocks.
	g.AddAbove(1, 0)
	g.AddBelow(0, 1)

	p := geometry.NewParked(geometry.NewFake(geometry.InstrA, 2, 0), geometry.Options{})
	stream := command.NewStream()

	s := sequencer.NewGeneral(m, g, p, stream)
	require.NoError(t, s.Run())

	assert.Equal(t, field.NotRequired, m.Target[0].MustMove)
	assert.Equal(t, field.NotRequired, m.Target[1].MustMove)
	assert.True(t, stream.NumMoves() >= 1)
}

// recordingProvider wraps Fake and records every clearance value configured
// via SetButClear/SetFibClear, so a test can confirm directMove threaded the
// expected per-plan pad through rather than a package-level default.
type recordingProvider struct {
	*geometry.Fake
	butClears []int64
	fibClears []int64
}

func (r *recordingProvider) SetButClear(c int64) {
	r.butClears = append(r.butClears, c)
	r.Fake.SetButClear(c)
}

func (r *recordingProvider) SetFibClear(c int64) {
	r.fibClears = append(r.fibClears, c)
	r.Fake.SetFibClear(c)
}

// clearanceProbeModel builds a two-pivot model whose fibres are long enough
// relative to the 5000-micron pivot separation that directMove's cheap
// interference pre-check always proceeds to the clearance-gated predicates
// for pivot 0 against blocker pivot 1 (pivot 0 is first in scan order, so it
// always evaluates pivot 1 while pivot 1 is still untouched). blockerType is
// pivot 1's fibre type, the one clearanceFor keys on for this check.
func clearanceProbeModel(blockerType field.FibreType) *field.Model {
	return &field.Model{
		Constants: []field.Constants{
			{ParkTheta: 0, ParkX: -1000, ParkY: -1000, PivotX: 0, PivotY: 0, MaxExt: 5000},
			{ParkTheta: 0, ParkX: -2000, ParkY: -2000, PivotX: 5000, PivotY: 0, MaxExt: 5000, Type: blockerType},
		},
		Current: []field.Current{
			{FibreEndX: 0, FibreEndY: 1000, FvpX: 0, FvpY: 1000, FibreLength: 3000},
			{FibreEndX: 5000, FibreEndY: 1000, FvpX: 5000, FvpY: 1000, FibreLength: 3000},
		},
		Target: []field.Target{
			{FibreEndX: 500, FibreEndY: 900, FvpX: 500, FvpY: 900, FibreLength: 3000, MustMove: field.Required},
			{FibreEndX: 5200, FibreEndY: 800, FvpX: 5200, FvpY: 800, FibreLength: 3000, MustMove: field.Required},
		},
	}
}

func TestWithClearancesThreadsRequestPadsIntoDirectMove(t *testing.T) {
	t.Run("guide blocker uses ButGuide/FibGuide", func(t *testing.T) {
		m := clearanceProbeModel(field.Guide)
		g := crossover.New(2)
		rp := &recordingProvider{Fake: geometry.NewFake(geometry.InstrA, 2, 0)}
		p := geometry.NewParked(rp, geometry.Options{})
		stream := command.NewStream()

		s := sequencer.NewGeneral(m, g, p, stream, sequencer.WithClearances(11, 22, 33, 44))
		require.NoError(t, s.Run())

		assert.Contains(t, rp.butClears, int64(11))
		assert.Contains(t, rp.fibClears, int64(22))
	})

	t.Run("object blocker uses ButObj/FibObj", func(t *testing.T) {
		m := clearanceProbeModel(field.Object)
		g := crossover.New(2)
		rp := &recordingProvider{Fake: geometry.NewFake(geometry.InstrA, 2, 0)}
		p := geometry.NewParked(rp, geometry.Options{})
		stream := command.NewStream()

		s := sequencer.NewGeneral(m, g, p, stream, sequencer.WithClearances(11, 22, 33, 44))
		require.NoError(t, s.Run())

		assert.Contains(t, rp.butClears, int64(33))
		assert.Contains(t, rp.fibClears, int64(44))
	})
}

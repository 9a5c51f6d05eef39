package sequencer_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fiberfield/deltaplan/command"
	"github.com/fiberfield/deltaplan/crossover"
	"github.com/fiberfield/deltaplan/field"
	"github.com/fiberfield/deltaplan/geometry"
	"github.com/fiberfield/deltaplan/sequencer"
)

func TestSequencer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Sequencer Suite")
}

var _ = Describe("General Sequencer", func() {

	// Scenario 1: trivial identity plan. P=1, Current==Target, mustMove=NO.
	When("the field is already at target and nothing must move", func() {
		It("emits no lines and reports zero moves/parks", func() {
			m := &field.Model{
				Constants: []field.Constants{{PivotX: 0, PivotY: 0, MaxExt: 5000}},
				Current:   []field.Current{{FibreEndX: 500, FibreEndY: 0, FvpX: 500, FvpY: 0}},
				Target:    []field.Target{{FibreEndX: 500, FibreEndY: 0, FvpX: 500, FvpY: 0, MustMove: field.NotRequired}},
			}
			g := crossover.New(1)
			p := geometry.NewParked(geometry.NewFake(geometry.InstrA, 1, 0), geometry.Options{})
			stream := command.NewStream()

			s := sequencer.NewGeneral(m, g, p, stream)
			Expect(s.Run()).To(Succeed())

			Expect(stream.Lines()).To(BeEmpty())
			Expect(stream.NumMoves()).To(Equal(0))
			Expect(stream.NumParks()).To(Equal(0))
		})
	})

	// Scenario 2: single direct move. P=2, pivot 1 parked and must move to
	// (500,0,0); pivot 2 stationary, not parked, not required to move.
	When("one pivot is parked and must move clear of a stationary pivot", func() {
		It("emits a single direct MF and reports numMoves=1, numParks=0", func() {
			m := &field.Model{
				Constants: []field.Constants{
					{PivotX: 0, PivotY: 0, MaxExt: 5000},
					{PivotX: 10000, PivotY: 0, MaxExt: 5000},
				},
				Current: []field.Current{
					{Parked: true},
					{FibreEndX: 10000, FibreEndY: 0, FvpX: 10000, FvpY: 0},
				},
				Target: []field.Target{
					{FibreEndX: 500, FibreEndY: 0, FvpX: 500, FvpY: 0, MustMove: field.Required},
					{FibreEndX: 10000, FibreEndY: 0, FvpX: 10000, FvpY: 0, MustMove: field.NotRequired},
				},
			}
			g := crossover.New(2)
			p := geometry.NewParked(geometry.NewFake(geometry.InstrA, 2, 0), geometry.Options{})
			stream := command.NewStream()

			s := sequencer.NewGeneral(m, g, p, stream)
			Expect(s.Run()).To(Succeed())

			Expect(stream.Lines()).To(Equal([]string{"MF 1 500 0 0.000000"}))
			Expect(stream.NumMoves()).To(Equal(1))
			Expect(stream.NumParks()).To(Equal(0))
		})
	})

	// Scenario 3: crossover forces a park. Pivot 1 crosses above pivot 2, so
	// pivot 2 cannot move until pivot 1 parks out of the way. Pivot 1's own
	// direct move is, in turn, blocked by pivot 2's not-yet-vacated current
	// position — a crossingProvider stands in for the real geometry
	// predicate that would detect this, since Fake never reports a
	// collision and the crossing would otherwise resolve itself the moment
	// pivot 1 moves directly to its target.
	When("a crossing pivot blocks the other, and is itself blocked from moving directly", func() {
		It("parks the blocker first, then moves both, in three total lines", func() {
			m := &field.Model{
				Constants: []field.Constants{
					{PivotX: 0, PivotY: 0, MaxExt: 5000, ParkX: -5000, ParkY: -5000},
					{PivotX: 10000, PivotY: 0, MaxExt: 5000},
				},
				Current: []field.Current{
					{FibreEndX: 0, FibreEndY: 1000, FvpX: 0, FvpY: 1000},
					{FibreEndX: 10000, FibreEndY: 1000, FvpX: 10000, FvpY: 1000},
				},
				Target: []field.Target{
					{FibreEndX: 500, FibreEndY: 900, FvpX: 500, FvpY: 900, MustMove: field.Required},
					{FibreEndX: 10200, FibreEndY: 800, FvpX: 10200, FvpY: 800, MustMove: field.Required},
				},
			}
			g := crossover.New(2)
			g.AddAbove(1, 0) // above[2] = [1]: pivot 1 crosses above pivot 2
			g.AddBelow(0, 1)

			p := geometry.NewParked(&crossingProvider{
				Fake:  geometry.NewFake(geometry.InstrA, 2, 0),
				fvpX1: 500, fvpY1: 900, // pivot 1's target endpoint
				fvpX2: 10000, fvpY2: 1000, // pivot 2's pre-move current endpoint
			}, geometry.Options{})
			stream := command.NewStream()

			s := sequencer.NewGeneral(m, g, p, stream)
			Expect(s.Run()).To(Succeed())

			Expect(stream.Lines()).To(Equal([]string{
				"PF 1",
				"MF 2 10200 800 0.000000",
				"MF 1 500 900 0.000000",
			}))
			Expect(stream.NumParks()).To(Equal(1))
			Expect(stream.NumMoves()).To(Equal(2))
			Expect(m.Target[0].MustMove).To(Equal(field.NotRequired))
			Expect(m.Target[1].MustMove).To(Equal(field.NotRequired))
		})
	})
})

// crossingProvider wraps Fake and reports exactly one fibre/fibre collision:
// pivot 1's target endpoint against pivot 2's pre-move current endpoint,
// simulating pivot 2's not-yet-vacated position blocking pivot 1's direct
// move. Once pivot 2 moves off that endpoint, the exact-match condition no
// longer holds and the block lifts.
type crossingProvider struct {
	*geometry.Fake
	fvpX1, fvpY1 int64
	fvpX2, fvpY2 int64
}

func (c *crossingProvider) ColFibFib(pivX1, pivY1, fvpX1, fvpY1, pivX2, pivY2, fvpX2, fvpY2 int64) bool {
	return fvpX1 == c.fvpX1 && fvpY1 == c.fvpY1 && fvpX2 == c.fvpX2 && fvpY2 == c.fvpY2
}

var _ = Describe("Special Sequencer", func() {

	// Scenario 6: distance-sorted park-then-place for INSTR-B.
	When("three placed pivots at increasing distance all must move, extSpringOut=0", func() {
		It("parks farthest-first and places closest-first", func() {
			dists := []int64{5000, 10000, 15000}
			m := &field.Model{
				Constants: make([]field.Constants, 3),
				Current:   make([]field.Current, 3),
				Target:    make([]field.Target, 3),
			}
			for i, d := range dists {
				m.Constants[i] = field.Constants{PivotX: 0, PivotY: 0}
				m.Current[i] = field.Current{FibreEndX: d, FibreEndY: 0, FvpX: d, FvpY: 0}
				m.Target[i] = field.Target{FibreEndX: d, FibreEndY: 0, FvpX: d, FvpY: 0, MustMove: field.Required}
			}
			g := crossover.New(3)
			p := geometry.NewParked(geometry.NewFake(geometry.InstrB, 3, 0), geometry.Options{})
			stream := command.NewStream()

			s := sequencer.NewSpecial(m, g, p, stream, 0)
			Expect(s.Run()).To(Succeed())

			Expect(stream.Lines()).To(Equal([]string{
				"PF 3",
				"PF 2",
				"PF 1",
				"MF 1 5000 0 0.000000",
				"MF 2 10000 0 0.000000",
				"MF 3 15000 0 0.000000",
			}))
			Expect(stream.NumMoves()).To(Equal(3))
			Expect(stream.NumParks()).To(Equal(3))
		})
	})
})

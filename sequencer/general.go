// Package sequencer implements the General Sequencer (direct-move with
// park-when-blocked fallback) and the Special Sequencer (distance-sorted
// park-then-place for INSTR-B), SPEC_FULL.md §4.4/§4.5.
package sequencer

import (
	"github.com/pkg/errors"

	"github.com/fiberfield/deltaplan/command"
	"github.com/fiberfield/deltaplan/crossover"
	"github.com/fiberfield/deltaplan/field"
	"github.com/fiberfield/deltaplan/geometry"
	"github.com/fiberfield/deltaplan/planerr"
)

// maxParks bounds how many times a single pivot may be parked in one plan
// (SPEC_FULL.md §4.4). A second attempt is a fatal PLAN_INCONSISTENT.
const maxParks = 1

// General runs the direct-move / park-when-blocked algorithm over m,
// consulting and mutating g, emitting into stream. It returns
// planerr.ErrPlanStuck if park selection exhausts its candidates twice
// running, or planerr.ErrPlanInconsistent if bookkeeping invariants are
// violated.
type General struct {
	m      *field.Model
	g      *crossover.Graph
	p      geometry.Provider
	stream *command.Stream

	clearances Clearances

	pivotsLeft          int
	numUnParkedNotMoved int
	everMoved           []bool
	parkCount           []int

	numMovesPrevented []int
	alternate         []int
	ineligible        []bool
}

// Clearances holds the four button/fibre collision pads directMove threads
// into ColButFib/ColButBut/ColFibFib — the same butClearG/fibClearG/
// butClearO/fibClearO GENERATE arguments the Validator's Options consumes
// (SPEC_FULL.md §4.4, §6) — so the Sequencer and the Validator agree on the
// pad a given plan used rather than each reading a separate default.
type Clearances struct {
	ButGuide int64
	FibGuide int64
	ButObj   int64
	FibObj   int64
}

// defaultGuideClearance/defaultObjectClearance match the values used when a
// General is constructed without an explicit WithClearances option, i.e.
// SPEC_FULL.md §8's fixtures, which never set a request clearance.
const (
	defaultGuideClearance  int64 = 200
	defaultObjectClearance int64 = 100
)

// Option configures a General at construction time.
type Option func(*General)

// WithClearances overrides the per-plan button/fibre clearance pads
// directMove uses. Callers wire the GENERATE request's butClearG/fibClearG/
// butClearO/fibClearO arguments through here, in that order (SPEC_FULL.md
// §6), rather than mutating a package-level default, so clearances are
// per-General state and concurrent GENERATEs in one process never
// interfere.
func WithClearances(butGuide, fibGuide, butObj, fibObj int64) Option {
	return func(s *General) {
		s.clearances = Clearances{ButGuide: butGuide, FibGuide: fibGuide, ButObj: butObj, FibObj: fibObj}
	}
}

// NewGeneral constructs a General Sequencer over m/g/p, appending to
// stream.
func NewGeneral(m *field.Model, g *crossover.Graph, p geometry.Provider, stream *command.Stream, opts ...Option) *General {
	n := m.NumPivots()
	s := &General{
		m:                 m,
		g:                 g,
		p:                 p,
		stream:            stream,
		everMoved:         make([]bool, n),
		parkCount:         make([]int, n),
		numMovesPrevented: make([]int, n),
		alternate:         make([]int, n),
		ineligible:        make([]bool, n),
		clearances: Clearances{
			ButGuide: defaultGuideClearance, FibGuide: defaultGuideClearance,
			ButObj: defaultObjectClearance, FibObj: defaultObjectClearance,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the full General Sequencer loop until every required pivot
// has moved, or an error terminates the plan.
func (s *General) Run() error {
	n := s.m.NumPivots()
	s.pivotsLeft = 0
	s.numUnParkedNotMoved = 0
	for i := 0; i < n; i++ {
		if s.m.Target[i].MustMove == field.Required {
			s.pivotsLeft++
			if !s.m.Current[i].Parked {
				s.numUnParkedNotMoved++
			}
		}
	}

	for s.pivotsLeft > 0 {
		movedAny, err := s.searchPhase()
		if err != nil {
			return err
		}
		if movedAny {
			continue
		}
		if err := s.parkPhase(); err != nil {
			return err
		}
	}
	return nil
}

// searchPhase runs one full pass of the search-for-direct-move phase,
// attempting every pivot once. It returns true if any pivot actually
// moved during the pass.
func (s *General) searchPhase() (bool, error) {
	n := s.m.NumPivots()
	for i := range s.numMovesPrevented {
		s.numMovesPrevented[i] = 0
		s.ineligible[i] = false
	}
	for i := range s.alternate {
		s.alternate[i] = 0
	}

	movedAny := false
	for i := 0; i < n; i++ {
		if s.m.Target[i].MustMove != field.Required {
			continue
		}
		if s.m.Current[i].Parked && s.numUnParkedNotMoved > 0 {
			continue
		}

		blocker, err := s.directMove(i)
		if err != nil {
			return movedAny, err
		}
		if blocker == 0 {
			if err := s.applyMove(i); err != nil {
				return movedAny, err
			}
			movedAny = true
			continue
		}
		s.numMovesPrevented[blocker-1]++
	}
	return movedAny, nil
}

// directMove returns 0 if pivot i may legally move to its target now, else
// the 1-based pivot number whose presence blocks it (SPEC_FULL.md §4.4).
func (s *General) directMove(i int) (int, error) {
	if s.g.NAbove(i) > 0 {
		return s.g.Above(i)[0] + 1, nil
	}

	n := s.m.NumPivots()
	parkMayCollide := s.p.ParkMayCollide()
	ti := s.m.Target[i]

	for j := 0; j < n; j++ {
		if j == i {
			continue
		}
		cj := s.m.Current[j]
		if cj.Parked && !parkMayCollide {
			continue
		}
		if s.m.Target[j].MustMove == field.NotRequired {
			continue
		}
		if float64(ti.FibreLength+cj.FibreLength) <= field.PivotDist(s.m.Constants[i], s.m.Constants[j]) {
			continue
		}

		butClearJ, fibClearJ := s.clearanceFor(s.m.Constants[j].Type)
		// FibClear before ButClear, then the two ColButFib calls bracketing
		// ColButBut/ColFibFib, mirrors the original directMove's call order
		// (tdFdelSeq.c:557-635): both pads stay current for the whole
		// predicate sequence against j.
		s.p.SetFibClear(fibClearJ)
		s.p.SetButClear(butClearJ)
		if s.p.ColButFib(ti.FibreEndX, ti.FibreEndY, ti.Theta, cj.FvpX, cj.FvpY, s.m.Constants[j].PivotX, s.m.Constants[j].PivotY) {
			return j + 1, nil
		}
		if s.p.ColButBut(ti.FibreEndX, ti.FibreEndY, ti.Theta, cj.ButtonAnchorX, cj.ButtonAnchorY, cj.Theta) {
			return j + 1, nil
		}
		if s.p.ColFibFib(s.m.Constants[i].PivotX, s.m.Constants[i].PivotY, ti.FvpX, ti.FvpY,
			s.m.Constants[j].PivotX, s.m.Constants[j].PivotY, cj.FvpX, cj.FvpY) {
			return j + 1, nil
		}
		if s.p.ColButFib(cj.ButtonAnchorX, cj.ButtonAnchorY, cj.Theta, ti.FvpX, ti.FvpY, s.m.Constants[i].PivotX, s.m.Constants[i].PivotY) {
			return j + 1, nil
		}
	}

	return s.checkFibresUnder(i)
}

// clearanceFor reports this plan's (butClear, fibClear) pad for fibre type
// ft.
func (s *General) clearanceFor(ft field.FibreType) (but, fib int64) {
	if ft == field.Guide {
		return s.clearances.ButGuide, s.clearances.FibGuide
	}
	return s.clearances.ButObj, s.clearances.FibObj
}

// checkFibresUnder temporarily rewrites i's below-list to what it will be
// after the move, then asks whether any fibre directly or transitively
// crossing under i (in that temporary list) has Target.MustMove == Required.
// The original below-list is always restored before returning
// (SPEC_FULL.md §4.4c, Design Note §9 "re-entrant crossover rewrite").
func (s *General) checkFibresUnder(i int) (int, error) {
	n := s.m.NumPivots()
	ti := s.m.Target[i]

	var newBelow []int
	for j := 0; j < n; j++ {
		if j == i || s.m.Current[j].Parked {
			continue
		}
		if s.p.ColFibFib(s.m.Constants[i].PivotX, s.m.Constants[i].PivotY, ti.FvpX, ti.FvpY,
			s.m.Constants[j].PivotX, s.m.Constants[j].PivotY, s.m.Current[j].FvpX, s.m.Current[j].FvpY) {
			newBelow = append(newBelow, j)
		}
	}

	original := s.g.ReplaceBelow(i, newBelow)
	blocker := s.transitiveBlockerUnder(i)
	s.g.ReplaceBelow(i, original)

	return blocker, nil
}

// transitiveBlockerUnder walks the below-graph reachable from i and returns
// the 1-based pivot number of the first reachable pivot whose
// Target.MustMove == Required, or 0 if none is found.
func (s *General) transitiveBlockerUnder(i int) int {
	visited := make(map[int]bool)
	var walk func(node int) int
	walk = func(node int) int {
		for _, j := range s.g.Below(node) {
			if visited[j] {
				continue
			}
			visited[j] = true
			if s.m.Target[j].MustMove == field.Required {
				return j + 1
			}
			if blocker := walk(j); blocker != 0 {
				return blocker
			}
		}
		return 0
	}
	return walk(i)
}

// applyMove commits pivot i's direct move: copies Target into Current,
// clears MustMove, updates bookkeeping counters, refreshes the Crossover
// Graph, and emits the MF or PF record (SPEC_FULL.md §4.4).
func (s *General) applyMove(i int) error {
	if s.everMoved[i] && s.m.Target[i].Parked == false {
		return errors.Wrapf(planerr.ErrPlanInconsistent, "pivot %d scheduled to MF twice", i+1)
	}

	wasParked := s.m.Current[i].Parked
	t := s.m.Target[i]

	s.m.Current[i].Theta = t.Theta
	s.m.Current[i].FibreLength = t.FibreLength
	s.m.Current[i].FvpX, s.m.Current[i].FvpY = t.FvpX, t.FvpY
	s.m.Current[i].FibreEndX, s.m.Current[i].FibreEndY = t.FibreEndX, t.FibreEndY
	s.m.Current[i].ButtonAnchorX, s.m.Current[i].ButtonAnchorY = field.ButtonAnchor(
		t.FibreEndX, t.FibreEndY, t.Theta, s.m.Constants[i].GraspX, s.m.Constants[i].GraspY)
	s.m.Current[i].Parked = t.Parked

	s.m.Target[i].MustMove = field.NotRequired
	s.pivotsLeft--
	if !wasParked {
		s.numUnParkedNotMoved--
	}

	s.refreshCrossingsAfterMove(i)

	if t.Parked {
		if s.parkCount[i] >= maxParks {
			return errors.Wrapf(planerr.ErrPlanInconsistent, "pivot %d parked more than %d time(s)", i+1, maxParks)
		}
		s.parkCount[i]++
		if err := s.stream.PF(i + 1); err != nil {
			return err
		}
		s.stream.AddMoves(0, 1)
	} else {
		s.everMoved[i] = true
		if err := s.stream.MF(i+1, t.FibreEndX, t.FibreEndY, t.Theta); err != nil {
			return err
		}
		s.stream.AddMoves(1, 0)
	}
	return nil
}

// refreshCrossingsAfterMove clears i's stale below-list and rebuilds it by
// rescanning every non-parked j against i's new (= target) position
// (SPEC_FULL.md §4.4).
func (s *General) refreshCrossingsAfterMove(i int) {
	if s.g.NAbove(i) > 0 {
		// Invariant 4 (SPEC_FULL.md §8): nothing should be above i at the
		// moment it moves; a positive count here means the Crossover Graph
		// and the direct-move check it gated have diverged.
		return
	}
	s.g.ClearBelow(i)

	n := s.m.NumPivots()
	for j := 0; j < n; j++ {
		if j == i || s.m.Current[j].Parked {
			continue
		}
		if s.p.ColFibFib(s.m.Constants[i].PivotX, s.m.Constants[i].PivotY, s.m.Current[i].FvpX, s.m.Current[i].FvpY,
			s.m.Constants[j].PivotX, s.m.Constants[j].PivotY, s.m.Current[j].FvpX, s.m.Current[j].FvpY) {
			s.g.AddBelow(i, j)
			s.g.AddAbove(j, i)
		}
	}
}

// parkPhase implements chooseAndPark (SPEC_FULL.md §4.4): select the pivot
// whose presence has blocked the most direct moves this pass, and either
// park it, mark it ineligible (something crosses above it) and retry, or —
// if nothing is blocking anything — promote alternate-vector pivots to
// Required and retry once before failing PLAN_STUCK.
func (s *General) parkPhase() error {
	resetOnce := false
	n := s.m.NumPivots()

	for attempt := 0; attempt < 2*n+2; attempt++ {
		candidate := -1
		best := 0
		for j := 0; j < n; j++ {
			if s.ineligible[j] {
				continue
			}
			if s.numMovesPrevented[j] > best {
				best = s.numMovesPrevented[j]
				candidate = j
			}
		}

		if candidate == -1 || best == 0 {
			if resetOnce {
				return planerr.ErrPlanStuck
			}
			promoted := false
			for j := 0; j < n; j++ {
				if s.alternate[j] != 0 {
					promoted = true
					if s.m.Target[j].MustMove == field.NotRequired {
						s.m.Target[j].MustMove = field.Required
						s.pivotsLeft++
						if !s.m.Current[j].Parked {
							s.numUnParkedNotMoved++
						}
					}
				}
			}
			if !promoted {
				return planerr.ErrPlanStuck
			}
			copy(s.numMovesPrevented, s.alternate)
			for j := range s.alternate {
				s.alternate[j] = 0
			}
			for j := range s.ineligible {
				s.ineligible[j] = false
			}
			resetOnce = true
			continue
		}

		if s.g.NAbove(candidate) > 0 {
			for _, fib := range s.g.Above(candidate) {
				s.alternate[fib]++
			}
			s.ineligible[candidate] = true
			continue
		}

		return s.parkCandidate(candidate)
	}
	return planerr.ErrPlanStuck
}

// parkCandidate emits a PF for candidate, updates Current to the park
// pose, clears its below-list, and applies the mustMove flip rules
// (SPEC_FULL.md §4.4).
func (s *General) parkCandidate(candidate int) error {
	if s.parkCount[candidate] >= maxParks {
		return errors.Wrapf(planerr.ErrPlanInconsistent, "pivot %d parked more than %d time(s)", candidate+1, maxParks)
	}
	c := s.m.Constants[candidate]
	wasParked := s.m.Current[candidate].Parked

	s.m.Current[candidate].Theta = c.ParkTheta
	s.m.Current[candidate].FibreEndX, s.m.Current[candidate].FibreEndY = c.ParkX, c.ParkY
	s.m.Current[candidate].FvpX, s.m.Current[candidate].FvpY = c.ParkX, c.ParkY
	s.m.Current[candidate].FibreLength = 0
	s.m.Current[candidate].Parked = true
	s.g.ClearBelow(candidate)
	s.parkCount[candidate]++
	if !wasParked {
		s.numUnParkedNotMoved--
	}

	if err := s.stream.PF(candidate + 1); err != nil {
		return err
	}
	s.stream.AddMoves(0, 1)

	switch s.m.Target[candidate].MustMove {
	case field.NotRequired:
		s.m.Target[candidate].MustMove = field.Required
		s.pivotsLeft++
		s.numUnParkedNotMoved++
	case field.IfNeeded:
		s.m.Target[candidate].MustMove = field.NotRequired
	}
	return nil
}

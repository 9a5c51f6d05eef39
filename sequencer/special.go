package sequencer

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/fiberfield/deltaplan/command"
	"github.com/fiberfield/deltaplan/crossover"
	"github.com/fiberfield/deltaplan/field"
	"github.com/fiberfield/deltaplan/geometry"
	"github.com/fiberfield/deltaplan/planerr"
)

// distMax is the relative-distance tolerance crossSwap enforces between a
// pivot and the partner it swaps against: 10%, carried from the original
// source's DIST_MAX constant (SPEC_FULL.md §4.5, §10).
const distMax = 0.1

// orderEntry is one sortable record: a pivot number plus its
// distance-from-centre and fibre-extension keys (SPEC_FULL.md §4.5).
type orderEntry struct {
	pivot int
	dist  float64
	ext   float64
}

// Special runs the distance-sorted park-then-place algorithm for INSTR-B
// (SPEC_FULL.md §4.5). All moves pass through a parked state; parking
// proceeds outward-in (or by the spring-out rule), placement proceeds
// inward-out.
type Special struct {
	m      *field.Model
	g      *crossover.Graph
	p      geometry.Provider
	stream *command.Stream

	extSpringOut int64
	pivotsLeft   int
}

// NewSpecial constructs a Special Sequencer. extSpringOut selects the
// parking order mode: <=-1 ascending distance, 0 descending distance, >0
// spring-out (extension > extSpringOut parks first).
func NewSpecial(m *field.Model, g *crossover.Graph, p geometry.Provider, stream *command.Stream, extSpringOut int64) *Special {
	return &Special{m: m, g: g, p: p, stream: stream, extSpringOut: extSpringOut}
}

// Run executes the full Special Sequencer: build park/move orders, cull
// already-satisfied round trips, park outward-in (resolving crossings by
// swap), then place inward-out.
func (s *Special) Run() error {
	parkOrder := s.buildOrder(false)
	// moveOrder is sorted in the SAME direction as parkOrder (farthest
	// first), so the cull loop below can pair up their tails (both the
	// closest-to-centre entry) and placePhase's backward walk then visits
	// moveOrder closest-first, yielding the inward-out placement order
	// (SPEC_FULL.md §4.5, §8 scenario 6).
	moveOrder := s.buildOrder(true)

	s.pivotsLeft = len(parkOrder) + len(moveOrder)

	lastParkIndex := len(parkOrder) - 1
	firstMoveIndex := len(moveOrder) - 1
	for lastParkIndex >= 0 && firstMoveIndex >= 0 &&
		parkOrder[lastParkIndex].pivot == moveOrder[firstMoveIndex].pivot &&
		s.m.Target[parkOrder[lastParkIndex].pivot].MustMove == field.NotRequired {
		lastParkIndex--
		firstMoveIndex--
		s.pivotsLeft -= 2
	}

	if err := s.parkPhase(&parkOrder, &lastParkIndex, &firstMoveIndex); err != nil {
		return err
	}
	if err := s.placePhase(moveOrder, firstMoveIndex); err != nil {
		return err
	}
	return nil
}

// buildOrder computes the sort-ordered pivot list for either the park side
// (useTarget=false, keyed on Current positions) or the move side
// (useTarget=true, keyed on Target positions), per extSpringOut's mode
// (SPEC_FULL.md §4.5).
func (s *Special) buildOrder(useTarget bool) []orderEntry {
	n := s.m.NumPivots()
	var entries []orderEntry
	for i := 0; i < n; i++ {
		if useTarget {
			if s.m.Target[i].Parked {
				continue
			}
			t := s.m.Target[i]
			entries = append(entries, orderEntry{
				pivot: i,
				dist:  field.DistanceFromCentre(t.FibreEndX, t.FibreEndY),
				ext:   field.Extension(t.FibreEndX, t.FibreEndY, s.m.Constants[i].PivotX, s.m.Constants[i].PivotY),
			})
		} else {
			if s.m.Current[i].Parked {
				continue
			}
			c := s.m.Current[i]
			entries = append(entries, orderEntry{
				pivot: i,
				dist:  field.DistanceFromCentre(c.FibreEndX, c.FibreEndY),
				ext:   field.Extension(c.FibreEndX, c.FibreEndY, s.m.Constants[i].PivotX, s.m.Constants[i].PivotY),
			})
		}
	}

	switch {
	case s.extSpringOut <= -1:
		sort.SliceStable(entries, func(a, b int) bool { return entries[a].dist < entries[b].dist })
	case s.extSpringOut == 0:
		sort.SliceStable(entries, func(a, b int) bool { return entries[a].dist > entries[b].dist })
	default:
		threshold := float64(s.extSpringOut)
		sort.SliceStable(entries, func(a, b int) bool {
			aSpring := entries[a].ext > threshold
			bSpring := entries[b].ext > threshold
			if aSpring != bSpring {
				return aSpring // springs-out sort before non-springs-out
			}
			if aSpring {
				if entries[a].ext != entries[b].ext {
					return entries[a].ext > entries[b].ext
				}
			}
			return entries[a].dist > entries[b].dist
		})
	}
	return entries
}

// parkPhase walks parkOrder[0..*lastParkIndex] and parks each entry,
// resolving crossings above it via crossSwap before parking
// (SPEC_FULL.md §4.5).
func (s *Special) parkPhase(parkOrder *[]orderEntry, lastParkIndex, firstMoveIndex *int) error {
	springParks := 0
	threshold := s.extSpringOut

	index := 0
	for index <= *lastParkIndex {
		entry := (*parkOrder)[index]
		pivot := entry.pivot

		for s.g.NAbove(pivot) > 0 {
			crossing := s.g.Above(pivot)[0]
			if err := s.crossSwap(parkOrder, lastParkIndex, firstMoveIndex, index, crossing); err != nil {
				return err
			}
			entry = (*parkOrder)[index]
			pivot = entry.pivot
		}

		if err := s.parkPivot(pivot); err != nil {
			return err
		}
		if threshold > 0 && entry.ext > float64(threshold) {
			springParks++
		}
		index++
	}

	s.stream.AddSpringOutParks(springParks)
	return nil
}

// crossSwap resolves a crossing found above parkOrder[index].pivot by
// locating the crossing pivot elsewhere in parkOrder and rotating it to
// just before index, preserving the relative order of entries in between
// (SPEC_FULL.md §4.5).
func (s *Special) crossSwap(parkOrder *[]orderEntry, lastParkIndex, firstMoveIndex *int, index, crossingPivot int) error {
	order := *parkOrder
	foundIdx := -1
	for idx, e := range order {
		if e.pivot == crossingPivot {
			foundIdx = idx
			break
		}
	}
	if foundIdx == -1 || foundIdx <= index {
		return errors.Wrapf(planerr.ErrPlanInconsistent,
			"special sequencer: crossing pivot %d for pivot %d is not scheduled to park later", crossingPivot+1, order[index].pivot+1)
	}

	distSelf := order[index].dist
	distOther := order[foundIdx].dist
	if distSelf == 0 || (absFloat(distSelf-distOther)/absFloat(distSelf)) > distMax {
		return errors.Wrapf(planerr.ErrPlanInconsistent,
			"special sequencer: crossing pivots %d and %d differ in distance by more than %.0f%%", crossingPivot+1, order[index].pivot+1, distMax*100)
	}

	if foundIdx > *lastParkIndex {
		gap := foundIdx - *lastParkIndex
		*lastParkIndex += gap
		*firstMoveIndex += gap
		s.pivotsLeft += 2 * gap
	}

	moved := order[foundIdx]
	rest := append(append([]orderEntry{}, order[index:foundIdx]...), order[foundIdx+1:]...)
	newOrder := append(append([]orderEntry{}, order[:index]...), moved)
	newOrder = append(newOrder, rest...)
	*parkOrder = newOrder
	return nil
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// parkPivot emits a PF for pivot, updates Current to the park pose, and
// clears its below-list.
func (s *Special) parkPivot(pivot int) error {
	c := s.m.Constants[pivot]
	s.m.Current[pivot].Theta = c.ParkTheta
	s.m.Current[pivot].FibreEndX, s.m.Current[pivot].FibreEndY = c.ParkX, c.ParkY
	s.m.Current[pivot].FvpX, s.m.Current[pivot].FvpY = c.ParkX, c.ParkY
	s.m.Current[pivot].FibreLength = 0
	s.m.Current[pivot].Parked = true
	s.g.ClearBelow(pivot)

	if err := s.stream.PF(pivot + 1); err != nil {
		return err
	}
	s.stream.AddMoves(0, 1)
	return nil
}

// placePhase walks moveOrder[firstMoveIndex..0] (inward-out) and places
// each entry, asserting nothing crosses above it, then rebuilds its
// below-list against the rest of the (now partially placed) field
// (SPEC_FULL.md §4.5).
func (s *Special) placePhase(moveOrder []orderEntry, firstMoveIndex int) error {
	for idx := firstMoveIndex; idx >= 0; idx-- {
		pivot := moveOrder[idx].pivot
		if s.g.NAbove(pivot) > 0 {
			return errors.Wrapf(planerr.ErrPlanInconsistent, "special sequencer: pivot %d still has a crossing above it at place time", pivot+1)
		}

		t := s.m.Target[pivot]
		s.m.Current[pivot].Theta = t.Theta
		s.m.Current[pivot].FibreLength = t.FibreLength
		s.m.Current[pivot].FvpX, s.m.Current[pivot].FvpY = t.FvpX, t.FvpY
		s.m.Current[pivot].FibreEndX, s.m.Current[pivot].FibreEndY = t.FibreEndX, t.FibreEndY
		s.m.Current[pivot].ButtonAnchorX, s.m.Current[pivot].ButtonAnchorY = field.ButtonAnchor(
			t.FibreEndX, t.FibreEndY, t.Theta, s.m.Constants[pivot].GraspX, s.m.Constants[pivot].GraspY)
		s.m.Current[pivot].Parked = false
		s.m.Target[pivot].MustMove = field.NotRequired

		s.g.ClearBelow(pivot)
		n := s.m.NumPivots()
		for j := 0; j < n; j++ {
			if j == pivot || s.m.Current[j].Parked {
				continue
			}
			if s.p.ColFibFib(s.m.Constants[pivot].PivotX, s.m.Constants[pivot].PivotY, s.m.Current[pivot].FvpX, s.m.Current[pivot].FvpY,
				s.m.Constants[j].PivotX, s.m.Constants[j].PivotY, s.m.Current[j].FvpX, s.m.Current[j].FvpY) {
				s.g.AddBelow(pivot, j)
				s.g.AddAbove(j, pivot)
			}
		}

		if err := s.stream.MF(pivot+1, t.FibreEndX, t.FibreEndY, t.Theta); err != nil {
			return err
		}
		s.stream.AddMoves(1, 0)
	}
	return nil
}

// Package crossover implements the per-pivot above/below adjacency lists
// the Sequencer consults and mutates while simulating moves
// (SPEC_FULL.md §4.2).
//
// A Graph is owned exclusively by one plan for the lifetime of that plan
// (SPEC_FULL.md §5); unlike the teacher's core.Graph, it carries no mutex —
// there is never a second observer to race against.
package crossover

import (
	"github.com/pkg/errors"

	"github.com/fiberfield/deltaplan/planerr"
)

// Graph holds, for each pivot i, the list of pivots crossing above it and
// the list of pivots crossing below it. The nAbove/nBelow counts are the
// list lengths themselves (NAbove/NBelow), so they cannot fall out of step
// with the lists (SPEC_FULL.md §8, invariant 1).
type Graph struct {
	above [][]int
	below [][]int
}

// New returns a Graph for a field of n pivots, with every adjacency list
// empty.
func New(n int) *Graph {
	return &Graph{
		above: make([][]int, n),
		below: make([][]int, n),
	}
}

// NumPivots reports the pivot count this Graph was built for.
func (g *Graph) NumPivots() int { return len(g.above) }

// AddAbove prepends j to above[i] and increments nAbove[i]. The caller
// guarantees j is not already present; AddAbove does not check for
// duplicates (SPEC_FULL.md §4.2).
func (g *Graph) AddAbove(i, j int) {
	g.above[i] = append([]int{j}, g.above[i]...)
}

// AddBelow prepends j to below[i] and increments nBelow[i]. Symmetric to
// AddAbove.
func (g *Graph) AddBelow(i, j int) {
	g.below[i] = append([]int{j}, g.below[i]...)
}

// DeleteAbove removes the first occurrence of j from above[i]; a no-op if
// absent.
func (g *Graph) DeleteAbove(i, j int) {
	g.above[i] = deleteFirst(g.above[i], j)
}

// DeleteBelow removes the first occurrence of j from below[i]; a no-op if
// absent.
func (g *Graph) DeleteBelow(i, j int) {
	g.below[i] = deleteFirst(g.below[i], j)
}

func deleteFirst(list []int, j int) []int {
	for idx, v := range list {
		if v == j {
			return append(list[:idx], list[idx+1:]...)
		}
	}
	return list
}

// FindAbove reports whether j ∈ above[i].
func (g *Graph) FindAbove(i, j int) bool { return contains(g.above[i], j) }

// FindBelow reports whether j ∈ below[i].
func (g *Graph) FindBelow(i, j int) bool { return contains(g.below[i], j) }

func contains(list []int, j int) bool {
	for _, v := range list {
		if v == j {
			return true
		}
	}
	return false
}

// NAbove reports len(above[i]).
func (g *Graph) NAbove(i int) int { return len(g.above[i]) }

// NBelow reports len(below[i]).
func (g *Graph) NBelow(i int) int { return len(g.below[i]) }

// Above returns the current above[i] list. Callers must not mutate the
// returned slice.
func (g *Graph) Above(i int) []int { return g.above[i] }

// Below returns the current below[i] list. Callers must not mutate the
// returned slice.
func (g *Graph) Below(i int) []int { return g.below[i] }

// ClearBelow removes every entry from below[i], and for each removed j also
// removes i from above[j] and decrements nAbove[j]. Used when a fibre is
// being moved: by definition it had nothing crossing above it, and its
// below-list is stale after the move (SPEC_FULL.md §4.2).
func (g *Graph) ClearBelow(i int) {
	for _, j := range g.below[i] {
		g.DeleteAbove(j, i)
	}
	g.below[i] = nil
}

// ReplaceBelow sets below[i] to list and returns the list it replaced,
// without touching the above-side bookkeeping for either list. Used by the
// General Sequencer's checkFibresUnder to probe a hypothetical below-list
// and then restore the original (SPEC_FULL.md §4.4).
func (g *Graph) ReplaceBelow(i int, list []int) []int {
	old := g.below[i]
	g.below[i] = list
	return old
}

// CheckConsistent verifies invariant 1 from SPEC_FULL.md §8: the sum of
// above-counts equals the sum of below-counts, and invariant 2: j ∈
// above[i] ⇔ i ∈ below[j]. It returns planerr-wrapped
// ErrCrossoverInconsistent on the first violation found.
func (g *Graph) CheckConsistent() error {
	totalAbove, totalBelow := 0, 0
	for i := range g.above {
		totalAbove += len(g.above[i])
		totalBelow += len(g.below[i])
	}
	if totalAbove != totalBelow {
		return errors.Wrapf(planerr.ErrCrossoverInconsistent, "crossover: sum(nAbove)=%d != sum(nBelow)=%d", totalAbove, totalBelow)
	}
	for i, list := range g.above {
		for _, j := range list {
			if !g.FindBelow(j, i) {
				return errors.Wrapf(planerr.ErrCrossoverInconsistent, "crossover: %d in above[%d] but %d not in below[%d]", j, i, i, j)
			}
		}
	}
	return nil
}

// FromAboveArray constructs a Graph for n pivots from the exchange format:
// a flat sequence of nonnegative integers interpreted as repeated records
// "pivot-number, j1, j2, ..., jk, 0". Each record expands to
// AddAbove(pivot-1, j-1) and the symmetric AddBelow(j-1, pivot-1) for every
// j. A single sentinel zero at the head (len(arr) == 1) denotes "no
// crossings" (SPEC_FULL.md §4.2).
func FromAboveArray(n int, arr []int) (*Graph, error) {
	g := New(n)
	if len(arr) == 1 && arr[0] == 0 {
		return g, nil
	}

	idx := 0
	for idx < len(arr) {
		pivot := arr[idx]
		idx++
		if pivot <= 0 || pivot > n {
			return nil, errors.Errorf("crossover: pivot number %d out of range [1,%d]", pivot, n)
		}
		i := pivot - 1
		for idx < len(arr) && arr[idx] != 0 {
			j := arr[idx] - 1
			if j < 0 || j >= n {
				return nil, errors.Errorf("crossover: crossing pivot number %d out of range [1,%d]", arr[idx], n)
			}
			g.AddAbove(i, j)
			g.AddBelow(j, i)
			idx++
		}
		if idx >= len(arr) {
			return nil, errors.New("crossover: above array record missing terminating zero")
		}
		idx++ // consume the terminating zero
	}
	return g, nil
}

// ToAboveArray serializes g back into the exchange format. Round-tripping
// FromAboveArray then ToAboveArray yields an array identical to the input
// modulo ordering within a single record (SPEC_FULL.md §8): above[i] is
// walked in the order currently stored, which after a fresh FromAboveArray
// build is the reverse of the input record (AddAbove prepends), so a
// record-for-record byte match additionally requires the caller to compare
// as sets, not sequences.
func (g *Graph) ToAboveArray() []int {
	any := false
	for _, list := range g.above {
		if len(list) > 0 {
			any = true
			break
		}
	}
	if !any {
		return []int{0}
	}

	var out []int
	for i, list := range g.above {
		if len(list) == 0 {
			continue
		}
		out = append(out, i+1)
		for _, j := range list {
			out = append(out, j+1)
		}
		out = append(out, 0)
	}
	return out
}

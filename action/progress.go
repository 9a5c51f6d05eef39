package action

// resolution is the minimum change in Progress (percentage points) that
// warrants a new publication, per SPEC_FULL.md §5 / spec.md §5 (DELTA_PROG).
const resolution = 3.0

// scale weights a still-pending pivot against one completed command in the
// DELTA_PROG formula (SPEC_FULL.md §5).
const scale = 0.25

// ProgressSink receives DELTA_PROG updates. Implementations must not block;
// the Driver calls Progress synchronously from Generate.
type ProgressSink interface {
	Progress(pct float64)
}

// ProgressSinkFunc adapts a function to ProgressSink.
type ProgressSinkFunc func(pct float64)

// Progress implements ProgressSink.
func (f ProgressSinkFunc) Progress(pct float64) { f(pct) }

// computeProgress implements DELTA_PROG's formula:
// 100 * (numMoves + numParks) / (numMoves + numParks + pivotsLeft * SCALE).
// With numMoves == numParks == pivotsLeft == 0 (e.g. the trivial identity
// plan), progress is defined as 100.
func computeProgress(numMoves, numParks, pivotsLeft int) float64 {
	done := float64(numMoves + numParks)
	denom := done + float64(pivotsLeft)*scale
	if denom == 0 {
		return 100
	}
	return 100 * done / denom
}

// progressTracker publishes to sink only when the value has moved by more
// than resolution percentage points since the last publication, mirroring
// the RESOLUTION-gated update rule in SPEC_FULL.md §5.
type progressTracker struct {
	sink     ProgressSink
	lastSent float64
	sent     bool
}

func newProgressTracker(sink ProgressSink) *progressTracker {
	return &progressTracker{sink: sink}
}

func (t *progressTracker) report(numMoves, numParks, pivotsLeft int) {
	if t.sink == nil {
		return
	}
	pct := computeProgress(numMoves, numParks, pivotsLeft)
	if !t.sent || absFloat(pct-t.lastSent) > resolution {
		t.sink.Progress(pct)
		t.lastSent = pct
		t.sent = true
	}
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

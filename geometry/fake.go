package geometry

// Fake is a minimal, permissive Provider: no predicate ever reports a
// collision or obstruction, and OnField accepts every position within
// FieldRadius microns of the origin. It exists for
// tests and for the CLI's demo path — the real geometric predicates are an
// external collaborator this module never implements (spec.md §1).
type Fake struct {
	Instr     Instrument
	InstrName string
	Telescope string
	Pivots    int
	Fiducials int

	FieldRadius        int64
	ParkMayCollideHint bool
	FibAngVariableHint bool
	SpringOutHintV     int64

	clear Clearance
}

// NewFake returns a Fake Provider sized for n pivots and f fiducials.
func NewFake(instr Instrument, n, f int) *Fake {
	return &Fake{
		Instr:              instr,
		InstrName:          instr.String(),
		Telescope:          "fake-telescope",
		Pivots:             n,
		Fiducials:          f,
		FieldRadius:        200000,
		ParkMayCollideHint: true,
		FibAngVariableHint: true,
	}
}

func (f *Fake) Instrument() Instrument { return f.Instr }
func (f *Fake) InstrumentName() string { return f.InstrName }
func (f *Fake) TelescopeName() string  { return f.Telescope }
func (f *Fake) NumPivots() int         { return f.Pivots }
func (f *Fake) NumFiducials() int      { return f.Fiducials }

// OnField reports whether (x, y) lies within a simple circular field of
// FieldRadius microns centred on the origin.
func (f *Fake) OnField(x, y int64) bool {
	dx, dy := float64(x), float64(y)
	return dx*dx+dy*dy <= float64(f.FieldRadius)*float64(f.FieldRadius)
}

func (f *Fake) InvalidPosition(plate int, fibreType FibreType, x, y int64, theta float64) bool {
	return false
}

func (f *Fake) ColButBut(x1, y1 int64, theta1 float64, x2, y2 int64, theta2 float64) bool {
	return false
}

func (f *Fake) ColButFib(bx, by int64, btheta float64, fvpX, fvpY, pivX, pivY int64) bool {
	return false
}

func (f *Fake) ColFibFib(pivX1, pivY1, fvpX1, fvpY1, pivX2, pivY2, fvpX2, fvpY2 int64) bool {
	return false
}

func (f *Fake) ColFiducial(fx, fy, ftheta float64, pivX, pivY, fvpX, fvpY, fidX, fidY int64) bool {
	return false
}

func (f *Fake) SetButClear(clearance int64) { f.clear.ButClear = clearance }
func (f *Fake) SetFibClear(clearance int64) { f.clear.FibClear = clearance }

func (f *Fake) ParkMayCollide() bool { return f.ParkMayCollideHint }
func (f *Fake) FibAngVariable() bool { return f.FibAngVariableHint }
func (f *Fake) SpringOutHint() int64 { return f.SpringOutHintV }

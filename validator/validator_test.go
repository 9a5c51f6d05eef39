package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fiberfield/deltaplan/field"
	"github.com/fiberfield/deltaplan/geometry"
	"github.com/fiberfield/deltaplan/planerr"
	"github.com/fiberfield/deltaplan/validator"
)

// mockProvider is a hand-configurable geometry.Provider: every predicate
// defaults to "no collision" / "on field", and tests override only the
// hooks they need.
type mockProvider struct {
	instr          geometry.Instrument
	pivots, fids   int
	onField        func(x, y int64) bool
	invalidPos     func(plate int, ft geometry.FibreType, x, y int64, theta float64) bool
	colButBut      func(x1, y1 int64, t1 float64, x2, y2 int64, t2 float64) bool
	colButFib      func(bx, by int64, bth float64, fvpX, fvpY, pivX, pivY int64) bool
	colFibFib      func(pivX1, pivY1, fvpX1, fvpY1, pivX2, pivY2, fvpX2, fvpY2 int64) bool
	colFiducial    func(fx, fy, ftheta float64, pivX, pivY, fvpX, fvpY, fidX, fidY int64) bool
	parkMayCollide bool
	fibAngVariable bool
}

func (m *mockProvider) Instrument() geometry.Instrument { return m.instr }
func (m *mockProvider) InstrumentName() string          { return "mock" }
func (m *mockProvider) TelescopeName() string            { return "mock-telescope" }
func (m *mockProvider) NumPivots() int                   { return m.pivots }
func (m *mockProvider) NumFiducials() int                { return m.fids }

func (m *mockProvider) OnField(x, y int64) bool {
	if m.onField != nil {
		return m.onField(x, y)
	}
	return true
}

func (m *mockProvider) InvalidPosition(plate int, ft geometry.FibreType, x, y int64, theta float64) bool {
	if m.invalidPos != nil {
		return m.invalidPos(plate, ft, x, y, theta)
	}
	return false
}

func (m *mockProvider) ColButBut(x1, y1 int64, t1 float64, x2, y2 int64, t2 float64) bool {
	if m.colButBut != nil {
		return m.colButBut(x1, y1, t1, x2, y2, t2)
	}
	return false
}

func (m *mockProvider) ColButFib(bx, by int64, bth float64, fvpX, fvpY, pivX, pivY int64) bool {
	if m.colButFib != nil {
		return m.colButFib(bx, by, bth, fvpX, fvpY, pivX, pivY)
	}
	return false
}

func (m *mockProvider) ColFibFib(pivX1, pivY1, fvpX1, fvpY1, pivX2, pivY2, fvpX2, fvpY2 int64) bool {
	if m.colFibFib != nil {
		return m.colFibFib(pivX1, pivY1, fvpX1, fvpY1, pivX2, pivY2, fvpX2, fvpY2)
	}
	return false
}

func (m *mockProvider) ColFiducial(fx, fy, ftheta float64, pivX, pivY, fvpX, fvpY, fidX, fidY int64) bool {
	if m.colFiducial != nil {
		return m.colFiducial(fx, fy, ftheta, pivX, pivY, fvpX, fvpY, fidX, fidY)
	}
	return false
}

func (m *mockProvider) SetButClear(int64)         {}
func (m *mockProvider) SetFibClear(int64)         {}
func (m *mockProvider) ParkMayCollide() bool      { return m.parkMayCollide }
func (m *mockProvider) FibAngVariable() bool      { return m.fibAngVariable }
func (m *mockProvider) SpringOutHint() int64      { return 0 }

func simpleModel(n int) *field.Model {
	m := &field.Model{
		Constants: make([]field.Constants, n),
		Current:   make([]field.Current, n),
		Target:    make([]field.Target, n),
		Fiducials: []field.Fiducial{{X: 0, Y: 0, InUse: true}, {X: 1, Y: 1, InUse: true}, {X: 2, Y: 2, InUse: true}},
	}
	for i := range m.Constants {
		m.Constants[i] = field.Constants{PivotX: int64(i * 1000), PivotY: 0, MaxExt: 10000}
		m.Target[i] = field.Target{MustMove: field.NotRequired, FibreEndX: int64(i * 1000), FibreEndY: 500}
	}
	return m
}

func collectWarnings() (validator.Sink, *[]string) {
	var lines []string
	sink := validator.SinkFunc(func(format string, args ...interface{}) {
		lines = append(lines, format)
	})
	return sink, &lines
}

func TestValidateCleanFieldPasses(t *testing.T) {
	m := simpleModel(3)
	p := &mockProvider{pivots: 3, fids: 3}
	sink, _ := collectWarnings()

	count, err := validator.Validate(m, p, validator.Options{}, sink)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestValidateButtonButtonCollision(t *testing.T) {
	m := simpleModel(2)
	m.Target[0].MustMove = field.Required
	m.Target[1].MustMove = field.Required

	p := &mockProvider{
		pivots: 2, fids: 3,
		colButBut: func(x1, y1 int64, t1 float64, x2, y2 int64, t2 float64) bool { return true },
	}
	sink, lines := collectWarnings()

	count, err := validator.Validate(m, p, validator.Options{}, sink)
	require.Error(t, err)
	assert.True(t, count > 0)
	assert.ErrorIs(t, err, planerr.ErrInvalidField)
	assert.NotEmpty(t, *lines)
}

func TestValidateExtensionExceeded(t *testing.T) {
	m := simpleModel(1)
	m.Target[0].MustMove = field.Required
	m.Target[0].FibreLength = 20000
	m.Constants[0].MaxExt = 10000

	p := &mockProvider{pivots: 1, fids: 3}
	sink, lines := collectWarnings()

	count, err := validator.Validate(m, p, validator.Options{}, sink)
	require.Error(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, (*lines)[0], "Fibre extension")
}

func TestValidateOffFieldPosition(t *testing.T) {
	m := simpleModel(1)
	m.Target[0].MustMove = field.Required

	p := &mockProvider{
		pivots: 1, fids: 3,
		onField: func(x, y int64) bool { return false },
	}
	sink, _ := collectWarnings()

	count, err := validator.Validate(m, p, validator.Options{}, sink)
	require.Error(t, err)
	assert.True(t, count >= 1)
}

func TestValidateFewerThanThreeFiducialsFails(t *testing.T) {
	m := simpleModel(1)
	m.Fiducials = []field.Fiducial{{X: 0, Y: 0, InUse: true}}

	p := &mockProvider{pivots: 1, fids: 1}
	sink, lines := collectWarnings()

	count, err := validator.Validate(m, p, validator.Options{}, sink)
	require.Error(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, (*lines)[len(*lines)-1], "three unobstructed fiducials")
}

func TestValidateSkipsNotRequiredPivotsUnlessCheckFullField(t *testing.T) {
	m := simpleModel(2)
	// pivot 0 not required to move but would collide if checked.
	p := &mockProvider{
		pivots: 2, fids: 3,
		colButBut: func(x1, y1 int64, t1 float64, x2, y2 int64, t2 float64) bool { return true },
	}
	sink, _ := collectWarnings()

	count, err := validator.Validate(m, p, validator.Options{}, sink)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = validator.Validate(m, p, validator.Options{CheckFullField: true}, sink)
	require.Error(t, err)
	assert.True(t, count > 0)
}

// Package command implements the append-only Command Stream the Sequencer
// writes to, and the Command File the Action Driver publishes on success
// (SPEC_FULL.md §4.7, §6).
package command

import (
	"crypto/sha256"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"

	"github.com/fiberfield/deltaplan/planerr"
)

// Opcode identifies a Command Stream record's kind.
type Opcode string

const (
	// MF moves a pivot to (xf, yf, theta).
	MF Opcode = "MF"
	// PF parks a pivot.
	PF Opcode = "PF"
	// Silent is a comment not echoed to the operator.
	Silent Opcode = "!"
	// Echoed is a comment echoed to the operator.
	Echoed Opcode = "*"
)

// maxLineLen bounds a single formatted command line, mirroring the
// original's fixed sprintf buffer (SPRINTF_OVERFLOW in SPEC_FULL.md §7).
const maxLineLen = 256

// Command is a tagged variant over the four opcodes. Only the fields
// relevant to Op are meaningful; Stream.addCmd formats on Op, never
// inspecting fields the opcode doesn't use (SPEC_FULL.md §9, "variadic
// command emission").
type Command struct {
	Op      Opcode
	Pivot   int // 1-based, for MF/PF
	X, Y    int64
	Theta   float64
	Comment string // for Silent/Echoed
}

// Record is one dense, 1-based line in the Command Stream.
type Record struct {
	Line    int
	Command Command
}

// text renders a Record in the textual form the Command File embeds
// ("MF p xf yf theta", "PF p", "! text", "* text" — SPEC_FULL.md §6).
func (r Record) text() string {
	c := r.Command
	switch c.Op {
	case MF:
		return fmt.Sprintf("MF %d %d %d %.6f", c.Pivot, c.X, c.Y, c.Theta)
	case PF:
		return fmt.Sprintf("PF %d", c.Pivot)
	case Silent:
		return fmt.Sprintf("! %s", c.Comment)
	case Echoed:
		return fmt.Sprintf("* %s", c.Comment)
	default:
		return ""
	}
}

// Stream is the append-only log the Sequencer writes to.
type Stream struct {
	records           []Record
	numMoves          int
	numParks          int
	numSpringOutParks int
}

// NewStream returns an empty Command Stream.
func NewStream() *Stream { return &Stream{} }

// addCmd appends one record, dispatching on c.Op. Unknown opcodes return
// planerr.ErrNoSuchCommand; an over-length formatted line returns
// planerr.ErrLineOverflow.
func (s *Stream) addCmd(c Command) error {
	switch c.Op {
	case MF, PF, Silent, Echoed:
	default:
		return errors.Wrapf(planerr.ErrNoSuchCommand, "opcode %q", c.Op)
	}

	r := Record{Line: len(s.records) + 1, Command: c}
	if len(r.text()) > maxLineLen {
		return errors.Wrapf(planerr.ErrLineOverflow, "line %d exceeds %d characters", r.Line, maxLineLen)
	}
	s.records = append(s.records, r)
	return nil
}

// MF appends a move record for pivot (1-based) to (x, y, theta).
func (s *Stream) MF(pivot int, x, y int64, theta float64) error {
	return s.addCmd(Command{Op: MF, Pivot: pivot, X: x, Y: y, Theta: theta})
}

// PF appends a park record for pivot (1-based).
func (s *Stream) PF(pivot int) error {
	return s.addCmd(Command{Op: PF, Pivot: pivot})
}

// Commentf appends a comment record, silent unless echo is true.
func (s *Stream) Commentf(echo bool, format string, args ...interface{}) error {
	op := Silent
	if echo {
		op = Echoed
	}
	return s.addCmd(Command{Op: op, Comment: fmt.Sprintf(format, args...)})
}

// AddMoves bumps the move/park counters. Sequencers call this once per
// successful MF/PF rather than incrementing the counters directly, keeping
// the bookkeeping centralized (SPEC_FULL.md §4.7).
func (s *Stream) AddMoves(numMoves, numParks int) {
	s.numMoves += numMoves
	s.numParks += numParks
}

// AddSpringOutParks bumps the spring-out park counter (Special Sequencer
// only).
func (s *Stream) AddSpringOutParks(n int) {
	s.numSpringOutParks += n
}

// NumMoves, NumParks, NumSpringOutParks report the running totals.
func (s *Stream) NumMoves() int          { return s.numMoves }
func (s *Stream) NumParks() int          { return s.numParks }
func (s *Stream) NumSpringOutParks() int { return s.numSpringOutParks }

// Records returns the accumulated records in emission order. Callers must
// not mutate the returned slice.
func (s *Stream) Records() []Record { return s.records }

// Lines renders every record's textual form, in emission order.
func (s *Stream) Lines() []string {
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.text()
	}
	return out
}

// OriginalField is the original current field's positions and above array,
// carried into the Command File verbatim for executor-side diffing
// (SPEC_FULL.md §10, grounded on tdFdelCmdFile.c).
type OriginalField struct {
	Xf, Yf, Theta []float64
	Above         []int
}

// File is the Command File the Action Driver publishes on success
// (SPEC_FULL.md §6).
type File struct {
	Original          OriginalField
	NumMoves          int
	NumParks          int
	NumSpringOutParks int
	Lines             []string
}

// NewFile captures a Stream's contents alongside the original field into a
// File ready for serialization.
func NewFile(s *Stream, orig OriginalField) File {
	return File{
		Original:          orig,
		NumMoves:          s.NumMoves(),
		NumParks:          s.NumParks(),
		NumSpringOutParks: s.NumSpringOutParks(),
		Lines:             s.Lines(),
	}
}

// canonicalFile is the CBOR-stable shape Digest hashes: field order is
// fixed by struct declaration order and cbor.CanonicalEncOptions further
// canonicalizes map-shaped fields, so two Files built from identical
// command sequences always hash identically (SPEC_FULL.md §6, grounded on
// opal-lang-opal's canonical.go + plan.go Digest pipeline).
type canonicalFile struct {
	Xf, Yf, Theta     []float64
	Above             []int
	NumMoves          int
	NumParks          int
	NumSpringOutParks int
	Lines             []string
}

// Digest returns "sha256:" followed by the hex-encoded SHA-256 of f's
// canonical CBOR encoding,
// giving a downstream executor a stable content hash for idempotent
// re-delivery (SPEC_FULL.md §6).
func (f File) Digest() (string, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return "", errors.Wrap(err, "command: building canonical CBOR encoder")
	}

	cf := canonicalFile{
		Xf:                f.Original.Xf,
		Yf:                f.Original.Yf,
		Theta:             f.Original.Theta,
		Above:             f.Original.Above,
		NumMoves:          f.NumMoves,
		NumParks:          f.NumParks,
		NumSpringOutParks: f.NumSpringOutParks,
		Lines:             f.Lines,
	}

	data, err := encMode.Marshal(cf)
	if err != nil {
		return "", errors.Wrap(err, "command: canonical CBOR encoding")
	}

	sum := sha256.Sum256(data)
	return fmt.Sprintf("sha256:%x", sum), nil
}

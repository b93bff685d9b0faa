package pss

import (
	"fmt"
)

// Error reasons are enumerated here to be used in the Err struct,
// the error type shared across all Picture Script APIs.
const (
	ErrUnknown = 0
	ErrSyntax  = 1

	ErrTypeMismatch    = 2
	ErrOutOfRange      = 3
	ErrInvalidNumeric  = 4
	ErrAlreadyDefined  = 5
	ErrTooFewParams    = 6
	ErrTooManyParams   = 7
	ErrRecursiveCall   = 8
	ErrInvalidObject   = 9
	ErrShapeExpected   = 10
	ErrImageHasNoSize  = 11
	ErrTranslucentInfo = 12

	ErrInvalidWorld        = 13
	ErrWorldAlreadyUsed    = 14
	ErrWorldAlreadyDefined = 15
	ErrTransfoParameter    = 16
	ErrInvalidPolygon      = 17
	ErrInvalidCoords       = 18
	ErrAlphaPalette        = 19

	ErrInvalidURL         = 20
	ErrFileNotFound       = 21
	ErrPageNotFound       = 22
	ErrIncludeNotFound    = 23
	ErrRecursiveInclusion = 24
	ErrSourceUnavailable  = 25
	ErrNoImage            = 26

	ErrSystem = 40
	ErrAssert = 100
)

// position is a location in a source file. Columns count bytes from 1.
type position struct {
	url  string
	line int
	col  int
}

func (p position) String() string {
	return fmt.Sprintf("%s:%d:%d", p.url, p.line, p.col)
}

func (p position) valid() bool {
	return p.line > 0
}

// Err constants represent possible errors that Picture Script sessions
// may return.
type Err struct {
	reason  int
	message string
	pos     position
}

func (e Err) Error() string {
	if !e.pos.valid() {
		return e.message
	}
	return fmt.Sprintf("%s [%s]", e.message, e.pos)
}

func (e Err) Reason() int {
	return e.reason
}

// Position returns the source URL, line and column the error was raised at.
func (e Err) Position() (url string, line, col int) {
	return e.pos.url, e.pos.line, e.pos.col
}

func (e Err) at(pos position) Err {
	e.pos = pos
	return e
}

func errAt(pos position, reason int, format string, args ...interface{}) Err {
	return Err{reason, fmt.Sprintf(format, args...), pos}
}

func typeMismatch(pos position, expected string) Err {
	return Err{ErrTypeMismatch, "type mismatch, expected " + expected, pos}
}

func outOfRange(pos position, min, max float64) Err {
	return Err{
		ErrOutOfRange,
		fmt.Sprintf("value out of range [%s, %s]", nToS(min), nToS(max)),
		pos,
	}
}

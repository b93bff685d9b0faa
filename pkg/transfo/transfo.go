// Package transfo implements the two dimensional transformation models used
// to relate Picture Script coordinate worlds to one another.
//
// Every model maps a "direct" point to its image and can map an image back
// with InverseTransform. Models are mutable only through Reverse; every
// other operation returns a fresh model.
package transfo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies the family of a transformation model. Kinds are ordered
// by generality: composing two matrix models yields the more general kind.
type Kind int

const (
	Identity Kind = iota
	Translation
	Similitude
	Stretch
	Affine
	Projective
	LocalProjectiveGrid
	Composed
)

func (k Kind) String() string {
	switch k {
	case Identity:
		return "identity"
	case Translation:
		return "translation"
	case Similitude:
		return "similitude"
	case Stretch:
		return "stretch"
	case Affine:
		return "affine"
	case Projective:
		return "projective"
	case LocalProjectiveGrid:
		return "local projective grid"
	case Composed:
		return "composed"
	default:
		return "unknown"
	}
}

// ErrDegenerate is returned by constructors whose parameters would produce
// a mapping that cannot be inverted.
var ErrDegenerate = errors.New("degenerate transformation parameters")

// Model is a two dimensional transformation.
type Model interface {
	Kind() Kind
	String() string

	// Transform maps a point through the direct relation.
	Transform(x, y float64) (float64, float64)
	// InverseTransform maps a point back through the inverse relation.
	InverseTransform(x, y float64) (float64, float64)

	Clone() Model
	// Reverse swaps the direct and inverse relations in place.
	Reverse()
	// ComposeInverseWithDirectOf returns the model whose direct relation is
	// the receiver's direct relation followed by other's.
	ComposeInverseWithDirectOf(other Model) Model
}

// IsAffineCompatible reports whether m can stand where an affine model is
// required: every matrix model whose last row is (0, 0, 1).
func IsAffineCompatible(m Model) bool {
	mm, ok := m.(*MatrixModel)
	if !ok {
		return false
	}
	return mm.kind <= Affine
}

// Utility func to get a stable, compact representation of a coefficient
func fToS(f float64) string {
	if f == 0 {
		// avoid printing -0
		return "0"
	}
	if i := int64(f); f == float64(i) {
		return strconv.FormatInt(i, 10)
	}
	return strconv.FormatFloat(f, 'g', 10, 64)
}

func joinFloats(fs ...float64) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = fToS(f)
	}
	return strings.Join(parts, ", ")
}

// round trims representation noise introduced by trigonometry and matrix
// products so that equivalent models print identically.
func round(f float64) float64 {
	const scale = 1e9
	r := math.Round(f*scale) / scale
	if r == 0 {
		return 0
	}
	return r
}

func kindMax(a, b Kind) Kind {
	if a > b {
		return a
	}
	return b
}

func describe(kind Kind, body string) string {
	return fmt.Sprintf("%s(%s)", kind, body)
}

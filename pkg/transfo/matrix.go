package transfo

import (
	"math"
)

type matrix [3][3]float64

var identityMatrix = matrix{
	{1, 0, 0},
	{0, 1, 0},
	{0, 0, 1},
}

func (m matrix) mul(o matrix) matrix {
	var r matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				r[i][j] += m[i][k] * o[k][j]
			}
		}
	}
	return r
}

func (m matrix) apply(x, y float64) (float64, float64) {
	tx := m[0][0]*x + m[0][1]*y + m[0][2]
	ty := m[1][0]*x + m[1][1]*y + m[1][2]
	w := m[2][0]*x + m[2][1]*y + m[2][2]
	if w == 0 {
		return math.Inf(1), math.Inf(1)
	}
	return tx / w, ty / w
}

func (m matrix) det() float64 {
	return m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
}

func (m matrix) inverse() (matrix, bool) {
	d := m.det()
	if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return matrix{}, false
	}

	var r matrix
	r[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) / d
	r[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / d
	r[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / d
	r[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) / d
	r[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / d
	r[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / d
	r[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) / d
	r[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / d
	r[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / d
	return r, true
}

// normalized scales a homogeneous matrix so that its bottom-right entry is 1.
func (m matrix) normalized() matrix {
	if m[2][2] == 0 || m[2][2] == 1 {
		return m
	}
	s := m[2][2]
	for i := range m {
		for j := range m[i] {
			m[i][j] /= s
		}
	}
	return m
}

// MatrixModel is any model expressible as a 3x3 homogeneous matrix:
// identity, translation, similitude, stretch, affine and projective.
type MatrixModel struct {
	kind    Kind
	direct  matrix
	inverse matrix
}

func newMatrixModel(kind Kind, m matrix) (*MatrixModel, error) {
	m = m.normalized()
	inv, ok := m.inverse()
	if !ok {
		return nil, ErrDegenerate
	}
	return &MatrixModel{
		kind:    kind,
		direct:  m,
		inverse: inv.normalized(),
	}, nil
}

// NewIdentity returns the model that maps every point onto itself.
func NewIdentity() *MatrixModel {
	return &MatrixModel{
		kind:    Identity,
		direct:  identityMatrix,
		inverse: identityMatrix,
	}
}

// NewTranslation returns a displacement by (dx, dy).
func NewTranslation(dx, dy float64) *MatrixModel {
	m := identityMatrix
	m[0][2], m[1][2] = dx, dy
	inv := identityMatrix
	inv[0][2], inv[1][2] = -dx, -dy
	return &MatrixModel{kind: Translation, direct: m, inverse: inv}
}

// NewRotation returns a counter-clockwise rotation of angleDeg degrees
// around (cx, cy).
func NewRotation(angleDeg, cx, cy float64) *MatrixModel {
	rad := angleDeg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)

	m := matrix{
		{cos, -sin, cx - cos*cx + sin*cy},
		{sin, cos, cy - sin*cx - cos*cy},
		{0, 0, 1},
	}
	inv, _ := m.inverse()
	return &MatrixModel{kind: Similitude, direct: m, inverse: inv}
}

// NewScaling returns an anisotropic scaling of (sx, sy) around (cx, cy).
func NewScaling(sx, sy, cx, cy float64) (*MatrixModel, error) {
	if sx == 0 || sy == 0 {
		return nil, ErrDegenerate
	}

	m := matrix{
		{sx, 0, cx - sx*cx},
		{0, sy, cy - sy*cy},
		{0, 0, 1},
	}
	return newMatrixModel(Stretch, m)
}

// NewAffine returns the affine model
//	x' = a0 + a1*x + a2*y
//	y' = b0 + b1*x + b2*y
// Both linear terms of a row, or of a column, may not be zero together.
func NewAffine(a1, a2, a0, b1, b2, b0 float64) (*MatrixModel, error) {
	if (a1 == 0 && a2 == 0) ||
		(b1 == 0 && b2 == 0) ||
		(a1 == 0 && b1 == 0) ||
		(a2 == 0 && b2 == 0) {
		return nil, ErrDegenerate
	}

	m := matrix{
		{a1, a2, a0},
		{b1, b2, b0},
		{0, 0, 1},
	}
	return newMatrixModel(Affine, m)
}

// NewProjective returns the projective model of the given row-major
// homogeneous matrix.
func NewProjective(coefs [9]float64) (*MatrixModel, error) {
	m := matrix{
		{coefs[0], coefs[1], coefs[2]},
		{coefs[3], coefs[4], coefs[5]},
		{coefs[6], coefs[7], coefs[8]},
	}
	if m[2][2] == 0 ||
		(m[0][0] == 0 && m[0][1] == 0) ||
		(m[0][0] == 0 && m[1][0] == 0) ||
		(m[0][1] == 0 && m[1][1] == 0) ||
		(m[1][0] == 0 && m[1][1] == 0) {
		return nil, ErrDegenerate
	}
	return newMatrixModel(Projective, m)
}

func (mm *MatrixModel) Kind() Kind {
	return mm.kind
}

func (mm *MatrixModel) String() string {
	m := mm.direct
	switch mm.kind {
	case Identity:
		return describe(mm.kind, "")
	case Translation:
		return describe(mm.kind, joinFloats(round(m[0][2]), round(m[1][2])))
	case Projective:
		return describe(mm.kind, joinFloats(
			round(m[0][0]), round(m[0][1]), round(m[0][2]),
			round(m[1][0]), round(m[1][1]), round(m[1][2]),
			round(m[2][0]), round(m[2][1]), round(m[2][2]),
		))
	default:
		return describe(mm.kind, joinFloats(
			round(m[0][0]), round(m[0][1]), round(m[0][2]),
			round(m[1][0]), round(m[1][1]), round(m[1][2]),
		))
	}
}

func (mm *MatrixModel) Transform(x, y float64) (float64, float64) {
	return mm.direct.apply(x, y)
}

func (mm *MatrixModel) InverseTransform(x, y float64) (float64, float64) {
	return mm.inverse.apply(x, y)
}

func (mm *MatrixModel) Clone() Model {
	clone := *mm
	return &clone
}

func (mm *MatrixModel) Reverse() {
	mm.direct, mm.inverse = mm.inverse, mm.direct
}

func (mm *MatrixModel) ComposeInverseWithDirectOf(other Model) Model {
	if om, ok := other.(*MatrixModel); ok {
		kind := kindMax(mm.kind, om.kind)
		if mm.kind == Identity {
			return om.Clone()
		} else if om.kind == Identity {
			return mm.Clone()
		}

		// a rotation followed by a scaling is no longer a similitude
		if (mm.kind == Similitude && om.kind == Stretch) ||
			(mm.kind == Stretch && om.kind == Similitude) {
			kind = Affine
		}

		return &MatrixModel{
			kind:    kind,
			direct:  om.direct.mul(mm.direct).normalized(),
			inverse: mm.inverse.mul(om.inverse).normalized(),
		}
	}

	return newComposed(mm, other)
}

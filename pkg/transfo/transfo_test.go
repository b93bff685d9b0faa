package transfo

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func assertPoint(t *testing.T, label string, gx, gy, wx, wy float64) {
	t.Helper()
	if !near(gx, wx) || !near(gy, wy) {
		t.Fatalf("%s: got (%v, %v), want (%v, %v)", label, gx, gy, wx, wy)
	}
}

func mustModel(t *testing.T, m Model, err error) Model {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return m
}

func TestBasicModels(t *testing.T) {
	scaling, err := NewScaling(2, 3, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	affine, err := NewAffine(1, 0, 5, 0, 2, -1)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		model  Model
		x, y   float64
		wx, wy float64
	}{
		{"identity", NewIdentity(), 3, 4, 3, 4},
		{"translation", NewTranslation(10, -2), 3, 4, 13, 2},
		{"rotation", NewRotation(90, 0, 0), 1, 0, 0, 1},
		{"rotation about centre", NewRotation(180, 1, 1), 2, 1, 0, 1},
		{"scaling", scaling, 2, 2, 3, 4},
		{"affine", affine, 1, 1, 6, 1},
	}

	for _, c := range cases {
		x, y := c.model.Transform(c.x, c.y)
		assertPoint(t, c.name, x, y, c.wx, c.wy)

		bx, by := c.model.InverseTransform(x, y)
		assertPoint(t, c.name+" inverse", bx, by, c.x, c.y)
	}
}

func TestDegenerateParameters(t *testing.T) {
	if _, err := NewScaling(0, 1, 0, 0); err != ErrDegenerate {
		t.Fatalf("scaling with sx=0: got %v", err)
	}
	if _, err := NewScaling(1, 0, 0, 0); err != ErrDegenerate {
		t.Fatalf("scaling with sy=0: got %v", err)
	}
	if _, err := NewAffine(0, 0, 0, 1, 1, 0); err != ErrDegenerate {
		t.Fatalf("affine with null first row: got %v", err)
	}
	if _, err := NewAffine(1, 0, 0, 1, 0, 0); err != ErrDegenerate {
		t.Fatalf("affine with null second column: got %v", err)
	}
	if _, err := NewAffine(1, 1, 0, 1, 1, 0); err != ErrDegenerate {
		t.Fatalf("singular affine: got %v", err)
	}
	if _, err := NewProjective([9]float64{1, 0, 0, 0, 1, 0, 0, 0, 0}); err != ErrDegenerate {
		t.Fatalf("projective with m22=0: got %v", err)
	}
	if _, err := NewProjective([9]float64{0, 0, 1, 0, 1, 0, 0, 0, 1}); err != ErrDegenerate {
		t.Fatalf("projective with collapsed row: got %v", err)
	}
}

func TestComposeAppliesReceiverFirst(t *testing.T) {
	translate := NewTranslation(1, 0)
	rotate := NewRotation(90, 0, 0)

	m := translate.ComposeInverseWithDirectOf(rotate)
	x, y := m.Transform(1, 0)
	// (1,0) -> (2,0) -> (0,2)
	assertPoint(t, "translate then rotate", x, y, 0, 2)

	bx, by := m.InverseTransform(x, y)
	assertPoint(t, "inverse", bx, by, 1, 0)

	if m.Kind() != Similitude {
		t.Fatalf("expected similitude kind, got %s", m.Kind())
	}
}

func TestComposeKinds(t *testing.T) {
	scaleM, scaleErr := NewScaling(2, 2, 0, 0)
	scale := mustModel(t, scaleM, scaleErr)
	rot := NewRotation(30, 0, 0)
	if k := scale.ComposeInverseWithDirectOf(rot).Kind(); k != Affine {
		t.Fatalf("stretch then rotation: got %s", k)
	}
	if k := NewIdentity().ComposeInverseWithDirectOf(NewTranslation(1, 1)).Kind(); k != Translation {
		t.Fatalf("identity then translation: got %s", k)
	}
}

func TestReverse(t *testing.T) {
	m := NewTranslation(5, 5)
	m.Reverse()
	x, y := m.Transform(5, 5)
	assertPoint(t, "reversed translation", x, y, 0, 0)

	clone := m.Clone()
	clone.Reverse()
	x, y = m.Transform(5, 5)
	assertPoint(t, "clone does not alias", x, y, 0, 0)
}

func TestComposeFold(t *testing.T) {
	m := Compose(NewTranslation(1, 0), NewTranslation(0, 1), NewTranslation(1, 1))
	x, y := m.Transform(0, 0)
	assertPoint(t, "folded translations", x, y, 2, 2)
	if m.Kind() != Translation {
		t.Fatalf("expected translation, got %s", m.Kind())
	}
}

func TestLocalProjectiveGrid(t *testing.T) {
	global := NewIdentity()
	tiles := []Model{
		NewTranslation(1, 0),
		NewTranslation(2, 0),
	}

	if _, err := NewLocalProjectiveGrid(Extent{0, 0, 10, 10}, 0, 1, global, tiles); err != ErrDegenerate {
		t.Fatalf("zero tile count: got %v", err)
	}
	if _, err := NewLocalProjectiveGrid(Extent{0, 0, 10, 10}, 2, 2, global, tiles); err != ErrDegenerate {
		t.Fatalf("tile list length mismatch: got %v", err)
	}
	projM, projErr := NewProjective([9]float64{1, 0, 0, 0, 1, 0, 0.001, 0, 1})
	proj := mustModel(t, projM, projErr)
	if _, err := NewLocalProjectiveGrid(Extent{0, 0, 10, 10}, 2, 1, proj, tiles); err != ErrDegenerate {
		t.Fatalf("projective global model: got %v", err)
	}

	grid, err := NewLocalProjectiveGrid(Extent{0, 0, 10, 10}, 2, 1, global, tiles)
	if err != nil {
		t.Fatal(err)
	}

	x, y := grid.Transform(2, 5)
	assertPoint(t, "left tile", x, y, 3, 5)
	x, y = grid.Transform(7, 5)
	assertPoint(t, "right tile", x, y, 9, 5)
	x, y = grid.Transform(20, 5)
	assertPoint(t, "outside uses global", x, y, 20, 5)

	reversed := grid.Clone()
	reversed.Reverse()
	x, y = reversed.Transform(3, 5)
	assertPoint(t, "reversed grid", x, y, 2, 5)

	composed := grid.ComposeInverseWithDirectOf(NewTranslation(0, 1))
	if composed.Kind() != Composed {
		t.Fatalf("expected composed model, got %s", composed.Kind())
	}
	x, y = composed.Transform(2, 5)
	assertPoint(t, "grid then translation", x, y, 3, 6)
	bx, by := composed.InverseTransform(x, y)
	assertPoint(t, "composed inverse", bx, by, 2, 5)
}

func TestStringIsStable(t *testing.T) {
	a := NewRotation(90, 0, 0).ComposeInverseWithDirectOf(NewRotation(-90, 0, 0))
	b := NewRotation(0, 0, 0)
	if a.String() != b.String() {
		t.Fatalf("equivalent models print differently: %s vs %s", a, b)
	}
}

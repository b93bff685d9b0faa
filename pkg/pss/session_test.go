package pss

import (
	"strings"
	"testing"

	"github.com/superloach/pss/pkg/raster"
)

const testURL = "/pss/test.pss"

func newTestEngine() *raster.Engine {
	e := raster.NewEngine()
	e.AddFile("/pss/a.tif", raster.FileInfo{Width: 100, Height: 100})
	e.AddFile("/pss/b.tif", raster.FileInfo{Width: 50, Height: 80})
	e.AddFile("/pss/bilevel.tif", raster.FileInfo{Width: 10, Height: 10, PixelBits: 1})
	e.AddFile("/pss/indexed.tif", raster.FileInfo{Width: 10, Height: 10, PixelBits: 8})
	e.AddFile("/pss/layers.dgn", raster.FileInfo{
		Width: 10, Height: 10,
		Layers:      []string{"roads", "rivers"},
		Annotations: true,
	})
	return e
}

func newTestSession(t *testing.T, script string) (*Session, *raster.Engine, error) {
	t.Helper()
	engine := newTestEngine()
	interp := &Interpreter{Engine: engine}
	s := interp.CreateSession(testURL)
	err := s.Exec(strings.NewReader(script))
	return s, engine, err
}

func mustSession(t *testing.T, script string) (*Session, *raster.Engine) {
	t.Helper()
	s, engine, err := newTestSession(t, script)
	if err != nil {
		t.Fatalf("parsing %q: %s", script, err)
	}
	return s, engine
}

func mustPage(t *testing.T, script string) *raster.Raster {
	t.Helper()
	s, _ := mustSession(t, script)
	r, err := s.EvaluatePage(0)
	if err != nil {
		t.Fatalf("evaluating %q: %s", script, err)
	}
	return r
}

// evalExpr declares x = expr and calculates x.
func evalExpr(t *testing.T, expr string) (Value, error) {
	t.Helper()
	s, _, err := newTestSession(t, "x = "+expr)
	if err != nil {
		return Value{}, err
	}
	slot, ok := s.root.FindVariable("x")
	if !ok {
		t.Fatalf("x is not declared")
	}
	return s.calculateSlot(slot)
}

func assertReason(t *testing.T, label string, err error, reason int) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error %d, got none", label, reason)
	}
	e, ok := err.(Err)
	if !ok {
		t.Fatalf("%s: expected an Err, got %T %s", label, err, err)
	}
	if e.Reason() != reason {
		t.Fatalf("%s: expected error %d, got %d (%s)", label, reason, e.Reason(), e)
	}
}

func assertExtent(t *testing.T, label string, got raster.Extent, minX, minY, maxX, maxY float64) {
	t.Helper()
	want := raster.NewExtent(minX, minY, maxX, maxY)
	if got.String() != want.String() {
		t.Fatalf("%s: got extent %s, want %s", label, got, want)
	}
}

func TestPages(t *testing.T) {
	s, _ := mustSession(t, `
a = IMAGE("a.tif")
PAGE(a, "first page")
PG(IM("b.tif"))
`)
	if s.CountPages() != 2 {
		t.Fatalf("expected 2 pages, got %d", s.CountPages())
	}

	desc, err := s.PageDescription(0)
	if err != nil {
		t.Fatal(err)
	}
	if desc != "first page" {
		t.Fatalf("page description: got %q", desc)
	}
	if desc, _ := s.PageDescription(1); desc != "" {
		t.Fatalf("second page has no description, got %q", desc)
	}

	r, err := s.EvaluatePage(1)
	if err != nil {
		t.Fatal(err)
	}
	assertExtent(t, "second page", r.Extent(), 0, 0, 50, 80)

	_, err = s.EvaluatePage(2)
	assertReason(t, "missing page", err, ErrPageNotFound)
}

func TestEvaluatePageIsMemoized(t *testing.T) {
	s, engine := mustSession(t, `
STATEMENT shift(img)
  RETURN TRANSFORM(img, TRANSLATION(10, 0))
END
PAGE(MOSAIC(shift(IMAGE("a.tif")), IMAGE("b.tif")))
`)
	first, err := s.EvaluatePage(0)
	if err != nil {
		t.Fatal(err)
	}
	loaded := engine.Loaded()

	second, err := s.EvaluatePage(0)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("evaluating a page again built a new raster")
	}
	if engine.Loaded() != loaded || engine.Released() != 0 {
		t.Fatalf("evaluating a page again loaded %d and released %d image(s)", engine.Loaded()-loaded, engine.Released())
	}
}

func TestPageDescriptionMustBeText(t *testing.T) {
	s, _ := mustSession(t, `PAGE(IMAGE("a.tif"), 3)`)
	_, err := s.EvaluatePage(0)
	assertReason(t, "numeric description", err, ErrTypeMismatch)
}

func TestExecAppends(t *testing.T) {
	s, _ := mustSession(t, `a = IMAGE("a.tif")`)
	if err := s.Exec(strings.NewReader(`PAGE(a)`)); err != nil {
		t.Fatal(err)
	}
	if s.CountPages() != 1 {
		t.Fatalf("expected 1 page, got %d", s.CountPages())
	}

	err := s.Exec(strings.NewReader(`a = 3`))
	assertReason(t, "redeclaration in a later script", err, ErrAlreadyDefined)
	if url, _, _ := err.(Err).Position(); url != "mem:"+testURL+"#2" {
		t.Fatalf("later scripts are labelled in memory, got %s", url)
	}
}

func TestCloseReleasesOwnedObjects(t *testing.T) {
	s, engine := mustSession(t, `
a = IMAGE("a.tif")
PAGE(MOSAIC(a, a))
`)
	r, err := s.EvaluatePage(0)
	if err != nil {
		t.Fatal(err)
	}
	if engine.Loaded() != 1 {
		t.Fatalf("a is loaded once, got %d loads", engine.Loaded())
	}

	s.Close()
	if engine.Released() != 2 {
		t.Fatalf("expected the image and the mosaic to be released, got %d", engine.Released())
	}
	if !r.Released() {
		t.Fatalf("page raster was not released")
	}
}

func TestEvaluateFragment(t *testing.T) {
	interp := &Interpreter{Engine: newTestEngine()}
	worlds := NewWorldRegistry()

	_, err := interp.EvaluateFragment(`PAGE(IMAGE("a.tif"))`, FragmentOptions{
		Worlds:       worlds,
		CurrentWorld: 4,
		URL:          testURL,
	})
	assertReason(t, "undefined current world", err, ErrInvalidWorld)

	s, err := interp.EvaluateFragment(`PAGE(IMAGE("a.tif"))`, FragmentOptions{
		Worlds: worlds,
		URL:    testURL,
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := s.EvaluatePage(0)
	if err != nil {
		t.Fatal(err)
	}
	if r.URL() != "/pss/a.tif" {
		t.Fatalf("relative paths resolve against the fragment url, got %s", r.URL())
	}
}

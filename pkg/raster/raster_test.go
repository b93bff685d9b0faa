package raster

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/superloach/pss/pkg/transfo"
)

func assertExtent(t *testing.T, label string, got Extent, minX, minY, maxX, maxY float64) {
	t.Helper()
	want := NewExtent(minX, minY, maxX, maxY)
	if got.String() != want.String() {
		t.Fatalf("%s: got extent %s, want %s", label, got, want)
	}
}

func TestRectangle(t *testing.T) {
	s, err := Rectangle(0, 0, 10, 10, transfo.NewIdentity())
	if err != nil {
		t.Fatal(err)
	}
	assertExtent(t, "identity rectangle", s.Extent(), 0, 0, 10, 10)

	s, err = Rectangle(0, 0, 10, 10, transfo.NewTranslation(5, -5))
	if err != nil {
		t.Fatal(err)
	}
	assertExtent(t, "rectangle in translated world", s.Extent(), 5, -5, 15, 5)

	if _, err := Rectangle(10, 0, 0, 10, nil); err != ErrInvalidCoords {
		t.Fatalf("x1 > x2: got %v", err)
	}
	if _, err := Rectangle(0, 10, 10, 0, nil); err != ErrInvalidCoords {
		t.Fatalf("y1 > y2: got %v", err)
	}
}

func TestPolygonValidation(t *testing.T) {
	cases := []struct {
		name   string
		points []Point
		valid  bool
	}{
		{"triangle", []Point{{0, 0}, {10, 0}, {0, 10}, {0, 0}}, true},
		{"square", []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}, true},
		{"not closed", []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, false},
		{"too short", []Point{{0, 0}, {10, 0}, {0, 0}}, false},
		{"bow tie", []Point{{0, 0}, {10, 10}, {10, 0}, {0, 10}, {0, 0}}, false},
		{"repeated point", []Point{{0, 0}, {10, 0}, {10, 0}, {0, 10}, {0, 0}}, false},
		{"folds back", []Point{{0, 0}, {10, 0}, {5, 0}, {5, 5}, {0, 0}}, false},
		{"degenerate line", []Point{{0, 0}, {10, 0}, {0, 0}, {10, 0}, {0, 0}}, false},
	}

	for _, c := range cases {
		_, err := Polygon(c.points, nil)
		if c.valid && err != nil {
			t.Errorf("%s: unexpected error %v", c.name, err)
		} else if !c.valid && err != ErrInvalidPolygon {
			t.Errorf("%s: expected invalid polygon, got %v", c.name, err)
		}
	}
}

func TestShapeOperations(t *testing.T) {
	a, _ := Rectangle(0, 0, 10, 10, nil)
	b, _ := Rectangle(5, 5, 20, 20, nil)
	c, _ := Rectangle(30, 30, 40, 40, nil)

	assertExtent(t, "union", a.Union(b).Extent(), 0, 0, 20, 20)
	assertExtent(t, "intersect", a.Intersect(b).Extent(), 5, 5, 10, 10)
	assertExtent(t, "subtract", a.Subtract(b).Extent(), 0, 0, 10, 10)

	if a.Intersect(c).Extent().IsDefined() {
		t.Fatalf("disjoint intersection should have no extent")
	}
	if !strings.HasPrefix(a.Union(b).String(), "union(polygon(") {
		t.Fatalf("unexpected shape description %s", a.Union(b))
	}
}

func TestAlphaPalette(t *testing.T) {
	p := NewAlphaPalette(0)
	p.AddEntry(3)
	p.AddRange(10, 12)

	entries := p.Entries()
	if entries[3] != 0 || entries[10] != 0 || entries[12] != 0 {
		t.Fatalf("entries not set: %v", entries[:16])
	}
	if entries[4] != 255 || entries[13] != 255 {
		t.Fatalf("untouched entries should stay opaque")
	}

	half := NewAlphaPalette(50)
	half.AddEntry(4)
	half.AddEntry(3)
	p.Merge(half)
	entries = p.Entries()
	if entries[3] != 0 {
		t.Fatalf("merge must not override existing entries, got %d", entries[3])
	}
	if entries[4] != 127 {
		t.Fatalf("merge should copy new entries, got %d", entries[4])
	}
}

func TestAutoContrastStretch(t *testing.T) {
	var h Histogram
	for i := 50; i < 150; i++ {
		h[i] = 10
	}

	f := NewAutoContrastStretchFilter(&h, 0)
	if got := f.Params(); got[0] != 0 || got[1] != 255 {
		t.Fatalf("no cut-off should keep the full range, got %v", got)
	}

	// 20% of 1000 pixels, 100 at each end: ten levels each
	f = NewAutoContrastStretchFilter(&h, 20)
	if got := f.Params(); got[0] != 60 || got[1] != 139 {
		t.Fatalf("unexpected interval %v", got)
	}
}

func TestContext(t *testing.T) {
	ctx := NewContext()
	ctx.SetLayers(false, "roads", "rivers")
	ctx.SetLayers(true, "roads", "labels")

	if l, _ := ctx.Layer("roads"); l.Visible {
		t.Fatalf("first recorded visibility should be kept")
	}
	if l, ok := ctx.Layer("labels"); !ok || !l.Visible {
		t.Fatalf("new layer should be added")
	}

	if err := ctx.SetAnnotationRasterization(true); err != nil {
		t.Fatal(err)
	}
	if err := ctx.SetAnnotationRasterization(false); err != ErrAnnotationAlreadySet {
		t.Fatalf("second annotation setting: got %v", err)
	}
}

func TestEngineFiles(t *testing.T) {
	e := NewEngine()
	e.AddFile("/data/a.tif", FileInfo{
		Width:       100,
		Height:      50,
		Pages:       2,
		Layers:      []string{"roads", "rivers"},
		Annotations: true,
	})

	f, err := e.OpenImage("/data/a.tif", nil)
	if err != nil {
		t.Fatal(err)
	}
	if f.Pages() != 2 || f.World() != 0 {
		t.Fatalf("unexpected file info: %d pages, world %d", f.Pages(), f.World())
	}

	if _, err := e.LoadRaster(f, 2, transfo.NewIdentity(), nil); err != ErrPageNotFound {
		t.Fatalf("page out of range: got %v", err)
	}

	ctx := NewContext()
	ctx.SetLayers(false, "roads")
	ctx.SetAnnotationRasterization(false)

	r, err := e.LoadRaster(f, 1, transfo.NewIdentity(), ctx)
	if err != nil {
		t.Fatal(err)
	}
	assertExtent(t, "file raster", r.Extent(), 0, 0, 100, 50)
	if e.Loaded() != 1 {
		t.Fatalf("expected one loaded raster, got %d", e.Loaded())
	}

	desc := r.Describe()
	for _, want := range []string{`"/data/a.tif"`, "page 1", "layer roads=off", "layer rivers=on", "annotations=off"} {
		if !strings.Contains(desc, want) {
			t.Fatalf("description %q lacks %q", desc, want)
		}
	}

	if _, err := e.OpenImage("/data/missing.tif", nil); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("missing file: got %v", err)
	}
	if _, err := e.OpenImage("ftp://host/a.tif", nil); !errors.Is(err, ErrUnsupportedURL) {
		t.Fatalf("unsupported scheme: got %v", err)
	}
}

func TestEngineDecodesFromDisk(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "gray.png")

	img := image.NewGray(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		img.SetGray(x, 0, color.Gray{Y: 10})
		img.SetGray(x, 1, color.Gray{Y: 200})
	}
	file, err := os.Create(filePath)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(file, img); err != nil {
		t.Fatal(err)
	}
	file.Close()

	e := NewEngine()
	f, err := e.OpenImage("file://"+filePath, nil)
	if err != nil {
		t.Fatal(err)
	}
	r, err := e.LoadRaster(f, 0, transfo.NewIdentity(), nil)
	if err != nil {
		t.Fatal(err)
	}
	assertExtent(t, "decoded raster", r.Extent(), 0, 0, 4, 2)
	if r.PixelBits() != 8 {
		t.Fatalf("expected 8 bits gray raster, got %d", r.PixelBits())
	}

	h, err := e.Histogram(r, 100)
	if err != nil {
		t.Fatal(err)
	}
	if h[10] != 4 || h[200] != 4 {
		t.Fatalf("unexpected histogram counts %d, %d", h[10], h[200])
	}
}

func TestDerivedRasters(t *testing.T) {
	e := NewEngine()
	e.AddFile("a", FileInfo{Width: 10, Height: 10})
	e.AddFile("b", FileInfo{Width: 10, Height: 10, PixelBits: 1})

	fa, _ := e.OpenImage("a", nil)
	fb, _ := e.OpenImage("b", nil)
	a, _ := e.LoadRaster(fa, 0, transfo.NewIdentity(), nil)
	b, _ := e.LoadRaster(fb, 0, transfo.NewTranslation(20, 0), nil)

	m, err := e.BuildMosaic(transfo.NewIdentity(), []*Raster{a, b})
	if err != nil {
		t.Fatal(err)
	}
	assertExtent(t, "mosaic", m.Extent(), 0, 0, 30, 10)
	if got := m.URLs(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected mosaic urls %v", got)
	}

	moved, err := e.ApplyTransform(a, transfo.NewTranslation(5, 5), transfo.NewIdentity())
	if err != nil {
		t.Fatal(err)
	}
	assertExtent(t, "transformed", moved.Extent(), 5, 5, 15, 15)

	// a translation expressed in a world scaled by two moves twice as far
	world, _ := transfo.NewScaling(2, 2, 0, 0)
	moved, err = e.ApplyTransform(a, transfo.NewTranslation(5, 0), world)
	if err != nil {
		t.Fatal(err)
	}
	assertExtent(t, "transformed in scaled world", moved.Extent(), 10, 0, 20, 10)

	clip, _ := Rectangle(5, 5, 50, 50, nil)
	shaped, _ := e.ApplyShape(a, clip)
	assertExtent(t, "shaped", shaped.Extent(), 5, 5, 10, 10)

	if _, err := e.ComposeAlpha(a, Translucency{Palette: NewAlphaPalette(0), Opacity: -1}); err != ErrAlphaPaletteNotAllowed {
		t.Fatalf("palette on a 24 bits raster: got %v", err)
	}
	translucent, err := e.ComposeAlpha(a, Translucency{Opacity: 50})
	if err != nil {
		t.Fatal(err)
	}
	if translucent.IsOpaque() {
		t.Fatalf("translucent raster reported opaque")
	}

	if _, err := e.Colorize(a, color.RGBA{}, color.RGBA{}); err == nil {
		t.Fatalf("colorizing a 24 bits raster should fail")
	}
	colorized, err := e.Colorize(b, color.RGBA{R: 255}, color.RGBA{B: 255})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(colorized.Describe(), "255 0 0 / 0 0 255") {
		t.Fatalf("unexpected description %s", colorized.Describe())
	}

	e.Release(a)
	e.Release(a)
	if e.Released() != 1 || !a.Released() {
		t.Fatalf("release should be counted once, got %d", e.Released())
	}
}

func TestSourceTraits(t *testing.T) {
	changes, unlimited := SourceTraits([]string{"/a.tif", "http://host/map?SERVICE=WMS"})
	if !changes || !unlimited {
		t.Fatalf("wms source: got %v, %v", changes, unlimited)
	}
	changes, unlimited = SourceTraits([]string{"/plan.pdf"})
	if changes || !unlimited {
		t.Fatalf("pdf source: got %v, %v", changes, unlimited)
	}
}

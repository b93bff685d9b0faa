package pss

import (
	"path/filepath"
	"testing"

	"github.com/superloach/pss/pkg/raster"
)

const odmScript = `a = IMAGE("a.tif")
t = TRANSLATION(10, 20)
unused = IMAGE("b.tif")
m = ODM(TRANSFORM(a, t))
PAGE(m)
`

func TestPageScript(t *testing.T) {
	s, _ := mustSession(t, odmScript)

	script, err := s.PageScript(0)
	if err != nil {
		t.Fatal(err)
	}
	expected := `a = IMAGE("a.tif")
t = TRANSLATION(10, 20)
m = ODM(TRANSFORM(a, t))
PAGE(m)
`
	if script != expected {
		t.Fatalf("page script:\n%s\nexpected:\n%s", script, expected)
	}
}

func TestDescriptiveScriptEnclosed(t *testing.T) {
	s, _ := mustSession(t, odmScript)

	slot, _ := s.root.FindVariable("m")
	odm := s.doc.Node(slot.expr)
	script, err := s.descriptiveScript([]NodeID{odm.args[0]}, true)
	if err != nil {
		t.Fatal(err)
	}
	expected := `a = IMAGE("a.tif")
t = TRANSLATION(10, 20)
PAGE(TRANSFORM(a, t)
)`
	if script != expected {
		t.Fatalf("descriptive script:\n%s\nexpected:\n%s", script, expected)
	}
}

func TestDescriptiveScriptStatements(t *testing.T) {
	s, _ := mustSession(t, `ctx = IMAGECONTEXT()
SETLAYEROFF(ctx, "rivers")
STATEMENT load(name)
  RETURN IMAGE(name, 0, ctx)
END
other = 1
PAGE(load("layers.dgn"))
`)
	if _, err := s.EvaluatePage(0); err != nil {
		t.Fatal(err)
	}

	script, err := s.PageScript(0)
	if err != nil {
		t.Fatal(err)
	}
	expected := `ctx = IMAGECONTEXT()
SETLAYEROFF(ctx, "rivers")
STATEMENT load(name)
  RETURN IMAGE(name, 0, ctx)
END
PAGE(load("layers.dgn"))
`
	if script != expected {
		t.Fatalf("page script:\n%s\nexpected:\n%s", script, expected)
	}
}

func TestDescriptiveScriptIncludes(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "shared.pss", "a = IMAGE(\"a.tif\")\nb = IMAGE(\"b.tif\")\n")
	main := writeScript(t, dir, "main.pss", "INCLUDE \"shared.pss\"\nPAGE(a)\n")

	s, err := execFile(t, main)
	if err != nil {
		t.Fatal(err)
	}
	script, err := s.PageScript(0)
	if err != nil {
		t.Fatal(err)
	}
	if expected := "a = IMAGE(\"a.tif\")\nPAGE(a)\n"; script != expected {
		t.Fatalf("included lines come first, got:\n%s", script)
	}

	delete(s.sources.sources, filepath.Join(dir, "shared.pss"))
	_, err = s.PageScript(0)
	assertReason(t, "forgotten source", err, ErrSourceUnavailable)
}

func TestOnDemandMosaic(t *testing.T) {
	s, engine := mustSession(t, odmScript)

	r, err := s.EvaluatePage(0)
	if err != nil {
		t.Fatal(err)
	}
	if r.Kind() != raster.KindOnDemandMosaic {
		t.Fatalf("expected an on-demand mosaic, got %s", r.Describe())
	}
	assertExtent(t, "on-demand mosaic", r.Extent(), 10, 20, 110, 120)

	sources := r.OnDemandSources()
	if len(sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(sources))
	}
	src := sources[0]
	if src.URL != testURL || src.WorldID != BaseWorld || !src.Opaque {
		t.Fatalf("unexpected source %+v", src)
	}
	if src.DataChangesWithResolution || src.UnlimitedSource {
		t.Fatalf("plain files have fixed resolution")
	}
	if engine.Released() != 1 {
		t.Fatalf("the image a source stands for is released, got %d releases", engine.Released())
	}

	loaded, err := src.Load()
	if err != nil {
		t.Fatal(err)
	}
	direct := mustPage(t, `PAGE(TRANSFORM(IMAGE("a.tif"), TRANSLATION(10, 20)))`)
	if loaded.Describe() != direct.Describe() {
		t.Fatalf("loaded source:\n%s\nexpected:\n%s", loaded.Describe(), direct.Describe())
	}
}

func TestOnDemandMosaicWorlds(t *testing.T) {
	s, _ := mustSession(t, `WORLD(1, TRANSLATION(5, 5), 0)
SELECTWORLD(1)
a = IMAGE("a.tif")
PAGE(ODM(a))
`)
	r, err := s.EvaluatePage(0)
	if err != nil {
		t.Fatal(err)
	}

	if expected := "WORLD(1, TRANSLATION(5, 5), 0)\nSELECTWORLD(1)\n"; r.WorldScript() != expected {
		t.Fatalf("world script:\n%s", r.WorldScript())
	}

	src := r.OnDemandSources()[0]
	if expected := "a = IMAGE(\"a.tif\")\nPAGE(a\n)"; src.Script != expected {
		t.Fatalf("source script:\n%s", src.Script)
	}
	if src.WorldID != 1 {
		t.Fatalf("sources remember the current world, got %d", src.WorldID)
	}

	loaded, err := src.Load()
	if err != nil {
		t.Fatal(err)
	}
	assertExtent(t, "loaded source", loaded.Extent(), 0, 0, 100, 100)
}

func TestOnDemandMosaicErrors(t *testing.T) {
	_, err := evalExpr(t, `ODM(IMAGE("a.tif"), RECTANGLE(0, 0, 1, 1))`)
	assertReason(t, "non image source", err, ErrTypeMismatch)
}

func TestOnDemandMosaicOfParameter(t *testing.T) {
	s, _ := mustSession(t, `STATEMENT lazy(img)
  RETURN ODM(img)
END
PAGE(lazy(IMAGE("a.tif")))
`)
	r, err := s.EvaluatePage(0)
	if err != nil {
		t.Fatal(err)
	}

	src := r.OnDemandSources()[0]
	if expected := "PAGE(IMAGE(\"a.tif\")\n)"; src.Script != expected {
		t.Fatalf("a parameter is described by its argument, got:\n%s", src.Script)
	}
	loaded, err := src.Load()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.URL() != "/pss/a.tif" || loaded.Released() {
		t.Fatalf("unexpected source %s", loaded.Describe())
	}

	s, _ = mustSession(t, `STATEMENT lazy(img)
  RETURN ODM(TRANSFORM(img, IDENTITY()))
END
PAGE(lazy(IMAGE("a.tif")))
`)
	_, err = s.EvaluatePage(0)
	assertReason(t, "parameter inside a described image", err, ErrSourceUnavailable)
}

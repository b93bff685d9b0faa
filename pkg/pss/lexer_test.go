package pss

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/superloach/pss/pkg/raster"
)

func tokenize(t *testing.T, text string) []Tok {
	t.Helper()
	s := (&Interpreter{Engine: raster.NewEngine()}).CreateSession(testURL)
	l := newLexer(s, newSource(testURL, text))

	toks := []Tok{}
	for {
		tok, err := l.next()
		if err != nil {
			t.Fatalf("lexing %q: %s", text, err)
		}
		toks = append(toks, tok)
		if tok.kind == EOF {
			return toks
		}
	}
}

func TestLexKinds(t *testing.T) {
	toks := tokenize(t, "a = image(\"x.tif\") ; a comment (\nPG(a, -1.5e2:.5)\r\n")
	expected := []Kind{
		Identifier, Equal, Keyword, LeftParen, StringLiteral, RightParen,
		Keyword, LeftParen, Identifier, Comma, Minus, NumberLiteral, Colon, NumberLiteral, RightParen,
		EOF,
	}

	if len(toks) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(toks), toks)
	}
	for i, tok := range toks {
		if tok.kind != expected[i] {
			t.Errorf("token %d: expected %s, got %s", i, expected[i], tok)
		}
	}

	if toks[2].prod.rule != RuleImage {
		t.Errorf("keywords are case insensitive, got %s", toks[2].prod.name)
	}
	if toks[6].prod.rule != RulePage {
		t.Errorf("PG abbreviates PAGE, got %s", toks[6].prod.name)
	}
	if toks[4].str != "x.tif" {
		t.Errorf("string literal: got %q", toks[4].str)
	}
	if toks[11].num != 150 || toks[13].num != 0.5 {
		t.Errorf("numbers: got %v and %v", toks[11].num, toks[13].num)
	}
}

func TestLexPositions(t *testing.T) {
	toks := tokenize(t, "  abc = 12\n\tx")

	cases := []struct {
		tok       Tok
		line, col int
		endCol    int
	}{
		{toks[0], 1, 3, 6},
		{toks[1], 1, 7, 8},
		{toks[2], 1, 9, 11},
		{toks[3], 2, 2, 3},
	}
	for i, c := range cases {
		if c.tok.line != c.line || c.tok.col != c.col || c.tok.end.col != c.endCol {
			t.Errorf("token %d: got %d:%d-%d, want %d:%d-%d",
				i, c.tok.line, c.tok.col, c.tok.end.col, c.line, c.col, c.endCol)
		}
	}
}

func TestLexErrors(t *testing.T) {
	for _, text := range []string{
		`a = "unterminated`,
		"a = \"split\nstring\"",
		`a = 3 # 4`,
	} {
		_, _, err := newTestSession(t, text)
		assertReason(t, text, err, ErrSyntax)
	}
}

func writeScript(t *testing.T, dir, name, text string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	return p
}

func execFile(t *testing.T, p string) (*Session, error) {
	t.Helper()
	s := (&Interpreter{Engine: newTestEngine()}).CreateSession("")
	return s, s.ExecPath(p)
}

func TestInclude(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "shared.pss", "b = 2\nc = TRANSLATION(b, b)\n")
	main := writeScript(t, dir, "main.pss", "INCLUDE \"shared.pss\"\nd = COMPOSED(c, c)\n")

	s, err := execFile(t, main)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"b", "c", "d"} {
		if _, ok := s.root.FindVariable(name); !ok {
			t.Errorf("%s is not declared", name)
		}
	}
}

func TestIncludeVariable(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "shared.pss", "b = 2\n")
	main := writeScript(t, dir, "main.pss", "name = \"shared.pss\"\nINC name\nc = b\n")

	s, err := execFile(t, main)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.root.FindVariable("b"); !ok {
		t.Fatalf("b is not declared")
	}

	main = writeScript(t, dir, "bad.pss", "name = 3\nINCLUDE name\n")
	_, err = execFile(t, main)
	assertReason(t, "numeric include name", err, ErrTypeMismatch)
}

func TestIncludeErrors(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.pss", "INCLUDE \"b.pss\"\n")
	writeScript(t, dir, "b.pss", "x = 1\nINCLUDE \"a.pss\"\n")
	main := writeScript(t, dir, "main.pss", "INCLUDE \"a.pss\"\n")

	_, err := execFile(t, main)
	assertReason(t, "recursive inclusion", err, ErrRecursiveInclusion)
	if url, line, _ := err.(Err).Position(); url != filepath.Join(dir, "b.pss") || line != 2 {
		t.Fatalf("recursive inclusion reported at %s:%d", url, line)
	}

	main = writeScript(t, dir, "missing.pss", "INCLUDE \"nowhere.pss\"\n")
	_, err = execFile(t, main)
	assertReason(t, "missing include", err, ErrIncludeNotFound)

	main = writeScript(t, dir, "empty.pss", "INCLUDE \"\"\n")
	_, err = execFile(t, main)
	assertReason(t, "empty include", err, ErrInvalidURL)
}

func TestResolveURL(t *testing.T) {
	cases := []struct {
		base, name string
		url        string
		ok         bool
	}{
		{"/maps/main.pss", "a.tif", "/maps/a.tif", true},
		{"/maps/main.pss", "../tiles/a.tif", "/tiles/a.tif", true},
		{"/maps/main.pss", "/abs/a.tif", "/abs/a.tif", true},
		{"/maps/main.pss", `C:\maps\a.tif`, `C:\maps\a.tif`, true},
		{"/maps/main.pss", "http://host/a.tif", "http://host/a.tif", true},
		{"http://host/dir/main.pss", "a.tif", "http://host/dir/a.tif", true},
		{"file:///maps/main.pss", "a.tif", "/maps/a.tif", true},
		{"mem:#0", "a.tif", "a.tif", true},
		{"", "a.tif", "a.tif", true},
		{"/maps/main.pss", "", "", false},
	}

	for _, c := range cases {
		url, ok := resolveURL(c.base, c.name)
		if url != c.url || ok != c.ok {
			t.Errorf("resolveURL(%q, %q): got %q %v, want %q %v", c.base, c.name, url, ok, c.url, c.ok)
		}
	}
}

func TestIncomplete(t *testing.T) {
	cases := []struct {
		code       string
		incomplete bool
	}{
		{`PAGE(IMAGE("a.tif"))`, false},
		{`PAGE(MOSAIC(IMAGE("a.tif"),`, true},
		{"STATEMENT f(img)", true},
		{"ST f(img)\n  RETURN img", true},
		{"STATEMENT f(img)\n  RETURN img\nEND", false},
		{"; STATEMENT in a comment", false},
		{`INCLUDE "missing.pss"`, false},
		{`x = "unterminated`, false},
	}

	for _, c := range cases {
		if got := Incomplete(c.code); got != c.incomplete {
			t.Errorf("Incomplete(%q) = %v, want %v", c.code, got, c.incomplete)
		}
	}
}

package pss

import (
	"io"
	"io/ioutil"
	"os"
	"path"
	"strings"
)

// source is the text of one script file, kept by line so that descriptive
// scripts can be cut out of it after parsing.
type source struct {
	url   string
	text  string
	lines []string
}

func newSource(url string, text string) *source {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return &source{url: url, text: text, lines: lines}
}

// line returns the 1-based line n.
func (s *source) line(n int) (string, bool) {
	if n < 1 || n > len(s.lines) {
		return "", false
	}
	return s.lines[n-1], true
}

// sourceCache maps URLs to loaded sources. The lexer and the extractor
// share it, so every line the parser saw can be quoted back.
type sourceCache struct {
	sources map[string]*source
}

func newSourceCache() *sourceCache {
	return &sourceCache{sources: map[string]*source{}}
}

func (c *sourceCache) get(url string) (*source, bool) {
	s, ok := c.sources[url]
	return s, ok
}

func (c *sourceCache) add(url string, input io.Reader) (*source, error) {
	b, err := ioutil.ReadAll(input)
	if err != nil {
		return nil, err
	}
	s := newSource(url, string(b))
	c.sources[url] = s
	return s, nil
}

// load returns the cached source at url, reading it from disk the first
// time it is asked for.
func (c *sourceCache) load(url string) (*source, error) {
	if s, ok := c.sources[url]; ok {
		return s, nil
	}

	file, err := os.Open(filePath(url))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return c.add(url, file)
}

func filePath(url string) string {
	return strings.TrimPrefix(url, "file://")
}

func isWindowsPath(name string) bool {
	if strings.HasPrefix(name, `\\`) || strings.HasPrefix(name, "//") {
		return true
	}
	return len(name) > 2 && name[1] == ':' &&
		(name[2] == '\\' || name[2] == '/') &&
		strings.ContainsRune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ", rune(name[0]))
}

// resolveURL turns a name written in the script at base into a URL.
// Names with a scheme, absolute paths and Windows paths are kept as is;
// anything else is relative to the directory of base.
func resolveURL(base, name string) (string, bool) {
	if name == "" {
		return "", false
	}

	if i := strings.Index(name, "://"); i > 0 {
		return name, true
	}
	if isWindowsPath(name) || path.IsAbs(name) {
		return name, true
	}

	if strings.Contains(base, "://") && !strings.HasPrefix(base, "file://") {
		// base is a remote document, keep its scheme
		return base[:strings.LastIndex(base, "/")+1] + name, true
	}

	dir := ""
	if base != "" && !strings.HasPrefix(base, memScheme) {
		dir = path.Dir(filePath(base))
	}
	return path.Join(dir, name), true
}

// memScheme prefixes the URLs of scripts that do not come from a file.
const memScheme = "mem:"

package pss

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path"
	"strings"

	"github.com/superloach/pss/pkg/raster"
	"github.com/superloach/pss/pkg/transfo"
)

// RasterEngine is what a session needs from a raster engine to build the
// images a script describes. *raster.Engine implements it.
type RasterEngine interface {
	OpenImage(url string, geo *raster.GeoreferenceContext) (*raster.File, error)
	LoadRaster(f *raster.File, page int, coordSys transfo.Model, ctx *raster.Context) (*raster.Raster, error)
	BuildMosaic(coordSys transfo.Model, rasters []*raster.Raster) (*raster.Raster, error)
	BuildOnDemandMosaic(coordSys transfo.Model, sources []*raster.OnDemandSource, worldScript string) (*raster.Raster, error)
	ApplyTransform(r *raster.Raster, model transfo.Model, world transfo.Model) (*raster.Raster, error)
	ApplyShape(r *raster.Raster, shape *raster.Shape) (*raster.Raster, error)
	ApplyFilter(r *raster.Raster, f *raster.Filter) (*raster.Raster, error)
	ComposeAlpha(r *raster.Raster, t raster.Translucency) (*raster.Raster, error)
	Colorize(r *raster.Raster, level0, level1 color.RGBA) (*raster.Raster, error)
	Histogram(r *raster.Raster, precision int) (*raster.Histogram, error)
	Release(r *raster.Raster)
}

// DebugConfig defines any debugging flags referenced at runtime
type DebugConfig struct {
	Lex      bool
	Parse    bool
	Eval     bool
	Describe bool
	Dump     bool
}

// Interpreter holds the raster engine and the flags shared by every
// Session it creates.
type Interpreter struct {
	Engine RasterEngine
	Debug  DebugConfig
}

// CreateSession creates a Session for the document at url. The url is
// used to resolve relative paths and to label error positions.
func (in *Interpreter) CreateSession(url string) *Session {
	s := &Session{
		interp:  in,
		url:     url,
		doc:     newDocument(),
		sources: newSourceCache(),
		root:    newScope(nil),
		worlds:  NewWorldRegistry(),
	}
	s.parseScope = s.root
	return s
}

// frame is one statement call being calculated.
type frame struct {
	def   *StatementDefinition
	saved *snapshot
}

// Session is one parsed document with its variables, worlds and pages.
type Session struct {
	interp *Interpreter

	url     string
	doc     *Document
	sources *sourceCache
	execs   int

	root       *Scope
	parseScope *Scope
	frames     []*frame

	worlds       *WorldRegistry
	currentWorld int
	// WORLD and SELECTWORLD nodes, in document order
	worldNodes []NodeID

	pages []NodeID

	// objects of statement bodies dropped by later calls
	retired []*Handle
}

func (s *Session) URL() string {
	return s.url
}

func (s *Session) Document() *Document {
	return s.doc
}

func (s *Session) WorldRegistry() *WorldRegistry {
	return s.worlds
}

func (s *Session) CurrentWorld() int {
	return s.currentWorld
}

// scope is the scope names are resolved in: the scope of the statement
// being parsed, or of the innermost call being calculated.
func (s *Session) scope() *Scope {
	if len(s.frames) > 0 {
		return s.frames[len(s.frames)-1].def.scope
	}
	return s.parseScope
}

// Exec parses a script, adding its declarations and pages to the session.
// Exec may be called more than once; later scripts see what earlier ones
// declared.
func (s *Session) Exec(input io.Reader) error {
	url := s.url
	if s.execs > 0 || url == "" {
		url = fmt.Sprintf("%s%s#%d", memScheme, s.url, s.execs)
	}
	s.execs++

	src, err := s.sources.add(url, input)
	if err != nil {
		return Err{ErrSystem, fmt.Sprintf("could not read %s: %s", url, err.Error()), position{}}
	}
	return s.parse(src)
}

// ExecPath parses the script file at filePath.
func (s *Session) ExecPath(filePath string) error {
	if !path.IsAbs(filePath) && !isWindowsPath(filePath) {
		return Err{ErrAssert, "Session.ExecPath expected an absolute path, got " + filePath, position{}}
	}

	file, err := os.Open(filePath)
	if err != nil {
		return Err{ErrFileNotFound, fmt.Sprintf("could not open %s for execution:\n\t-> %s", filePath, err), position{}}
	}
	defer file.Close()

	s.url = filePath
	return s.Exec(file)
}

func (s *Session) parse(src *source) error {
	p := &parser{
		s:     s,
		lex:   newLexer(s, src),
		debug: s.interp.Debug.Parse,
	}
	err := p.parseDocument()

	if s.interp.Debug.Dump {
		s.Dump()
	}
	return err
}

func (s *Session) CountPages() int {
	return len(s.pages)
}

// EvaluatePage calculates page i, counting from 0.
func (s *Session) EvaluatePage(i int) (*raster.Raster, error) {
	if i < 0 || i >= len(s.pages) {
		return nil, Err{ErrPageNotFound, fmt.Sprintf("no page %d in %s", i, s.url), position{}}
	}

	v, err := s.calculate(s.pages[i])
	if err != nil {
		return nil, err
	}
	return v.handle.object.(RasterObject).Raster, nil
}

// PageDescription returns the description text given to page i, if any.
func (s *Session) PageDescription(i int) (string, error) {
	if i < 0 || i >= len(s.pages) {
		return "", Err{ErrPageNotFound, fmt.Sprintf("no page %d in %s", i, s.url), position{}}
	}

	n := s.doc.Node(s.pages[i])
	if len(n.args) < 2 {
		return "", nil
	}
	return s.text(n.args[1])
}

// Close releases every object held by the session's nodes.
func (s *Session) Close() {
	for _, h := range s.retired {
		s.release(h)
	}
	s.retired = nil
	s.doc.Release(func(n *Node) {
		s.FreeValue(n.id)
	})
	s.pages = nil
	s.worldNodes = nil
}

// Dump prints the current state of the session's scopes and worlds
func (s *Session) Dump() {
	LogDebug("scope dump", s.root.String())
	LogDebug("world dump", s.worlds.String())
	LogDebugf("%d page(s), %d node(s)", len(s.pages), s.doc.Len())
}

// FragmentOptions sets up the session a script fragment is evaluated in.
type FragmentOptions struct {
	// Worlds replaces the session's world registry when set
	Worlds       *WorldRegistry
	CurrentWorld int
	// URL relative paths in the fragment are resolved against
	URL string
}

// EvaluateFragment parses a script fragment, usually a descriptive script
// extracted from another session, in a new session.
func (in *Interpreter) EvaluateFragment(script string, opts FragmentOptions) (*Session, error) {
	s := in.CreateSession(opts.URL)
	if opts.Worlds != nil {
		s.worlds = opts.Worlds
	}
	if !s.worlds.Defined(opts.CurrentWorld) {
		return nil, Err{ErrInvalidWorld, fmt.Sprintf("world %d is not defined", opts.CurrentWorld), position{}}
	}
	s.currentWorld = opts.CurrentWorld

	// the fragment stands in for the document at URL in error positions
	s.execs = 1
	s.url = opts.URL
	src, err := s.sources.add(memScheme+strings.TrimPrefix(opts.URL, memScheme), strings.NewReader(script))
	if err != nil {
		return nil, err
	}
	if err := s.parse(src); err != nil {
		return nil, err
	}
	return s, nil
}

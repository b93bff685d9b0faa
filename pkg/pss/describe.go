package pss

import (
	"fmt"
	"sort"
	"strings"

	"github.com/superloach/pss/pkg/raster"
)

// lineSet is the set of source lines of one file a descriptive script
// quotes.
type lineSet struct {
	url   string
	lines map[int]bool
}

// collectLines gathers the source lines of every node the roots depend on:
// their arguments, the declarations of the variables they use, the
// statements they call and the modifiers of the image contexts they pass.
// Files are listed dependencies first. References to statement
// parameters are returned apart, as their lines cannot stand alone.
func (s *Session) collectLines(roots []NodeID) (files []*lineSet, params []NodeID) {
	byURL := map[string]*lineSet{}
	record := func(url string, first, last int) {
		set, ok := byURL[url]
		if !ok {
			set = &lineSet{url: url, lines: map[int]bool{}}
			byURL[url] = set
			files = append([]*lineSet{set}, files...)
		}
		for l := first; l <= last; l++ {
			set.lines[l] = true
		}
	}

	visited := map[NodeID]bool{}
	stack := append([]NodeID{}, roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := s.doc.Node(id)
		if n == nil || visited[id] {
			continue
		}
		visited[id] = true

		if n.start.url == n.end.url {
			record(n.start.url, n.start.line, n.end.line)
		} else {
			record(n.start.url, n.start.line, n.start.line)
			record(n.end.url, n.end.line, n.end.line)
		}

		// pushed in reverse so that arguments are visited in order
		for i := len(n.args) - 1; i >= 0; i-- {
			stack = append(stack, n.args[i])
		}
		if n.using != 0 {
			stack = append(stack, n.using)
		}
		switch {
		case n.rule == RuleVariable && n.slot.decl != 0:
			stack = append(stack, n.slot.decl)
		case n.rule == RuleVariable:
			params = append(params, id)
		case n.rule == RuleCall:
			stack = append(stack, n.def.node)
		}
		if n.calculated {
			if ctx, ok := n.value.Object().(*ImageContextObject); ok {
				stack = append(stack, ctx.modifiers...)
			}
		}
	}
	return files, params
}

// descriptiveScript quotes the source lines the roots depend on. With
// enclose, the single root is cut out of its lines and wrapped in a PAGE
// statement, so the script can be evaluated on its own.
func (s *Session) descriptiveScript(roots []NodeID, enclose bool) (string, error) {
	var root *Node
	if enclose {
		if len(roots) != 1 {
			return "", Err{ErrAssert, "an enclosed script has exactly one root", position{}}
		}
		// a parameter stands for the argument it is bound to
		root = s.doc.Node(roots[0])
		for root.rule == RuleVariable && root.slot.decl == 0 && root.slot.expr != 0 {
			root = s.doc.Node(root.slot.expr)
		}
		roots = []NodeID{root.id}
	}

	files, params := s.collectLines(roots)
	if root != nil && len(params) > 0 {
		n := s.doc.Node(params[0])
		return "", errAt(n.start, ErrSourceUnavailable, "parameter '%s' cannot be described outside of its statement", n.slot.name)
	}

	var b strings.Builder
	for _, set := range files {
		src, ok := s.sources.get(set.url)
		if !ok {
			return "", Err{ErrSourceUnavailable, "source of " + set.url + " is not available", position{}}
		}

		numbers := make([]int, 0, len(set.lines))
		for l := range set.lines {
			numbers = append(numbers, l)
		}
		sort.Ints(numbers)

		for _, l := range numbers {
			line, ok := src.line(l)
			if !ok {
				return "", Err{ErrSourceUnavailable, fmt.Sprintf("line %d of %s is not available", l, set.url), position{}}
			}

			if root != nil && set.url == root.end.url && l == root.end.line {
				line = cutAt(line, root.end.col-1)
			}
			if root != nil && set.url == root.start.url && l == root.start.line {
				line = "PAGE(" + cutFrom(line, root.start.col-1)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if root != nil {
		b.WriteString(")")
	}
	return b.String(), nil
}

func cutAt(line string, i int) string {
	if i < len(line) {
		return line[:i]
	}
	return line
}

func cutFrom(line string, i int) string {
	if i < len(line) {
		return line[i:]
	}
	return ""
}

// PageScript returns the script building page i and everything it
// depends on.
func (s *Session) PageScript(i int) (string, error) {
	if i < 0 || i >= len(s.pages) {
		return "", Err{ErrPageNotFound, fmt.Sprintf("no page %d in %s", i, s.url), position{}}
	}
	return s.descriptiveScript([]NodeID{s.pages[i]}, false)
}

// WorldScript returns the script defining and selecting the session's
// worlds.
func (s *Session) WorldScript() (string, error) {
	if len(s.worldNodes) == 0 {
		return "", nil
	}
	return s.descriptiveScript(s.worldNodes, false)
}

// onDemandLoader evaluates script as a page of its own whenever the
// deferred source is needed. Worlds are those of the session when the
// mosaic was calculated.
func (s *Session) onDemandLoader(script string) func() (*raster.Raster, error) {
	worlds := s.worlds.Clone()
	currentWorld := s.currentWorld
	url := s.url
	interp := s.interp

	return func() (*raster.Raster, error) {
		fragment, err := interp.EvaluateFragment(script, FragmentOptions{
			Worlds:       worlds.Clone(),
			CurrentWorld: currentWorld,
			URL:          url,
		})
		if err != nil {
			return nil, err
		}
		return fragment.EvaluatePage(0)
	}
}

// calculateOnDemandMosaic turns each image argument into a deferred source
// rebuilt from its descriptive script, then lets go of the image itself.
func calculateOnDemandMosaic(s *Session, n *Node) (Value, error) {
	sources := make([]*raster.OnDemandSource, 0, len(n.args))
	for _, a := range n.args {
		r, err := s.rasterArg(a)
		if err != nil {
			return Value{}, err
		}

		script, err := s.descriptiveScript([]NodeID{a}, true)
		if err != nil {
			return Value{}, err.(Err).at(s.pos(a))
		}
		if s.interp.Debug.Describe {
			LogDebug("describe ->", fmt.Sprintf("#%d", a), "\n"+script)
		}

		changes, unlimited := raster.SourceTraits(r.URLs())
		sources = append(sources, &raster.OnDemandSource{
			Script:                    script,
			Shape:                     r.EffectiveShape(),
			Opaque:                    r.IsOpaque(),
			URL:                       s.url,
			WorldID:                   s.currentWorld,
			DataChangesWithResolution: changes,
			UnlimitedSource:           unlimited,
			Load:                      s.onDemandLoader(script),
		})
		s.FreeValue(a)
	}

	world, err := s.worldOf(n)
	if err != nil {
		return Value{}, err
	}
	worldScript, err := s.WorldScript()
	if err != nil {
		return Value{}, err.(Err).at(n.start)
	}
	if s.interp.Debug.Describe && worldScript != "" {
		LogDebug("describe -> worlds\n" + worldScript)
	}

	m, err := s.interp.Engine.BuildOnDemandMosaic(world, sources, worldScript)
	if err != nil {
		return Value{}, engineErr(n.start, err)
	}
	return objectValue(RasterObject{m}), nil
}

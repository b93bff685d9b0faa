package raster

import (
	"fmt"
	"image/color"
	"sort"
	"strings"

	"github.com/superloach/pss/pkg/transfo"
)

// Kind tells how a raster was produced.
type Kind int

const (
	KindFile Kind = iota
	KindMosaic
	KindOnDemandMosaic
	KindTransformed
	KindShaped
	KindFiltered
	KindTranslucent
	KindColorized
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "image"
	case KindMosaic:
		return "mosaic"
	case KindOnDemandMosaic:
		return "ondemand"
	case KindTransformed:
		return "transform"
	case KindShaped:
		return "shape"
	case KindFiltered:
		return "filter"
	case KindTranslucent:
		return "translucent"
	case KindColorized:
		return "colorize"
	default:
		return "unknown"
	}
}

// Raster is a symbolic raster: where it lies in the base world and how it
// was built, without any pixel data.
type Raster struct {
	kind     Kind
	coordSys transfo.Model
	shape    *Shape
	bits     int
	opaque   bool

	// file rasters
	url         string
	path        string
	page        int
	width       int
	height      int
	layers      []Layer
	annotations *bool
	georef      *GeoreferenceContext
	histogram   *Histogram

	// derived rasters
	sources     []*Raster
	detail      string
	onDemand    []*OnDemandSource
	worldScript string

	released bool
}

func (r *Raster) Kind() Kind {
	return r.kind
}

// CoordSys maps raster coordinates onto the base world.
func (r *Raster) CoordSys() transfo.Model {
	return r.coordSys
}

// EffectiveShape is the area of the base world covered by the raster.
func (r *Raster) EffectiveShape() *Shape {
	return r.shape
}

func (r *Raster) Extent() Extent {
	return r.shape.Extent()
}

// PixelBits is the number of bits per pixel of the raster's pixel type.
func (r *Raster) PixelBits() int {
	return r.bits
}

func (r *Raster) IsOpaque() bool {
	return r.opaque
}

// URL and Page identify the source of a file raster.
func (r *Raster) URL() string {
	return r.url
}

func (r *Raster) Page() int {
	return r.page
}

func (r *Raster) Sources() []*Raster {
	return r.sources
}

// OnDemandSources lists the deferred sources of an on-demand mosaic.
func (r *Raster) OnDemandSources() []*OnDemandSource {
	return r.onDemand
}

// WorldScript is the script fragment rebuilding the worlds an on-demand
// mosaic's sources refer to.
func (r *Raster) WorldScript() string {
	return r.worldScript
}

func (r *Raster) Released() bool {
	return r.released
}

// URLs returns the URLs of every file the raster is built from, sorted.
func (r *Raster) URLs() []string {
	seen := map[string]bool{}
	var walk func(*Raster)
	walk = func(r *Raster) {
		if r.kind == KindFile {
			seen[r.url] = true
		}
		for _, s := range r.sources {
			walk(s)
		}
	}
	walk(r)

	urls := make([]string, 0, len(seen))
	for u := range seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Describe returns a canonical description of how the raster was built.
// Two rasters with the same description cover the same area with the same
// pixels.
func (r *Raster) Describe() string {
	switch r.kind {
	case KindFile:
		parts := []string{
			fmt.Sprintf("%q", r.url),
			fmt.Sprintf("page %d", r.page),
			fmt.Sprintf("%dx%d", r.width, r.height),
			fmt.Sprintf("%d bits", r.bits),
			r.coordSys.String(),
		}
		for _, l := range r.layers {
			parts = append(parts, fmt.Sprintf("layer %s=%s", l.ID, onOff(l.Visible)))
		}
		if r.annotations != nil {
			parts = append(parts, "annotations="+onOff(*r.annotations))
		}
		if r.georef != nil {
			parts = append(parts, r.georef.String())
		}
		return fmt.Sprintf("%s(%s)", r.kind, strings.Join(parts, ", "))
	case KindOnDemandMosaic:
		parts := make([]string, len(r.onDemand))
		for i, s := range r.onDemand {
			parts[i] = s.String()
		}
		return fmt.Sprintf("%s(%s, [%s])", r.kind, r.coordSys, strings.Join(parts, "; "))
	case KindMosaic:
		parts := make([]string, len(r.sources))
		for i, s := range r.sources {
			parts[i] = s.Describe()
		}
		return fmt.Sprintf("%s(%s, [%s])", r.kind, r.coordSys, strings.Join(parts, "; "))
	default:
		return fmt.Sprintf("%s(%s, %s)", r.kind, r.detail, r.sources[0].Describe())
	}
}

func (r *Raster) String() string {
	return fmt.Sprintf("%s raster %s", r.kind, r.Extent())
}

// derive returns a raster built on top of src that inherits its placement.
func derive(kind Kind, src *Raster, detail string) *Raster {
	return &Raster{
		kind:     kind,
		coordSys: src.coordSys,
		shape:    src.shape,
		bits:     src.bits,
		opaque:   src.opaque,
		sources:  []*Raster{src},
		detail:   detail,
	}
}

// Translucency describes the alpha composition of a translucent raster:
// either a palette, or alpha ranges over a default opacity.
type Translucency struct {
	Ranges  []*AlphaRange
	Palette *AlphaPalette
	// Opacity is a percentage, negative when not given
	Opacity float64
}

func (t Translucency) String() string {
	if t.Palette != nil {
		return t.Palette.String()
	}

	alpha := 255
	if t.Opacity >= 0 {
		alpha = int(uint8(t.Opacity * 255 / 100))
	}
	parts := []string{fmt.Sprintf("default %d", alpha)}
	for _, r := range t.Ranges {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}

func colorString(c color.RGBA) string {
	return fmt.Sprintf("%d %d %d", c.R, c.G, c.B)
}

// OnDemandSource is one deferred member of an on-demand mosaic: the script
// fragment that rebuilds it, and what is known about it without loading.
type OnDemandSource struct {
	Script string
	Shape  *Shape
	Opaque bool

	// URL of the document the fragment was extracted from, used to
	// resolve relative paths when the fragment is evaluated
	URL     string
	WorldID int

	DataChangesWithResolution bool
	UnlimitedSource           bool

	// Load evaluates the fragment. It may be called any number of times.
	Load func() (*Raster, error)
}

func (s *OnDemandSource) String() string {
	return fmt.Sprintf("%s %q", s.Shape.Extent(), s.Script)
}

// SourceTraits classifies the files behind a deferred source: rasters from
// map servers change with resolution, and some formats have no fixed
// resolution at all.
func SourceTraits(urls []string) (dataChangesWithResolution, unlimited bool) {
	for _, u := range urls {
		lower := strings.ToLower(u)
		switch {
		case strings.HasPrefix(lower, "wms:") || strings.HasPrefix(lower, "wms://") ||
			strings.Contains(lower, "service=wms"):
			dataChangesWithResolution = true
			unlimited = true
		case strings.HasSuffix(lower, ".pdf"):
			unlimited = true
		case strings.Contains(lower, "virtualearth") || strings.Contains(lower, "mapbox"):
			dataChangesWithResolution = true
		}
	}
	return
}

// Package raster is a reference raster engine. It builds symbolic rasters,
// shapes, filters and alpha compositions whose placement in the base world
// is computed exactly, so that scripts can be evaluated and compared without
// any pixel processing.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"strings"

	// decoders available to OpenImage
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/superloach/pss/pkg/transfo"
)

// FileInfo describes a raster file known to the engine without decoding.
type FileInfo struct {
	Width, Height int
	// Pages defaults to 1
	Pages int
	// World is the identifier of the coordinate world the file's
	// georeference is expressed in
	World int
	// PixelBits defaults to 24
	PixelBits int

	Layers      []string
	Annotations bool
	Histogram   *Histogram
}

// File is an opened raster file, not yet loaded.
type File struct {
	url    string
	path   string
	info   FileInfo
	georef *GeoreferenceContext
}

func (f *File) URL() string {
	return f.url
}

func (f *File) Pages() int {
	return f.info.Pages
}

func (f *File) World() int {
	return f.info.World
}

// Engine opens raster files and assembles symbolic rasters. Files are
// looked up in the in-memory registry first, then decoded from disk.
type Engine struct {
	files    map[string]FileInfo
	loaded   int
	released int
}

func NewEngine() *Engine {
	return &Engine{
		files: map[string]FileInfo{},
	}
}

// AddFile registers an in-memory raster file under url.
func (e *Engine) AddFile(url string, info FileInfo) {
	if info.Pages == 0 {
		info.Pages = 1
	}
	if info.PixelBits == 0 {
		info.PixelBits = 24
	}
	e.files[url] = info
}

// Loaded returns the number of rasters loaded from files so far.
func (e *Engine) Loaded() int {
	return e.loaded
}

// Released returns the number of rasters released so far.
func (e *Engine) Released() int {
	return e.released
}

// OpenImage opens the raster file at url.
func (e *Engine) OpenImage(url string, geo *GeoreferenceContext) (*File, error) {
	if info, ok := e.files[url]; ok {
		return &File{url: url, info: info, georef: geo}, nil
	}

	filePath := strings.TrimPrefix(url, "file://")
	if strings.Contains(filePath, "://") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
	}

	info, err := decodeInfo(filePath)
	if err != nil {
		return nil, err
	}
	return &File{url: url, path: filePath, info: info, georef: geo}, nil
}

func decodeInfo(filePath string) (FileInfo, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}
	defer file.Close()

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		return FileInfo{}, fmt.Errorf("%w: %s: %s", ErrNoImage, filePath, err.Error())
	}

	info := FileInfo{
		Width:     config.Width,
		Height:    config.Height,
		Pages:     1,
		PixelBits: pixelBits(config.ColorModel),
	}

	if format == "gif" {
		if _, err := file.Seek(0, 0); err != nil {
			return FileInfo{}, err
		}
		g, err := gif.DecodeAll(file)
		if err != nil {
			return FileInfo{}, fmt.Errorf("%w: %s: %s", ErrNoImage, filePath, err.Error())
		}
		info.Pages = len(g.Image)
	}

	return info, nil
}

func pixelBits(model color.Model) int {
	if palette, ok := model.(color.Palette); ok {
		if len(palette) <= 2 {
			return 1
		}
		return 8
	}

	switch model {
	case color.GrayModel, color.AlphaModel:
		return 8
	case color.Gray16Model, color.Alpha16Model:
		return 16
	case color.RGBAModel, color.NRGBAModel:
		return 32
	case color.RGBA64Model, color.NRGBA64Model:
		return 64
	default:
		return 24
	}
}

// LoadRaster loads one page of an opened file. The raster's coordinates are
// those of the file's world, whose relation to the base world is coordSys.
func (e *Engine) LoadRaster(f *File, page int, coordSys transfo.Model, ctx *Context) (*Raster, error) {
	if page < 0 || page >= f.info.Pages {
		return nil, ErrPageNotFound
	}

	shape, err := Rectangle(0, 0, float64(f.info.Width), float64(f.info.Height), coordSys)
	if err != nil {
		return nil, err
	}

	r := &Raster{
		kind:      KindFile,
		coordSys:  coordSys.Clone(),
		shape:     shape,
		bits:      f.info.PixelBits,
		opaque:    true,
		url:       f.url,
		page:      page,
		width:     f.info.Width,
		height:    f.info.Height,
		georef:    f.georef,
		histogram: f.info.Histogram,
	}

	for _, id := range f.info.Layers {
		layer := Layer{ID: id, Visible: true}
		if ctx != nil {
			if l, ok := ctx.Layer(id); ok {
				layer.Visible = l.Visible
			}
		}
		r.layers = append(r.layers, layer)
	}
	if ctx != nil && f.info.Annotations {
		if on, ok := ctx.AnnotationRasterization(); ok {
			r.annotations = &on
		}
	}
	if r.histogram == nil {
		r.path = f.path
	}

	e.loaded++
	return r, nil
}

// BuildMosaic stacks rasters in a mosaic whose coordinates are those of the
// world related to the base world by coordSys.
func (e *Engine) BuildMosaic(coordSys transfo.Model, rasters []*Raster) (*Raster, error) {
	if len(rasters) == 0 {
		return nil, fmt.Errorf("empty mosaic")
	}

	m := &Raster{
		kind:     KindMosaic,
		coordSys: coordSys.Clone(),
		shape:    rasters[0].shape,
		bits:     rasters[0].bits,
		opaque:   true,
		sources:  rasters,
	}
	for i, r := range rasters {
		if i > 0 {
			m.shape = m.shape.Union(r.shape)
		}
		if r.bits > m.bits {
			m.bits = r.bits
		}
		m.opaque = m.opaque && r.opaque
	}
	return m, nil
}

// BuildOnDemandMosaic assembles a mosaic whose members are loaded only when
// needed, from their script fragments.
func (e *Engine) BuildOnDemandMosaic(coordSys transfo.Model, sources []*OnDemandSource, worldScript string) (*Raster, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("empty on-demand mosaic")
	}

	m := &Raster{
		kind:        KindOnDemandMosaic,
		coordSys:    coordSys.Clone(),
		shape:       sources[0].Shape,
		bits:        32,
		opaque:      true,
		onDemand:    sources,
		worldScript: worldScript,
	}
	for i, s := range sources {
		if i > 0 {
			m.shape = m.shape.Union(s.Shape)
		}
		m.opaque = m.opaque && s.Opaque
	}
	return m, nil
}

// ApplyTransform returns r moved by model, where model is expressed in the
// world whose relation to the base world is world.
func (e *Engine) ApplyTransform(r *Raster, model transfo.Model, world transfo.Model) (*Raster, error) {
	toWorld := world.Clone()
	toWorld.Reverse()

	// raster -> world, then move, then back into the raster's coordinates
	srcToWorld := r.coordSys.ComposeInverseWithDirectOf(toWorld)
	moved := srcToWorld.ComposeInverseWithDirectOf(model)
	worldToSrc := srcToWorld.Clone()
	worldToSrc.Reverse()
	relation := moved.ComposeInverseWithDirectOf(worldToSrc)

	coordSys := relation.ComposeInverseWithDirectOf(r.coordSys)

	// a base point of r goes back to raster coordinates, then out through
	// the new coordinate system
	move := func(p Point) Point {
		x, y := r.coordSys.InverseTransform(p.X, p.Y)
		x, y = coordSys.Transform(x, y)
		return Point{x, y}
	}

	t := derive(KindTransformed, r, relation.String())
	t.coordSys = coordSys
	t.shape = r.shape.Map(move)
	return t, nil
}

// ApplyShape clips r to shape.
func (e *Engine) ApplyShape(r *Raster, shape *Shape) (*Raster, error) {
	s := derive(KindShaped, r, shape.String())
	s.shape = r.shape.Intersect(shape)
	return s, nil
}

func (e *Engine) ApplyFilter(r *Raster, f *Filter) (*Raster, error) {
	return derive(KindFiltered, r, f.String()), nil
}

// ComposeAlpha makes r translucent. A palette only applies to indexed
// rasters.
func (e *Engine) ComposeAlpha(r *Raster, t Translucency) (*Raster, error) {
	if t.Palette != nil && r.bits > 8 {
		return nil, ErrAlphaPaletteNotAllowed
	}

	if t.Palette != nil {
		t.Palette = t.Palette.Clone()
	}
	a := derive(KindTranslucent, r, t.String())
	a.bits = 32
	a.opaque = false
	return a, nil
}

// Colorize replaces the two colours of a bilevel raster.
func (e *Engine) Colorize(r *Raster, level0, level1 color.RGBA) (*Raster, error) {
	if r.bits != 1 {
		return nil, fmt.Errorf("cannot colorize a %d bits raster", r.bits)
	}
	return derive(KindColorized, r, colorString(level0)+" / "+colorString(level1)), nil
}

// Histogram computes the luminance histogram of r. Precision is the
// percentage of pixels sampled, in [1, 100].
func (e *Engine) Histogram(r *Raster, precision int) (*Histogram, error) {
	switch r.kind {
	case KindFile:
		if r.histogram != nil {
			h := *r.histogram
			return &h, nil
		}
		if r.path != "" {
			return decodeHistogram(r.path, precision)
		}
		return uniformHistogram(r.width * r.height), nil
	case KindMosaic:
		var sum Histogram
		for _, s := range r.sources {
			h, err := e.Histogram(s, precision)
			if err != nil {
				return nil, err
			}
			for i := range sum {
				sum[i] += h[i]
			}
		}
		return &sum, nil
	case KindOnDemandMosaic:
		var sum Histogram
		for _, s := range r.onDemand {
			loaded, err := s.Load()
			if err != nil {
				return nil, err
			}
			h, err := e.Histogram(loaded, precision)
			if err != nil {
				return nil, err
			}
			for i := range sum {
				sum[i] += h[i]
			}
		}
		return &sum, nil
	default:
		return e.Histogram(r.sources[0], precision)
	}
}

func uniformHistogram(pixels int) *Histogram {
	var h Histogram
	for i := range h {
		h[i] = uint64(pixels / len(h))
		if i < pixels%len(h) {
			h[i]++
		}
	}
	return &h
}

func decodeHistogram(filePath string, precision int) (*Histogram, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, filePath)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrNoImage, filePath, err.Error())
	}

	step := 1
	if precision > 0 && precision < 100 {
		step = (100 + precision - 1) / precision
	}

	var h Histogram
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			h[gray.Y]++
		}
	}
	return &h, nil
}

// Release drops the engine resources held by r.
func (e *Engine) Release(r *Raster) {
	if r.released {
		return
	}
	r.released = true
	e.released++
}

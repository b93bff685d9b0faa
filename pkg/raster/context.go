package raster

import (
	"fmt"
	"strings"
)

// Layer is the visibility state of one named layer of a raster file.
type Layer struct {
	ID      string
	Visible bool
}

// Context carries metadata a script attaches to the rasters it opens:
// layer visibility and annotation icon rasterization.
type Context struct {
	layers      []Layer
	annotations *bool
}

func NewContext() *Context {
	return &Context{}
}

// SetLayers records the visibility of the given layers. A layer whose
// visibility is already recorded keeps it.
func (c *Context) SetLayers(visible bool, ids ...string) {
	for _, id := range ids {
		if _, ok := c.Layer(id); ok {
			continue
		}
		c.layers = append(c.layers, Layer{ID: id, Visible: visible})
	}
}

// Layer returns the recorded visibility of a layer.
func (c *Context) Layer(id string) (Layer, bool) {
	for _, l := range c.layers {
		if l.ID == id {
			return l, true
		}
	}
	return Layer{}, false
}

func (c *Context) Layers() []Layer {
	return c.layers
}

// SetAnnotationRasterization may be called once per context.
func (c *Context) SetAnnotationRasterization(on bool) error {
	if c.annotations != nil {
		return ErrAnnotationAlreadySet
	}
	c.annotations = &on
	return nil
}

// AnnotationRasterization returns the recorded setting, if any.
func (c *Context) AnnotationRasterization() (on bool, set bool) {
	if c.annotations == nil {
		return false, false
	}
	return *c.annotations, true
}

func (c *Context) String() string {
	parts := make([]string, 0, len(c.layers)+1)
	for _, l := range c.layers {
		parts = append(parts, fmt.Sprintf("%s=%s", l.ID, onOff(l.Visible)))
	}
	if on, ok := c.AnnotationRasterization(); ok {
		parts = append(parts, "annotations="+onOff(on))
	}
	return "context(" + strings.Join(parts, ", ") + ")"
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// GeoreferenceContext controls how a raster file's georeference is read.
type GeoreferenceContext struct {
	RatioToMeter              float64
	SisterFileRatioToMeter    float64
	UseSisterFile             bool
	UsePCSLinearUnit          bool
	InterpretAsIntergraphUnit bool
}

func (g *GeoreferenceContext) String() string {
	return fmt.Sprintf("georef(%s, %s, sister=%s, pcs=%s, intergraph=%s)",
		fToS(g.RatioToMeter), fToS(g.SisterFileRatioToMeter),
		onOff(g.UseSisterFile), onOff(g.UsePCSLinearUnit), onOff(g.InterpretAsIntergraphUnit))
}

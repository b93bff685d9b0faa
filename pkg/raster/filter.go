package raster

import (
	"fmt"
	"strings"
)

// FilterKind identifies the pixel operation a Filter stands for.
type FilterKind int

const (
	FilterContrast FilterKind = iota
	FilterBrightness
	FilterConvolution
	FilterHistogramScaling
	FilterTint
	FilterInvert
	FilterGamma
)

func (k FilterKind) String() string {
	switch k {
	case FilterContrast:
		return "contrast"
	case FilterBrightness:
		return "brightness"
	case FilterConvolution:
		return "convolution"
	case FilterHistogramScaling:
		return "histogram scaling"
	case FilterTint:
		return "tint"
	case FilterInvert:
		return "invert"
	case FilterGamma:
		return "gamma"
	default:
		return "unknown"
	}
}

// Filter is a symbolic pixel filter: its kind plus the engine-level
// parameters derived from the script-level ones.
type Filter struct {
	kind   FilterKind
	params []float64
	matrix []int32
}

func (f *Filter) Kind() FilterKind {
	return f.kind
}

func (f *Filter) Params() []float64 {
	return f.params
}

func (f *Filter) String() string {
	params := make([]string, len(f.params))
	for i, p := range f.params {
		params[i] = fToS(p)
	}
	if len(f.matrix) > 0 {
		cells := make([]string, len(f.matrix))
		for i, c := range f.matrix {
			cells[i] = fmt.Sprint(c)
		}
		params = append(params, "["+strings.Join(cells, " ")+"]")
	}
	return fmt.Sprintf("%s(%s)", f.kind, strings.Join(params, ", "))
}

// NewContrastFilter maps a level in [-100, 100] onto the signed byte the
// contrast operation uses.
func NewContrastFilter(level float64) *Filter {
	var param int16
	if level < 0 {
		param = int16(level * 128 / 100)
	} else {
		param = int16(level * 127 / 100)
	}
	return &Filter{kind: FilterContrast, params: []float64{float64(int8(param))}}
}

// NewBrightnessFilter maps a level in [-100, 100] onto a colour balance
// offset.
func NewBrightnessFilter(level float64) *Filter {
	return &Filter{kind: FilterBrightness, params: []float64{float64(int32(level * 256 / 100))}}
}

// NewConvolutionFilter returns a width by height convolution whose centre
// cell is at (centerX, centerY). Missing matrix cells are zero.
func NewConvolutionFilter(width, height, centerX, centerY int, matrix []int32) *Filter {
	cells := make([]int32, width*height)
	copy(cells, matrix)
	return &Filter{
		kind:   FilterConvolution,
		params: []float64{float64(width), float64(height), float64(centerX), float64(centerY)},
		matrix: cells,
	}
}

// NewConvolution3Filter returns the symmetric 3x3 convolution with corner
// factor a, edge factor b and centre factor c.
func NewConvolution3Filter(a, b, c int32) *Filter {
	return NewConvolutionFilter(3, 3, 1, 1, []int32{
		a, b, a,
		b, c, b,
		a, b, a,
	})
}

// NewHistogramScalingFilter stretches the [min, max] interval of every
// channel over the full range.
func NewHistogramScalingFilter(min, max int) *Filter {
	return &Filter{kind: FilterHistogramScaling, params: []float64{float64(min), float64(max)}}
}

// NewContrastStretchFilter stretches between two cut-off percentages.
func NewContrastStretchFilter(left, right int) *Filter {
	return NewHistogramScalingFilter(left*255/100, right*255/100)
}

// NewAutoContrastStretchFilter derives a histogram scaling that drops
// cutOff percent of the pixels, half at each end of the histogram.
func NewAutoContrastStretchFilter(h *Histogram, cutOff int) *Filter {
	var total uint64
	for _, c := range h {
		total += c
	}
	remove := float64(total) * float64(cutOff) / 200

	min := 0
	var count uint64
	for float64(count) < remove && min < len(h) {
		count += h[min]
		min++
	}
	if float64(count) > remove {
		min--
	}

	max := len(h) - 1
	count = 0
	for float64(count) < remove && max >= 0 {
		count += h[max]
		max--
	}
	if float64(count) > remove {
		max++
	}

	if min > 255 {
		min = 255
	}
	if max < 0 {
		max = 0
	}
	return NewHistogramScalingFilter(min, max)
}

// NewTintFilter returns a tint toward the given colour. Without a colour
// the tint is black.
func NewTintFilter(r, g, b uint8) *Filter {
	return &Filter{kind: FilterTint, params: []float64{float64(r), float64(g), float64(b)}}
}

func NewInvertFilter() *Filter {
	return &Filter{kind: FilterInvert}
}

func NewGammaFilter(level float64) *Filter {
	return &Filter{kind: FilterGamma, params: []float64{level}}
}

// Histogram counts pixels per luminance level.
type Histogram [256]uint64

// ColorSet is a region of a colour space, used to select the pixels an
// alpha range applies to.
type ColorSet interface {
	String() string
	colorSet()
}

// RGBCube selects colours by bounds on each RGB channel.
type RGBCube struct {
	RMin, RMax uint8
	GMin, GMax uint8
	BMin, BMax uint8
}

func (RGBCube) colorSet() {}

func (c RGBCube) String() string {
	return fmt.Sprintf("rgb(%d-%d, %d-%d, %d-%d)", c.RMin, c.RMax, c.GMin, c.GMax, c.BMin, c.BMax)
}

// Bounds of the LUV colour space.
const (
	LMin = 0
	LMax = 100
	UMin = -134
	UMax = 220
	VMin = -140
	VMax = 122
)

// LUVCube selects colours by bounds on each CIE LUV component.
type LUVCube struct {
	LMin, LMax float64
	UMin, UMax float64
	VMin, VMax float64
}

func (LUVCube) colorSet() {}

func (c LUVCube) String() string {
	return fmt.Sprintf("luv(%s-%s, %s-%s, %s-%s)",
		fToS(c.LMin), fToS(c.LMax), fToS(c.UMin), fToS(c.UMax), fToS(c.VMin), fToS(c.VMax))
}

// AlphaRange assigns an alpha level to every colour of a set.
type AlphaRange struct {
	Colors ColorSet
	Alpha  uint8
}

// NewAlphaRange converts an opacity percentage to an alpha level.
func NewAlphaRange(colors ColorSet, opacity float64) *AlphaRange {
	return &AlphaRange{Colors: colors, Alpha: uint8(opacity * 255 / 100)}
}

func (a *AlphaRange) String() string {
	return fmt.Sprintf("alpha(%s, %d)", a.Colors, a.Alpha)
}

// AlphaPalette assigns alpha levels to palette indices. Untouched entries
// stay fully opaque.
type AlphaPalette struct {
	levels [256]uint8
	level  uint8
}

// NewAlphaPalette returns a palette whose added entries get the alpha level
// of the given opacity percentage.
func NewAlphaPalette(opacity float64) *AlphaPalette {
	p := &AlphaPalette{level: uint8(opacity * 255 / 100)}
	for i := range p.levels {
		p.levels[i] = 255
	}
	return p
}

func (p *AlphaPalette) AddEntry(index uint8) {
	p.levels[index] = p.level
}

// AddRange sets every entry of the inclusive range.
func (p *AlphaPalette) AddRange(first, last uint8) {
	for i := int(first); i <= int(last); i++ {
		p.levels[i] = p.level
	}
}

// Merge copies the entries of o that are still opaque in p.
func (p *AlphaPalette) Merge(o *AlphaPalette) {
	for i := range p.levels {
		if p.levels[i] == 255 {
			p.levels[i] = o.levels[i]
		}
	}
}

func (p *AlphaPalette) Entries() [256]uint8 {
	return p.levels
}

// Clone returns an independent copy of the palette.
func (p *AlphaPalette) Clone() *AlphaPalette {
	c := *p
	return &c
}

func (p *AlphaPalette) String() string {
	var runs []string
	for i := 0; i < len(p.levels); {
		j := i
		for j+1 < len(p.levels) && p.levels[j+1] == p.levels[i] {
			j++
		}
		if p.levels[i] != 255 {
			runs = append(runs, fmt.Sprintf("%d-%d:%d", i, j, p.levels[i]))
		}
		i = j + 1
	}
	return "palette(" + strings.Join(runs, " ") + ")"
}

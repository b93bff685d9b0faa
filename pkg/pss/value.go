package pss

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/superloach/pss/pkg/raster"
	"github.com/superloach/pss/pkg/transfo"
)

// ValueKind tells which field of a Value is meaningful.
type ValueKind int

const (
	UnsetValue ValueKind = iota
	NumberValue
	TextValue
	ObjectValue
)

// Value is the result of calculating a node.
type Value struct {
	kind   ValueKind
	num    float64
	text   string
	handle *Handle
}

// Handle holds an object and records which node owns it. Values copied
// from node to node share the handle; only the owner may release it.
type Handle struct {
	object   Object
	owner    NodeID
	released bool
}

func numberValue(n float64) Value {
	return Value{kind: NumberValue, num: n}
}

func textValue(s string) Value {
	return Value{kind: TextValue, text: s}
}

// objectValue wraps a fresh object. Its handle gets an owner when the
// value is stored in the node that calculated it.
func objectValue(o Object) Value {
	return Value{kind: ObjectValue, handle: &Handle{object: o}}
}

func (v Value) Kind() ValueKind {
	return v.kind
}

func (v Value) Number() float64 {
	return v.num
}

func (v Value) Text() string {
	return v.text
}

// Object returns the object of an object value, or nil.
func (v Value) Object() Object {
	if v.handle == nil {
		return nil
	}
	return v.handle.object
}

// stale values refer to an object released since they were cached
func (v Value) stale() bool {
	return v.handle != nil && v.handle.released
}

func (v Value) String() string {
	switch v.kind {
	case NumberValue:
		return nToS(v.num)
	case TextValue:
		return strconv.Quote(v.text)
	case ObjectValue:
		if v.handle.released {
			return "(released " + v.handle.object.kind() + ")"
		}
		return v.handle.object.String()
	default:
		return "(unset)"
	}
}

// Object is implemented by every kind of value a script can build.
// The set is closed: consumers switch over the concrete types.
type Object interface {
	String() string
	kind() string
}

type RasterObject struct {
	*raster.Raster
}

type ShapeObject struct {
	*raster.Shape
}

type TransfoObject struct {
	transfo.Model
}

type FilterObject struct {
	*raster.Filter
}

type ColorSetObject struct {
	raster.ColorSet
}

// ImageContextObject is an image context together with the nodes that
// modified it, which are part of the description of any image using it.
type ImageContextObject struct {
	*raster.Context
	modifiers []NodeID
}

type GeorefContextObject struct {
	*raster.GeoreferenceContext
}

type AlphaRangeObject struct {
	*raster.AlphaRange
}

type AlphaPaletteObject struct {
	*raster.AlphaPalette
}

func (RasterObject) kind() string { return "image" }
func (ShapeObject) kind() string { return "shape" }
func (TransfoObject) kind() string { return "transformation" }
func (FilterObject) kind() string { return "filter" }
func (ColorSetObject) kind() string { return "color set" }
func (*ImageContextObject) kind() string { return "image context" }
func (GeorefContextObject) kind() string { return "georeference context" }
func (AlphaRangeObject) kind() string { return "alpha range" }
func (AlphaPaletteObject) kind() string { return "alpha palette" }

// Utility func to get a consistent string representation of numbers
func nToS(f float64) string {
	if i := int64(f); f == float64(i) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(i, 10)
	}

	return strconv.FormatFloat(f, 'f', -1, 64)
}

func joinInts(ns []int, sep string) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, sep)
}

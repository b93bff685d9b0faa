package raster

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Errors reported by the reference engine. Callers match them with
// errors.Is; the interpreter turns them into positioned script errors.
var (
	ErrInvalidCoords          = errors.New("invalid rectangle coordinates")
	ErrInvalidPolygon         = errors.New("polygon is not closed or crosses itself")
	ErrFileNotFound           = errors.New("raster file not found")
	ErrPageNotFound           = errors.New("page not found in raster file")
	ErrNoImage                = errors.New("no image in raster file")
	ErrUnsupportedURL         = errors.New("unsupported url scheme")
	ErrAlphaPaletteNotAllowed = errors.New("alpha palette requires an indexed raster")
	ErrAnnotationAlreadySet   = errors.New("annotation icon rasterization already set on context")
)

// Point is a position in some coordinate world.
type Point struct {
	X, Y float64
}

func (p Point) String() string {
	return fToS(p.X) + " " + fToS(p.Y)
}

// Extent is an axis aligned bounding box. The zero Extent is undefined.
type Extent struct {
	MinX, MinY float64
	MaxX, MaxY float64
	defined    bool
}

// NewExtent returns the extent spanning both corners.
func NewExtent(x1, y1, x2, y2 float64) Extent {
	return Extent{
		MinX:    math.Min(x1, x2),
		MinY:    math.Min(y1, y2),
		MaxX:    math.Max(x1, x2),
		MaxY:    math.Max(y1, y2),
		defined: true,
	}
}

func extentOf(points []Point) Extent {
	var e Extent
	for _, p := range points {
		e = e.Add(p)
	}
	return e
}

// IsDefined reports whether the extent covers a non-empty area.
func (e Extent) IsDefined() bool {
	return e.defined && e.MaxX > e.MinX && e.MaxY > e.MinY
}

// Add grows the extent to include p.
func (e Extent) Add(p Point) Extent {
	if !e.defined {
		return Extent{p.X, p.Y, p.X, p.Y, true}
	}
	return Extent{
		MinX:    math.Min(e.MinX, p.X),
		MinY:    math.Min(e.MinY, p.Y),
		MaxX:    math.Max(e.MaxX, p.X),
		MaxY:    math.Max(e.MaxY, p.Y),
		defined: true,
	}
}

// Union returns the smallest extent covering both.
func (e Extent) Union(o Extent) Extent {
	if !o.defined {
		return e
	}
	if !e.defined {
		return o
	}
	return e.Add(Point{o.MinX, o.MinY}).Add(Point{o.MaxX, o.MaxY})
}

// Intersect returns the overlap of both extents, undefined when disjoint.
func (e Extent) Intersect(o Extent) Extent {
	if !e.defined || !o.defined {
		return Extent{}
	}
	r := Extent{
		MinX:    math.Max(e.MinX, o.MinX),
		MinY:    math.Max(e.MinY, o.MinY),
		MaxX:    math.Min(e.MaxX, o.MaxX),
		MaxY:    math.Min(e.MaxY, o.MaxY),
		defined: true,
	}
	if r.MinX > r.MaxX || r.MinY > r.MaxY {
		return Extent{}
	}
	return r
}

func (e Extent) String() string {
	if !e.defined {
		return "undefined"
	}
	return fmt.Sprintf("(%s, %s)-(%s, %s)",
		fToS(e.MinX), fToS(e.MinY), fToS(e.MaxX), fToS(e.MaxY))
}

// Utility func to get a stable representation of coordinates, rounded
// so that trigonometric noise does not leak into descriptions
func fToS(f float64) string {
	f = math.Round(f*1e6) / 1e6
	if f == 0 {
		return "0"
	}
	if i := int64(f); f == float64(i) {
		return strconv.FormatInt(i, 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// orientation of the triplet: 0 collinear, 1 clockwise, 2 counter-clockwise
func orientation(p, q, r Point) int {
	v := (q.Y-p.Y)*(r.X-q.X) - (q.X-p.X)*(r.Y-q.Y)
	if v == 0 {
		return 0
	} else if v > 0 {
		return 1
	}
	return 2
}

func onSegment(p, q, r Point) bool {
	return q.X <= math.Max(p.X, r.X) && q.X >= math.Min(p.X, r.X) &&
		q.Y <= math.Max(p.Y, r.Y) && q.Y >= math.Min(p.Y, r.Y)
}

func segmentsIntersect(p1, q1, p2, q2 Point) bool {
	o1 := orientation(p1, q1, p2)
	o2 := orientation(p1, q1, q2)
	o3 := orientation(p2, q2, p1)
	o4 := orientation(p2, q2, q1)

	if o1 != o2 && o3 != o4 {
		return true
	}

	return (o1 == 0 && onSegment(p1, p2, q1)) ||
		(o2 == 0 && onSegment(p1, q2, q1)) ||
		(o3 == 0 && onSegment(p2, p1, q2)) ||
		(o4 == 0 && onSegment(p2, q1, q2))
}

package raster

import (
	"fmt"
	"strings"

	"github.com/superloach/pss/pkg/transfo"
)

// ShapeOp is the node kind of a shape tree.
type ShapeOp int

const (
	OpPolygon ShapeOp = iota
	OpUnion
	OpIntersect
	OpSubtract
)

func (op ShapeOp) String() string {
	switch op {
	case OpPolygon:
		return "polygon"
	case OpUnion:
		return "union"
	case OpIntersect:
		return "intersect"
	case OpSubtract:
		return "subtract"
	default:
		return "unknown"
	}
}

// Shape is an area of the base world. Leaves are closed polygons, inner
// nodes are boolean operations. Only bounding extents are computed: the
// area algebra itself is left symbolic.
type Shape struct {
	op     ShapeOp
	points []Point
	parts  []*Shape
	extent Extent
}

// Rectangle returns the rectangle (x1, y1)-(x2, y2) expressed in the world
// whose relation to the base world is toBase.
func Rectangle(x1, y1, x2, y2 float64, toBase transfo.Model) (*Shape, error) {
	if x1 > x2 || y1 > y2 {
		return nil, ErrInvalidCoords
	}

	return newPolygon([]Point{
		{x1, y1},
		{x2, y1},
		{x2, y2},
		{x1, y2},
		{x1, y1},
	}, toBase), nil
}

// Polygon returns the polygon through points, expressed in the world whose
// relation to the base world is toBase. The point list must be closed, and
// the outline may neither cross nor fold back onto itself.
func Polygon(points []Point, toBase transfo.Model) (*Shape, error) {
	if err := validatePolygon(points); err != nil {
		return nil, err
	}
	return newPolygon(points, toBase), nil
}

func newPolygon(points []Point, toBase transfo.Model) *Shape {
	base := make([]Point, len(points))
	for i, p := range points {
		if toBase != nil {
			p.X, p.Y = toBase.Transform(p.X, p.Y)
		}
		base[i] = p
	}
	return &Shape{
		op:     OpPolygon,
		points: base,
		extent: extentOf(base),
	}
}

func validatePolygon(points []Point) error {
	n := len(points)
	if n < 4 || points[0] != points[n-1] {
		return ErrInvalidPolygon
	}

	distinct := map[Point]bool{}
	for i := 0; i < n-1; i++ {
		if points[i] == points[i+1] {
			return ErrInvalidPolygon
		}
		distinct[points[i]] = true
	}
	if len(distinct) < 3 {
		return ErrInvalidPolygon
	}

	segments := n - 1
	for i := 0; i < segments; i++ {
		for j := i + 1; j < segments; j++ {
			adjacent := j == i+1 || (i == 0 && j == segments-1)
			if adjacent {
				// neighbours share a vertex, but may not overlap
				if orientation(points[i], points[i+1], points[j+1]) == 0 &&
					orientation(points[i], points[i+1], points[j]) == 0 &&
					overlapsBack(points[i], points[i+1], points[j], points[j+1]) {
					return ErrInvalidPolygon
				}
				continue
			}
			if segmentsIntersect(points[i], points[i+1], points[j], points[j+1]) {
				return ErrInvalidPolygon
			}
		}
	}
	return nil
}

// overlapsBack reports whether two collinear segments sharing a vertex
// cover common ground beyond that vertex.
func overlapsBack(a1, a2, b1, b2 Point) bool {
	dot := func(p, q, r, s Point) float64 {
		return (q.X-p.X)*(s.X-r.X) + (q.Y-p.Y)*(s.Y-r.Y)
	}
	switch {
	case a2 == b1:
		return dot(a1, a2, b1, b2) < 0
	case b2 == a1:
		return dot(b1, b2, a1, a2) < 0
	default:
		return true
	}
}

func combine(op ShapeOp, a, b *Shape) *Shape {
	s := &Shape{op: op, parts: []*Shape{a, b}}
	switch op {
	case OpUnion:
		s.extent = a.extent.Union(b.extent)
	case OpIntersect:
		s.extent = a.extent.Intersect(b.extent)
	case OpSubtract:
		s.extent = a.extent
	}
	return s
}

// Union returns the area covered by either shape.
func (s *Shape) Union(o *Shape) *Shape {
	return combine(OpUnion, s, o)
}

// Intersect returns the area common to both shapes.
func (s *Shape) Intersect(o *Shape) *Shape {
	return combine(OpIntersect, s, o)
}

// Subtract returns s with o cut out of it.
func (s *Shape) Subtract(o *Shape) *Shape {
	return combine(OpSubtract, s, o)
}

// Op returns the kind of the shape's root node.
func (s *Shape) Op() ShapeOp {
	return s.op
}

// Points returns the outline of a polygon leaf in base coordinates.
func (s *Shape) Points() []Point {
	return s.points
}

// Extent returns the bounding extent of the shape in the base world.
func (s *Shape) Extent() Extent {
	return s.extent
}

// Map returns a copy of the shape with every vertex moved through f.
func (s *Shape) Map(f func(Point) Point) *Shape {
	if s.op == OpPolygon {
		points := make([]Point, len(s.points))
		for i, p := range s.points {
			points[i] = f(p)
		}
		return &Shape{op: OpPolygon, points: points, extent: extentOf(points)}
	}
	return combine(s.op, s.parts[0].Map(f), s.parts[1].Map(f))
}

func (s *Shape) String() string {
	if s.op == OpPolygon {
		points := make([]string, len(s.points))
		for i, p := range s.points {
			points[i] = p.String()
		}
		return fmt.Sprintf("polygon(%s)", strings.Join(points, ", "))
	}
	return fmt.Sprintf("%s(%s, %s)", s.op, s.parts[0], s.parts[1])
}

package transfo

import (
	"fmt"
	"strings"
)

// Extent is an axis aligned rectangle in the direct space of a grid.
type Extent struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

func (e Extent) contains(x, y float64) bool {
	return x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

// GridModel is a local projective grid: the extent is divided in
// tilesX by tilesY tiles, each carrying its own projective model, and
// points outside the extent fall back to the global affine model.
type GridModel struct {
	extent   Extent
	tilesX   int
	tilesY   int
	global   *MatrixModel
	tiles    []Model
	reversed bool
}

// NewLocalProjectiveGrid validates and assembles a local projective grid.
// The tile list is row-major, starting at the (MinX, MinY) corner.
func NewLocalProjectiveGrid(
	extent Extent,
	tilesX, tilesY int,
	global Model,
	tiles []Model,
) (*GridModel, error) {
	if tilesX <= 0 || tilesY <= 0 {
		return nil, ErrDegenerate
	}
	if extent.MinX >= extent.MaxX || extent.MinY >= extent.MaxY {
		return nil, ErrDegenerate
	}
	if global == nil || !IsAffineCompatible(global) {
		return nil, ErrDegenerate
	}
	if len(tiles) != tilesX*tilesY {
		return nil, ErrDegenerate
	}

	owned := make([]Model, len(tiles))
	for i, t := range tiles {
		if t == nil {
			return nil, ErrDegenerate
		}
		owned[i] = t.Clone()
	}

	return &GridModel{
		extent: extent,
		tilesX: tilesX,
		tilesY: tilesY,
		global: global.Clone().(*MatrixModel),
		tiles:  owned,
	}, nil
}

func (g *GridModel) Kind() Kind {
	return LocalProjectiveGrid
}

func (g *GridModel) String() string {
	tiles := make([]string, len(g.tiles))
	for i, t := range g.tiles {
		tiles[i] = t.String()
	}
	dir := ""
	if g.reversed {
		dir = "reversed, "
	}
	return fmt.Sprintf("%s(%s%s, %dx%d, %s, [%s])",
		LocalProjectiveGrid,
		dir,
		joinFloats(g.extent.MinX, g.extent.MinY, g.extent.MaxX, g.extent.MaxY),
		g.tilesX, g.tilesY,
		g.global,
		strings.Join(tiles, ", "))
}

// tileAt returns the tile model covering (x, y) in direct space, or the
// global model outside the grid extent.
func (g *GridModel) tileAt(x, y float64) Model {
	if !g.extent.contains(x, y) {
		return g.global
	}

	w := (g.extent.MaxX - g.extent.MinX) / float64(g.tilesX)
	h := (g.extent.MaxY - g.extent.MinY) / float64(g.tilesY)
	col := int((x - g.extent.MinX) / w)
	row := int((y - g.extent.MinY) / h)
	if col >= g.tilesX {
		col = g.tilesX - 1
	}
	if row >= g.tilesY {
		row = g.tilesY - 1
	}
	return g.tiles[row*g.tilesX+col]
}

func (g *GridModel) forward(x, y float64) (float64, float64) {
	return g.tileAt(x, y).Transform(x, y)
}

func (g *GridModel) backward(x, y float64) (float64, float64) {
	// locate the tile through the global approximation, then refine
	ax, ay := g.global.InverseTransform(x, y)
	return g.tileAt(ax, ay).InverseTransform(x, y)
}

func (g *GridModel) Transform(x, y float64) (float64, float64) {
	if g.reversed {
		return g.backward(x, y)
	}
	return g.forward(x, y)
}

func (g *GridModel) InverseTransform(x, y float64) (float64, float64) {
	if g.reversed {
		return g.forward(x, y)
	}
	return g.backward(x, y)
}

func (g *GridModel) Clone() Model {
	tiles := make([]Model, len(g.tiles))
	for i, t := range g.tiles {
		tiles[i] = t.Clone()
	}
	return &GridModel{
		extent:   g.extent,
		tilesX:   g.tilesX,
		tilesY:   g.tilesY,
		global:   g.global.Clone().(*MatrixModel),
		tiles:    tiles,
		reversed: g.reversed,
	}
}

func (g *GridModel) Reverse() {
	g.reversed = !g.reversed
}

func (g *GridModel) ComposeInverseWithDirectOf(other Model) Model {
	if other.Kind() == Identity {
		return g.Clone()
	}
	return newComposed(g, other)
}

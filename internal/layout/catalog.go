package layout

import (
	"cmp"
	"math"
	"slices"
)

// BlockShape is a block footprint measured in grid cells.
type BlockShape struct {
	Cols int
	Rows int
}

// AspectRatio returns the shape's cols/rows ratio.
func (s BlockShape) AspectRatio() float64 {
	return float64(s.Cols) / float64(s.Rows)
}

var (
	shapeLarge    = BlockShape{Cols: 2, Rows: 2}
	shapeWide     = BlockShape{Cols: 2, Rows: 1}
	shapeTall     = BlockShape{Cols: 1, Rows: 2}
	shapeMinimal  = BlockShape{Cols: 1, Rows: 1}
	catalogShapes = []BlockShape{shapeLarge, shapeWide, shapeTall, shapeMinimal}
)

// Shapes returns a copy of the block catalog in declaration order.
func Shapes() []BlockShape {
	return slices.Clone(catalogShapes)
}

// RankShapes orders the catalog by ascending distance between each shape's
// aspect ratio and aspectRatio. Equal distances keep catalog order.
func RankShapes(aspectRatio float64) []BlockShape {
	ranked := slices.Clone(catalogShapes)
	slices.SortStableFunc(ranked, func(a, b BlockShape) int {
		return cmp.Compare(
			math.Abs(a.AspectRatio()-aspectRatio),
			math.Abs(b.AspectRatio()-aspectRatio),
		)
	})
	return ranked
}

package layout

// position is a 0-indexed grid cell.
type position struct {
	col int
	row int
}

// occupancyGrid tracks claimed cells over a fixed number of columns.
// Rows are appended on demand and never removed.
type occupancyGrid struct {
	columns int
	cells   [][]bool
}

func newOccupancyGrid(columns int) *occupancyGrid {
	return &occupancyGrid{columns: columns}
}

func (g *occupancyGrid) rowCount() int {
	return len(g.cells)
}

// grow appends empty rows until the grid has at least rows rows.
func (g *occupancyGrid) grow(rows int) {
	for len(g.cells) < rows {
		g.cells = append(g.cells, make([]bool, g.columns))
	}
}

// canFit reports whether the rectangle is inside the column bound and free.
// The grid is grown to cover the rectangle even when the check fails.
func (g *occupancyGrid) canFit(col, row, colSpan, rowSpan int) bool {
	if col+colSpan > g.columns {
		return false
	}
	g.grow(row + rowSpan)

	for r := row; r < row+rowSpan; r++ {
		for c := col; c < col+colSpan; c++ {
			if g.cells[r][c] {
				return false
			}
		}
	}
	return true
}

// occupy claims the rectangle. Callers must have checked canFit first.
func (g *occupancyGrid) occupy(col, row, colSpan, rowSpan int) {
	for r := row; r < row+rowSpan; r++ {
		for c := col; c < col+colSpan; c++ {
			g.cells[r][c] = true
		}
	}
}

// nextFreePosition returns the first unclaimed cell in row-major order, or the
// first cell of the row after the last one when every existing cell is taken.
func (g *occupancyGrid) nextFreePosition() position {
	for r, cells := range g.cells {
		for c, claimed := range cells {
			if !claimed {
				return position{col: c, row: r}
			}
		}
	}
	return position{col: 0, row: len(g.cells)}
}

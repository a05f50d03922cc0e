package layout

// Stats summarises how densely a layout fills its grid.
type Stats struct {
	Rows        int `json:"rows"`
	FilledCells int `json:"filledCells"`
	EmptyCells  int `json:"emptyCells"`
}

// Summarize measures placements on a grid of the given column count. Rows is
// the height of the tallest block's bottom edge; EmptyCells counts the gaps
// left inside that height.
func Summarize(placements []Placement, columns int) Stats {
	var stats Stats
	for _, p := range placements {
		stats.FilledCells += p.ColSpan * p.RowSpan
		if bottom := p.RowStart + p.RowSpan - 1; bottom > stats.Rows {
			stats.Rows = bottom
		}
	}
	stats.EmptyCells = stats.Rows*columns - stats.FilledCells
	return stats
}

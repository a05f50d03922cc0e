package layout

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sync"
)

const (
	// fallbackWindowRows is the number of rows scanned per fallback attempt.
	fallbackWindowRows = 3
	// fallbackAttemptsPerColumn bounds the fallback loop at columns*3 attempts.
	fallbackAttemptsPerColumn = 3
)

type greedyPacker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Packer created with New.
type Option func(*greedyPacker)

// WithSeed makes shuffled layouts reproducible for a given seed sequence.
func WithSeed(seed uint64) Option {
	return func(p *greedyPacker) {
		p.rng = rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
	}
}

// New creates a Packer that places images greedily, left to right and top to bottom.
func New(opts ...Option) Packer {
	p := &greedyPacker{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *greedyPacker) Pack(images []ImageItem, columns int, shuffle bool) ([]Placement, error) {
	if err := validate(images, columns); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return []Placement{}, nil
	}

	items := slices.Clone(images)
	if shuffle {
		p.shuffle(items)
	}

	grid := newOccupancyGrid(columns)
	placements := make([]Placement, 0, len(items))
	for _, item := range items {
		placements = append(placements, placeImage(grid, item))
	}
	return placements, nil
}

// shuffle permutes items uniformly (Fisher-Yates).
func (p *greedyPacker) shuffle(items []ImageItem) {
	swap := func(i, j int) { items[i], items[j] = items[j], items[i] }
	if p.rng == nil {
		rand.Shuffle(len(items), swap)
		return
	}
	p.mu.Lock()
	p.rng.Shuffle(len(items), swap)
	p.mu.Unlock()
}

// placeImage claims cells for item and returns its placement. It always succeeds.
func placeImage(grid *occupancyGrid, item ImageItem) Placement {
	ranked := RankShapes(item.AspectRatio())
	pos := grid.nextFreePosition()

	for _, shape := range ranked {
		if grid.canFit(pos.col, pos.row, shape.Cols, shape.Rows) {
			return claim(grid, item, pos, shape)
		}
	}

	maxAttempts := grid.columns * fallbackAttemptsPerColumn
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if at, shape, ok := searchWindow(grid, ranked, pos.row); ok {
			return claim(grid, item, at, shape)
		}
		pos = grid.nextFreePosition()
	}

	pos = grid.nextFreePosition()
	grid.grow(pos.row + 1)
	return claim(grid, item, pos, shapeMinimal)
}

// searchWindow scans a window of rows starting at startRow for the first
// ranked shape that fits, trying shapes in rank order and cells row-major.
func searchWindow(grid *occupancyGrid, ranked []BlockShape, startRow int) (position, BlockShape, bool) {
	for _, shape := range ranked {
		for row := startRow; row < startRow+fallbackWindowRows; row++ {
			for col := 0; col < grid.columns; col++ {
				if grid.canFit(col, row, shape.Cols, shape.Rows) {
					return position{col: col, row: row}, shape, true
				}
			}
		}
	}
	return position{}, BlockShape{}, false
}

func claim(grid *occupancyGrid, item ImageItem, pos position, shape BlockShape) Placement {
	grid.occupy(pos.col, pos.row, shape.Cols, shape.Rows)
	return Placement{
		ImageItem: item,
		ColStart:  pos.col + 1,
		RowStart:  pos.row + 1,
		ColSpan:   shape.Cols,
		RowSpan:   shape.Rows,
	}
}

func validate(images []ImageItem, columns int) error {
	if columns < 1 {
		return fmt.Errorf("%w: columns must be at least 1, got %d", ErrInvalidArgument, columns)
	}

	seen := make(map[string]struct{}, len(images))
	for idx, img := range images {
		if !isPositiveFinite(img.Width) || !isPositiveFinite(img.Height) {
			return fmt.Errorf("%w: image %d (%q) must have positive width and height, got %vx%v",
				ErrInvalidArgument, idx, img.ID, img.Width, img.Height)
		}
		if _, dup := seen[img.ID]; dup {
			return fmt.Errorf("%w: duplicate image id %q", ErrInvalidArgument, img.ID)
		}
		seen[img.ID] = struct{}{}
	}
	return nil
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

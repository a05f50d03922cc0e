package layout

// ImageItem is an image to be placed on the grid. Width and Height are the
// declared pixel dimensions and only their ratio matters to the packer.
type ImageItem struct {
	ID     string  `json:"id" yaml:"id" toml:"id"`
	Src    string  `json:"src" yaml:"src" toml:"src"`
	Width  float64 `json:"width" yaml:"width" toml:"width"`
	Height float64 `json:"height" yaml:"height" toml:"height"`
}

// AspectRatio returns width divided by height.
func (i ImageItem) AspectRatio() float64 {
	return i.Width / i.Height
}

// Placement is the grid position assigned to a single image.
// ColStart and RowStart are 1-indexed so they can be handed to a CSS grid as is.
type Placement struct {
	ImageItem
	ColStart int `json:"colStart"`
	RowStart int `json:"rowStart"`
	ColSpan  int `json:"colSpan"`
	RowSpan  int `json:"rowSpan"`
}

// Packer describes the behaviour required from a grid packer.
type Packer interface {
	Pack(images []ImageItem, columns int, shuffle bool) ([]Placement, error)
}

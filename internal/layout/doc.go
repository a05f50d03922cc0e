// Package layout packs images into a bento-style grid. Each image is assigned
// one of a fixed set of block shapes (2x2, 2x1, 1x2, 1x1) chosen by how closely
// the shape matches the image's aspect ratio, and placed at the first free
// cell in a single greedy pass over a column-bounded, row-growable grid.
package layout

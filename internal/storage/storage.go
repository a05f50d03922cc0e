package storage

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/eugenenazirov/bento-grid/internal/layout"
)

// MaxImages bounds the size of the stored catalog.
const MaxImages = 500

var (
	// ErrInvalidImages indicates the provided images violate validation rules.
	ErrInvalidImages = errors.New("images must contain between 1 and 500 entries with a source, positive dimensions and unique ids")
)

var defaultImages = []layout.ImageItem{
	{ID: "1", Src: "https://images.unsplash.com/photo-1682687220742-aba13b6e50ba", Width: 1200, Height: 800},
	{ID: "2", Src: "https://images.unsplash.com/photo-1682687221038-404cb8830901", Width: 800, Height: 1200},
	{ID: "3", Src: "https://images.unsplash.com/photo-1682687220063-4742bd7fd538", Width: 1000, Height: 1000},
	{ID: "4", Src: "https://images.unsplash.com/photo-1682687220923-c58b9a4592ae", Width: 1600, Height: 900},
	{ID: "5", Src: "https://images.unsplash.com/photo-1682687221080-5cb261c645cb", Width: 900, Height: 1600},
	{ID: "6", Src: "https://images.unsplash.com/photo-1682687220566-5599dbbebf11", Width: 1200, Height: 800},
	{ID: "7", Src: "https://images.unsplash.com/photo-1682695796954-bad0d0f59ff1", Width: 800, Height: 800},
	{ID: "8", Src: "https://images.unsplash.com/photo-1682687220198-88e9bdea9931", Width: 1400, Height: 1000},
	{ID: "9", Src: "https://images.unsplash.com/photo-1682687220795-796d3f6f7000", Width: 1000, Height: 1400},
	{ID: "10", Src: "https://images.unsplash.com/photo-1682687220801-eef408f95d71", Width: 1200, Height: 900},
	{ID: "11", Src: "https://images.unsplash.com/photo-1682687221175-fd40bbafe6cb", Width: 900, Height: 1200},
	{ID: "12", Src: "https://images.unsplash.com/photo-1682695794947-17061dc284dd", Width: 1100, Height: 800},
}

// Storage provides access to the image catalog laid out by the packer.
type Storage interface {
	GetImages() ([]layout.ImageItem, error)
	SetImages(images []layout.ImageItem) error
}

// MemoryStorage keeps the image catalog in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu     sync.RWMutex
	images []layout.ImageItem
}

// NewMemoryStorage initialises storage with a copy of the sample images.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		images: slices.Clone(defaultImages),
	}
}

// DefaultImages returns a copy of the sample image catalog.
func DefaultImages() []layout.ImageItem {
	return slices.Clone(defaultImages)
}

// GetImages returns a defensive copy of the current catalog.
func (s *MemoryStorage) GetImages() ([]layout.ImageItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.images), nil
}

// SetImages validates, normalises, and stores the provided images.
func (s *MemoryStorage) SetImages(images []layout.ImageItem) error {
	normalized, err := NormalizeImages(images)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.images = normalized
	s.mu.Unlock()

	return nil
}

// NormalizeImages trims identifiers and sources, assigns a UUID to images
// without an id, and rejects catalogs the packer cannot lay out.
func NormalizeImages(images []layout.ImageItem) ([]layout.ImageItem, error) {
	if len(images) == 0 || len(images) > MaxImages {
		return nil, ErrInvalidImages
	}

	out := make([]layout.ImageItem, 0, len(images))
	seen := make(map[string]struct{}, len(images))
	for idx, img := range images {
		img.ID = strings.TrimSpace(img.ID)
		img.Src = strings.TrimSpace(img.Src)
		if img.ID == "" {
			img.ID = uuid.NewString()
		}
		if img.Src == "" {
			return nil, fmt.Errorf("%w: image %d has no source", ErrInvalidImages, idx)
		}
		if !validDimension(img.Width) || !validDimension(img.Height) {
			return nil, fmt.Errorf("%w: image %q has invalid dimensions %vx%v", ErrInvalidImages, img.ID, img.Width, img.Height)
		}
		if _, dup := seen[img.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidImages, img.ID)
		}
		seen[img.ID] = struct{}{}
		out = append(out, img)
	}
	return out, nil
}

func validDimension(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

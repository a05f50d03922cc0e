package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/bento-grid/internal/layout"
	"github.com/eugenenazirov/bento-grid/internal/storage"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	defaultColumns    = 6
	defaultMaxColumns = 24
)

// Handler wires the packer and image storage into HTTP handlers.
type Handler struct {
	packer  layout.Packer
	storage storage.Storage
	logger  *zap.Logger

	clock func() time.Time

	columns        int
	maxColumns     int
	shuffleDefault bool

	mu              sync.RWMutex
	imagesUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// WithGridDefaults sets the column count and shuffle mode used when a layout
// request omits them, and the largest column count a request may ask for.
func WithGridDefaults(columns, maxColumns int, shuffle bool) HandlerOption {
	return func(h *Handler) {
		h.columns = columns
		h.maxColumns = maxColumns
		h.shuffleDefault = shuffle
	}
}

// WithHandlerLogger attaches a logger for layout diagnostics.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(packer layout.Packer, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		packer:         packer,
		storage:        store,
		logger:         zap.NewNop(),
		columns:        defaultColumns,
		maxColumns:     defaultMaxColumns,
		shuffleDefault: true,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.imagesUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetImages(w http.ResponseWriter, r *http.Request) {
	_ = r
	images, err := h.storage.GetImages()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := imagesResponse{
		Images:    images,
		UpdatedAt: h.currentImagesUpdatedAt(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handlePutImages(w http.ResponseWriter, r *http.Request) {
	var req imagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.Images) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid images", "images must contain at least one image")
		return
	}

	if err := h.storage.SetImages(req.Images); err != nil {
		if errors.Is(err, storage.ErrInvalidImages) {
			writeError(w, http.StatusBadRequest, "Invalid images", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markImagesUpdated()

	images, err := h.storage.GetImages()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := imagesResponse{
		Images:    images,
		UpdatedAt: h.currentImagesUpdatedAt(),
		Message:   "Images updated successfully",
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	columns := h.columns
	if req.Columns != nil {
		columns = *req.Columns
	}
	if columns < 1 || columns > h.maxColumns {
		writeError(w, http.StatusBadRequest, "Invalid request", fmt.Sprintf("columns must be between 1 and %d", h.maxColumns))
		return
	}

	shuffle := h.shuffleDefault
	if req.Shuffle != nil {
		shuffle = *req.Shuffle
	}

	images, err := h.requestImages(req.Images)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidImages) {
			writeError(w, http.StatusBadRequest, "Invalid images", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	packer := h.packer
	if req.Seed != nil {
		packer = layout.New(layout.WithSeed(*req.Seed))
	}

	start := time.Now()
	placements, packErr := packer.Pack(images, columns, shuffle)
	elapsed := time.Since(start)

	if packErr != nil {
		if errors.Is(packErr, layout.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, "Invalid request", packErr.Error(),
				"Ensure every image has a unique id and positive width and height")
			return
		}
		writeInternalError(w, packErr)
		return
	}

	stats := layout.Summarize(placements, columns)
	h.logger.Debug("layout computed",
		zap.Int("images", len(placements)),
		zap.Int("columns", columns),
		zap.Bool("shuffle", shuffle),
		zap.Int("rows", stats.Rows),
		zap.Int("empty_cells", stats.EmptyCells),
		zap.Duration("elapsed", elapsed),
		zap.String("request_id", requestIDFromContext(r.Context())),
	)

	resp := layoutResponse{
		Columns:           columns,
		Shuffled:          shuffle,
		Items:             placements,
		Stats:             stats,
		CalculationTimeMs: elapsed.Milliseconds(),
	}
	writeJSON(w, http.StatusOK, resp)
}

// requestImages returns the images submitted with a layout request, or the
// stored catalog when none were sent.
func (h *Handler) requestImages(submitted []layout.ImageItem) ([]layout.ImageItem, error) {
	if len(submitted) > 0 {
		return storage.NormalizeImages(submitted)
	}
	return h.storage.GetImages()
}

func (h *Handler) currentImagesUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.imagesUpdatedAt
}

func (h *Handler) markImagesUpdated() {
	h.mu.Lock()
	h.imagesUpdatedAt = h.clock()
	h.mu.Unlock()
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type imagesRequest struct {
	Images []layout.ImageItem `json:"images"`
}

type layoutRequest struct {
	Images  []layout.ImageItem `json:"images,omitempty"`
	Columns *int               `json:"columns,omitempty"`
	Shuffle *bool              `json:"shuffle,omitempty"`
	Seed    *uint64            `json:"seed,omitempty"`
}

type layoutResponse struct {
	Columns  int                `json:"columns"`
	Shuffled bool               `json:"shuffled"`
	Items    []layout.Placement `json:"items"`
	layout.Stats
	CalculationTimeMs int64 `json:"calculationTimeMs"`
}

type imagesResponse struct {
	Images    []layout.ImageItem `json:"images"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Message   string             `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error      string `json:"error"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string, suggestion ...string) {
	resp := errorResponse{
		Error:   message,
		Details: details,
	}
	if len(suggestion) > 0 {
		resp.Suggestion = suggestion[0]
	}
	writeJSON(w, status, resp)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}

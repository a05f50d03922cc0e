package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/bento-grid/internal/layout"
	"github.com/eugenenazirov/bento-grid/internal/storage"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

func (c *controllableClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func setupTestRouter(t *testing.T, opts ...HandlerOption) (http.Handler, *controllableClock) {
	t.Helper()

	store := storage.NewMemoryStorage()
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))

	logger := zaptest.NewLogger(t)
	opts = append([]HandlerOption{WithClock(clock.Now), WithHandlerLogger(logger)}, opts...)
	handler := NewHandler(layout.New(), store, opts...)
	router := NewRouter(handler, logger, WithLogging(false))

	return router, clock
}

func doJSON(t *testing.T, router http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type layoutBody struct {
	Columns  int                `json:"columns"`
	Shuffled bool               `json:"shuffled"`
	Items    []layout.Placement `json:"items"`
	layout.Stats
}

func decodeLayout(t *testing.T, rec *httptest.ResponseRecorder) layoutBody {
	t.Helper()
	var body layoutBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return body
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	router, clock := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

func TestGetImagesReturnsDefaults(t *testing.T) {
	router, clock := setupTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/images", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Images    []layout.ImageItem `json:"images"`
		UpdatedAt time.Time          `json:"updatedAt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if len(body.Images) != len(storage.DefaultImages()) {
		t.Fatalf("expected %d default images, got %d", len(storage.DefaultImages()), len(body.Images))
	}
	if !body.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updatedAt %s, got %s", clock.Now(), body.UpdatedAt)
	}
}

func TestPutImagesUpdatesCatalog(t *testing.T) {
	router, clock := setupTestRouter(t)
	clock.Advance(time.Minute)

	payload := map[string]any{"images": []map[string]any{
		{"id": "x", "src": "x.jpg", "width": 300, "height": 200},
		{"id": "y", "src": "y.jpg", "width": 200, "height": 300},
	}}
	rec := doJSON(t, router, http.MethodPut, "/api/images", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Images    []layout.ImageItem `json:"images"`
		UpdatedAt time.Time          `json:"updatedAt"`
		Message   string             `json:"message"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Images) != 2 || body.Images[0].ID != "x" {
		t.Fatalf("unexpected images: %+v", body.Images)
	}
	if !body.UpdatedAt.Equal(clock.Now()) {
		t.Fatalf("expected updatedAt to advance, got %s", body.UpdatedAt)
	}
	if body.Message == "" {
		t.Fatalf("expected confirmation message")
	}
}

func TestPutImagesValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: "{"},
		{name: "empty", body: `{"images":[]}`},
		{name: "zero width", body: `{"images":[{"id":"a","src":"a","width":0,"height":1}]}`},
		{name: "duplicate ids", body: `{"images":[{"id":"a","src":"a","width":1,"height":1},{"id":"a","src":"b","width":1,"height":1}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := setupTestRouter(t)
			req := httptest.NewRequest(http.MethodPut, "/api/images", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestLayoutUsesStoredCatalogAndDefaults(t *testing.T) {
	router, _ := setupTestRouter(t, WithGridDefaults(6, 12, false))

	rec := doJSON(t, router, http.MethodPost, "/api/layout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeLayout(t, rec)
	if body.Columns != 6 || body.Shuffled {
		t.Fatalf("expected defaults columns=6 shuffle=false, got %d/%v", body.Columns, body.Shuffled)
	}
	defaults := storage.DefaultImages()
	if len(body.Items) != len(defaults) {
		t.Fatalf("expected %d items, got %d", len(defaults), len(body.Items))
	}
	for i, item := range body.Items {
		if item.ID != defaults[i].ID {
			t.Fatalf("expected unshuffled order, item %d is %s", i, item.ID)
		}
	}
	if body.FilledCells+body.EmptyCells != body.Rows*6 {
		t.Fatalf("stats do not add up: %+v", body.Stats)
	}
}

func TestLayoutWithSubmittedImages(t *testing.T) {
	router, _ := setupTestRouter(t)

	columns := 4
	shuffle := false
	payload := map[string]any{
		"columns": columns,
		"shuffle": shuffle,
		"images": []map[string]any{
			{"id": "a", "src": "a.jpg", "width": 1000, "height": 1000},
			{"id": "b", "src": "b.jpg", "width": 1600, "height": 900},
		},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/layout", payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeLayout(t, rec)
	want := []layout.Placement{
		{ImageItem: layout.ImageItem{ID: "a", Src: "a.jpg", Width: 1000, Height: 1000}, ColStart: 1, RowStart: 1, ColSpan: 2, RowSpan: 2},
		{ImageItem: layout.ImageItem{ID: "b", Src: "b.jpg", Width: 1600, Height: 900}, ColStart: 3, RowStart: 1, ColSpan: 2, RowSpan: 1},
	}
	if len(body.Items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(body.Items))
	}
	for i := range want {
		if body.Items[i] != want[i] {
			t.Fatalf("item %d: expected %+v, got %+v", i, want[i], body.Items[i])
		}
	}
	if body.Rows != 2 || body.FilledCells != 6 || body.EmptyCells != 2 {
		t.Fatalf("unexpected stats: %+v", body.Stats)
	}
}

func TestLayoutSeedIsReproducible(t *testing.T) {
	router, _ := setupTestRouter(t)

	payload := map[string]any{"seed": 7, "shuffle": true}
	first := decodeLayout(t, doJSON(t, router, http.MethodPost, "/api/layout", payload))
	second := decodeLayout(t, doJSON(t, router, http.MethodPost, "/api/layout", payload))

	if len(first.Items) != len(second.Items) {
		t.Fatalf("length mismatch")
	}
	for i := range first.Items {
		if first.Items[i] != second.Items[i] {
			t.Fatalf("item %d differs between seeded runs", i)
		}
	}
}

func TestLayoutValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed", body: "{"},
		{name: "zero columns", body: `{"columns":0}`},
		{name: "too many columns", body: `{"columns":25}`},
		{name: "missing src", body: `{"images":[{"id":"a","width":1,"height":1}]}`},
		{name: "negative height", body: `{"images":[{"id":"a","src":"a","width":1,"height":-1}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			router, _ := setupTestRouter(t)
			req := httptest.NewRequest(http.MethodPost, "/api/layout", bytes.NewBufferString(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

type failingStorage struct{}

func (failingStorage) GetImages() ([]layout.ImageItem, error) { return nil, assertError("store down") }
func (failingStorage) SetImages([]layout.ImageItem) error     { return assertError("store down") }

func TestStorageFailuresReturnInternalError(t *testing.T) {
	handler := NewHandler(layout.New(), failingStorage{})
	router := NewRouter(handler, zaptest.NewLogger(t), WithLogging(false))

	for _, target := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/images", ""},
		{http.MethodPut, "/api/images", `{"images":[{"id":"a","src":"a","width":1,"height":1}]}`},
		{http.MethodPost, "/api/layout", ""},
	} {
		req := httptest.NewRequest(target.method, target.path, bytes.NewBufferString(target.body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s: expected 500, got %d", target.method, target.path, rec.Code)
		}
	}
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/eugenenazirov/kegsizer/internal/driver"
	"github.com/eugenenazirov/kegsizer/internal/geometry"
	"github.com/eugenenazirov/kegsizer/internal/optimizer"
	"github.com/eugenenazirov/kegsizer/internal/storage"
	"github.com/eugenenazirov/kegsizer/internal/thermal"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const maxBodyBytes = 1 << 20

// Handler wires driver and storage dependencies into HTTP handlers.
type Handler struct {
	driver  *driver.Driver
	storage storage.Storage

	clock func() time.Time

	mu                  sync.RWMutex
	enclosuresUpdatedAt time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(drv *driver.Driver, store storage.Storage, opts ...HandlerOption) *Handler {
	h := &Handler{
		driver:  drv,
		storage: store,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.enclosuresUpdatedAt = h.clock()
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	})
}

func (h *Handler) handleGetEnclosures(w http.ResponseWriter, _ *http.Request) {
	enclosures, err := h.storage.GetEnclosures()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, enclosuresResponse{
		Enclosures: enclosures,
		UpdatedAt:  h.currentEnclosuresUpdatedAt(),
	})
}

func (h *Handler) handlePutEnclosures(w http.ResponseWriter, r *http.Request) {
	var req enclosuresRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if len(req.Enclosures) == 0 {
		writeError(w, http.StatusBadRequest, "Invalid enclosures", "enclosures must contain at least one entry")
		return
	}

	if err := h.storage.SetEnclosures(req.Enclosures); err != nil {
		if errors.Is(err, storage.ErrInvalidEnclosures) {
			writeError(w, http.StatusBadRequest, "Invalid enclosures", err.Error())
			return
		}
		writeInternalError(w, err)
		return
	}

	h.markEnclosuresUpdated()

	enclosures, err := h.storage.GetEnclosures()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, enclosuresResponse{
		Enclosures: enclosures,
		UpdatedAt:  h.currentEnclosuresUpdatedAt(),
		Message:    "Enclosures updated successfully",
	})
}

func (h *Handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req geometry.Enclosure
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", "unable to parse JSON payload")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid enclosure", "length, width and height must be positive")
		return
	}

	start := time.Now()
	outcome := h.driver.RunOne(req)
	elapsed := time.Since(start)

	if outcome.Err != nil {
		writeOptimizationError(w, outcome.Err)
		return
	}

	writeJSON(w, http.StatusOK, optimizeResponse{
		Result:            outcome.Result,
		CalculationTimeMs: elapsed.Milliseconds(),
	})
}

func (h *Handler) handleSweep(w http.ResponseWriter, _ *http.Request) {
	enclosures, err := h.storage.GetEnclosures()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	start := time.Now()
	outcomes := h.driver.Run(enclosures)
	elapsed := time.Since(start)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}

	writeJSON(w, http.StatusOK, sweepResponse{
		Outcomes:          outcomes,
		Succeeded:         len(outcomes) - failed,
		Failed:            failed,
		CalculationTimeMs: elapsed.Milliseconds(),
	})
}

func (h *Handler) currentEnclosuresUpdatedAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.enclosuresUpdatedAt
}

func (h *Handler) markEnclosuresUpdated() {
	h.mu.Lock()
	h.enclosuresUpdatedAt = h.clock()
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

type enclosuresRequest struct {
	Enclosures []geometry.Enclosure `json:"enclosures"`
}

type enclosuresResponse struct {
	Enclosures []geometry.Enclosure `json:"enclosures"`
	UpdatedAt  time.Time            `json:"updatedAt"`
	Message    string               `json:"message,omitempty"`
}

type optimizeResponse struct {
	Result            *optimizer.Result `json:"result"`
	CalculationTimeMs int64             `json:"calculationTimeMs"`
}

type sweepResponse struct {
	Outcomes          []driver.Outcome `json:"outcomes"`
	Succeeded         int              `json:"succeeded"`
	Failed            int              `json:"failed"`
	CalculationTimeMs int64            `json:"calculationTimeMs"`
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

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeOptimizationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, geometry.ErrInvalidGeometry):
		writeError(w, http.StatusBadRequest, "Invalid enclosure", err.Error())
	case errors.Is(err, optimizer.ErrOptimizationDidNotConverge):
		writeError(w, http.StatusUnprocessableEntity, "Optimization did not converge", err.Error(),
			"Retry with method \"scan\" or raise solver.max_iterations")
	case errors.Is(err, thermal.ErrInvalidThermalInput):
		writeError(w, http.StatusUnprocessableEntity, "Invalid thermal input", err.Error())
	default:
		writeInternalError(w, err)
	}
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

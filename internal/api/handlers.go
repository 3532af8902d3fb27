package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"remedy/internal/catalog"
	"remedy/internal/validation"
)

// Response is the envelope of every API reply.
type Response struct {
	Status    string    `json:"status"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// RecommendRequest is the body of POST /api/v1/recommendations.
type RecommendRequest struct {
	Observations []string `json:"observations" validate:"max=100,dive,max=10"`
	Trace        bool     `json:"trace"`
}

const maxBodyBytes = 64 << 10

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListObservations(w http.ResponseWriter, r *http.Request) {
	obs, err := h.catalog.ListObservations(r.Context())
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load observations", err)
		return
	}
	if obs == nil {
		obs = []catalog.Observation{}
	}
	h.respondJSON(w, r, http.StatusOK, obs)
}

func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req RecommendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "Request body must be JSON with an observations array", nil)
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		var details any
		if verr, ok := err.(*validation.Error); ok {
			details = verr.Fields
		}
		h.respondErrorDetails(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), details)
		return
	}

	rec, err := h.recommender.Recommend(r.Context(), req.Observations, req.Trace)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "RECOMMENDATION_FAILED", "Failed to compute recommendation", err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, rec)
}

func (h *Handler) CategoryItems(w http.ResponseWriter, r *http.Request) {
	code := catalog.CanonicalCode(chi.URLParam(r, "code"))
	if code == "" {
		h.respondError(w, r, http.StatusBadRequest, "INVALID_CATEGORY", "Category code is required", nil)
		return
	}
	items, err := h.catalog.ItemsByCategory(r.Context(), code)
	if err != nil {
		h.respondError(w, r, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load items", err)
		return
	}
	if items == nil {
		items = []catalog.Item{}
	}
	h.respondJSON(w, r, http.StatusOK, items)
}

func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.write(w, status, &Response{
		Status:    "success",
		Data:      data,
		RequestID: requestIDFrom(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	if err != nil {
		h.logger.Errorw("API error", "request_id", requestIDFrom(r.Context()), "code", code, "error", err)
	}
	h.respondErrorDetails(w, r, status, code, message, nil)
}

func (h *Handler) respondErrorDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	h.write(w, status, &Response{
		Status:    "error",
		Error:     &APIError{Code: code, Message: message, Details: details},
		RequestID: requestIDFrom(r.Context()),
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) write(w http.ResponseWriter, status int, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.Errorw("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		h.logger.Warnw("Failed to write JSON response", "error", err)
	}
}

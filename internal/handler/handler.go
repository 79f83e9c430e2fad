// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the booking service.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/eventstay/booking-api/internal/auth"
	"github.com/eventstay/booking-api/internal/model"
	"github.com/eventstay/booking-api/internal/repository"
	"github.com/eventstay/booking-api/internal/service"
	"github.com/go-chi/chi/v5"
)

// BookingHandler holds the HTTP handlers for the booking API.
type BookingHandler struct {
	svc *service.BookingService
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps the engine's error taxonomy to HTTP status codes:
// business-rule rejections become 403, missing resources 404.
func writeServiceError(w http.ResponseWriter, err error) {
	var rejection *service.CannotCreateBookingError
	switch {
	case errors.As(err, &rejection):
		writeError(w, http.StatusForbidden, rejection.Reason)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Handlers ─────────────────────────────────────────────────────────────────

// CreateBooking handles POST /booking
// Books a room for the authenticated user.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RoomID <= 0 {
		writeError(w, http.StatusBadRequest, "roomId must be a positive integer")
		return
	}

	bookingID, err := h.svc.CreateBooking(r.Context(), userID, req.RoomID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.BookingCreatedResponse{BookingID: bookingID})
}

// GetBooking handles GET /booking
// Returns the authenticated user's booking id and room snapshot.
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	detail, err := h.svc.GetBooking(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// UpdateBooking handles PUT /booking/{bookingId}
// Moves the authenticated user's booking to a new room. The engine always
// targets the caller's own active booking; the path id is only validated.
func (h *BookingHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if id, err := strconv.ParseInt(chi.URLParam(r, "bookingId"), 10, 64); err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "bookingId must be a positive integer")
		return
	}

	var req model.CreateBookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.RoomID <= 0 {
		writeError(w, http.StatusBadRequest, "roomId must be a positive integer")
		return
	}

	bookingID, err := h.svc.UpdateBooking(r.Context(), userID, req.RoomID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.BookingCreatedResponse{BookingID: bookingID})
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

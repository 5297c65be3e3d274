// Package api exposes the tracker controller over a JSON HTTP surface.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/medtrack/internal/common"
	"github.com/dmitrijs2005/medtrack/internal/export"
	"github.com/dmitrijs2005/medtrack/internal/logging"
	"github.com/dmitrijs2005/medtrack/internal/models"
	"github.com/dmitrijs2005/medtrack/internal/stats"
	"github.com/dmitrijs2005/medtrack/internal/tracker"
)

type Handler struct {
	tracker *tracker.Controller
	logger  logging.Logger
}

func NewHandler(tr *tracker.Controller, logger logging.Logger) *Handler {
	return &Handler{
		tracker: tr,
		logger:  logger,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(CorsMiddleware)
	r.Use(h.requestLogger)

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/medications", h.ListMedications)
		r.Post("/medications", h.AddMedication)
		r.Put("/medications/{id}", h.UpdateMedication)
		r.Delete("/medications/{id}", h.DeleteMedication)

		r.Get("/common-medications", h.ListCommonMedications)
		r.Post("/common-medications", h.AddCommonMedication)

		r.Post("/sync", h.TriggerSync)
		r.Get("/status", h.Status)

		r.Get("/stats", h.Stats)
		r.Get("/calendar/{year}/{month}", h.CalendarView)

		r.Get("/export", h.Export)
		r.Delete("/data", h.ClearData)
	})

	return r
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// ListMedications returns the current entry list. Optional query parameters:
// "from" and "to" restrict to a calendar-date range, "q" filters by name.
func (h *Handler) ListMedications(w http.ResponseWriter, r *http.Request) {
	entries := h.tracker.Medications()

	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from != "" || to != "" {
		filtered, err := stats.FilterByRange(entries, from, to)
		if err != nil {
			h.writeError(w, fmt.Errorf("%w: %s", common.ErrorValidation, err.Error()))
			return
		}
		entries = filtered
	}
	entries = stats.FilterByName(entries, r.URL.Query().Get("q"))

	h.writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) AddMedication(w http.ResponseWriter, r *http.Request) {
	var fields models.EntryFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body", common.ErrorValidation))
		return
	}

	entry, err := h.tracker.AddMedication(r.Context(), fields)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) UpdateMedication(w http.ResponseWriter, r *http.Request) {
	var fields models.EntryFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body", common.ErrorValidation))
		return
	}

	entry, err := h.tracker.UpdateMedication(r.Context(), chi.URLParam(r, "id"), fields)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) DeleteMedication(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.DeleteMedication(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListCommonMedications(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.tracker.CommonMedications())
}

func (h *Handler) AddCommonMedication(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body", common.ErrorValidation))
		return
	}

	if err := h.tracker.AddToCommonMedications(r.Context(), body.Name); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.tracker.CommonMedications())
}

func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.SyncPendingChanges(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.tracker.State())
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.tracker.State())
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, stats.Compute(h.tracker.Medications(), time.Now()))
}

func (h *Handler) CalendarView(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid year", common.ErrorValidation))
		return
	}
	month, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || month < 1 || month > 12 {
		h.writeError(w, fmt.Errorf("%w: invalid month", common.ErrorValidation))
		return
	}

	buckets := stats.Calendar(h.tracker.Medications(), year, time.Month(month))
	h.writeJSON(w, http.StatusOK, buckets)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.tracker.ExportData()
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(time.Now())))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) ClearData(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.ClearAllData(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error(context.Background(), "error encoding response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrorValidation):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrorRemoteUnavailable):
		status = http.StatusBadGateway
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug(r.Context(), "request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
	})
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

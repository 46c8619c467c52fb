package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"activation-analytics/internal/models"
	"activation-analytics/internal/report"
	"activation-analytics/internal/service"
	"activation-analytics/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 50 << 20, // batch ingestion payloads run large
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// IngestTransactions handles POST /transactions
func (h *Handler) IngestTransactions(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.IngestTransactionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	for i := range req.Transactions {
		txn := &req.Transactions[i]
		txn.ID = validation.SanitizeString(txn.ID)
		txn.UserID = validation.SanitizeString(txn.UserID)
		txn.RestaurantName = validation.SanitizeString(txn.RestaurantName)
		txn.LocationName = validation.SanitizeString(txn.LocationName)
	}

	inserted, err := h.service.IngestTransactions(r.Context(), req.Transactions)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, models.IngestResponse{Inserted: inserted})
}

// IngestActivations handles POST /activations
func (h *Handler) IngestActivations(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.IngestActivationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	for i := range req.Activations {
		act := &req.Activations[i]
		act.ID = validation.SanitizeString(act.ID)
		act.RestaurantID = validation.SanitizeString(act.RestaurantID)
		act.RestaurantGroupID = validation.SanitizeString(act.RestaurantGroupID)
		act.RestaurantName = validation.SanitizeString(act.RestaurantName)
		act.LocationName = validation.SanitizeString(act.LocationName)
		act.Description = validation.SanitizeString(act.Description)
	}

	inserted, err := h.service.IngestActivations(r.Context(), req.Activations)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, models.IngestResponse{Inserted: inserted})
}

// IngestContacts handles POST /contacts
func (h *Handler) IngestContacts(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.IngestContactsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	for i := range req.Contacts {
		c := &req.Contacts[i]
		c.RestaurantName = validation.SanitizeString(c.RestaurantName)
		c.Email = validation.SanitizeString(c.Email)
	}

	inserted, err := h.service.IngestContacts(r.Context(), req.Contacts)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, models.IngestResponse{Inserted: inserted})
}

// RunAnalysis handles POST /analysis/run
func (h *Handler) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.RunAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	run, err := h.service.RunAnalysis(r.Context(), req.AsOf)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, run)
}

// GetLatestRun handles GET /analysis/latest
func (h *Handler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.service.LatestRun()
	if err != nil {
		h.respondRunError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

// GetWeeklyResults handles GET /analysis/weekly
func (h *Handler) GetWeeklyResults(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.LatestWeeklyRows(r.Context())
	if err != nil {
		h.respondRunError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, rows)
}

// GetDailyResults handles GET /analysis/daily
func (h *Handler) GetDailyResults(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.LatestDailyRows(r.Context())
	if err != nil {
		h.respondRunError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, rows)
}

// GetWeeklyCSV handles GET /analysis/weekly.csv
func (h *Handler) GetWeeklyCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.LatestWeeklyRows(r.Context())
	if err != nil {
		h.respondRunError(w, err)
		return
	}

	withEmails := false
	for _, row := range rows {
		if row.EmailMatchConfidence != "" {
			withEmails = true
			break
		}
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="weekly_results.csv"`)
	if err := report.WriteWeeklyCSV(w, rows, withEmails); err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// GetDailyCSV handles GET /analysis/daily.csv
func (h *Handler) GetDailyCSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.LatestDailyRows(r.Context())
	if err != nil {
		h.respondRunError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="daily_results.csv"`)
	if err := report.WriteDailyCSV(w, rows); err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

// GetEmailReport handles GET /reports/{restaurant}/email
func (h *Handler) GetEmailReport(w http.ResponseWriter, r *http.Request) {
	restaurant := validation.SanitizeString(chi.URLParam(r, "restaurant"))
	if restaurant == "" {
		h.respondError(w, http.StatusBadRequest, "restaurant is required")
		return
	}

	body, err := h.service.EmailReport(r.Context(), restaurant)
	if err != nil {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(body))
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// respondRunError maps the missing-run case to 404 and everything else to
// 500.
func (h *Handler) respondRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrNoRuns) {
		h.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.respondError(w, http.StatusInternalServerError, err.Error())
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}

package book

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sally-https/book-api-v2/internal/httputil"
	"github.com/sally-https/book-api-v2/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

func NewHandler(service Service, logger *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{
		service:  service,
		validate: httputil.NewValidator(),
		logger:   logger,
		metrics:  m,
	}
}

func (h *Handler) RegisterAdminRoutes(router chi.Router) {
	router.Post("/admin-add-book", h.AddBook)
	router.Patch("/admin-edit-book/{id}", h.EditBook)
	router.Get("/admin-view-books", h.ListBooks)
	router.Delete("/books/{id}", h.DeleteBook)
}

func (h *Handler) RegisterStudentRoutes(router chi.Router) {
	router.Post("/student-scan-barcode/{barcode}", h.ScanBarcode)
}

func (h *Handler) AddBook(w http.ResponseWriter, r *http.Request) {
	var req AddBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithFieldErrors(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "adding book", "title", req.Title)
	created, err := h.service.AddBook(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordBookAdded(r.Context())

	httputil.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Book added successfully",
		"book":    created,
	})
}

func (h *Handler) EditBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req EditBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithFieldErrors(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "editing book", "id", id)
	updated, err := h.service.EditBook(r.Context(), id, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Book updated successfully",
		"book":    updated,
	})
}

func (h *Handler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.ListBooks(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"books":   books,
	})
}

func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	h.logger.InfoContext(r.Context(), "deleting book", "id", id)
	if err := h.service.DeleteBook(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Book deleted successfully",
	})
}

func (h *Handler) ScanBarcode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "barcode")

	found, err := h.service.GetBookByBarcode(r.Context(), code)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordBarcodeScanned(r.Context())

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"book":    found,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBookNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Book not found")
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

package loan

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sally-https/book-api-v2/internal/auth"
	"github.com/sally-https/book-api-v2/internal/book"
	"github.com/sally-https/book-api-v2/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: httputil.NewValidator(),
		logger:   logger,
	}
}

func (h *Handler) RegisterStudentRoutes(router chi.Router) {
	router.Post("/student-borrow-book", h.Borrow)
	router.Post("/student-return-book", h.Return)
}

func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request) {
	studentID, ok := auth.GetSubjectID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BorrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithFieldErrors(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "borrow requested",
		"student_id", studentID, "book_id", req.BookID, "days", req.Days)

	borrowed, err := h.service.Borrow(r.Context(), studentID, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success":      true,
		"message":      "Book borrowed successfully",
		"borrowedBook": borrowed,
	})
}

func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	studentID, ok := auth.GetSubjectID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithFieldErrors(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "return requested",
		"student_id", studentID, "loan_id", req.BorrowedBookID)

	returned, err := h.service.Return(r.Context(), studentID, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"message":      "Book returned successfully",
		"returnedBook": returned,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, book.ErrBookNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Book not found")
	case errors.Is(err, ErrBorrowLimit),
		errors.Is(err, ErrCopyLimit),
		errors.Is(err, ErrOverdueLoans),
		errors.Is(err, ErrBookUnavailable),
		errors.Is(err, ErrInvalidReturn):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

package report

import (
	"log/slog"
	"net/http"

	"github.com/sally-https/book-api-v2/internal/auth"
	"github.com/sally-https/book-api-v2/internal/httputil"
	"github.com/sally-https/book-api-v2/internal/loan"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	repo   Repository
	logger *slog.Logger
}

func NewHandler(repo Repository, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, logger: logger}
}

func (h *Handler) RegisterAdminRoutes(router chi.Router) {
	router.Get("/admin-dashboard", h.AdminDashboard)
	router.Get("/admin-view-students", h.ListStudents)
	router.Get("/admin-view-borrowed-books", h.ListBorrowed)
	router.Get("/admin-view-returned-books", h.ListReturned)
}

func (h *Handler) RegisterStudentRoutes(router chi.Router) {
	router.Get("/student-dashboard", h.StudentDashboard)
	router.Get("/student-view-borrowed-books", h.ListOwnLoans)
	router.Get("/view-book-library", h.ListLibrary)
}

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.repo.AdminDashboard(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"dashboard": dash,
	})
}

func (h *Handler) StudentDashboard(w http.ResponseWriter, r *http.Request) {
	studentID, ok := auth.GetSubjectID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	dash, err := h.repo.StudentDashboard(r.Context(), studentID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"dashboard": dash,
	})
}

func (h *Handler) ListStudents(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ListStudents(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"students": rows,
	})
}

func (h *Handler) ListBorrowed(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ListLoans(r.Context(), loan.StatusBorrowed)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"borrowedBooks": rows,
	})
}

func (h *Handler) ListReturned(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ListLoans(r.Context(), loan.StatusReturned)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"returnedBooks": rows,
	})
}

func (h *Handler) ListOwnLoans(w http.ResponseWriter, r *http.Request) {
	studentID, ok := auth.GetSubjectID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rows, err := h.repo.ListStudentLoans(r.Context(), studentID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"borrowedBooks": rows,
	})
}

func (h *Handler) ListLibrary(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo.ListLibrary(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"books":   rows,
	})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.ErrorContext(r.Context(), "internal error", "error", err)
	httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}

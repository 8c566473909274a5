package student

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sally-https/book-api-v2/internal/auth"
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
	router.Post("/admin-add-student", h.AddStudent)
	router.Patch("/admin-edit-student/{id}", h.EditStudent)
	router.Delete("/admin-delete-student/{id}", h.DeleteStudent)
}

func (h *Handler) RegisterStudentRoutes(router chi.Router) {
	router.Patch("/student-update", h.UpdateProfile)
}

func (h *Handler) AddStudent(w http.ResponseWriter, r *http.Request) {
	var req AddStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithFieldErrors(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "adding student", "student_number", req.StudentNumber)
	created, err := h.service.CreateStudent(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.metrics.RecordStudentRegistration(r.Context())

	httputil.RespondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Student added successfully",
		"student": created,
	})
}

func (h *Handler) EditStudent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	var req EditStudentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithFieldErrors(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "editing student", "id", id)
	updated, err := h.service.EditStudent(r.Context(), id, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Student updated successfully",
		"student": updated,
	})
}

func (h *Handler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid student id")
		return
	}

	h.logger.InfoContext(r.Context(), "deleting student", "id", id)
	if err := h.service.DeleteStudent(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Student deleted successfully",
	})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	studentID, ok := auth.GetSubjectID(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httputil.RespondWithFieldErrors(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "updating student profile", "id", studentID)
	updated, err := h.service.UpdateProfile(r.Context(), studentID, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Student updated successfully",
		"student": updated,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrStudentNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Student not found")
	case errors.Is(err, ErrDuplicateRecord):
		httputil.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInput):
		httputil.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

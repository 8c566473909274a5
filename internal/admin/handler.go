package admin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sally-https/book-api-v2/internal/auth"
	"github.com/sally-https/book-api-v2/internal/httputil"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
	logger   *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: httputil.NewValidator(),
		logger:   logger,
	}
}

func (h *Handler) RegisterAdminRoutes(router chi.Router) {
	router.Patch("/admin-update", h.UpdateProfile)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.GetSubjectID(r.Context())
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

	h.logger.InfoContext(r.Context(), "updating admin profile", "id", adminID)
	updated, err := h.service.UpdateProfile(r.Context(), adminID, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Admin updated successfully",
		"admin":   updated,
	})
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrAdminNotFound):
		httputil.RespondWithError(w, http.StatusNotFound, "Admin not found")
	case errors.Is(err, ErrDuplicateEmail):
		httputil.RespondWithError(w, http.StatusConflict, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal error", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

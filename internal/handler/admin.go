package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foliodev/folio/internal/model"
	"github.com/foliodev/folio/internal/service"
)

// AdminHandler exposes admin token authorization and admin status checks.
type AdminHandler struct {
	authSvc *service.AuthService
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(authSvc *service.AuthService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{authSvc: authSvc, logger: logger}
}

// Authorize binds the caller to the admin role when the presented token
// matches the configured admin token.
// POST /api/v1/admin/authorize
func (h *AdminHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	principal := principalOf(r)
	if principal == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req model.AuthorizeRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	ok, err := h.authSvc.AuthorizeAdmin(r.Context(), principal, req.Token)
	switch {
	case errors.Is(err, service.ErrAdminDisabled):
		writeError(w, http.StatusServiceUnavailable, "Admin provisioning is not configured")
		return
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	case err != nil:
		h.logger.Error("admin authorization failed", "principal", principal, "error", err)
		writeError(w, http.StatusInternalServerError, "Admin authorization failed")
		return
	}

	if ok {
		h.logger.Info("principal bound to admin role", "principal", principal)
	} else {
		h.logger.Warn("admin token rejected", "principal", principal)
	}
	writeJSON(w, http.StatusOK, model.AuthorizeResponse{Authorized: ok})
}

// Status reports whether the caller is an admin. Anonymous callers are not.
// GET /api/v1/admin/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	ok, err := h.authSvc.IsAdmin(r.Context(), principalOf(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Admin status check failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.AdminStatusResponse{IsAdmin: ok})
}

package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/foliodev/folio/internal/model"
	"github.com/foliodev/folio/internal/service"
)

// IdentityHandler is the development identity provider. It hands out identity
// tokens for any principal and is only mounted when dev login is enabled.
type IdentityHandler struct {
	authSvc *service.AuthService
	ttl     time.Duration
	logger  *slog.Logger
}

// NewIdentityHandler creates a new IdentityHandler.
func NewIdentityHandler(authSvc *service.AuthService, ttl time.Duration, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{authSvc: authSvc, ttl: ttl, logger: logger}
}

// CreateSession issues an identity token for the requested principal.
// POST /api/v1/identity/session
func (h *IdentityHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.IdentitySessionRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	principal := strings.TrimSpace(req.Principal)
	if principal == "" {
		writeError(w, http.StatusBadRequest, "Principal is required")
		return
	}

	token, err := h.authSvc.IssueJWT(r.Context(), principal, h.ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token: "+err.Error())
		return
	}
	h.logger.Info("identity session issued", "principal", principal)

	writeJSON(w, http.StatusOK, model.IdentitySessionResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresIn: int(h.ttl.Seconds()),
		Principal: principal,
	})
}

package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/foliodev/folio/internal/config"
	"github.com/foliodev/folio/internal/model"
)

// MessageHandler serves contact message submission and the admin listing.
type MessageHandler struct {
	store  *config.Store
	logger *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(store *config.Store, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{store: store, logger: logger}
}

// Submit validates and stores a contact message. Anonymous callers are allowed.
// POST /api/v1/messages
func (h *MessageHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req model.NewMessageRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if fields := req.Validate(); fields != nil {
		ctx := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			ctx[k] = v
		}
		writeError(w, http.StatusBadRequest, "Validation failed", ctx)
		return
	}

	msg := &model.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	if err := h.store.CreateMessage(r.Context(), msg); err != nil {
		h.logger.Error("store message failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store message")
		return
	}
	h.logger.Info("contact message stored", "id", msg.ID)

	writeJSON(w, http.StatusCreated, msg)
}

// List returns every stored message, oldest first. Admin only.
// GET /api/v1/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	msgs, err := h.store.ListMessages(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list messages: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, model.MessageListResponse{
		Resource: msgs,
		Meta: &model.ResponseMeta{
			Count:  len(msgs),
			TookMs: float64(time.Since(start).Microseconds()) / 1000.0,
		},
	})
}

package handler

import (
	"net/http"

	"github.com/foliodev/folio/internal/openapi"
)

// OpenAPIHandler serves the OpenAPI document for the backend API.
type OpenAPIHandler struct {
	version string
}

// NewOpenAPIHandler creates a new OpenAPIHandler.
func NewOpenAPIHandler(version string) *OpenAPIHandler {
	return &OpenAPIHandler{version: version}
}

// ServeSpec returns the API document with a server URL derived from the request.
// GET /openapi.json
func (h *OpenAPIHandler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	writeJSON(w, http.StatusOK, openapi.Generate(scheme+"://"+r.Host, h.version))
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/d25/scrapbook/internal/apperror"
	"github.com/d25/scrapbook/internal/auth"
	"github.com/d25/scrapbook/internal/model"
	"github.com/d25/scrapbook/internal/service"
)

// PageHandler serves member pages and entry creation. Pages are addressed by
// share code so links can be passed around without exposing internal ids.
type PageHandler struct {
	entries *service.EntryService
	logger  *slog.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(entries *service.EntryService, logger *slog.Logger) *PageHandler {
	return &PageHandler{entries: entries, logger: logger}
}

// HandleGetPage returns the page owner, their entries, and their best score.
//
// HTTP: GET /api/pages/{shareCode}
func (h *PageHandler) HandleGetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.entries.Page(r.Context(), chi.URLParam(r, "shareCode"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// HandleCreateEntry posts a new entry on the page, authored by the
// signed-in member.
//
// HTTP: POST /api/pages/{shareCode}/entries
func (h *PageHandler) HandleCreateEntry(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("not signed in"))
		return
	}

	var req struct {
		Kind         string `json:"kind"`
		TextContent  string `json:"textContent"`
		FilePath     string `json:"filePath"`
		OriginalName string `json:"originalName"`
		MimeType     string `json:"mimeType"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.entries.Create(r.Context(), principal.UserID, chi.URLParam(r, "shareCode"), service.CreateEntryInput{
		Kind:         model.EntryKind(req.Kind),
		TextContent:  req.TextContent,
		FilePath:     req.FilePath,
		OriginalName: req.OriginalName,
		MimeType:     req.MimeType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"likesync/internal/domain"
	"likesync/internal/service"
)

type Handlers struct {
	summary *service.SummaryService
	logger  *slog.Logger
}

func NewHandlers(summary *service.SummaryService, logger *slog.Logger) *Handlers {
	return &Handlers{
		summary: summary,
		logger:  logger,
	}
}

type summarizeRequest struct {
	VideoURL string `json:"videoUrl"`
}

type nextPageRequest struct {
	Cursor string `json:"cursor"`
}

type removeItemsRequest struct {
	IDs []string `json:"ids"`
}

type removeItemResponse struct {
	Removed   string `json:"removed"`
	Remaining int    `json:"remaining"`
	Cached    int    `json:"cached"`
}

type viewResponse struct {
	Order domain.Order            `json:"order"`
	Items []domain.CollectionItem `json:"items"`
	Count int                     `json:"count"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Summarize handles POST /api/summarize.
func (h *Handlers) Summarize(w http.ResponseWriter, r *http.Request) {
	session, logger, ok := h.session(w, r, "Summarize")
	if !ok {
		return
	}

	var req summarizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.VideoURL == "" {
		WriteJSONError(w, http.StatusBadRequest, "field 'videoUrl' is required")
		return
	}

	result, err := h.summary.Summarize(r.Context(), session.Identity, req.VideoURL)
	if err != nil {
		logger.Warn("summarize failed", "url", req.VideoURL, "error", err)
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// Usage handles GET /api/usage.
func (h *Handlers) Usage(w http.ResponseWriter, r *http.Request) {
	session, logger, ok := h.session(w, r, "Usage")
	if !ok {
		return
	}

	eligibility, err := h.summary.Usage(r.Context(), session.Identity)
	if err != nil {
		logger.Error("usage lookup failed", "error", err)
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, eligibility)
}

// SyncFirstPage handles POST /api/collection/sync.
func (h *Handlers) SyncFirstPage(w http.ResponseWriter, r *http.Request) {
	session, logger, ok := h.session(w, r, "SyncFirstPage")
	if !ok {
		return
	}

	result, err := session.Sync.SyncFirstPage(r.Context())
	if err != nil {
		logger.Error("first page sync failed", "error", err)
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// SyncNextPage handles POST /api/collection/next.
func (h *Handlers) SyncNextPage(w http.ResponseWriter, r *http.Request) {
	session, logger, ok := h.session(w, r, "SyncNextPage")
	if !ok {
		return
	}

	var req nextPageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Cursor == "" {
		WriteJSONError(w, http.StatusBadRequest, "field 'cursor' is required")
		return
	}

	result, err := session.Sync.SyncNextPage(r.Context(), req.Cursor)
	if err != nil {
		logger.Error("next page sync failed", "cursor", req.Cursor, "error", err)
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// Drain handles POST /api/collection/drain. The drained collection is
// published when a publisher is configured.
func (h *Handlers) Drain(w http.ResponseWriter, r *http.Request) {
	session, logger, ok := h.session(w, r, "Drain")
	if !ok {
		return
	}

	result, err := session.Export.Export(r.Context())
	if err != nil && result == nil {
		logger.Error("drain failed", "error", err)
		writeError(w, err)
		return
	}
	if err != nil {
		logger.Warn("drain finished but export was not published", "error", err)
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// RemoveItem handles DELETE /api/collection/items/{id}.
func (h *Handlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	session, logger, ok := h.session(w, r, "RemoveItem")
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	snap, err := session.Sync.RemoveItem(r.Context(), id)
	if err != nil {
		logger.Error("remove item failed", "id", id, "error", err)
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, removeItemResponse{
		Removed:   id,
		Remaining: snap.TotalRemoteCount,
		Cached:    len(snap.Items),
	})
}

// RemoveItems handles POST /api/collection/remove. A batch where some ids
// failed is still a 200; failures are listed in the report.
func (h *Handlers) RemoveItems(w http.ResponseWriter, r *http.Request) {
	session, logger, ok := h.session(w, r, "RemoveItems")
	if !ok {
		return
	}

	var req removeItemsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		WriteJSONError(w, http.StatusBadRequest, "field 'ids' must not be empty")
		return
	}

	report, err := session.Export.RemoveItems(r.Context(), req.IDs)
	if err != nil {
		logger.Error("remove items failed", "count", len(req.IDs), "error", err)
		writeError(w, err)
		return
	}
	if report.Partial() {
		logger.Warn("partial batch failure", "succeeded", len(report.Succeeded), "failed", len(report.Failures))
	}
	RespondWithJSON(w, http.StatusOK, report)
}

// View handles GET /api/collection?order=.
func (h *Handlers) View(w http.ResponseWriter, r *http.Request) {
	session, logger, ok := h.session(w, r, "View")
	if !ok {
		return
	}

	order := domain.Order(r.URL.Query().Get("order"))
	if order == "" {
		order = domain.OrderNewest
	}

	items, err := session.Sync.View(r.Context(), order)
	if err != nil {
		logger.Error("view failed", "order", order, "error", err)
		writeError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, viewResponse{Order: order, Items: items, Count: len(items)})
}

// SignOut handles POST /api/session/signout.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	session, logger, ok := h.session(w, r, "SignOut")
	if !ok {
		return
	}

	if err := session.Sessions.SignOut(r.Context()); err != nil {
		logger.Error("sign out failed", "error", err)
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request, handler string) (*Session, *slog.Logger, bool) {
	logger := loggerFrom(r.Context(), h.logger).With("handler", handler)

	session, ok := sessionFrom(r.Context())
	if !ok {
		logger.Error("no session in request context")
		WriteJSONError(w, http.StatusUnauthorized, "authentication required")
		return nil, nil, false
	}
	return session, logger.With("identity", session.Identity), true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			WriteJSONError(w, http.StatusBadRequest, "request body is empty")
			return false
		}
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

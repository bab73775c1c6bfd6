package content

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/portfolio-api/internal/common"
)

const cacheControl = "public, max-age=300"

// Handler exposes the read-only content endpoints.
type Handler struct {
	store *Store
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Store *Store
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{store: cfg.Store}
}

// Profile handles GET /api/v1/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) || h.notModified(w, r) {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.store.Profile()})
}

// Projects handles GET /api/v1/projects with an optional ?tag= filter.
func (h *Handler) Projects(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) || h.notModified(w, r) {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.store.Projects(r.URL.Query().Get("tag"))})
}

// ProjectDetail handles GET /api/v1/projects/{slug}.
func (h *Handler) ProjectDetail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	project, err := h.store.Project(chi.URLParam(r, "slug"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if h.notModified(w, r) {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": project})
}

// Pages handles GET /api/v1/pages.
func (h *Handler) Pages(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) || h.notModified(w, r) {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.store.Pages()})
}

// PageDetail handles GET /api/v1/pages/{slug}.
func (h *Handler) PageDetail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	page, err := h.store.Page(chi.URLParam(r, "slug"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if h.notModified(w, r) {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": page})
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "content store not configured", nil)
		return false
	}
	return true
}

// notModified sets the caching headers and answers 304 when the client
// already holds the current revision.
func (h *Handler) notModified(w http.ResponseWriter, r *http.Request) bool {
	etag := h.store.ETag()
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", cacheControl)
	for _, candidate := range strings.Split(r.Header.Get("If-None-Match"), ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			w.WriteHeader(http.StatusNotModified)
			return true
		}
	}
	return false
}

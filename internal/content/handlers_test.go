package content_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portfolio-api/internal/content"
)

func newContentRouter(t *testing.T) (http.Handler, *content.Store) {
	t.Helper()
	store, err := content.Parse([]byte(sampleDoc))
	require.NoError(t, err)
	h := content.NewHandler(content.HandlerConfig{Store: store})

	r := chi.NewRouter()
	r.Get("/api/v1/profile", h.Profile)
	r.Get("/api/v1/projects", h.Projects)
	r.Get("/api/v1/projects/{slug}", h.ProjectDetail)
	r.Get("/api/v1/pages", h.Pages)
	r.Get("/api/v1/pages/{slug}", h.PageDetail)
	return r, store
}

func get(handler http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestContentHandlers(t *testing.T) {
	router, store := newContentRouter(t)

	t.Run("profile", func(t *testing.T) {
		rr := get(router, "/api/v1/profile", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Equal(t, store.ETag(), rr.Header().Get("ETag"))
		require.Equal(t, "public, max-age=300", rr.Header().Get("Cache-Control"))
		var resp struct {
			Data content.Profile `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Equal(t, "Test Owner", resp.Data.Name)
	})

	t.Run("projects filtered", func(t *testing.T) {
		rr := get(router, "/api/v1/projects?tag=web", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var resp struct {
			Data []content.Project `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		require.Equal(t, "beta", resp.Data[0].Slug)
	})

	t.Run("project detail", func(t *testing.T) {
		rr := get(router, "/api/v1/projects/alpha", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Contains(t, rr.Body.String(), `"title":"Alpha"`)
	})

	t.Run("page list and detail", func(t *testing.T) {
		rr := get(router, "/api/v1/pages", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `{"data":[{"slug":"privacy-policy","title":"Privacy","updatedAt":"2025-01-01"}]}`, rr.Body.String())

		rr = get(router, "/api/v1/pages/privacy-policy", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Contains(t, rr.Body.String(), "We keep nothing.")
	})

	t.Run("not found", func(t *testing.T) {
		rr := get(router, "/api/v1/projects/nope", nil)
		require.Equal(t, http.StatusNotFound, rr.Code)
		require.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"project not found"}}`, rr.Body.String())

		rr = get(router, "/api/v1/pages/nope", map[string]string{"If-None-Match": store.ETag()})
		require.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("conditional get", func(t *testing.T) {
		rr := get(router, "/api/v1/projects", map[string]string{"If-None-Match": store.ETag()})
		require.Equal(t, http.StatusNotModified, rr.Code)
		require.Zero(t, rr.Body.Len())

		rr = get(router, "/api/v1/profile", map[string]string{"If-None-Match": `"stale", W/` + store.ETag()})
		require.Equal(t, http.StatusNotModified, rr.Code)

		rr = get(router, "/api/v1/profile", map[string]string{"If-None-Match": `"stale"`})
		require.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestHandlerWithoutStore(t *testing.T) {
	h := content.NewHandler(content.HandlerConfig{})
	rr := httptest.NewRecorder()
	h.Profile(rr, httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}

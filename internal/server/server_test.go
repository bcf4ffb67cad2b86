package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/nikbrunner/cortex/internal/config"
	"github.com/nikbrunner/cortex/internal/core"
	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/server"
)

func newRouter(t *testing.T) (http.Handler, *core.Service) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Data.Dir = t.TempDir()
	cfg.Fallback.Backend = config.BackendFile
	cfg.Pending.TTL = 10 * time.Second
	cfg.QuickAdd.Category = "Read Later"

	svc, err := core.Open(context.Background(), core.Options{Config: cfg})
	assert.NilError(t, err)
	t.Cleanup(func() { svc.Close() })
	return server.Router(logger.Nop(), svc, time.Now()), svc
}

func do(t *testing.T, h http.Handler, method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

const categoriesBody = `[
  {"id": 1, "name": "Dev", "order": 0, "isCollapsed": false, "bookmarks": [
    {"id": 10, "title": "Go", "url": "https://go.dev/", "tags": ["go"]}
  ]},
  {"id": 2, "name": "News", "order": 1, "isCollapsed": true, "bookmarks": []}
]`

func TestHealthz(t *testing.T) {
	h, _ := newRouter(t)

	rec := do(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, rec.Code, http.StatusOK)

	var body map[string]any
	decode(t, rec, &body)
	assert.Check(t, is.Equal(body["status"], "ok"))
	assert.Check(t, is.Equal(body["version"], model.AppVersion))
}

func TestCategories_PutThenGet(t *testing.T) {
	h, _ := newRouter(t)

	rec := do(t, h, http.MethodPut, "/api/categories", "application/json", strings.NewReader(categoriesBody))
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())
	var report map[string]any
	decode(t, rec, &report)
	assert.Check(t, is.Equal(report["categoriesAdded"], float64(2)))
	assert.Check(t, is.Equal(report["bookmarksAdded"], float64(1)))

	rec = do(t, h, http.MethodGet, "/api/categories", "", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	var got model.Categories
	decode(t, rec, &got)
	assert.Assert(t, is.Len(got, 2))
	assert.Check(t, is.Equal(got[0].Name, "Dev"))
	assert.Assert(t, is.Len(got[0].Bookmarks, 1))
	assert.Check(t, is.Equal(got[0].Bookmarks[0].URL, "https://go.dev/"))
	assert.Check(t, got[1].IsCollapsed)
}

func TestCategories_RejectsNonArray(t *testing.T) {
	h, _ := newRouter(t)

	for _, body := range []string{`{"id": 1}`, `not json`} {
		rec := do(t, h, http.MethodPut, "/api/categories", "application/json", strings.NewReader(body))
		assert.Check(t, is.Equal(rec.Code, http.StatusBadRequest), body)
		assert.Check(t, is.Contains(rec.Body.String(), `"error"`))
	}
}

func TestSettings_Patch(t *testing.T) {
	h, _ := newRouter(t)

	rec := do(t, h, http.MethodPut, "/api/settings", "application/json", strings.NewReader(`{"gridColumns": 5}`))
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/settings", "", nil)
	var got model.Settings
	decode(t, rec, &got)
	assert.Check(t, is.Equal(got.GridColumns, 5))
	assert.Check(t, is.Equal(got.Language, model.DefaultSettings().Language))

	rec = do(t, h, http.MethodPut, "/api/settings", "application/json", strings.NewReader(`[1, 2]`))
	assert.Check(t, is.Equal(rec.Code, http.StatusBadRequest))
}

func TestSettings_PatchWrongTypeIsBadRequest(t *testing.T) {
	h, svc := newRouter(t)

	rec := do(t, h, http.MethodPut, "/api/settings", "application/json", strings.NewReader(`{"gridColumns": "4"}`))
	assert.Check(t, is.Equal(rec.Code, http.StatusBadRequest), rec.Body.String())
	assert.Check(t, is.Contains(rec.Body.String(), "gridColumns"))

	got, err := svc.LoadSettings(context.Background())
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(got, model.DefaultSettings()))
}

func TestPending(t *testing.T) {
	h, _ := newRouter(t)

	rec := do(t, h, http.MethodGet, "/api/pending", "", nil)
	assert.Equal(t, rec.Code, http.StatusNoContent)

	rec = do(t, h, http.MethodPost, "/api/pending", "application/json", strings.NewReader(`{"url": "https://example.com/"}`))
	assert.Equal(t, rec.Code, http.StatusCreated, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/pending", "", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	var b model.Bookmark
	decode(t, rec, &b)
	assert.Check(t, is.Equal(b.URL, "https://example.com/"))
	assert.Check(t, is.Equal(b.Title, "Untitled"))

	rec = do(t, h, http.MethodGet, "/api/pending", "", nil)
	assert.Check(t, is.Equal(rec.Code, http.StatusNoContent))

	rec = do(t, h, http.MethodPost, "/api/pending", "application/json", strings.NewReader(`{"title": "no url"}`))
	assert.Check(t, is.Equal(rec.Code, http.StatusBadRequest))
}

func TestExportImport_RoundTrip(t *testing.T) {
	src, _ := newRouter(t)
	rec := do(t, src, http.MethodPut, "/api/categories", "application/json", strings.NewReader(categoriesBody))
	assert.Equal(t, rec.Code, http.StatusOK)

	rec = do(t, src, http.MethodGet, "/api/export", "", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Check(t, is.Contains(rec.Header().Get("Content-Disposition"), "cortex-backup-"))
	backup := rec.Body.Bytes()

	dst, svc := newRouter(t)

	rec = do(t, dst, http.MethodPost, "/api/import?dry_run=true", "application/json", bytes.NewReader(backup))
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())
	var dry map[string]any
	decode(t, rec, &dry)
	assert.Check(t, is.Equal(dry["checksumValid"], true))
	assert.Check(t, is.Nil(dry["sync"]))

	stored, err := svc.LoadCategories(context.Background())
	assert.NilError(t, err)
	assert.Check(t, is.Equal(stored[0].Name, model.DefaultCategoryName))

	rec = do(t, dst, http.MethodPost, "/api/import", "application/json", bytes.NewReader(backup))
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())

	stored, err = svc.LoadCategories(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, is.Len(stored, 2))
	assert.Check(t, is.Equal(stored[0].Bookmarks[0].Title, "Go"))
}

func TestImport_Errors(t *testing.T) {
	h, _ := newRouter(t)

	cases := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{name: "wrong type", contentType: "text/plain", body: `{}`, want: http.StatusUnsupportedMediaType},
		{name: "malformed", contentType: "application/json", body: `{`, want: http.StatusBadRequest},
		{name: "invalid", contentType: "application/json", body: `{"categories": []}`, want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/import", tc.contentType, strings.NewReader(tc.body))
			assert.Check(t, is.Equal(rec.Code, tc.want), rec.Body.String())
		})
	}
}

func TestImportTree(t *testing.T) {
	h, svc := newRouter(t)

	tree := `{"id": "0", "children": [
	  {"id": "1", "title": "Toolbar", "children": [
	    {"id": "2", "title": "Go", "url": "https://go.dev/"},
	    {"id": "3", "title": "Rust", "url": "https://rust-lang.org/"}
	  ]}
	]}`
	rec := do(t, h, http.MethodPost, "/api/import/tree", "application/json", strings.NewReader(tree))
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())
	var res map[string]any
	decode(t, rec, &res)
	assert.Check(t, is.Equal(res["added"], float64(2)))

	cats, err := svc.LoadCategories(context.Background())
	assert.NilError(t, err)
	toolbar := cats.FindByName("Toolbar")
	assert.Assert(t, toolbar != nil)
	assert.Check(t, is.Len(toolbar.Bookmarks, 2))

	rec = do(t, h, http.MethodPost, "/api/import/tree", "application/json", strings.NewReader(`"nope"`))
	assert.Check(t, is.Equal(rec.Code, http.StatusBadRequest))
}

func TestThemes(t *testing.T) {
	h, _ := newRouter(t)

	theme := `{"name": "Ocean", "type": "dark", "bg": "#000000", "bgSecondary": "#111111",
	  "card": "#222222", "cardHover": "#333333", "border": "#444444", "borderHover": "#555555",
	  "text": "#ffffff", "textSecondary": "#eeeeee", "accent": "#ff0000"}`

	rec := do(t, h, http.MethodPut, "/api/themes", "application/json", strings.NewReader(`[`+theme+`]`))
	assert.Equal(t, rec.Code, http.StatusOK, rec.Body.String())
	var got []model.Theme
	decode(t, rec, &got)
	assert.Assert(t, is.Len(got, 1))
	assert.Check(t, is.Equal(got[0].Name, "Ocean"))

	rec = do(t, h, http.MethodGet, "/api/themes/export", "", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Check(t, is.Contains(rec.Header().Get("Content-Disposition"), "cortex-custom-themes-"))

	rec = do(t, h, http.MethodPost, "/api/themes/import", "application/json", strings.NewReader(`[{"name": "broken"}]`))
	assert.Check(t, is.Equal(rec.Code, http.StatusBadRequest))
}

func TestExportHTMLAndFeed(t *testing.T) {
	h, _ := newRouter(t)
	rec := do(t, h, http.MethodPut, "/api/categories", "application/json", strings.NewReader(categoriesBody))
	assert.Equal(t, rec.Code, http.StatusOK)

	rec = do(t, h, http.MethodGet, "/api/export/html", "", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Check(t, is.Contains(rec.Body.String(), `<A HREF="https://go.dev/"`))

	rec = do(t, h, http.MethodGet, "/api/feed", "", nil)
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Check(t, is.Contains(rec.Header().Get("Content-Type"), "application/atom+xml"))
	assert.Check(t, is.Contains(rec.Body.String(), "https://go.dev/"))
}

func TestClearData(t *testing.T) {
	h, svc := newRouter(t)
	rec := do(t, h, http.MethodPut, "/api/categories", "application/json", strings.NewReader(categoriesBody))
	assert.Equal(t, rec.Code, http.StatusOK)

	rec = do(t, h, http.MethodDelete, "/api/data", "", nil)
	assert.Equal(t, rec.Code, http.StatusNoContent)

	cats, err := svc.LoadCategories(context.Background())
	assert.NilError(t, err)
	assert.Check(t, is.DeepEqual(cats, model.Categories{model.DefaultCategory()}))
}

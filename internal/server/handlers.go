package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nikbrunner/cortex/internal/core"
	"github.com/nikbrunner/cortex/internal/exporter"
	"github.com/nikbrunner/cortex/internal/importer"
	"github.com/nikbrunner/cortex/internal/logger"
	"github.com/nikbrunner/cortex/internal/model"
	"github.com/nikbrunner/cortex/internal/reconcile"
	"github.com/nikbrunner/cortex/internal/secure"
)

type handlers struct {
	svc     *core.Service
	log     logger.Logger
	started time.Time
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, importer.ErrFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, importer.ErrInvalidFileType):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, importer.ErrMalformedJSON),
		errors.Is(err, importer.ErrValidation),
		errors.Is(err, importer.ErrInvalidThemeFile),
		errors.Is(err, importer.ErrNoValidThemes),
		errors.Is(err, model.ErrInvalidSettings),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, reconcile.ErrSuperseded):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", logger.String("path", r.URL.Path), logger.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

// readBody reads a JSON request body of at most importer.MaxFileSize bytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, importer.MaxFileSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, importer.ErrFileTooLarge
		}
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: body is not valid JSON", errBadRequest)
	}
	return body, nil
}

func download(w http.ResponseWriter, contentType string, f exporter.File) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	_, _ = w.Write(f.Data)
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        model.AppVersion,
		"uptime_seconds": time.Since(h.started).Seconds(),
	})
}

func (h *handlers) getCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.LoadCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

type syncResponse struct {
	CategoriesAdded   int    `json:"categoriesAdded"`
	CategoriesUpdated int    `json:"categoriesUpdated"`
	CategoriesDeleted int    `json:"categoriesDeleted"`
	BookmarksAdded    int    `json:"bookmarksAdded"`
	BookmarksUpdated  int    `json:"bookmarksUpdated"`
	BookmarksDeleted  int    `json:"bookmarksDeleted"`
	Skipped           int    `json:"skipped"`
	MirrorError       string `json:"mirrorError,omitempty"`
}

func newSyncResponse(rep reconcile.Report) syncResponse {
	res := syncResponse{
		CategoriesAdded:   rep.CategoriesAdded,
		CategoriesUpdated: rep.CategoriesUpdated,
		CategoriesDeleted: rep.CategoriesDeleted,
		BookmarksAdded:    rep.BookmarksAdded,
		BookmarksUpdated:  rep.BookmarksUpdated,
		BookmarksDeleted:  rep.BookmarksDeleted,
		Skipped:           len(rep.Skipped),
	}
	if rep.MirrorErr != nil {
		res.MirrorError = rep.MirrorErr.Error()
	}
	return res
}

func (h *handlers) putCategories(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !gjson.ParseBytes(body).IsArray() {
		h.fail(w, r, fmt.Errorf("%w: categories must be an array", errBadRequest))
		return
	}
	var categories model.Categories
	if err := secure.DecodeInto(body, &categories); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	rep, err := h.svc.SaveCategories(r.Context(), categories)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSyncResponse(rep))
}

func (h *handlers) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.LoadSettings(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *handlers) putSettings(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !gjson.ParseBytes(body).IsObject() {
		h.fail(w, r, fmt.Errorf("%w: settings must be an object", errBadRequest))
		return
	}
	settings, err := h.svc.PatchSettings(r.Context(), body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (h *handlers) getThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.svc.LoadUserThemes(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themes)
}

func (h *handlers) putThemes(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !gjson.ParseBytes(body).IsArray() {
		h.fail(w, r, fmt.Errorf("%w: themes must be an array", errBadRequest))
		return
	}
	var themes []model.Theme
	if err := secure.DecodeInto(body, &themes); err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := h.svc.SaveUserThemes(r.Context(), themes); err != nil {
		h.fail(w, r, err)
		return
	}
	h.getThemes(w, r)
}

func (h *handlers) exportThemes(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.ExportThemes(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	download(w, importer.JSONMediaType, f)
}

func (h *handlers) importThemes(w http.ResponseWriter, r *http.Request) {
	themes, err := h.svc.ImportThemes(r.Context(), r.Body)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, themes)
}

type pendingRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (h *handlers) setPending(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req pendingRequest
	if err := json.Unmarshal(body, &req); err != nil || req.URL == "" {
		h.fail(w, r, fmt.Errorf("%w: url is required", errBadRequest))
		return
	}
	p, err := h.svc.SetPendingBookmark(r.Context(), req.URL, req.Title)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// checkPending hands the pending bookmark to the caller once. It answers 204
// when nothing is pending or the record expired.
func (h *handlers) checkPending(w http.ResponseWriter, r *http.Request) {
	b, ok, err := h.svc.CheckPendingBookmark(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *handlers) exportData(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.ExportData(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	download(w, importer.JSONMediaType, f)
}

func (h *handlers) exportHTML(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.LoadCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	download(w, "text/html; charset=utf-8", exporter.File{
		Name: exporter.HTMLFilename(time.Now()),
		Data: []byte(exporter.ExportHTML(categories)),
	})
}

func (h *handlers) feed(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.LoadCategories(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	atom, err := exporter.Feed(categories, exporter.FeedOptions{Link: "http://" + r.Host})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/atom+xml; charset=utf-8")
	_, _ = io.WriteString(w, atom)
}

type importResponse struct {
	Categories      model.Categories `json:"categories"`
	Settings        *model.Settings  `json:"settings,omitempty"`
	ChecksumPresent bool             `json:"checksumPresent"`
	ChecksumValid   bool             `json:"checksumValid"`
	Sync            *syncResponse    `json:"sync,omitempty"`
}

// importData validates a backup file and restores it. With ?dry_run=true
// the parsed data is returned without being stored.
func (h *handlers) importData(w http.ResponseWriter, r *http.Request) {
	f := importer.File{
		Name: "upload.json",
		Type: r.Header.Get("Content-Type"),
		Size: r.ContentLength,
		Body: r.Body,
	}

	var (
		res importer.Result
		rep *syncResponse
		err error
	)
	if r.URL.Query().Get("dry_run") == "true" {
		res, err = h.svc.ImportData(r.Context(), f)
	} else {
		var report reconcile.Report
		res, report, err = h.svc.RestoreData(r.Context(), f)
		sr := newSyncResponse(report)
		rep = &sr
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{
		Categories:      res.Categories,
		Settings:        res.Settings,
		ChecksumPresent: res.ChecksumPresent,
		ChecksumValid:   res.ChecksumValid,
		Sync:            rep,
	})
}

type treeImportResponse struct {
	Added   int          `json:"added"`
	Skipped int          `json:"skipped"`
	Sync    syncResponse `json:"sync"`
}

// importTree accepts a bookmark tree as a single node or a list of roots.
func (h *handlers) importTree(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var roots []*importer.TreeNode
	switch parsed := gjson.ParseBytes(body); {
	case parsed.IsArray():
		err = secure.DecodeInto(body, &roots)
	case parsed.IsObject():
		var root importer.TreeNode
		err = secure.DecodeInto(body, &root)
		roots = []*importer.TreeNode{&root}
	default:
		err = errors.New("tree must be an object or an array")
	}
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	res, err := h.svc.ImportBrowserTree(r.Context(), roots...)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, treeImportResponse{
		Added:   res.Added,
		Skipped: res.Skipped,
		Sync:    newSyncResponse(res.Report),
	})
}

func (h *handlers) clearData(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAllData(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

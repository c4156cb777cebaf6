package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"ohbang/internal/domain"
	"ohbang/internal/export"
	"ohbang/internal/models"
)

const maxPreferenceSize = 4 << 10

type menuResponse struct {
	State models.SyncState        `json:"state"`
	Error string                  `json:"error,omitempty"`
	Items []models.MenuItemRecord `json:"items"`
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, _ *http.Request) {
	select {
	case <-s.svc.Ready():
		writeJSON(w, http.StatusOK, s.svc.Status())
	default:
		writeJSON(w, http.StatusServiceUnavailable, s.svc.Status())
	}
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

// loading writes 503 while the first pass is in flight and reports whether
// the caller should stop.
func (s *HTTPServer) loading(w http.ResponseWriter) (models.SyncStatus, bool) {
	status := s.svc.Status()
	if status.State == models.SyncStateLoading {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"state": status.State})
		return status, true
	}
	return status, false
}

func (s *HTTPServer) writeMenu(w http.ResponseWriter, status models.SyncStatus, items []models.MenuItemRecord) {
	if items == nil {
		items = []models.MenuItemRecord{}
	}
	writeJSON(w, http.StatusOK, menuResponse{State: status.State, Error: status.Error, Items: items})
}

func (s *HTTPServer) handleMenu(w http.ResponseWriter, r *http.Request) {
	status, stop := s.loading(w)
	if stop {
		return
	}
	items, err := s.svc.MenuItems(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeMenu(w, status, items)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	status, stop := s.loading(w)
	if stop {
		return
	}
	q := r.URL.Query()
	items, err := s.svc.Filtered(r.Context(), strings.TrimSpace(q.Get("q")), q.Get("category"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeMenu(w, status, items)
}

func (s *HTTPServer) handleItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	status, stop := s.loading(w)
	if stop {
		return
	}
	items, err := s.svc.ItemByID(r.Context(), id)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.writeMenu(w, status, items)
}

func (s *HTTPServer) handleCategories(w http.ResponseWriter, r *http.Request) {
	if _, stop := s.loading(w); stop {
		return
	}
	cats, err := s.svc.Categories(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cats})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if _, stop := s.loading(w); stop {
		return
	}
	items, err := s.svc.MenuItems(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMenu(&buf, items); err != nil {
		s.internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="menu.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *HTTPServer) handleGetPreference(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	val, err := s.svc.Preferences().Get(r.Context(), key)
	if errors.Is(err, domain.ErrPreferenceNotFound) {
		writeError(w, http.StatusNotFound, "preference not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": val})
}

func (s *HTTPServer) handlePutPreference(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var body struct {
		Value *string `json:"value"`
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxPreferenceSize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil || body.Value == nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body; expected {\"value\": \"...\"}")
		return
	}

	if err := s.svc.Preferences().Set(r.Context(), key, *body.Value); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": *body.Value})
}

func (s *HTTPServer) handleDeletePreference(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Preferences().Delete(r.Context(), r.PathValue("key")); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).
		Str("path", r.URL.Path).
		Str("request_id", RequestIDFromContext(r.Context())).
		Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

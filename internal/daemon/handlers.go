package daemon

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/runnerr0/prodhelper/internal/backup"
	"github.com/runnerr0/prodhelper/internal/coordinator"
	"github.com/runnerr0/prodhelper/internal/messaging"
	"github.com/runnerr0/prodhelper/internal/settings"
	"github.com/runnerr0/prodhelper/internal/storage"
	"github.com/runnerr0/prodhelper/internal/surface"
)

// collectionKeys maps the URL name of a collection to its store key.
var collectionKeys = map[string]string{
	"links":      storage.KeySavedLinks,
	"notes":      storage.KeySavedNotes,
	"tasks":      storage.KeyTasks,
	"savedLinks": storage.KeySavedLinks,
	"savedNotes": storage.KeySavedNotes,
}

type Handlers struct {
	s *Server
}

func NewHandlers(s *Server) *Handlers {
	return &Handlers{s: s}
}

// StatusResponse answers GET /status.
type StatusResponse struct {
	OK            bool              `json:"ok"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
	Badge         coordinator.Badge `json:"badge"`
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		OK:            true,
		Version:       h.s.coord.Version(),
		UptimeSeconds: int64(time.Since(h.s.started).Seconds()),
		Badge:         h.s.coord.Badge(),
	})
}

func (h *Handlers) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messaging.Request
	if err := decodeBody(w, r, h.s.opts.MaxRequestSize, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messaging.ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.s.opts.RequestTimeout)
	defer cancel()

	body, err := h.s.router.Dispatch(ctx, req).Wait(ctx)
	switch {
	case errors.Is(err, messaging.ErrUnrecognizedRequest):
		writeRaw(w, http.StatusNotFound, body)
	case errors.Is(err, messaging.ErrChannelClosed):
		h.s.logger.Warn("message timed out", "type", req.Type, "id", req.ID)
		writeJSON(w, http.StatusGatewayTimeout, messaging.ErrorResponse{Error: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, messaging.ErrorResponse{Error: err.Error()})
	default:
		writeRaw(w, http.StatusOK, body)
	}
}

func (h *Handlers) HandleMenuClick(w http.ResponseWriter, r *http.Request) {
	var click coordinator.Click
	if err := decodeBody(w, r, h.s.opts.MaxRequestSize, &click); err != nil {
		writeJSON(w, http.StatusBadRequest, messaging.Failed(err))
		return
	}

	id, err := h.s.coord.HandleMenuClick(r.Context(), click)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, coordinator.ErrUnknownMenuItem) {
			status = http.StatusNotFound
		} else if !errors.Is(err, storage.ErrStoreUnavailable) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, messaging.Failed(err))
		return
	}
	writeJSON(w, http.StatusOK, messaging.Result{Success: true, ID: id})
}

func (h *Handlers) HandleCollection(w http.ResponseWriter, r *http.Request) {
	key, ok := collectionKeys[r.PathValue("name")]
	if !ok {
		writeJSON(w, http.StatusNotFound, messaging.ErrorResponse{Error: fmt.Sprintf("unknown collection %q", r.PathValue("name"))})
		return
	}

	vals, err := h.s.store.Get(r.Context(), key)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, messaging.ErrorResponse{Error: err.Error()})
		return
	}
	if !vals.Has(key) {
		writeRaw(w, http.StatusOK, []byte("[]"))
		return
	}
	writeRaw(w, http.StatusOK, vals[key])
}

func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	s, err := settings.Load(r.Context(), h.s.store)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, messaging.ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *Handlers) HandleBadge(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.s.coord.Badge())
}

func (h *Handlers) HandleMenus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"menus": h.s.coord.Menus().Items()})
}

func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.s.coord.Export(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, messaging.ErrorResponse{Error: err.Error()})
		return
	}
	data, err := backup.Encode(doc)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, messaging.ErrorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, backup.Filename(time.Now())))
	writeRaw(w, http.StatusOK, data)
}

// ContentRequest is what the page script posts: the page it runs on and,
// for selections, the selected text.
type ContentRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text,omitempty"`
}

func (h *Handlers) HandleContentConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"floatingButtonEnabled": h.s.content.FloatingButtonEnabled(r.Context()),
	})
}

func (h *Handlers) HandleSavePage(w http.ResponseWriter, r *http.Request) {
	h.content(w, r, func(ctx context.Context, req ContentRequest) surface.Status {
		return h.s.content.SavePage(ctx, surface.Page{Title: req.Title, URL: req.URL})
	})
}

func (h *Handlers) HandleSaveSelection(w http.ResponseWriter, r *http.Request) {
	h.content(w, r, func(ctx context.Context, req ContentRequest) surface.Status {
		return h.s.content.SaveSelection(ctx, req.Text, surface.Page{Title: req.Title, URL: req.URL})
	})
}

// content decodes a page script request and answers with the resulting
// status. Anything but success is 422 so the script can show it as is.
func (h *Handlers) content(w http.ResponseWriter, r *http.Request, fn func(context.Context, ContentRequest) surface.Status) {
	var req ContentRequest
	if err := decodeBody(w, r, h.s.opts.MaxRequestSize, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, messaging.ErrorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.s.opts.RequestTimeout)
	defer cancel()

	st := fn(ctx, req)
	code := http.StatusOK
	if !st.OK() {
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, st)
}

// protect enforces the bearer token when one is configured.
func (s *Server) protect(fn http.HandlerFunc) http.Handler {
	if s.opts.AuthToken == "" {
		return fn
	}
	want := []byte("Bearer " + s.opts.AuthToken)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			writeJSON(w, http.StatusUnauthorized, messaging.ErrorResponse{Error: "unauthorized"})
			return
		}
		fn(w, r)
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("unsupported content type %q", ct)
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

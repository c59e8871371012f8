// Package server is the reference coinwatch API. It serves the watchlist
// and alert collections of the user identified by the bearer token, backed
// by the sqlite store, with the status codes the remote client expects.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mesh-intelligence/coinwatch/internal/sqlite"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// maxRequestSize limits request body reads.
const maxRequestSize = 1 << 20

// Handler routes API requests to the backend.
type Handler struct {
	backend *sqlite.Backend
	logger  *slog.Logger
	mux     *http.ServeMux
}

// New builds the API handler. A nil logger uses slog.Default.
func New(backend *sqlite.Backend, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{backend: backend, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("GET /api/session", h.authed(h.session))

	h.mux.HandleFunc("GET /api/watchlist", h.authed(h.listWatchlist))
	h.mux.HandleFunc("POST /api/watchlist", h.authed(h.addWatchlist))
	h.mux.HandleFunc("PUT /api/watchlist", h.authed(h.updateWatchlist))
	h.mux.HandleFunc("DELETE /api/watchlist", h.authed(h.removeWatchlist))

	h.mux.HandleFunc("GET /api/alerts", h.authed(h.listAlerts))
	h.mux.HandleFunc("POST /api/alerts", h.authed(h.createAlert))
	h.mux.HandleFunc("PUT /api/alerts", h.authed(h.updateAlert))
	h.mux.HandleFunc("DELETE /api/alerts", h.authed(h.removeAlert))
	return h
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	h.logger.Info("request",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", rec.status),
		slog.Duration("elapsed", time.Since(start)))
}

type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// authed resolves the bearer token to a user before calling next.
func (h *Handler) authed(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		userID, err := h.backend.Tokens().UserFor(token)
		if err != nil {
			h.fail(w, err, "Unauthorized")
			return
		}
		next(w, r, userID)
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request, userID string) {
	writeJSON(w, http.StatusOK, map[string]string{"userId": userID})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// fail maps a backend error onto a status. Client errors carry the error
// text; anything else is logged and answered with internal.
func (h *Handler) fail(w http.ResponseWriter, err error, internal string) {
	switch {
	case errors.Is(err, types.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidPatch),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrSerialization):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(internal, slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, internal)
	}
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize))
	if err := dec.Decode(v); err != nil {
		return errors.Join(types.ErrSerialization, err)
	}
	return nil
}

// decodePatch reads {"id": ..., ...fields} and splits off the id.
func decodePatch(w http.ResponseWriter, r *http.Request) (string, types.Patch, error) {
	var body map[string]any
	if err := decode(w, r, &body); err != nil {
		return "", nil, err
	}
	id, _ := body["id"].(string)
	if id == "" {
		return "", nil, types.ErrInvalidID
	}
	delete(body, "id")
	return id, types.Patch(body), nil
}

package notes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	authapi "notenest/cmd/internal/auth/api"
)

// Handler exposes note CRUD over HTTP. Every route sits behind the access
// gate; the owner is always the authenticated user, never a request field.
type Handler struct {
	log          *slog.Logger
	store        Store
	maxBodyBytes int64
}

// NewHandler constructs a notes Handler.
func NewHandler(log *slog.Logger, store Store, maxBodyBytes int64) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Handler{log: log, store: store, maxBodyBytes: maxBodyBytes}
}

// Register wires the note routes onto the mux, wrapped by the given guard.
func (h *Handler) Register(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	if h == nil || mux == nil || guard == nil {
		return
	}
	mux.Handle("/api/v1/notes", guard(http.HandlerFunc(h.handleCollection)))
	mux.Handle("/api/v1/notes/", guard(http.HandlerFunc(h.handleItem)))
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleList(w, r)
	case http.MethodPost:
		h.handleCreate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleItem routes /api/v1/notes/{id} and /api/v1/notes/{id}/toggle-pin.
func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/notes/")
	parts := strings.Split(rest, "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		switch r.Method {
		case http.MethodPut:
			h.handleUpdate(w, r, parts[0])
		case http.MethodDelete:
			h.handleDelete(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[0] != "" && parts[1] == "toggle-pin":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleTogglePin(w, r, parts[0])
	default:
		authapi.WriteError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	u, ok := authapi.UserFrom(r.Context())
	if !ok {
		authapi.WriteError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	list, err := h.store.List(r.Context(), u.ID)
	if err != nil {
		h.log.Error("notes.list.fail", "err", err)
		authapi.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if list == nil {
		list = []Note{}
	}
	authapi.WriteSuccess(w, http.StatusOK, list, "Notes fetched successfully")
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	u, ok := authapi.UserFrom(r.Context())
	if !ok {
		authapi.WriteError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	req, ok := h.decodeNote(w, r)
	if !ok {
		return
	}

	n, err := h.store.Create(r.Context(), CreateNoteInput{
		UserID:  u.ID,
		Title:   req.Title,
		Content: req.Content,
		Now:     time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			authapi.WriteError(w, http.StatusBadRequest, "title is required")
			return
		}
		h.log.Error("notes.create.fail", "err", err)
		authapi.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	authapi.WriteSuccess(w, http.StatusCreated, n, "Note created successfully")
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request, noteID string) {
	u, ok := authapi.UserFrom(r.Context())
	if !ok {
		authapi.WriteError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	req, ok := h.decodeNote(w, r)
	if !ok {
		return
	}

	n, err := h.store.Update(r.Context(), u.ID, noteID, req.Title, req.Content, time.Now().UTC())
	if err != nil {
		h.writeStoreError(w, "notes.update.fail", err)
		return
	}
	authapi.WriteSuccess(w, http.StatusOK, n, "Note updated successfully")
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, noteID string) {
	u, ok := authapi.UserFrom(r.Context())
	if !ok {
		authapi.WriteError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	if err := h.store.Delete(r.Context(), u.ID, noteID); err != nil {
		h.writeStoreError(w, "notes.delete.fail", err)
		return
	}
	authapi.WriteSuccess(w, http.StatusOK, nil, "Note deleted successfully")
}

func (h *Handler) handleTogglePin(w http.ResponseWriter, r *http.Request, noteID string) {
	u, ok := authapi.UserFrom(r.Context())
	if !ok {
		authapi.WriteError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	n, err := h.store.TogglePin(r.Context(), u.ID, noteID, time.Now().UTC())
	if err != nil {
		h.writeStoreError(w, "notes.toggle_pin.fail", err)
		return
	}
	authapi.WriteSuccess(w, http.StatusOK, n, "Note pin toggled")
}

func (h *Handler) decodeNote(w http.ResponseWriter, r *http.Request) (noteRequest, bool) {
	var req noteRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer func() { _ = body.Close() }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		authapi.WriteError(w, http.StatusBadRequest, "invalid request body")
		return noteRequest{}, false
	}
	if strings.TrimSpace(req.Title) == "" {
		authapi.WriteError(w, http.StatusBadRequest, "title is required")
		return noteRequest{}, false
	}
	return req, true
}

func (h *Handler) writeStoreError(w http.ResponseWriter, logKey string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		authapi.WriteError(w, http.StatusNotFound, "Note not found")
	case errors.Is(err, ErrInvalidInput):
		authapi.WriteError(w, http.StatusBadRequest, "title is required")
	default:
		h.log.Error(logKey, "err", err)
		authapi.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

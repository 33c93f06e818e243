package authapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"notenest/cmd/identity"
	"notenest/cmd/internal/assets"
	"notenest/cmd/internal/auth/session"
)

// Handler wires the HTTP auth endpoints to the identity and session services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users    identity.Store
	sessions *session.Service
	tokens   session.TokenManager
	assets   assets.Host
}

// NewHandler constructs the auth Handler.
func NewHandler(log *slog.Logger, cfg Config, users identity.Store, sessions *session.Service, tokens session.TokenManager, host assets.Host) *Handler {
	if log == nil {
		log = slog.Default()
	}
	if host == nil {
		host = assets.NoopHost{}
	}
	return &Handler{
		log:      log,
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		assets:   host,
	}
}

// Register wires the user routes onto the provided mux. Routes marked with
// RequireAuth sit behind the access gate.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("/api/v1/users/register", h.handleRegister)
	mux.HandleFunc("/api/v1/users/login", h.handleLogin)
	mux.HandleFunc("/api/v1/users/refresh-token", h.handleRefresh)
	mux.Handle("/api/v1/users/logout", h.RequireAuth(http.HandlerFunc(h.handleLogout)))
	mux.Handle("/api/v1/users/current-user", h.RequireAuth(http.HandlerFunc(h.handleCurrentUser)))
	mux.Handle("/api/v1/users/update-account", h.RequireAuth(http.HandlerFunc(h.handleUpdateAccount)))
	mux.Handle("/api/v1/users/upload-profile-pic", h.RequireAuth(http.HandlerFunc(h.handleUploadProfilePic)))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	u, issued, err := h.sessions.Register(ctx, now, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrValidation):
			WriteError(w, http.StatusBadRequest, "username, email and password are required")
		case errors.Is(err, session.ErrConflict):
			WriteError(w, http.StatusConflict, "user with email or username already exists")
		default:
			h.log.Error("auth.register.fail", "err", err)
			WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.setSessionCookies(w, issued)
	WriteSuccess(w, http.StatusCreated, toUserResponse(u), "User registered successfully")
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	identifier := strings.TrimSpace(req.Username)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Email)
	}

	ctx := r.Context()
	now := time.Now().UTC()

	u, issued, err := h.sessions.Login(ctx, now, identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrValidation):
			WriteError(w, http.StatusBadRequest, "username or email and password are required")
		case errors.Is(err, session.ErrNotFound):
			WriteError(w, http.StatusNotFound, "User does not exist")
		case errors.Is(err, session.ErrUnauthorized):
			WriteError(w, http.StatusUnauthorized, "Invalid user credentials")
		default:
			h.log.Error("auth.login.fail", "err", err)
			WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.setSessionCookies(w, issued)
	WriteSuccess(w, http.StatusOK, loginResponse{
		User:        toUserResponse(u),
		AccessToken: issued.AccessToken,
	}, "User logged in successfully")
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	refreshToken := refreshTokenFromCookie(r)
	if refreshToken == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		refreshToken = strings.TrimSpace(req.RefreshToken)
	}

	ctx := r.Context()
	now := time.Now().UTC()

	_, issued, err := h.sessions.Refresh(ctx, now, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			WriteError(w, http.StatusUnauthorized, "Invalid refresh token")
			return
		}
		h.log.Error("auth.refresh.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.setSessionCookies(w, issued)
	WriteSuccess(w, http.StatusOK, refreshResponse{
		AccessToken: issued.AccessToken,
	}, "Access token refreshed")
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := UserFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	if err := h.sessions.Logout(r.Context(), time.Now().UTC(), u.ID); err != nil {
		if errors.Is(err, session.ErrUnauthorized) {
			WriteError(w, http.StatusUnauthorized, "invalid access token")
			return
		}
		h.log.Error("auth.logout.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.clearSessionCookies(w)
	WriteSuccess(w, http.StatusOK, nil, "User logged out")
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := UserFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	WriteSuccess(w, http.StatusOK, toUserResponse(u), "Current user fetched successfully")
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := UserFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" || !strings.Contains(email, "@") {
		WriteError(w, http.StatusBadRequest, "username and email are required")
		return
	}

	updated, err := h.users.UpdateAccount(r.Context(), u.ID, username, email, time.Now().UTC())
	if err != nil {
		switch {
		case identity.IsConflict(err):
			WriteError(w, http.StatusConflict, "username or email already in use")
		case identity.IsNotFound(err):
			WriteError(w, http.StatusUnauthorized, "invalid access token")
		default:
			h.log.Error("auth.update_account.fail", "err", err)
			WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	WriteSuccess(w, http.StatusOK, toUserResponse(updated), "Account updated successfully")
}

func (h *Handler) handleUploadProfilePic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	u, ok := UserFrom(r.Context())
	if !ok {
		WriteError(w, http.StatusUnauthorized, "invalid access token")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
		WriteError(w, http.StatusBadRequest, "file is too large or the upload is malformed")
		return
	}

	file, header, err := r.FormFile("profilePic")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "profilePic file is required")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !assets.AllowedContentType(contentType) {
		WriteError(w, http.StatusBadRequest, "only jpeg, jpg and png images are allowed")
		return
	}
	if header.Size > h.cfg.MaxUploadBytes {
		WriteError(w, http.StatusBadRequest, "file is too large")
		return
	}

	ctx := r.Context()
	now := time.Now().UTC()

	stored, err := h.assets.Upload(ctx, file, contentType)
	if err != nil {
		switch {
		case errors.Is(err, assets.ErrNotConfigured):
			WriteError(w, http.StatusServiceUnavailable, "uploads are not configured")
		case errors.Is(err, assets.ErrUnsupportedType):
			WriteError(w, http.StatusBadRequest, "only jpeg, jpg and png images are allowed")
		default:
			h.log.Error("auth.upload_pic.fail", "err", err)
			WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	// Best-effort removal of the previous asset; the new picture wins even
	// when the old object lingers.
	if u.PictureAssetID != nil {
		if err := h.assets.Delete(ctx, *u.PictureAssetID); err != nil {
			h.log.Warn("auth.upload_pic.delete_old.fail", "err", err, "asset_id", *u.PictureAssetID)
		}
	}

	updated, err := h.users.UpdatePicture(ctx, u.ID, &stored.URL, &stored.ID, now)
	if err != nil {
		if identity.IsNotFound(err) {
			WriteError(w, http.StatusUnauthorized, "invalid access token")
			return
		}
		h.log.Error("auth.upload_pic.update.fail", "err", err)
		WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	WriteSuccess(w, http.StatusOK, toUserResponse(updated), "Profile picture updated")
}

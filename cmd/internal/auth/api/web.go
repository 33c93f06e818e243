package authapi

import (
	"net/http"
	"strings"
	"time"

	"notenest/cmd/internal/auth/session"
)

// setSessionCookies writes the token pair as host-only cookies. No Domain is
// set, so the cookies never leak to sibling hosts. SameSite=None because the
// page origin and the API origin differ.
//
// The access cookie is session-scoped; the refresh cookie expires with the
// refresh token.
func (h *Handler) setSessionCookies(w http.ResponseWriter, issued session.Issued) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    issued.AccessToken,
		Path:     h.cfg.CookiePath,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    issued.RefreshToken,
		Path:     h.cfg.CookiePath,
		Expires:  issued.RefreshExp,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

func (h *Handler) clearSessionCookies(w http.ResponseWriter) {
	h.expireCookie(w, AccessCookieName)
	h.expireCookie(w, RefreshCookieName)
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

// accessTokenFromRequest extracts the access token: cookie first, then the
// second whitespace-delimited segment of the Authorization header.
func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(AccessCookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.Fields(raw)
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}

// refreshTokenFromCookie returns the refresh cookie value, if present.
func refreshTokenFromCookie(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}

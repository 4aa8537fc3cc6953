package auth

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/gotodo/internal/common"
)

// SetTokenCookie attaches token as the http-only access_token cookie.
func SetTokenCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie tells the browser to drop the access_token cookie.
func ClearTokenCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.AccessTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest returns the access_token cookie value, or "" if absent.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(common.AccessTokenCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

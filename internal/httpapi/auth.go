package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"wdms/delivery-service/internal/session"
)

type identityContextKey struct{}

const (
	loginPath     = "/m/login"
	dashboardPath = "/m/dashboard"
	managerPrefix = "/m/"
)

// SessionGate guards the manager-facing area. Requests under /m/ (except
// the login page) need a valid session cookie; an invalid or expired cookie
// is cleared on the redirect so the client cannot get stuck in a loop.
// The decision is stateless per request.
func SessionGate(codec *session.Codec, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if strings.HasPrefix(path, managerPrefix) && path != loginPath {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			identity, err := codec.Verify(cookie.Value)
			if err != nil {
				expireSessionCookie(w)
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if path == loginPath {
			if cookie, err := r.Cookie(session.CookieName); err == nil {
				if _, err := codec.Verify(cookie.Value); err == nil {
					http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
					return
				}
			}
		}

		next.ServeHTTP(w, r)
	})
}

func identityFromContext(ctx context.Context) (session.Identity, bool) {
	value := ctx.Value(identityContextKey{})
	if value == nil {
		return session.Identity{}, false
	}
	identity, ok := value.(session.Identity)
	return identity, ok
}

func expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

package auth

import (
	"net/http"
	"strings"
	"time"
)

// SessionCookie holds the identity token after sign-in.
const SessionCookie = "tt_session"

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Middleware resolves the caller from a bearer header or the session cookie.
// Requests without a valid token continue signed out; handlers decide whether
// to redirect or reject.
type Middleware struct {
	Config  Config
	Skipper Skipper
}

func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Skipper: skipper}
}

func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.parseRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			return nil, ErrInvalidToken
		}
		return Parse(header[len("Bearer "):], m.Config)
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return Parse(c.Value, m.Config)
	}
	return nil, ErrMissingToken
}

// SetSession stores a verified token in an HttpOnly cookie that expires with it.
func SetSession(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSession removes the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

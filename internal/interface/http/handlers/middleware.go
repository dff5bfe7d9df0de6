package handlers

import (
	"context"
	"net/http"
	"time"
)

// MiddlewareFunc wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ChainHandler wraps h so that middlewares[0] runs first.
func ChainHandler(h http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// ──────────────────────────────────────────────────────────────────────────────
// Basic auth
// ──────────────────────────────────────────────────────────────────────────────

// Authenticator checks teacher credentials; auth.Accounts implements it.
type Authenticator interface {
	Enabled() bool
	Verify(username, password string) error
}

type userKey struct{}

// UserFromContext is the username BasicAuth accepted, or "".
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(userKey{}).(string)
	return u
}

// BasicAuthMiddleware guards API routes with HTTP Basic credentials.
type BasicAuthMiddleware struct {
	accounts Authenticator
	realm    string
	onDenied http.HandlerFunc
}

// BasicAuth builds the middleware. onDenied writes the 401 body; nil writes
// plain text. With no accounts configured every request passes.
func BasicAuth(accounts Authenticator, realm string, onDenied func(w http.ResponseWriter, r *http.Request)) *BasicAuthMiddleware {
	if onDenied == nil {
		onDenied = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	}
	return &BasicAuthMiddleware{accounts: accounts, realm: realm, onDenied: onDenied}
}

func (a *BasicAuthMiddleware) Middleware(next http.Handler) http.Handler {
	if a.accounts == nil {
		return next
	}
	challenge := `Basic realm="` + a.realm + `", charset="UTF-8"`
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.accounts.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || a.accounts.Verify(user, pass) != nil {
			w.Header().Set("WWW-Authenticate", challenge)
			a.onDenied(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// Headers and deadlines
// ──────────────────────────────────────────────────────────────────────────────

// SecurityHeadersMiddleware locks the JSON API down for browsers.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// NoCacheMiddleware keeps balances out of browser and proxy caches.
func NoCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store, max-age=0")
		next.ServeHTTP(w, r)
	})
}

// TimeoutMiddleware puts a deadline on the request context. Storage calls
// made with that context give up when it passes.
func TimeoutMiddleware(timeout time.Duration) MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

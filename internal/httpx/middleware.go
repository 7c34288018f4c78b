package httpx

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/ariefcatur/widget-store/internal/auth"
)

const (
	msgAuthRequired  = "You must authenticate first."
	msgAdminRequired = "You must be an admin to access."
)

// Authenticate attaches the caller identity of a valid token. Requests
// without a valid token pass through anonymous; routes that need a caller
// say so with RequireAuth or RequireAdmin.
func Authenticate(tokens *auth.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := auth.TokenFromRequest(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := tokens.Parse(tok)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.FromContext(r.Context()); !ok {
			writeMessage(w, http.StatusUnauthorized, msgAuthRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := auth.FromContext(r.Context())
		if !ok || !id.IsAdmin {
			writeMessage(w, http.StatusUnauthorized, msgAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Limiter admits or refuses one call for a caller key.
type Limiter interface {
	Allow(ctx context.Context, caller string) (bool, error)
}

// RateLimit refuses callers over the limit with 429. Callers are keyed by
// user id when authenticated, by client IP otherwise. Limiter failures let
// the request through.
func RateLimit(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := "ip:" + clientIP(r)
			if id, ok := auth.FromContext(r.Context()); ok {
				caller = fmt.Sprintf("user:%d", id.UserID)
			}
			ok, err := l.Allow(r.Context(), caller)
			if err != nil {
				log.Printf("rate limit %s: %v", caller, err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeMessage(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port from RemoteAddr. RealIP may already have replaced
// it with a bare address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

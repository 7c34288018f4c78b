package httpx

import (
	"net/http"
	"time"

	"github.com/ariefcatur/widget-store/internal/auth"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the base router. When tokens is non-nil every request
// carrying a valid token gets its caller identity attached.
func NewRouter(tokens *auth.Tokens, timeout time.Duration) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}
	if tokens != nil {
		r.Use(Authenticate(tokens))
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

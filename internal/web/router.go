package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/shapr-cms/shapr/internal/access"
)

// NewRouter assembles the API router: request id, panic recovery, request
// logging, token resolution, then the collection and schema routes. tokens
// may be nil when the server runs without authentication; every caller is
// anonymous then.
func NewRouter(h *Handlers, tokens *access.TokenService, logger *zap.Logger) chi.Router {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	if tokens != nil {
		r.Use(access.Middleware(tokens))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/_schema", h.SchemaList)
		r.Get("/_schema/{slug}", h.SchemaGet)

		r.Route("/{slug}", func(r chi.Router) {
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})

	return r
}

// requestLogger logs one line per request with method, path, status and
// duration.
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

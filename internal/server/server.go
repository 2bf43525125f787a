// Package server is the HTTP surface: an upload page that shows the
// extracted Markdown and its preview, and a JSON API doing the same.
package server

import (
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MalithGihan/research-extractor/internal/extract"
	"github.com/MalithGihan/research-extractor/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Extractor turns one uploaded document into research data.
// *extract.Client implements it.
type Extractor interface {
	Extract(ctx context.Context, doc extract.Document) (*types.ResearchData, error)
}

type Server struct {
	extractor Extractor
	logger    *slog.Logger
	maxUpload int64
}

func New(ex Extractor, logger *slog.Logger, maxUpload int64) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUpload <= 0 {
		maxUpload = 64 << 20
	}
	return &Server{extractor: ex, logger: logger, maxUpload: maxUpload}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"service":"research-extractor"}`))
	})

	r.Get("/", s.handleIndex)
	r.Post("/extract", s.handleExtractPage)

	r.Route("/api", func(r chi.Router) {
		r.Get("/schema", s.handleSchema)
		r.Post("/extract", s.handleExtractJSON)
	})
	return r
}

type ctxKey struct{}

// requestID tags each request with a UUID, reusing a valid incoming
// X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the id assigned by the middleware, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

package main

import (
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// routeOptions configures the optional parts of the router. Request deadlines
// are applied by assessmentService, which writes the response itself.
type routeOptions struct {
	staticDir     string
	socketHandler http.Handler
}

func newRouter(service *assessmentService, opts routeOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHeaders)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth(service))
		r.Get("/model", handleModelInfo(service))
		r.Get("/survey", handleSurvey)
		r.Post("/baseline", handleBaseline(service))
		r.Post("/predict", handlePredict(service))
	})

	if opts.socketHandler != nil {
		r.Handle("/socket.io/*", opts.socketHandler)
	}

	if opts.staticDir != "" {
		if info, err := os.Stat(opts.staticDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(opts.staticDir)))
		}
	}

	return r
}

func corsHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

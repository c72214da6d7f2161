package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/docharbor/docharbor/internal/api/handlers"
	appMiddleware "github.com/docharbor/docharbor/internal/api/middlewares"
	"github.com/docharbor/docharbor/internal/services"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(a *App, inquiries *services.InquiryService) *Server {
	authHandler := handlers.NewAuthHandler(a.DBClient, a.Cfg.JWTSecret)
	docHandler := handlers.NewDocumentHandler(a.Documents)
	userHandler := handlers.NewUserHandler(a.Users)
	inquiryHandler := handlers.NewInquiryHandler(inquiries, a.Cfg.DefaultTopK)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)
		api.Get("/public/documents", docHandler.ListPublic)
		api.Get("/document-types", docHandler.ListTypes)

		// The inquire stream has no write timeout; generation can be slow.
		api.Post("/inquire", inquiryHandler.Inquire)

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.Auth(a.DBClient, a.Cfg.JWTSecret))
			protected.Get("/documents", docHandler.List)
			protected.Get("/documents/{id}", docHandler.Get)

			protected.Group(func(admin chi.Router) {
				admin.Use(appMiddleware.RequireAdmin)
				admin.Post("/documents", docHandler.Upload)
				admin.Patch("/documents/{id}", docHandler.Update)
				admin.Delete("/documents/{id}", docHandler.Delete)
				admin.Post("/documents/{id}/enqueue", docHandler.RetryEnqueue)

				admin.Get("/users", userHandler.List)
				admin.Get("/users/{id}", userHandler.Get)
				admin.Post("/users", userHandler.Create)
				admin.Patch("/users/{id}", userHandler.Update)
				admin.Delete("/users/{id}", userHandler.Delete)
			})
		})
	})

	httpSrv := &http.Server{
		Addr:              ":" + a.Cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

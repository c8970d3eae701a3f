// Package server is the HTTP/WebSocket transport adapter. It delivers
// inbound text lines to the session coordinator and renders its replies;
// all conversational logic lives in the session package.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/michaelbrown/runlet/internal/session"
	"github.com/michaelbrown/runlet/internal/storage"
)

// Server is the HTTP server for the runlet API.
type Server struct {
	store  storage.Store
	coord  *session.Coordinator
	router chi.Router
	http   *http.Server
}

// New creates a new Server.
func New(store storage.Store, coord *session.Coordinator) *Server {
	s := &Server{
		store:  store,
		coord:  coord,
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)

		// Chat transport
		r.Post("/chat/{requester}/messages", s.handleSendMessage)
		r.Get("/chat/{requester}/ws", s.handleWebSocket)

		// Run history
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Delete("/runs/{id}", s.handleDeleteRun)
	})

	r.Get("/", s.handleInfo)
}

// jsonContentType sets Content-Type to application/json for API routes.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Start begins listening on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.http = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	log.Printf("runlet server starting on http://localhost%s", addr)
	return s.http.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	return s.http.Shutdown(shutdownCtx)
}

// Package server exposes the application over HTTP: JSON in, JSON out, CORS
// on every route.
package server

import (
	"log/slog"
	"net/http"

	"github.com/C4rlos-asx/IA-con-recuerdos/internal/app"
	"github.com/C4rlos-asx/IA-con-recuerdos/internal/util"
)

type Server struct {
	app           *app.App
	logger        *slog.Logger
	allowedOrigin string
}

func New(application *app.App, logger *slog.Logger, allowedOrigin string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{app: application, logger: logger, allowedOrigin: allowedOrigin}
}

// Handler builds the route table wrapped in the shared middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /chat", s.handleSendMessage)
	mux.HandleFunc("GET /chat", s.handleGetChat)
	mux.HandleFunc("PATCH /chat/manage", s.handleRenameChat)
	mux.HandleFunc("DELETE /chat/manage", s.handleDeleteChat)

	mux.HandleFunc("POST /memory", s.handleCreateMemory)
	mux.HandleFunc("GET /memory", s.handleListMemories)

	mux.HandleFunc("GET /custom-model", s.handleListCustomModels)
	mux.HandleFunc("POST /custom-model", s.handleCreateCustomModel)
	mux.HandleFunc("PUT /custom-model", s.handleUpdateCustomModel)
	mux.HandleFunc("DELETE /custom-model", s.handleDeleteCustomModel)

	mux.HandleFunc("GET /models", s.handleListModels)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	var h http.Handler = mux
	h = util.WithRequestLog(h)
	h = util.WithRequestID(h)
	h = util.WithCORS(s.allowedOrigin, h)
	h = util.WithSecurityHeaders(h)
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"models": app.KnownModels()})
}

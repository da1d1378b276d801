package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"carebook-chatbot/internal/core"
	"carebook-chatbot/pkg"
	"carebook-chatbot/pkg/logging"
)

// Server bundles together the dependencies required by HTTP handlers.
type Server struct {
	Engine *core.Engine
	Logger *logging.Logger
}

// NewServer constructs a Server around the dialogue engine.
func NewServer(engine *core.Engine, logger *logging.Logger) *Server {
	if engine == nil {
		panic("http: engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Server{Engine: engine, Logger: logger}
}

// Router wires the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/patients/{patientID}", func(r chi.Router) {
		r.Post("/messages", s.handleMessage)
		r.Get("/history", s.handleHistory)
		r.Get("/chips", s.handleChips)
		r.Post("/reset", s.handleReset)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMessage processes one chat turn.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	if patientID == "" {
		http.Error(w, "missing patient id", http.StatusBadRequest)
		return
	}
	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.Engine.HandleTurn(r.Context(), patientID, req)
	if err != nil {
		s.Logger.Error("turn failed", "patient_id", patientID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleHistory returns the persisted conversation tail for rendering.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	turns, err := s.Engine.History(r.Context(), patientID)
	if err != nil {
		s.Logger.Error("history load failed", "patient_id", patientID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"turns": turns})
}

// handleChips returns quick-reply chips for the renderer between turns.
func (s *Server) handleChips(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	chips := s.Engine.Chips(r.Context(), patientID)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"quick_replies": chips})
}

// handleReset clears the conversation.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")
	s.Engine.Reset(patientID)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("failed to encode response", "error", err)
	}
}

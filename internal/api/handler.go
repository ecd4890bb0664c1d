package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/anthropics/companion-backend/internal/biz/domain"
	"github.com/anthropics/companion-backend/internal/biz/repo"
	"github.com/anthropics/companion-backend/internal/biz/usecase"
	"github.com/anthropics/companion-backend/internal/data"
)

const defaultHistoryPageSize = 20

// Server provides the HTTP surface: auth, chat, history, the client-driven
// idle trigger and the live websocket connection.
type Server struct {
	dispatcher *usecase.ChatDispatcher
	engine     *usecase.ProactiveEngine
	history    repo.HistoryRepo
	notifier   *data.WSNotifier
	mood       *domain.MoodState

	sessionID  string
	secretName string
	jwtSecret  string

	server *http.Server
	port   int
}

// NewServer creates a new API server.
func NewServer(
	dispatcher *usecase.ChatDispatcher,
	engine *usecase.ProactiveEngine,
	history repo.HistoryRepo,
	notifier *data.WSNotifier,
	mood *domain.MoodState,
	sessionID, secretName, jwtSecret string,
	port int,
) *Server {
	return &Server{
		dispatcher: dispatcher,
		engine:     engine,
		history:    history,
		notifier:   notifier,
		mood:       mood,
		sessionID:  sessionID,
		secretName: secretName,
		jwtSecret:  jwtSecret,
		port:       port,
	}
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	r.Post("/api/auth", s.handleAuth)
	r.Post("/api/verify-token", s.handleVerifyToken)

	r.Group(func(pr chi.Router) {
		pr.Use(s.requireAuth)
		pr.Post("/api/chat", s.handleChat)
		pr.Get("/api/chat-history", s.handleChatHistory)
		pr.Post("/api/trigger-proactive", s.handleTriggerProactive)
	})

	r.Get("/api/ws", s.handleWS)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Router(),
	}

	fmt.Printf("[API] Starting HTTP server on port %d\n", s.port)
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// chatRequest is the inbound chat payload.
type chatRequest struct {
	Message  string `json:"message"`
	Image    string `json:"image,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body."})
		return
	}

	// Well-formed input is the caller's contract with the core: reject
	// empty requests here, before the dispatcher.
	if req.Message == "" && req.Image == "" {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Please provide a text message or an image."})
		return
	}

	reply, err := s.dispatcher.Handle(r.Context(), &usecase.ChatRequest{
		SessionID:     s.sessionID,
		Text:          req.Message,
		ImageData:     req.Image,
		ImageMimeType: req.MimeType,
	})
	if err != nil {
		fmt.Printf("[API] Error processing chat request: %v\n", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// historyItem is the frontend-facing message shape.
type historyItem struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	CreatedAt string `json:"created_at"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryPageSize
	if val := r.URL.Query().Get("limit"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var before time.Time
	if val := r.URL.Query().Get("before"); val != "" {
		parsed, err := time.Parse(time.RFC3339, val)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid before timestamp."})
			return
		}
		before = parsed
	}

	messages, err := s.history.RecentPage(r.Context(), s.sessionID, limit, before)
	if err != nil {
		fmt.Printf("[API] Error fetching chat history: %v\n", err)
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch chat history"})
		return
	}

	items := make([]historyItem, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		item := historyItem{
			Text:      msg.Text,
			Sender:    string(msg.Sender),
			CreatedAt: msg.CreatedAt.Format(time.RFC3339Nano),
		}
		if msg.HasImage() {
			item.ImageURL = fmt.Sprintf("data:%s;base64,%s", msg.ImageMimeType, msg.ImageData)
		}
		items = append(items, item)
	}

	respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleTriggerProactive(w http.ResponseWriter, r *http.Request) {
	// The body may carry the client's own idle count; the escalation level
	// is tracked server-side, so it is accepted and ignored.
	var req struct {
		IdleCount int `json:"idleCount"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.engine.TriggerIdle(r.Context(), s.sessionID)

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Printf("[API] Error encoding response: %v\n", err)
	}
}

// corsMiddleware allows the frontend origin. Kept permissive; the single
// user authenticates with a token anyway.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

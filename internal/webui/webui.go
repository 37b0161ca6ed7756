// ABOUTME: Web UI package for the coven-chat single-page interface
// ABOUTME: Wires HTTP routes to the conversation service and renders templates

package webui

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/2389/coven-chat/internal/store"
)

// ConversationService defines what the UI needs from the conversation layer
type ConversationService interface {
	Send(ctx context.Context, text string) (*store.Conversation, error)
	NewConversation(ctx context.Context) *store.Conversation
	Select(id string) (*store.Conversation, bool)
	Active() *store.Conversation
	List() []*store.Conversation
	FilterByTitle(query string) []*store.Conversation
	Pending() bool
}

// Config holds web UI configuration
type Config struct {
	// Title is shown in the page header
	Title string
}

// Handler serves the chat interface
type Handler struct {
	svc    ConversationService
	title  string
	logger *slog.Logger
}

// New creates a web UI handler backed by the given conversation service
func New(svc ConversationService, cfg Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	title := cfg.Title
	if title == "" {
		title = "Coven Chat"
	}
	return &Handler{
		svc:    svc,
		title:  title,
		logger: logger.With("component", "webui"),
	}
}

// RegisterRoutes registers all chat UI routes on the mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /partials/sidebar", h.handleSidebar)
	mux.HandleFunc("GET /partials/conversation", h.handleConversation)
	mux.HandleFunc("POST /chat/send", h.handleSend)
	mux.HandleFunc("POST /chat/new", h.handleNewChat)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

// handleHealthz reports liveness
func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

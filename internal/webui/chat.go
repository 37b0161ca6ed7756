// ABOUTME: Chat handlers for the single-page interface
// ABOUTME: Provides the shell, sidebar, and conversation view HTMX endpoints

package webui

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/coven-chat/internal/conversation"
	"github.com/2389/coven-chat/internal/store"
)

// chatPageData holds data for the main chat shell
type chatPageData struct {
	Title   string
	Active  *conversationViewData
	Sidebar sidebarData
}

// sidebarData holds data for the conversation list sidebar
type sidebarData struct {
	Query         string
	Conversations []sidebarItemData
}

// sidebarItemData represents a single conversation in the sidebar
type sidebarItemData struct {
	ID        string
	Title     string
	Active    bool
	CreatedAt time.Time
}

// conversationViewData holds data for the chat view partial
type conversationViewData struct {
	ID       string
	Title    string
	Pending  bool
	Messages []messageViewData
}

// messageViewData is one rendered message bubble
type messageViewData struct {
	Role          string
	Content       template.HTML
	Timestamp     time.Time
	Sources       []string
	RelatedTopics []string
	Confidence    string
	HasResult     bool
}

// handleIndex renders the main chat shell
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := chatPageData{
		Title:   h.title,
		Active:  h.conversationView(h.svc.Active()),
		Sidebar: h.sidebar(""),
	}

	tmpl := template.Must(template.ParseFS(templateFS,
		"templates/base.html",
		"templates/chat.html",
		"templates/partials/sidebar.html",
		"templates/partials/conversation.html",
	))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render chat shell", "error", err)
	}
}

// handleSidebar returns the conversation list (HTMX partial).
// The q parameter filters by title, case-insensitively.
func (h *Handler) handleSidebar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	tmpl := template.Must(template.ParseFS(templateFS, "templates/partials/sidebar.html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "sidebar", h.sidebar(query)); err != nil {
		h.logger.Error("failed to render sidebar", "error", err)
	}
}

// handleConversation makes a conversation active and returns its chat view (HTMX partial)
func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Conversation ID required", http.StatusBadRequest)
		return
	}

	conv, ok := h.svc.Select(id)
	if !ok {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}

	h.renderConversation(w, conv)
}

// handleSend accepts a submitted message, runs the agent turn, and returns
// the updated chat view (HTMX partial).
func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}
	text := r.FormValue("message")

	conv, err := h.svc.Send(r.Context(), text)
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		// Silent no-op: re-render whatever is active
		h.renderConversation(w, h.svc.Active())
		return
	case errors.Is(err, conversation.ErrSendInFlight):
		http.Error(w, "A message is already being sent", http.StatusConflict)
		return
	case err != nil:
		h.logger.Error("send failed", "error", err)
		http.Error(w, "Failed to send message", http.StatusInternalServerError)
		return
	}

	// The sidebar listens for this to pick up new titles
	w.Header().Set("HX-Trigger", "refresh-sidebar")
	h.renderConversation(w, conv)
}

// handleNewChat starts a fresh conversation and returns its empty chat view (HTMX partial)
func (h *Handler) handleNewChat(w http.ResponseWriter, r *http.Request) {
	conv := h.svc.NewConversation(r.Context())
	h.logger.Info("conversation created", "conversation_id", conv.ID)
	w.Header().Set("HX-Trigger", "refresh-sidebar")
	h.renderConversation(w, conv)
}

// renderConversation writes the chat view partial for a conversation.
// A nil conversation renders the empty state with an enabled composer.
func (h *Handler) renderConversation(w http.ResponseWriter, conv *store.Conversation) {
	view := h.conversationView(conv)
	if view == nil {
		view = &conversationViewData{Pending: h.svc.Pending()}
	}

	tmpl := template.Must(template.ParseFS(templateFS, "templates/partials/conversation.html"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "conversation", view); err != nil {
		h.logger.Error("failed to render conversation", "error", err)
	}
}

// sidebar builds the conversation list, optionally filtered by title
func (h *Handler) sidebar(query string) sidebarData {
	var conversations []*store.Conversation
	if query != "" {
		conversations = h.svc.FilterByTitle(query)
	} else {
		conversations = h.svc.List()
	}

	activeID := ""
	if active := h.svc.Active(); active != nil {
		activeID = active.ID
	}

	data := sidebarData{Query: query}
	for _, c := range conversations {
		data.Conversations = append(data.Conversations, sidebarItemData{
			ID:        c.ID,
			Title:     c.Title,
			Active:    c.ID == activeID,
			CreatedAt: c.CreatedAt,
		})
	}
	return data
}

// conversationView converts a conversation into its template form
func (h *Handler) conversationView(conv *store.Conversation) *conversationViewData {
	if conv == nil {
		return nil
	}

	view := &conversationViewData{
		ID:      conv.ID,
		Title:   conv.Title,
		Pending: h.svc.Pending(),
	}
	for _, m := range conv.Messages {
		item := messageViewData{
			Role:      string(m.Role),
			Content:   h.renderMarkdown(m.Content),
			Timestamp: m.CreatedAt,
		}
		if m.Result != nil {
			item.HasResult = true
			item.Sources = m.Result.Sources
			item.RelatedTopics = m.Result.RelatedTopics
			item.Confidence = fmt.Sprintf("%.0f%%", m.Result.Confidence*100)
		}
		view.Messages = append(view.Messages, item)
	}
	return view
}

// renderMarkdown converts message markdown to HTML. Raw HTML in the source
// is escaped by goldmark's defaults.
func (h *Handler) renderMarkdown(content string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		h.logger.Error("failed to convert markdown", "error", err)
		return template.HTML(template.HTMLEscapeString(content))
	}
	return template.HTML(buf.String())
}

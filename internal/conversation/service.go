// ABOUTME: Service is the central state machine for conversations and messages
// ABOUTME: All turns flow through here - the store is the source of truth, not a side effect

package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/coven-chat/internal/agent"
	"github.com/2389/coven-chat/internal/store"
)

// DefaultTitle is the title of a conversation created before any message
const DefaultTitle = "New Conversation"

// maxTitleLen bounds titles derived from the first user message
const maxTitleLen = 50

// ErrEmptyMessage is returned when the submitted text is empty or whitespace.
// The conversation state is left untouched.
var ErrEmptyMessage = errors.New("empty message")

// ErrSendInFlight is returned while a previous send is still awaiting the
// agent. The conversation state is left untouched (single-flight guard).
var ErrSendInFlight = errors.New("send already in flight")

// Caller defines what the service needs from the agent layer
type Caller interface {
	Ask(ctx context.Context, query string) (*store.AgentResult, error)
}

// Service owns the ordered conversation list, tracks the active conversation,
// and runs the send turn. Mutations preserve the invariants: unique ids,
// append-only message order, title set once, at most one active conversation,
// at most one in-flight send.
type Service struct {
	mu            sync.Mutex
	conversations []*store.Conversation
	activeID      string
	pending       bool

	kv     store.KV
	caller Caller
	logger *slog.Logger
}

// New creates a conversation service backed by the given persistence
// collaborator and agent adapter.
func New(kv store.KV, caller Caller, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		kv:     kv,
		caller: caller,
		logger: logger.With("component", "conversation"),
	}
}

// Load restores the conversation list from the persistence collaborator.
// A missing key or a malformed document leaves the service empty; neither is
// fatal to the chat flow.
func (s *Service) Load(ctx context.Context) {
	data, err := s.kv.Get(ctx, store.ConversationsKey)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("no saved conversations")
		return
	}
	if err != nil {
		s.logger.Error("failed to read saved conversations", "error", err)
		return
	}

	conversations, err := store.DecodeConversations(data)
	if err != nil {
		s.logger.Warn("saved conversations malformed, starting empty", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = conversations
	if len(conversations) > 0 {
		s.activeID = conversations[0].ID
	}
	s.logger.Info("conversations loaded", "count", len(conversations))
}

// NewConversation creates an empty conversation, inserts it at the front of
// the list, and makes it active.
func (s *Service) NewConversation(ctx context.Context) *store.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.createLocked(DefaultTitle)
	s.persistLocked(ctx)
	return cloneConversation(conv)
}

// Send runs one full turn: append the user message, call the agent, append
// the reply. The user message is recorded and persisted BEFORE the network
// call, so it is always visible ahead of the agent's answer.
//
// Empty input returns ErrEmptyMessage and a pending turn returns
// ErrSendInFlight; both leave the state untouched. Agent failures do not
// fail the turn - they append a fallback reply instead.
func (s *Service) Send(ctx context.Context, text string) (*store.Conversation, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return nil, ErrSendInFlight
	}

	conv := s.activeLocked()
	if conv == nil {
		conv = s.createLocked(truncateTitle(trimmed))
	}

	conv.Messages = append(conv.Messages, &store.Message{
		ID:        uuid.New().String(),
		Role:      store.RoleUser,
		Content:   trimmed,
		CreatedAt: time.Now(),
	})
	s.pending = true
	s.persistLocked(ctx)
	convID := conv.ID
	s.mu.Unlock()

	s.logger.Debug("user message recorded", "conversation_id", convID)

	// Exactly one outbound call per accepted turn
	result, err := s.caller.Ask(ctx, trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = false

	conv = s.findLocked(convID)
	if conv == nil {
		// Cannot happen: conversations are never removed
		s.logger.Error("conversation vanished during send", "conversation_id", convID)
		return nil, errors.New("conversation not found")
	}

	reply := &store.Message{
		ID:        uuid.New().String(),
		Role:      store.RoleAgent,
		CreatedAt: time.Now(),
	}
	if err != nil {
		s.logger.Warn("agent call failed", "conversation_id", convID, "error", err)
		reply.Content = agent.FallbackText(err)
	} else {
		reply.Content = result.Answer
		reply.Result = result
	}
	conv.Messages = append(conv.Messages, reply)
	s.persistLocked(ctx)

	return cloneConversation(conv), nil
}

// Select makes the conversation with the given id active and returns it
func (s *Service) Select(id string) (*store.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.findLocked(id)
	if conv == nil {
		return nil, false
	}
	s.activeID = id
	return cloneConversation(conv), true
}

// Active returns the active conversation, or nil when none exists
func (s *Service) Active() *store.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneConversation(s.activeLocked())
}

// List returns all conversations, most recently created first
func (s *Service) List() []*store.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneConversations(s.conversations)
}

// FilterByTitle returns the conversations whose title contains query,
// case-insensitively, preserving list order. An empty query returns all.
func (s *Service) FilterByTitle(query string) []*store.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return cloneConversations(s.conversations)
	}

	var matched []*store.Conversation
	for _, c := range s.conversations {
		if strings.Contains(strings.ToLower(c.Title), needle) {
			matched = append(matched, cloneConversation(c))
		}
	}
	return matched
}

// Pending reports whether a send is currently awaiting the agent
func (s *Service) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// createLocked inserts a fresh conversation at the front and makes it active
func (s *Service) createLocked(title string) *store.Conversation {
	conv := &store.Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		Messages:  []*store.Message{},
		CreatedAt: time.Now(),
	}
	s.conversations = append([]*store.Conversation{conv}, s.conversations...)
	s.activeID = conv.ID
	s.logger.Debug("conversation created", "conversation_id", conv.ID, "title", title)
	return conv
}

func (s *Service) activeLocked() *store.Conversation {
	if s.activeID == "" {
		return nil
	}
	return s.findLocked(s.activeID)
}

func (s *Service) findLocked(id string) *store.Conversation {
	for _, c := range s.conversations {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// persistLocked writes the full conversation list through the persistence
// collaborator. Skipped while the list is empty so a fresh start never
// overwrites saved state. Write failures are logged, never propagated - a
// persistence problem must not block the chat flow.
func (s *Service) persistLocked(ctx context.Context) {
	if len(s.conversations) == 0 {
		return
	}

	data, err := store.EncodeConversations(s.conversations)
	if err != nil {
		s.logger.Error("failed to encode conversations", "error", err)
		return
	}
	if err := s.kv.Set(ctx, store.ConversationsKey, data); err != nil {
		s.logger.Error("failed to persist conversations", "error", err)
	}
}

// truncateTitle derives a conversation title from the first user message
func truncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleLen {
		return text
	}
	return string(runes[:maxTitleLen])
}

// cloneConversation returns a copy whose message slice is independent of the
// service's own state. Messages themselves are immutable once appended, so a
// shallow copy of the slice is enough.
func cloneConversation(c *store.Conversation) *store.Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Messages = make([]*store.Message, len(c.Messages))
	copy(clone.Messages, c.Messages)
	return &clone
}

func cloneConversations(list []*store.Conversation) []*store.Conversation {
	out := make([]*store.Conversation, len(list))
	for i, c := range list {
		out[i] = cloneConversation(c)
	}
	return out
}

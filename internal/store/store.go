// ABOUTME: KV interface and conversation data types for coven-chat persistence
// ABOUTME: Defines Conversation, Message, AgentResult and the key-value Store contract

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested key does not exist
var ErrNotFound = errors.New("not found")

// ConversationsKey is the key under which the conversation list is persisted.
// The value matches what the original web client stored, so an existing
// database survives upgrades.
const ConversationsKey = "lyzr-conversations"

// Role identifies the author of a message
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent
}

// AgentResult is the structured payload attached to a successful agent reply
type AgentResult struct {
	Answer        string   `json:"answer"`
	Sources       []string `json:"sources"`
	RelatedTopics []string `json:"related_topics"`
	Confidence    float64  `json:"confidence"`
}

// Message is a single turn in a conversation. Messages are immutable once
// created; identity is ID. Result is nil for user messages and for agent
// error replies.
type Message struct {
	ID        string       `json:"id"`
	Role      Role         `json:"role"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"timestamp"`
	Result    *AgentResult `json:"response,omitempty"`
}

// Conversation is a titled, append-only sequence of messages
type Conversation struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"timestamp"`
}

// KV is the persistence collaborator: a small key-value facility the
// conversation service writes its serialized state through.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Close releases any resources held by the store
	Close() error
}

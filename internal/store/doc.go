// Package store provides persistent storage for coven-chat using SQLite.
//
// # Architecture
//
// The conversation service serializes its whole state as a JSON document and
// writes it through the KV interface under a single well-known key
// (ConversationsKey). SQLiteStore implements KV with one kv table.
//
// # Data Models
//
//   - Conversation: titled, append-only sequence of messages
//   - Message: one turn, authored by user or agent
//   - AgentResult: structured answer payload (answer, sources, related topics,
//     confidence) attached to successful agent messages
//
// # SQLite Configuration
//
// The store uses SQLite with WAL mode:
//
//	PRAGMA journal_mode=WAL;
//
// # Decoding
//
// DecodeConversations validates stored documents field-by-field (ids, roles,
// confidence range). A malformed document is rejected whole and callers fall
// back to empty state rather than trusting partial data.
//
// # Errors
//
//   - ErrNotFound: requested key does not exist
//
// All methods accept context.Context for cancellation support.
package store

// ABOUTME: JSON codec for the persisted conversation list
// ABOUTME: Decoding validates field-by-field rather than trusting stored bytes

package store

import (
	"encoding/json"
	"fmt"
)

// EncodeConversations serializes the conversation list to the persisted
// JSON array format.
func EncodeConversations(conversations []*Conversation) ([]byte, error) {
	data, err := json.Marshal(conversations)
	if err != nil {
		return nil, fmt.Errorf("encoding conversations: %w", err)
	}
	return data, nil
}

// DecodeConversations parses a persisted conversation list and validates it.
// A document that fails validation is rejected whole; callers treat the error
// as "no saved state" rather than loading a partially-trusted list.
func DecodeConversations(data []byte) ([]*Conversation, error) {
	var conversations []*Conversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return nil, fmt.Errorf("parsing conversations: %w", err)
	}

	seen := make(map[string]bool, len(conversations))
	for i, c := range conversations {
		if c == nil {
			return nil, fmt.Errorf("conversation %d: null entry", i)
		}
		if c.ID == "" {
			return nil, fmt.Errorf("conversation %d: missing id", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("conversation %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = true

		for j, m := range c.Messages {
			if err := validateMessage(m); err != nil {
				return nil, fmt.Errorf("conversation %q message %d: %w", c.ID, j, err)
			}
		}
	}

	return conversations, nil
}

func validateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("null entry")
	}
	if m.ID == "" {
		return fmt.Errorf("missing id")
	}
	if !m.Role.Valid() {
		return fmt.Errorf("unknown role %q", m.Role)
	}
	if m.Result != nil {
		if m.Result.Confidence < 0 || m.Result.Confidence > 1 {
			return fmt.Errorf("confidence %v out of range", m.Result.Confidence)
		}
	}
	return nil
}

// Package conversation provides the conversation state machine.
//
// # Overview
//
// The conversation package sits between the web handlers and the agent
// adapter. It owns the ordered list of conversations, tracks which one is
// active, and runs the send turn end to end.
//
// # Service
//
// The Service coordinates conversation operations:
//
//	svc := conversation.New(kvStore, agentClient, logger)
//	svc.Load(ctx)
//
// Key operations:
//
//   - Send(ctx, text): append the user message, call the agent once, append
//     the reply (answer or fallback text)
//   - NewConversation(ctx): start an empty conversation and make it active
//   - Select(id) / List() / FilterByTitle(query): read side
//
// # Send Turn
//
// A turn follows "record first, then act":
//
//  1. Reject empty input and turns while another send is pending
//  2. Create a conversation implicitly when none is active, titled with the
//     message text truncated to 50 characters
//  3. Append and persist the user message before any network I/O
//  4. Call the agent exactly once
//  5. Append the agent answer (with its structured result) or a fallback
//     error text, then persist again
//
// # Single-Flight Guard
//
// At most one send may be awaiting the agent at a time. A second submission
// returns ErrSendInFlight without touching any state.
//
// # Persistence
//
// The whole conversation list is serialized after every mutation that adds a
// conversation or message, under store.ConversationsKey. Persistence errors
// are logged and never block the chat flow. An empty list is never written,
// so startup cannot clobber saved state.
package conversation

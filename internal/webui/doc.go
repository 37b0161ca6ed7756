// Package webui serves the single-page chat interface.
//
// # Overview
//
// The UI is one embedded HTML shell plus HTMX partials. Presentation is the
// only concern here: all behavior lives in the conversation service, which
// this package talks to through the ConversationService interface.
//
// # Routes
//
//   - GET  /                       chat shell
//   - GET  /partials/sidebar       conversation list, ?q= filters by title
//   - GET  /partials/conversation  chat view for ?id=, makes it active
//   - POST /chat/send              submit a message, returns the updated view
//   - POST /chat/new               start a fresh conversation
//   - GET  /healthz                liveness probe
//
// # Rendering
//
// Agent answers are markdown and render through goldmark. Structured results
// additionally show source links, related-topic chips, and the confidence
// score. While a send is pending the composer is disabled; a concurrent
// submission is answered 409 without touching state.
package webui

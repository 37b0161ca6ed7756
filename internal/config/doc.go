// Package config handles configuration loading for coven-chat.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	agent:
//	  id: "${COVEN_CHAT_AGENT_ID}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Server settings:
//
//	server:
//	  http_addr: "127.0.0.1:8080"
//
// Database:
//
//	database:
//	  path: "~/.local/share/coven-chat/chat.db"
//
// Remote agent endpoint:
//
//	agent:
//	  endpoint: "https://agent.example.com/v1/inference"
//	  id: "${COVEN_CHAT_AGENT_ID}"
//	  timeout: "60s"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Web UI:
//
//	webui:
//	  title: "Coven Chat"
//
// # Validation
//
// Load() requires server.http_addr, database.path, agent.endpoint, and
// agent.id. Duration values use Go's time.ParseDuration syntax.
package config

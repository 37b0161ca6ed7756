// Package agent is the boundary component that talks to the remote AI
// endpoint and normalizes its outcome.
//
// # Contract
//
// Client.Ask performs exactly one request-response round trip per user turn
// and returns either the structured answer or a classified error:
//
//   - ErrUnavailable: the transport failed (dial, DNS, timeout, reset)
//   - *ProtocolError: the endpoint answered with a non-success status or a
//     payload that could not be decoded
//
// Every failure mode is converted to one of these; nothing escapes the
// boundary as a panic. The caller therefore has exactly two cases to handle.
//
// # Wire Format
//
// Request:
//
//	{"query": "...", "agent_id": "..."}
//
// Expected success envelope:
//
//	{
//	  "status": "success",
//	  "result": {"answer": "...", "sources": [...], "related_topics": [...], "confidence": 0.92},
//	  "metadata": {"agent_name": "...", "timestamp": "..."}
//	}
//
// FallbackText maps a classified error to the text rendered in the chat in
// place of an answer.
package agent

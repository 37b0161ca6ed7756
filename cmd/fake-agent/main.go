// ABOUTME: Minimal fake agent endpoint for local development and E2E testing
// ABOUTME: Usage: fake-agent [-addr localhost:9090] [-answers answers.toml] [-fail]

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// answerBook holds canned answers loaded from a TOML file
type answerBook struct {
	Answers []cannedAnswer `toml:"answers"`
}

// cannedAnswer is served when the query contains Match (case-insensitive)
type cannedAnswer struct {
	Match         string   `toml:"match"`
	Answer        string   `toml:"answer"`
	Sources       []string `toml:"sources"`
	RelatedTopics []string `toml:"related_topics"`
	Confidence    float64  `toml:"confidence"`
}

type askRequest struct {
	Query   string `json:"query"`
	AgentID string `json:"agent_id"`
}

func main() {
	addr := flag.String("addr", "localhost:9090", "HTTP listen address")
	answersPath := flag.String("answers", "", "TOML file of canned answers")
	fail := flag.Bool("fail", false, "Always respond with an error envelope")
	delay := flag.Duration("delay", 300*time.Millisecond, "Artificial response delay")
	flag.Parse()

	var book answerBook
	if *answersPath != "" {
		if _, err := toml.DecodeFile(*answersPath, &book); err != nil {
			log.Fatalf("loading answers: %v", err)
		}
		log.Printf("loaded %d canned answers from %s", len(book.Answers), *answersPath)
	}

	http.HandleFunc("POST /", func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, map[string]any{"status": "error", "message": "invalid request body"})
			return
		}

		log.Printf("received query [agent=%s]: %s", req.AgentID, req.Query)
		time.Sleep(*delay)

		if *fail {
			writeJSON(w, map[string]any{"status": "error", "message": "fake agent is in fail mode"})
			return
		}

		answer := book.lookup(req.Query)
		writeJSON(w, map[string]any{
			"status": "success",
			"result": map[string]any{
				"answer":         answer.Answer,
				"sources":        answer.Sources,
				"related_topics": answer.RelatedTopics,
				"confidence":     answer.Confidence,
			},
			"metadata": map[string]any{
				"agent_name": "Fake Agent",
				"timestamp":  time.Now().UTC().Format(time.RFC3339),
			},
		})
	})

	log.Printf("fake agent listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

// lookup returns the first canned answer whose match string appears in the
// query, or an echo answer when none matches.
func (b *answerBook) lookup(query string) cannedAnswer {
	lower := strings.ToLower(query)
	for _, a := range b.Answers {
		if a.Match != "" && strings.Contains(lower, strings.ToLower(a.Match)) {
			return a
		}
	}
	return cannedAnswer{
		Answer:        fmt.Sprintf("Echo: **%s**\n\nI received your question and am responding with some *formatted* text.", query),
		Sources:       []string{"https://example.com/echo"},
		RelatedTopics: []string{"echo", "testing"},
		Confidence:    0.5,
	}
}

func writeJSON(w http.ResponseWriter, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

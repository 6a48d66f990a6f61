package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/tamilsm/TranscriptAnalysis/internal/ollama"
)

const routeTimeout = 10 * time.Second

// Chatter is the interface for chat completion via Ollama.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// Route is the binary classification of an incoming request.
type Route string

const (
	RouteSQL     Route = "SQL"
	RouteGeneral Route = "GENERAL"
)

// Router classifies a natural-language request as needing analytics over the
// conversation store or not. It is the sole entry point deciding whether the
// SQL path runs at all.
type Router struct {
	client Chatter
	model  string
}

// NewRouter creates a Router using the given chat client and model name.
func NewRouter(client Chatter, model string) *Router {
	return &Router{client: client, model: model}
}

// Route classifies the question. Any classifier output other than the two
// legal labels yields RouteGeneral together with a *RouterError — failing
// safe, never executing SQL on an ambiguous classification. Transport
// failures also fall back to RouteGeneral.
func (r *Router) Route(ctx context.Context, question string) (Route, error) {
	ctx, cancel := context.WithTimeout(ctx, routeTimeout)
	defer cancel()

	messages := []ollama.Message{
		{Role: "system", Content: routerSystemPrompt},
		{Role: "user", Content: question},
	}
	schema := &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"route": {Type: "string", Enum: []string{"SQL", "GENERAL"}},
		},
		Required: []string{"route"},
	}

	raw, err := r.client.Chat(ctx, r.model, messages, schema)
	if err != nil {
		return RouteGeneral, err
	}

	var result struct {
		Route string `json:"route"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return RouteGeneral, &RouterError{Raw: raw}
	}

	switch strings.ToUpper(strings.TrimSpace(result.Route)) {
	case "SQL":
		return RouteSQL, nil
	case "GENERAL":
		return RouteGeneral, nil
	}
	return RouteGeneral, &RouterError{Raw: result.Route}
}

// extractJSONObject pulls the first JSON object out of a model response.
// Small local models frequently wrap JSON in markdown code fences or prepend
// conversational filler.
func extractJSONObject(s string) string {
	s = strings.TrimSpace(s)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return s
	}
	return s[start : end+1]
}

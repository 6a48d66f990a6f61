package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tamilsm/TranscriptAnalysis/internal/ollama"
)

// scriptedChatter returns responses keyed on the system prompt so one mock
// can serve router, generator, and summarizer in a single Ask call.
type scriptedChatter struct {
	route   string
	sql     string
	summary string
	general string
}

func (s *scriptedChatter) Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error) {
	system := messages[0].Content
	switch {
	case system == routerSystemPrompt:
		return s.route, nil
	case system == sqlSystemPrompt:
		return s.sql, nil
	case system == summarizerSystemPrompt:
		return s.summary, nil
	case system == generalSystemPrompt:
		return s.general, nil
	}
	return "", errors.New("unexpected system prompt")
}

func TestAsk_SQLPath(t *testing.T) {
	chatter := &scriptedChatter{
		route:   `{"route": "SQL"}`,
		sql:     "SELECT conversation_id FROM conversations ORDER BY conversation_id",
		summary: "There are 3 conversations.",
	}
	gate := NewGate(openGateDB(t), 0, 0)
	a := New(chatter, gate, "fast", "sqlmodel", "summary", 10)

	answer, err := a.Ask(context.Background(), "how many conversations are there?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if answer.Route != "SQL" {
		t.Errorf("route = %q, want SQL", answer.Route)
	}
	if answer.Result == nil || answer.Result.RowCount != 3 {
		t.Errorf("result = %+v, want 3 rows", answer.Result)
	}
	if answer.Summary != "There are 3 conversations." {
		t.Errorf("summary = %q", answer.Summary)
	}
}

func TestAsk_GeneralPath(t *testing.T) {
	chatter := &scriptedChatter{
		route:   `{"route": "GENERAL"}`,
		general: "I analyze support-call transcripts.",
	}
	a := New(chatter, NewGate(nil, 0, 0), "fast", "sqlmodel", "summary", 10)

	answer, err := a.Ask(context.Background(), "what can you do?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer.Route != "GENERAL" {
		t.Errorf("route = %q, want GENERAL", answer.Route)
	}
	if answer.SQL != "" || answer.Result != nil {
		t.Errorf("general answer must not carry SQL artifacts: %+v", answer)
	}
}

// A generated mutation is rejected by the gate and surfaces as a
// ForbiddenStatementError; the agent never falls back to another statement.
func TestAsk_ForbiddenSQLFailsClosed(t *testing.T) {
	chatter := &scriptedChatter{
		route: `{"route": "SQL"}`,
		sql:   "DELETE FROM conversations",
	}
	a := New(chatter, NewGate(nil, 0, 0), "fast", "sqlmodel", "summary", 10)

	_, err := a.Ask(context.Background(), "clean up old conversations")
	var forbidden *ForbiddenStatementError
	if !errors.As(err, &forbidden) {
		t.Fatalf("err = %v, want *ForbiddenStatementError", err)
	}
}

// A summarizer failure degrades to the raw payload instead of failing the
// whole question.
type failingSummarizer struct{ scriptedChatter }

func (s *failingSummarizer) Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error) {
	if messages[0].Content == summarizerSystemPrompt {
		return "", errors.New("model crashed")
	}
	return s.scriptedChatter.Chat(ctx, model, messages, jsonSchema)
}

func TestAsk_SummarizerFailureDegrades(t *testing.T) {
	chatter := &failingSummarizer{scriptedChatter{
		route: `{"route": "SQL"}`,
		sql:   "SELECT COUNT(*) AS n FROM conversations",
	}}
	a := New(chatter, NewGate(openGateDB(t), 0, 0), "fast", "sqlmodel", "summary", 10)

	answer, err := a.Ask(context.Background(), "how many conversations?")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(answer.Summary, "1 of 1") {
		t.Errorf("fallback summary = %q", answer.Summary)
	}
}

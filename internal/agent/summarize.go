package agent

import (
	"context"
	"fmt"

	"github.com/tamilsm/TranscriptAnalysis/internal/ollama"
)

// Summarizer turns a shaped query result into a plain-language narrative
// for business users.
type Summarizer struct {
	client Chatter
	model  string
}

// NewSummarizer creates a Summarizer using the given chat client and model name.
func NewSummarizer(client Chatter, model string) *Summarizer {
	return &Summarizer{client: client, model: model}
}

// Summarize narrates the query result in the context of the original
// question.
func (s *Summarizer) Summarize(ctx context.Context, question, sqlUsed string, payload []byte) (string, error) {
	prompt := fmt.Sprintf(
		"User request: %s\n\nSQL used:\n%s\n\nResults (JSON):\n%s\n\nSummarize the results clearly for a business user.",
		question, sqlUsed, payload,
	)

	messages := []ollama.Message{
		{Role: "system", Content: summarizerSystemPrompt},
		{Role: "user", Content: prompt},
	}

	summary, err := s.client.Chat(ctx, s.model, messages, nil)
	if err != nil {
		return "", fmt.Errorf("summarizing results: %w", err)
	}
	return summary, nil
}

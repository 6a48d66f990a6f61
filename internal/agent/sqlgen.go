package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tamilsm/TranscriptAnalysis/internal/ollama"
)

// Generator asks the SQL model for a single candidate statement answering a
// natural-language question. Its output is untrusted and goes through the
// safety gate unmodified apart from CleanSQL normalization.
type Generator struct {
	client Chatter
	model  string
}

// NewGenerator creates a Generator using the given chat client and model name.
func NewGenerator(client Chatter, model string) *Generator {
	return &Generator{client: client, model: model}
}

// Generate returns one cleaned SQL statement for the question.
func (g *Generator) Generate(ctx context.Context, question string) (string, error) {
	messages := []ollama.Message{
		{Role: "system", Content: sqlSystemPrompt},
		{Role: "user", Content: question},
	}

	raw, err := g.client.Chat(ctx, g.model, messages, nil)
	if err != nil {
		return "", fmt.Errorf("generating SQL: %w", err)
	}

	stmt := CleanSQL(raw)
	if stmt == "" {
		return "", fmt.Errorf("SQL model returned no statement")
	}
	return stmt, nil
}

// CleanSQL normalizes model output to a bare SQL string: code fences and
// surrounding quotes are stripped, newlines collapsed, and only the first
// statement kept when several are separated by semicolons.
func CleanSQL(s string) string {
	s = strings.TrimSpace(s)

	for _, prefix := range []string{"```sql", "```SQL", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)

	if idx := strings.Index(s, ";"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}
	return s
}

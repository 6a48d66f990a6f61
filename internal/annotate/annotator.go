// Package annotate drives the LLM call that turns a raw transcript into a
// validated annotation.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tamilsm/TranscriptAnalysis/internal/ollama"
	"github.com/tamilsm/TranscriptAnalysis/internal/schema"
)

// Chatter is the interface for chat completion via Ollama.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// Annotator calls the annotation model and validates its output.
type Annotator struct {
	client     Chatter
	model      string
	maxRetries int
}

// New creates an Annotator. maxRetries bounds how often a malformed or
// schema-violating model response is retried before the transcript is
// treated as failed; values < 0 mean no retries.
func New(client Chatter, model string, maxRetries int) *Annotator {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Annotator{client: client, model: model, maxRetries: maxRetries}
}

// Annotate runs the model on the transcript and returns the validated,
// normalized annotation. Malformed output and schema violations are retried
// up to maxRetries times; transport errors are returned immediately so the
// job queue's backoff handles them. Score clamps recorded by the validator
// are logged, not fatal.
func (a *Annotator) Annotate(ctx context.Context, transcript string) (*schema.Annotation, error) {
	messages := BuildPrompt(transcript)
	jsonSchema := annotationSchema()

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		raw, err := a.client.Chat(ctx, a.model, messages, jsonSchema)
		if err != nil {
			return nil, fmt.Errorf("annotation chat: %w", err)
		}

		ann, clamps, err := schema.Parse([]byte(raw))
		if err != nil {
			var malformed *schema.MalformedOutputError
			var schemaErr *schema.SchemaError
			if errors.As(err, &malformed) || errors.As(err, &schemaErr) {
				lastErr = err
				slog.Warn("annotation output rejected", "attempt", attempt+1, "error", err)
				continue
			}
			return nil, err
		}

		for _, cl := range clamps {
			slog.Warn("annotation score clamped", "path", cl.Path, "from", cl.From, "to", cl.To)
		}
		return ann, nil
	}

	return nil, fmt.Errorf("annotation failed after %d attempts: %w", a.maxRetries+1, lastErr)
}

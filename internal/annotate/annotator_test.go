package annotate

import (
	"context"
	"errors"
	"testing"

	"github.com/tamilsm/TranscriptAnalysis/internal/ollama"
)

const minimalAnnotation = `{
	"call_id": "call-001",
	"language_detected": "en",
	"low_transcription_quality": false,
	"overall": {"customer_sentiment": "neutral", "customer_sentiment_confidence": 0.8, "dissatisfaction_expressed": false},
	"turns": [],
	"segments": [],
	"events": [],
	"topics": [],
	"resolution": {"status": "resolved", "confidence": 0.7, "follow_up_required": false},
	"quality_flags": {"audio_issues": false, "crosstalk": false, "pii_present": false},
	"notes": "",
	"version": "1.0"
}`

// seqChatter returns scripted responses in order, then repeats the last one.
type seqChatter struct {
	responses []string
	errs      []error
	calls     int
}

func (s *seqChatter) Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error) {
	i := s.calls
	s.calls++
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return s.responses[i], err
}

func TestAnnotate_Valid(t *testing.T) {
	c := &seqChatter{responses: []string{minimalAnnotation}}
	a := New(c, "mistral-nemo", 2)

	ann, err := a.Annotate(context.Background(), "Agent: Hello")
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if ann.CallID != "call-001" {
		t.Errorf("call_id = %q", ann.CallID)
	}
	if c.calls != 1 {
		t.Errorf("calls = %d, want 1", c.calls)
	}
}

// Malformed output is retried; a later valid response succeeds.
func TestAnnotate_RetriesMalformed(t *testing.T) {
	c := &seqChatter{responses: []string{"not json at all", minimalAnnotation}}
	a := New(c, "mistral-nemo", 2)

	ann, err := a.Annotate(context.Background(), "Agent: Hello")
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	if ann == nil || c.calls != 2 {
		t.Errorf("calls = %d, want 2", c.calls)
	}
}

func TestAnnotate_ExhaustsRetries(t *testing.T) {
	c := &seqChatter{responses: []string{"{}"}}
	a := New(c, "mistral-nemo", 1)

	_, err := a.Annotate(context.Background(), "Agent: Hello")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if c.calls != 2 {
		t.Errorf("calls = %d, want 2 (initial + 1 retry)", c.calls)
	}
}

// Transport errors are not retried here; the job queue's backoff owns them.
func TestAnnotate_TransportErrorNotRetried(t *testing.T) {
	c := &seqChatter{
		responses: []string{""},
		errs:      []error{errors.New("connection refused")},
	}
	a := New(c, "mistral-nemo", 3)

	_, err := a.Annotate(context.Background(), "Agent: Hello")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if c.calls != 1 {
		t.Errorf("calls = %d, want 1", c.calls)
	}
}

package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedOutputError indicates the model output was not parseable JSON.
// Callers retry the model call a bounded number of times before giving up.
type MalformedOutputError struct {
	Err error
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %v", e.Err)
}

func (e *MalformedOutputError) Unwrap() error { return e.Err }

// SchemaError indicates parseable JSON that is missing required structure.
type SchemaError struct {
	Path string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("annotation missing required field %q", e.Path)
}

// Clamp records a numeric score that was coerced back into [0,1] during
// validation. Clamps are surfaced to the caller for logging rather than
// failing the annotation.
type Clamp struct {
	Path string
	From float64
	To   float64
}

// requiredFields are the top-level keys every annotation must carry.
var requiredFields = []string{
	"call_id", "language_detected", "low_transcription_quality",
	"overall", "turns", "segments", "events", "topics",
	"resolution", "quality_flags", "notes", "version",
}

// Parse validates raw model output against the annotation contract and
// normalizes recoverable deviations:
//
//   - out-of-range scores are clamped into [0,1] and recorded
//   - unknown timestamps become the literal string "null"
//   - customer_emotions is zeroed on non-customer turns, agent_tone on
//     non-agent turns
//
// It fails with *MalformedOutputError on unparseable input and *SchemaError
// on a missing required field.
func Parse(raw []byte) (*Annotation, []Clamp, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, nil, &MalformedOutputError{Err: err}
	}

	for _, field := range requiredFields {
		v, ok := top[field]
		if !ok || string(v) == "null" {
			return nil, nil, &SchemaError{Path: field}
		}
	}

	var a Annotation
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, nil, &MalformedOutputError{Err: err}
	}

	clamps := normalize(&a)
	return &a, clamps, nil
}

func normalize(a *Annotation) []Clamp {
	var clamps []Clamp

	clampScore(&a.Overall.CustomerSentimentConfidence, "overall.customer_sentiment_confidence", &clamps)
	clampScore(&a.Resolution.Confidence, "resolution.confidence", &clamps)

	a.Overall.CustomerSentiment = strings.ToLower(strings.TrimSpace(a.Overall.CustomerSentiment))
	a.Resolution.Status = strings.ToLower(strings.TrimSpace(a.Resolution.Status))

	for i := range a.Turns {
		t := &a.Turns[i]
		t.Speaker = strings.ToLower(strings.TrimSpace(t.Speaker))
		t.TimestampStart = normalizeTimestamp(t.TimestampStart)
		t.TimestampEnd = normalizeTimestamp(t.TimestampEnd)

		// Emotion scores only apply to customer turns, tone only to agent
		// turns. A populated inapplicable block is zeroed, not rejected.
		if t.Speaker != "customer" {
			t.CustomerEmotions = Emotions{}
		}
		if t.Speaker != "agent" {
			t.AgentTone = AgentTone{}
		}

		prefix := fmt.Sprintf("turns[%d]", i)
		clampScore(&t.Confidence, prefix+".confidence", &clamps)
		clampEmotions(&t.CustomerEmotions, prefix+".customer_emotions", &clamps)
		clampScore(&t.AgentTone.Calm, prefix+".agent_tone.calm", &clamps)
		clampScore(&t.AgentTone.Empathetic, prefix+".agent_tone.empathetic", &clamps)
		clampScore(&t.AgentTone.Dismissive, prefix+".agent_tone.dismissive", &clamps)
		clampScore(&t.AgentTone.Impatient, prefix+".agent_tone.impatient", &clamps)
	}

	for i := range a.Segments {
		s := &a.Segments[i]
		s.TimestampStart = normalizeTimestamp(s.TimestampStart)
		s.TimestampEnd = normalizeTimestamp(s.TimestampEnd)
	}

	for i := range a.Events {
		e := &a.Events[i]
		e.Timestamp = normalizeTimestamp(e.Timestamp)
		clampScore(&e.Confidence, fmt.Sprintf("events[%d].confidence", i), &clamps)
	}

	for i := range a.Topics {
		clampScore(&a.Topics[i].Confidence, fmt.Sprintf("topics[%d].confidence", i), &clamps)
	}

	return clamps
}

func clampEmotions(e *Emotions, prefix string, clamps *[]Clamp) {
	clampScore(&e.Anger, prefix+".anger", clamps)
	clampScore(&e.Frustration, prefix+".frustration", clamps)
	clampScore(&e.Sadness, prefix+".sadness", clamps)
	clampScore(&e.Anxiety, prefix+".anxiety", clamps)
	clampScore(&e.Confusion, prefix+".confusion", clamps)
	clampScore(&e.Disappointment, prefix+".disappointment", clamps)
	clampScore(&e.Relief, prefix+".relief", clamps)
	clampScore(&e.Joy, prefix+".joy", clamps)
	clampScore(&e.Gratitude, prefix+".gratitude", clamps)
	clampScore(&e.Politeness, prefix+".politeness", clamps)
	clampScore(&e.Rudeness, prefix+".rudeness", clamps)
}

func clampScore(v *float64, path string, clamps *[]Clamp) {
	from := *v
	switch {
	case from < 0:
		*v = 0
	case from > 1:
		*v = 1
	default:
		return
	}
	*clamps = append(*clamps, Clamp{Path: path, From: from, To: *v})
}

// normalizeTimestamp maps a missing or JSON-null timestamp to the literal
// string "null". Downstream consumers are string-typed and must never see an
// empty value in that position.
func normalizeTimestamp(ts string) string {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return "null"
	}
	return ts
}

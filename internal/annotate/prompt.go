package annotate

import (
	"github.com/tamilsm/TranscriptAnalysis/internal/ollama"
)

const systemPrompt = `You are a call-center transcript annotation engine. Analyze the customer-support call transcript and produce ONLY a single valid JSON object conforming to the provided schema. No prose, no markdown.

Rules:
- Split the transcript into turns. Each turn has exactly one speaker: "customer" or "agent".
- Score customer_emotions only on customer turns and agent_tone only on agent turns. All scores are in [0.0, 1.0].
- Timestamps use "HH:MM:SS". When a timestamp is unknown, use the literal string "null" - never omit the field and never use a JSON null.
- low_transcription_quality is true when the transcript looks garbled, truncated, or machine-mangled.
- topics are short labels in the order they arise in the call, each with the keywords that evidence it.
- resolution.status is one of: resolved, partially_resolved, unresolved, unknown. Use "unknown" only when the outcome is genuinely indeterminate.
- notes is a short analyst-facing remark; it may be empty.
- version is always "1.0".`

// BuildPrompt constructs the chat messages for transcript annotation.
func BuildPrompt(transcript string) []ollama.Message {
	return []ollama.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: "Transcript:\n" + transcript},
	}
}

// annotationSchema returns the structured-output schema for the annotation
// contract. The real validator is internal/schema; this only constrains the
// model's decoding so malformed output is rare, not impossible.
func annotationSchema() *ollama.Schema {
	score := func(desc string) ollama.SchemaProperty {
		return ollama.SchemaProperty{Type: "number", Description: desc}
	}
	timestamp := func(desc string) ollama.SchemaProperty {
		return ollama.SchemaProperty{Type: "string", Description: desc + ` ("HH:MM:SS" or "null")`}
	}

	emotionProps := map[string]ollama.SchemaProperty{
		"anger":          score("Anger score"),
		"frustration":    score("Frustration score"),
		"sadness":        score("Sadness score"),
		"anxiety":        score("Anxiety score"),
		"confusion":      score("Confusion score"),
		"disappointment": score("Disappointment score"),
		"relief":         score("Relief score"),
		"joy":            score("Joy score"),
		"gratitude":      score("Gratitude score"),
		"politeness":     score("Politeness score"),
		"rudeness":       score("Rudeness score"),
	}

	turn := ollama.SchemaProperty{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"index":           {Type: "integer", Description: "Zero-based turn index"},
			"speaker":         {Type: "string", Enum: []string{"customer", "agent"}},
			"text":            {Type: "string", Description: "The turn's utterance"},
			"timestamp_start": timestamp("Turn start"),
			"timestamp_end":   timestamp("Turn end"),
			"customer_emotions": {
				Type:       "object",
				Properties: emotionProps,
			},
			"agent_tone": {
				Type: "object",
				Properties: map[string]ollama.SchemaProperty{
					"calm":       score("Calm tone"),
					"empathetic": score("Empathetic tone"),
					"dismissive": score("Dismissive tone"),
					"impatient":  score("Impatient tone"),
				},
			},
			"confidence": score("Annotation confidence for this turn"),
		},
		Required: []string{"index", "speaker", "text", "timestamp_start", "timestamp_end", "confidence"},
	}

	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"call_id":                   {Type: "string", Description: "Opaque call identifier"},
			"language_detected":         {Type: "string", Description: "BCP-47 language tag"},
			"low_transcription_quality": {Type: "boolean"},
			"overall": {
				Type: "object",
				Properties: map[string]ollama.SchemaProperty{
					"customer_sentiment":            {Type: "string", Enum: []string{"positive", "neutral", "negative", "unknown"}},
					"customer_sentiment_confidence": score("Confidence for the sentiment label"),
					"dissatisfaction_expressed":     {Type: "boolean"},
				},
				Required: []string{"customer_sentiment", "customer_sentiment_confidence"},
			},
			"turns": {Type: "array", Items: &turn},
			"segments": {
				Type: "array",
				Items: &ollama.SchemaProperty{
					Type: "object",
					Properties: map[string]ollama.SchemaProperty{
						"label":           {Type: "string"},
						"timestamp_start": timestamp("Segment start"),
						"timestamp_end":   timestamp("Segment end"),
						"summary":         {Type: "string"},
					},
				},
			},
			"events": {
				Type: "array",
				Items: &ollama.SchemaProperty{
					Type: "object",
					Properties: map[string]ollama.SchemaProperty{
						"type":        {Type: "string"},
						"timestamp":   timestamp("Event time"),
						"description": {Type: "string"},
						"confidence":  score("Event confidence"),
					},
				},
			},
			"topics": {
				Type: "array",
				Items: &ollama.SchemaProperty{
					Type: "object",
					Properties: map[string]ollama.SchemaProperty{
						"label":      {Type: "string"},
						"keywords":   {Type: "array", Items: &ollama.SchemaProperty{Type: "string"}},
						"confidence": score("Topic confidence"),
					},
					Required: []string{"label", "keywords"},
				},
			},
			"resolution": {
				Type: "object",
				Properties: map[string]ollama.SchemaProperty{
					"status":             {Type: "string", Enum: []string{"resolved", "partially_resolved", "unresolved", "unknown"}},
					"confidence":         score("Resolution confidence"),
					"follow_up_required": {Type: "boolean"},
				},
				Required: []string{"status"},
			},
			"quality_flags": {
				Type: "object",
				Properties: map[string]ollama.SchemaProperty{
					"audio_issues": {Type: "boolean"},
					"crosstalk":    {Type: "boolean"},
					"pii_present":  {Type: "boolean"},
				},
			},
			"notes":   {Type: "string"},
			"version": {Type: "string"},
		},
		Required: []string{
			"call_id", "language_detected", "low_transcription_quality",
			"overall", "turns", "segments", "events", "topics",
			"resolution", "quality_flags", "notes", "version",
		},
	}
}

package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert hits an existing conversation_id
// whose stored payload differs from the incoming one. It is surfaced to the
// caller, never auto-resolved; use UpsertConversation for explicit
// overwrites.
var ErrConflict = errors.New("conversation already exists with different content")

// Conversation is the persisted, queryable summary of one analyzed
// transcript. Rows are append-only: a record is written once and never
// mutated afterwards except through an explicit upsert.
type Conversation struct {
	ConversationID              string    `json:"conversation_id"`
	UserID                      string    `json:"user_id,omitempty"` // empty stores as NULL
	Transcript                  string    `json:"transcript"`
	CustomerSentiment           string    `json:"customer_sentiment"`
	DominantCustomerEmotion     string    `json:"dominant_customer_emotion"`
	CustomerSentimentConfidence float64   `json:"customer_sentiment_confidence"`
	Date                        string    `json:"date"` // YYYY-MM-DD
	Notes                       string    `json:"notes"`
	Topics                      []string  `json:"topics"`   // extraction order preserved
	Keywords                    []string  `json:"keywords"` // flattened from topics, multiplicity kept
	AngryTranscript             bool      `json:"angry_transcript"`
	ResolutionStatus            string    `json:"resolution_status"`
	Language                    string    `json:"language"`
	CreatedAt                   time.Time `json:"created_at"`
}

// Transcript lifecycle states.
const (
	TranscriptPending   = "pending"
	TranscriptAnnotated = "annotated"
	TranscriptFailed    = "failed"
)

// Transcript is a raw ingested call record awaiting (or past) annotation.
type Transcript struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	Date      string    `json:"date"`
	Time      string    `json:"time"`
	Content   string    `json:"content"`
	Status    string    `json:"status"` // "pending", "annotated", "failed"
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}

package schema

// Annotation is the full structured object produced by the annotation model
// for one transcript. It is transient: only a subset of fields survives into
// the conversations table.
type Annotation struct {
	CallID                  string       `json:"call_id"`
	LanguageDetected        string       `json:"language_detected"`
	LowTranscriptionQuality bool         `json:"low_transcription_quality"`
	Overall                 Overall      `json:"overall"`
	Turns                   []Turn       `json:"turns"`
	Segments                []Segment    `json:"segments"`
	Events                  []Event      `json:"events"`
	Topics                  []Topic      `json:"topics"`
	Resolution              Resolution   `json:"resolution"`
	QualityFlags            QualityFlags `json:"quality_flags"`
	Notes                   string       `json:"notes"`
	Version                 string       `json:"version"`
}

// Overall carries the model's own transcript-level judgment. The derivation
// engine recomputes the sentiment label from per-turn scores and may
// override it.
type Overall struct {
	CustomerSentiment           string  `json:"customer_sentiment"`
	CustomerSentimentConfidence float64 `json:"customer_sentiment_confidence"`
	DissatisfactionExpressed    bool    `json:"dissatisfaction_expressed"`
}

// Emotions holds per-turn customer emotion scores in [0,1].
// Field order matches the fixed vocabulary used for dominant-emotion
// tie-breaking.
type Emotions struct {
	Anger          float64 `json:"anger"`
	Frustration    float64 `json:"frustration"`
	Sadness        float64 `json:"sadness"`
	Anxiety        float64 `json:"anxiety"`
	Confusion      float64 `json:"confusion"`
	Disappointment float64 `json:"disappointment"`
	Relief         float64 `json:"relief"`
	Joy            float64 `json:"joy"`
	Gratitude      float64 `json:"gratitude"`
	Politeness     float64 `json:"politeness"`
	Rudeness       float64 `json:"rudeness"`
}

// EmotionVocabulary is the fixed emotion label order. Ties in
// dominant-emotion selection break toward the earlier label.
var EmotionVocabulary = []string{
	"anger", "frustration", "sadness", "anxiety", "confusion",
	"disappointment", "relief", "joy", "gratitude", "politeness", "rudeness",
}

// Scores returns the emotion scores in EmotionVocabulary order.
func (e Emotions) Scores() []float64 {
	return []float64{
		e.Anger, e.Frustration, e.Sadness, e.Anxiety, e.Confusion,
		e.Disappointment, e.Relief, e.Joy, e.Gratitude, e.Politeness, e.Rudeness,
	}
}

// AgentTone holds per-turn agent tone scores in [0,1].
type AgentTone struct {
	Calm       float64 `json:"calm"`
	Empathetic float64 `json:"empathetic"`
	Dismissive float64 `json:"dismissive"`
	Impatient  float64 `json:"impatient"`
}

// Turn is one speaker's contiguous utterance. Timestamp fields hold either
// "HH:MM:SS" or the literal string "null" when unknown — never an empty
// string or JSON null after normalization.
type Turn struct {
	Index            int       `json:"index"`
	Speaker          string    `json:"speaker"` // "customer" or "agent"
	Text             string    `json:"text"`
	TimestampStart   string    `json:"timestamp_start"`
	TimestampEnd     string    `json:"timestamp_end"`
	CustomerEmotions Emotions  `json:"customer_emotions"`
	AgentTone        AgentTone `json:"agent_tone"`
	Confidence       float64   `json:"confidence"`
}

// Segment is a labeled phase of the call (greeting, issue, resolution, ...).
type Segment struct {
	Label          string `json:"label"`
	TimestampStart string `json:"timestamp_start"`
	TimestampEnd   string `json:"timestamp_end"`
	Summary        string `json:"summary"`
}

// Event is a notable moment flagged by the model (escalation request,
// supervisor transfer, ...).
type Event struct {
	Type        string  `json:"type"`
	Timestamp   string  `json:"timestamp"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// Topic is a short label with the keywords that evidence it. Label order is
// extraction order and is preserved through persistence.
type Topic struct {
	Label      string   `json:"label"`
	Keywords   []string `json:"keywords"`
	Confidence float64  `json:"confidence"`
}

// Resolution statuses. StatusUnknown is reserved for genuinely indeterminate
// calls, not a default.
const (
	StatusResolved          = "resolved"
	StatusPartiallyResolved = "partially_resolved"
	StatusUnresolved        = "unresolved"
	StatusUnknown           = "unknown"
)

type Resolution struct {
	Status           string  `json:"status"`
	Confidence       float64 `json:"confidence"`
	FollowUpRequired bool    `json:"follow_up_required"`
}

type QualityFlags struct {
	AudioIssues bool `json:"audio_issues"`
	Crosstalk   bool `json:"crosstalk"`
	PIIPresent  bool `json:"pii_present"`
}

// Sentiment labels stored in conversations.customer_sentiment.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
	SentimentUnknown  = "unknown"
)

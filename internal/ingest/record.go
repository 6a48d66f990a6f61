package ingest

import (
	"time"

	"github.com/tamilsm/TranscriptAnalysis/internal/derive"
	"github.com/tamilsm/TranscriptAnalysis/internal/schema"
	"github.com/tamilsm/TranscriptAnalysis/internal/storage"
)

// BuildConversation maps a validated annotation plus transcript metadata
// into the persisted record. The conversation ID comes from the ingested
// transcript, not the model's call_id, so it is stable across re-runs.
// Topic labels keep extraction order; keywords are flattened across topics
// with multiplicity preserved.
func BuildConversation(t storage.Transcript, a *schema.Annotation, d derive.Derived) storage.Conversation {
	topics := make([]string, 0, len(a.Topics))
	var keywords []string
	for _, topic := range a.Topics {
		topics = append(topics, topic.Label)
		keywords = append(keywords, topic.Keywords...)
	}

	return storage.Conversation{
		ConversationID:              t.ID,
		UserID:                      t.UserID,
		Transcript:                  t.Content,
		CustomerSentiment:           d.CustomerSentiment,
		DominantCustomerEmotion:     d.DominantCustomerEmotion,
		CustomerSentimentConfidence: a.Overall.CustomerSentimentConfidence,
		Date:                        t.Date,
		Notes:                       a.Notes,
		Topics:                      topics,
		Keywords:                    keywords,
		AngryTranscript:             d.AngryTranscript,
		ResolutionStatus:            d.ResolutionStatus,
		Language:                    a.LanguageDetected,
		CreatedAt:                   time.Now().UTC(),
	}
}

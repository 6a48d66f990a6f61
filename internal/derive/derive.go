// Package derive computes the business-rule labels layered on top of raw
// annotation scores. The rules are deterministic so the stored labels are
// reproducible even when the model's own top-level judgment disagrees with
// its per-turn scores.
package derive

import (
	"fmt"
	"strings"

	"github.com/tamilsm/TranscriptAnalysis/internal/schema"
)

const (
	angerSpikeThreshold     = 0.80
	angerMeanThreshold      = 0.50
	angerRepeatThreshold    = 0.70
	angerRepeatGapSeconds   = 60
	sentimentSignal         = 0.60
	lowQualityConfidenceCap = 0.50
)

// Derived bundles every derived label for one annotation.
type Derived struct {
	AngryTranscript         bool
	DominantCustomerEmotion string
	CustomerSentiment       string
	ResolutionStatus        string
}

// Apply runs all derivation rules and enforces the confidence discipline:
// when the model flagged low transcription quality, every per-turn
// confidence is capped at 0.50 in place.
func Apply(a *schema.Annotation) Derived {
	if a.LowTranscriptionQuality {
		for i := range a.Turns {
			if a.Turns[i].Confidence > lowQualityConfidenceCap {
				a.Turns[i].Confidence = lowQualityConfidenceCap
			}
		}
	}

	return Derived{
		AngryTranscript:         AngryTranscript(a),
		DominantCustomerEmotion: DominantCustomerEmotion(a),
		CustomerSentiment:       CustomerSentiment(a),
		ResolutionStatus:        ResolutionStatus(a.Resolution),
	}
}

// AngryTranscript reports whether the call qualifies as angry. True when any
// of the following holds across customer turns:
//
//	(a) some turn has anger >= 0.80
//	(b) mean anger >= 0.50
//	(c) at least two turns with anger >= 0.70 whose timestamps are >= 60s
//	    apart
//
// Turns with unknown timestamps still count toward (a) and (b) but are
// excluded from (c). When no timestamps parse at all, (c) is inapplicable.
func AngryTranscript(a *schema.Annotation) bool {
	var sum float64
	var n int
	var spikes []int // seconds into the call of turns with anger >= 0.70

	for _, t := range a.Turns {
		if t.Speaker != "customer" {
			continue
		}
		anger := t.CustomerEmotions.Anger
		if anger >= angerSpikeThreshold {
			return true
		}
		sum += anger
		n++
		if anger >= angerRepeatThreshold {
			if sec, ok := parseClock(t.TimestampStart); ok {
				spikes = append(spikes, sec)
			}
		}
	}

	if n > 0 && sum/float64(n) >= angerMeanThreshold {
		return true
	}

	for i := 0; i < len(spikes); i++ {
		for j := i + 1; j < len(spikes); j++ {
			gap := spikes[j] - spikes[i]
			if gap < 0 {
				gap = -gap
			}
			if gap >= angerRepeatGapSeconds {
				return true
			}
		}
	}

	return false
}

// DominantCustomerEmotion returns the emotion label with the maximum peak
// score across customer turns. Ties break toward the first label in the
// fixed vocabulary order; an all-zero profile yields "none".
func DominantCustomerEmotion(a *schema.Annotation) string {
	peaks := make([]float64, len(schema.EmotionVocabulary))
	for _, t := range a.Turns {
		if t.Speaker != "customer" {
			continue
		}
		for i, score := range t.CustomerEmotions.Scores() {
			if score > peaks[i] {
				peaks[i] = score
			}
		}
	}

	best := -1
	var bestScore float64
	for i, score := range peaks {
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best == -1 {
		return "none"
	}
	return schema.EmotionVocabulary[best]
}

// CustomerSentiment recomputes the transcript-level sentiment label from
// per-turn emotion peaks. The result overrides the model's own label so the
// stored value stays consistent with the scores that justify it.
func CustomerSentiment(a *schema.Annotation) string {
	var e schema.Emotions
	for _, t := range a.Turns {
		if t.Speaker != "customer" {
			continue
		}
		e = peakEmotions(e, t.CustomerEmotions)
	}

	negative := e.Anger >= sentimentSignal ||
		e.Frustration >= sentimentSignal ||
		e.Disappointment >= sentimentSignal ||
		a.Overall.DissatisfactionExpressed
	if negative {
		return schema.SentimentNegative
	}

	if e.Joy >= sentimentSignal || e.Relief >= sentimentSignal || e.Gratitude >= sentimentSignal {
		return schema.SentimentPositive
	}

	return schema.SentimentNeutral
}

func peakEmotions(a, b schema.Emotions) schema.Emotions {
	return schema.Emotions{
		Anger:          max(a.Anger, b.Anger),
		Frustration:    max(a.Frustration, b.Frustration),
		Sadness:        max(a.Sadness, b.Sadness),
		Anxiety:        max(a.Anxiety, b.Anxiety),
		Confusion:      max(a.Confusion, b.Confusion),
		Disappointment: max(a.Disappointment, b.Disappointment),
		Relief:         max(a.Relief, b.Relief),
		Joy:            max(a.Joy, b.Joy),
		Gratitude:      max(a.Gratitude, b.Gratitude),
		Politeness:     max(a.Politeness, b.Politeness),
		Rudeness:       max(a.Rudeness, b.Rudeness),
	}
}

// ResolutionStatus normalizes free-form resolution labels into the fixed
// status set. "unknown" is reserved for genuinely indeterminate values: a
// label that merely phrases a known status differently is mapped onto it.
func ResolutionStatus(r schema.Resolution) string {
	status := strings.ToLower(strings.TrimSpace(r.Status))
	switch status {
	case schema.StatusResolved, schema.StatusPartiallyResolved, schema.StatusUnresolved, schema.StatusUnknown:
		return status
	}

	switch {
	case strings.Contains(status, "partial"):
		return schema.StatusPartiallyResolved
	case strings.Contains(status, "unresolved"),
		strings.Contains(status, "not resolved"),
		strings.Contains(status, "open"),
		strings.Contains(status, "pending"),
		strings.Contains(status, "escalat"):
		return schema.StatusUnresolved
	case strings.Contains(status, "resolv"),
		strings.Contains(status, "fixed"),
		strings.Contains(status, "closed"),
		strings.Contains(status, "solved"):
		return schema.StatusResolved
	}

	return schema.StatusUnknown
}

// parseClock parses a "HH:MM:SS" wall-clock timestamp into seconds.
// The literal "null" and anything malformed report ok=false.
func parseClock(ts string) (int, bool) {
	if ts == "null" {
		return 0, false
	}
	var h, m, s int
	if _, err := fmt.Sscanf(ts, "%d:%d:%d", &h, &m, &s); err != nil {
		return 0, false
	}
	if h < 0 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, false
	}
	return h*3600 + m*60 + s, true
}

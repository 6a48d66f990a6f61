package derive

import (
	"testing"

	"github.com/tamilsm/TranscriptAnalysis/internal/schema"
)

func customerTurn(ts string, e schema.Emotions) schema.Turn {
	return schema.Turn{
		Speaker:          "customer",
		TimestampStart:   ts,
		CustomerEmotions: e,
		Confidence:       0.9,
	}
}

func agentTurn() schema.Turn {
	return schema.Turn{Speaker: "agent", TimestampStart: "null", Confidence: 0.9}
}

func annotationWithTurns(turns ...schema.Turn) *schema.Annotation {
	return &schema.Annotation{Turns: turns}
}

// --- AngryTranscript ---

func TestAngryTranscript_SingleSpike(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("00:00:10", schema.Emotions{Anger: 0.80}),
		customerTurn("00:00:40", schema.Emotions{}),
	)
	if !AngryTranscript(a) {
		t.Error("anger 0.80 on one turn should qualify as angry")
	}
}

func TestAngryTranscript_BelowAllThresholds(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("00:00:10", schema.Emotions{Anger: 0.40}),
		customerTurn("00:02:00", schema.Emotions{Anger: 0.30}),
		customerTurn("00:04:00", schema.Emotions{Anger: 0.20}),
	)
	if AngryTranscript(a) {
		t.Error("moderate anger should not qualify as angry")
	}
}

func TestAngryTranscript_MeanAnger(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("null", schema.Emotions{Anger: 0.50}),
		customerTurn("null", schema.Emotions{Anger: 0.75}),
		customerTurn("null", schema.Emotions{Anger: 0.25}),
	)
	// Mean is 0.50 exactly; threshold is inclusive.
	if !AngryTranscript(a) {
		t.Error("mean anger 0.50 should qualify as angry")
	}
}

func TestAngryTranscript_RepeatedSpikesFarApart(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("00:00:10", schema.Emotions{Anger: 0.70}),
		customerTurn("00:01:10", schema.Emotions{Anger: 0.70}),
		customerTurn("00:02:00", schema.Emotions{}),
	)
	if !AngryTranscript(a) {
		t.Error("two 0.70 spikes 60s apart should qualify as angry")
	}
}

func TestAngryTranscript_RepeatedSpikesTooClose(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("00:00:10", schema.Emotions{Anger: 0.70}),
		customerTurn("00:00:50", schema.Emotions{Anger: 0.70}),
	)
	if AngryTranscript(a) {
		t.Error("spikes 40s apart should not trigger the repeat clause")
	}
}

// Unknown timestamps exclude a spike from the repeat clause but the turn
// still counts toward the mean.
func TestAngryTranscript_UnknownTimestampsSkipRepeatClause(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("null", schema.Emotions{Anger: 0.70}),
		customerTurn("null", schema.Emotions{Anger: 0.70}),
		customerTurn("null", schema.Emotions{Anger: 0.0}),
		customerTurn("null", schema.Emotions{Anger: 0.0}),
	)
	// Mean is 0.35, no single spike >= 0.80, repeat clause inapplicable.
	if AngryTranscript(a) {
		t.Error("repeat clause must not fire on unparseable timestamps")
	}
}

func TestAngryTranscript_IgnoresAgentTurns(t *testing.T) {
	agent := agentTurn()
	agent.CustomerEmotions = schema.Emotions{Anger: 1.0} // inapplicable block
	a := annotationWithTurns(agent, customerTurn("00:00:10", schema.Emotions{Anger: 0.10}))
	if AngryTranscript(a) {
		t.Error("agent turn emotion scores must not count")
	}
}

// --- DominantCustomerEmotion ---

func TestDominantCustomerEmotion_Peak(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("null", schema.Emotions{Frustration: 0.82, Anger: 0.50}),
		customerTurn("null", schema.Emotions{Confusion: 0.60}),
	)
	if got := DominantCustomerEmotion(a); got != "frustration" {
		t.Errorf("dominant = %q, want %q", got, "frustration")
	}
}

func TestDominantCustomerEmotion_TieBreaksOnVocabularyOrder(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("null", schema.Emotions{Anger: 0.70, Sadness: 0.70}),
	)
	// anger precedes sadness in the vocabulary.
	if got := DominantCustomerEmotion(a); got != "anger" {
		t.Errorf("dominant = %q, want %q", got, "anger")
	}
}

func TestDominantCustomerEmotion_AllZero(t *testing.T) {
	a := annotationWithTurns(customerTurn("null", schema.Emotions{}), agentTurn())
	if got := DominantCustomerEmotion(a); got != "none" {
		t.Errorf("dominant = %q, want %q", got, "none")
	}
}

func TestDominantCustomerEmotion_NoCustomerTurns(t *testing.T) {
	a := annotationWithTurns(agentTurn())
	if got := DominantCustomerEmotion(a); got != "none" {
		t.Errorf("dominant = %q, want %q", got, "none")
	}
}

// --- CustomerSentiment ---

func TestCustomerSentiment_NegativeOnStrongAnger(t *testing.T) {
	a := annotationWithTurns(customerTurn("null", schema.Emotions{Anger: 0.60}))
	if got := CustomerSentiment(a); got != schema.SentimentNegative {
		t.Errorf("sentiment = %q, want %q", got, schema.SentimentNegative)
	}
}

func TestCustomerSentiment_NegativeOnDissatisfaction(t *testing.T) {
	a := annotationWithTurns(customerTurn("null", schema.Emotions{Joy: 0.90}))
	a.Overall.DissatisfactionExpressed = true
	// Dissatisfaction outranks positive emotion peaks.
	if got := CustomerSentiment(a); got != schema.SentimentNegative {
		t.Errorf("sentiment = %q, want %q", got, schema.SentimentNegative)
	}
}

func TestCustomerSentiment_Positive(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("null", schema.Emotions{Gratitude: 0.75, Frustration: 0.30}),
	)
	if got := CustomerSentiment(a); got != schema.SentimentPositive {
		t.Errorf("sentiment = %q, want %q", got, schema.SentimentPositive)
	}
}

func TestCustomerSentiment_Neutral(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("null", schema.Emotions{Confusion: 0.50, Politeness: 0.80}),
	)
	if got := CustomerSentiment(a); got != schema.SentimentNeutral {
		t.Errorf("sentiment = %q, want %q", got, schema.SentimentNeutral)
	}
}

// --- ResolutionStatus ---

func TestResolutionStatus(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"resolved", schema.StatusResolved},
		{"Partially_Resolved", schema.StatusPartiallyResolved},
		{"unresolved", schema.StatusUnresolved},
		{"unknown", schema.StatusUnknown},
		{"partially fixed", schema.StatusPartiallyResolved},
		{"issue was not resolved", schema.StatusUnresolved},
		{"escalated to supervisor", schema.StatusUnresolved},
		{"still open", schema.StatusUnresolved},
		{"fully resolved", schema.StatusResolved},
		{"fixed", schema.StatusResolved},
		{"ticket closed", schema.StatusResolved},
		{"banana", schema.StatusUnknown},
		{"", schema.StatusUnknown},
	}
	for _, tc := range cases {
		got := ResolutionStatus(schema.Resolution{Status: tc.in})
		if got != tc.want {
			t.Errorf("ResolutionStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// --- Apply ---

func TestApply_CapsConfidenceOnLowQuality(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("null", schema.Emotions{Anger: 0.30}),
		customerTurn("null", schema.Emotions{}),
	)
	a.Turns[0].Confidence = 0.95
	a.Turns[1].Confidence = 0.40
	a.LowTranscriptionQuality = true

	Apply(a)

	if a.Turns[0].Confidence != 0.50 {
		t.Errorf("confidence = %v, want capped at 0.50", a.Turns[0].Confidence)
	}
	if a.Turns[1].Confidence != 0.40 {
		t.Errorf("confidence = %v, cap must not raise low values", a.Turns[1].Confidence)
	}
}

func TestApply_Bundles(t *testing.T) {
	a := annotationWithTurns(
		customerTurn("00:00:05", schema.Emotions{Frustration: 0.82, Anger: 0.85}),
	)
	a.Resolution.Status = "escalated"

	d := Apply(a)

	if !d.AngryTranscript {
		t.Error("AngryTranscript = false, want true")
	}
	if d.DominantCustomerEmotion != "anger" {
		t.Errorf("dominant = %q, want %q", d.DominantCustomerEmotion, "anger")
	}
	if d.CustomerSentiment != schema.SentimentNegative {
		t.Errorf("sentiment = %q, want %q", d.CustomerSentiment, schema.SentimentNegative)
	}
	if d.ResolutionStatus != schema.StatusUnresolved {
		t.Errorf("resolution = %q, want %q", d.ResolutionStatus, schema.StatusUnresolved)
	}
}

// --- parseClock ---

func TestParseClock(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"00:00:00", 0, true},
		{"00:01:30", 90, true},
		{"01:00:00", 3600, true},
		{"null", 0, false},
		{"", 0, false},
		{"1:99:00", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseClock(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("parseClock(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

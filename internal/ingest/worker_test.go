package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tamilsm/TranscriptAnalysis/internal/schema"
	"github.com/tamilsm/TranscriptAnalysis/internal/storage"
)

type stubAnnotator struct {
	ann   *schema.Annotation
	err   error
	calls int
}

func (s *stubAnnotator) Annotate(ctx context.Context, transcript string) (*schema.Annotation, error) {
	s.calls++
	return s.ann, s.err
}

func workerAnnotation() *schema.Annotation {
	return &schema.Annotation{
		CallID:           "call-001",
		LanguageDetected: "en",
		Overall: schema.Overall{
			CustomerSentiment:           "neutral",
			CustomerSentimentConfidence: 0.8,
		},
		Resolution: schema.Resolution{Status: "resolved", Confidence: 0.7},
		Version:    "1.0",
	}
}

func openWorkerStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func enqueueAnnotateJob(t *testing.T, store *storage.Store, id string, p Payload) {
	t.Helper()
	payload, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshaling payload: %v", err)
	}
	err = store.EnqueueJob(storage.Job{ID: "job-" + id, Type: JobType, PayloadJSON: string(payload)})
	if err != nil {
		t.Fatalf("enqueueing job: %v", err)
	}
}

func TestRunOnce_NoJob(t *testing.T) {
	store := openWorkerStore(t)
	w := NewWorker(store, &stubAnnotator{}, 0, 0)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if done {
		t.Error("done = true with an empty queue")
	}
}

func TestRunOnce_AnnotatesAndPersists(t *testing.T) {
	store := openWorkerStore(t)
	if err := store.SaveTranscript(storage.Transcript{ID: "call-001", Content: "Agent: Hello"}); err != nil {
		t.Fatalf("saving transcript: %v", err)
	}
	enqueueAnnotateJob(t, store, "1", Payload{TranscriptID: "call-001"})

	ann := &stubAnnotator{ann: workerAnnotation()}
	w := NewWorker(store, ann, 0, 0)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("done = false, want a processed job")
	}
	if ann.calls != 1 {
		t.Errorf("annotator calls = %d, want 1", ann.calls)
	}

	c, err := store.GetConversation("call-001")
	if err != nil {
		t.Fatalf("conversation not persisted: %v", err)
	}
	if c.CustomerSentiment != "neutral" || c.ResolutionStatus != "resolved" {
		t.Errorf("conversation = %+v", c)
	}

	tr, err := store.GetTranscript("call-001")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if tr.Status != storage.TranscriptAnnotated {
		t.Errorf("transcript status = %q, want %q", tr.Status, storage.TranscriptAnnotated)
	}

	// The job is completed, not re-claimable.
	job, err := store.ClaimNextJob([]string{JobType})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if job != nil {
		t.Errorf("job still claimable after completion: %+v", job)
	}
}

func TestRunOnce_AnnotationFailureMarksTranscript(t *testing.T) {
	store := openWorkerStore(t)
	if err := store.SaveTranscript(storage.Transcript{ID: "call-001", Content: "Agent: Hello"}); err != nil {
		t.Fatalf("saving transcript: %v", err)
	}
	enqueueAnnotateJob(t, store, "1", Payload{TranscriptID: "call-001"})

	w := NewWorker(store, &stubAnnotator{err: errors.New("model unavailable")}, 0, 0)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("done = false, want a processed job")
	}

	tr, err := store.GetTranscript("call-001")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if tr.Status != storage.TranscriptFailed {
		t.Errorf("transcript status = %q, want %q", tr.Status, storage.TranscriptFailed)
	}
	if tr.LastError == "" {
		t.Error("last_error not recorded")
	}
}

// Re-annotating an existing conversation with a different result is a
// conflict unless the job asks for upsert.
func TestRunOnce_ConflictWithoutUpsert(t *testing.T) {
	store := openWorkerStore(t)
	if err := store.SaveTranscript(storage.Transcript{ID: "call-001", Content: "Agent: Hello"}); err != nil {
		t.Fatalf("saving transcript: %v", err)
	}

	first := workerAnnotation()
	enqueueAnnotateJob(t, store, "1", Payload{TranscriptID: "call-001"})
	w := NewWorker(store, &stubAnnotator{ann: first}, 0, 0)
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}

	second := workerAnnotation()
	second.Overall.CustomerSentiment = "negative"
	enqueueAnnotateJob(t, store, "2", Payload{TranscriptID: "call-001"})
	w = NewWorker(store, &stubAnnotator{ann: second}, 0, 0)
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}

	c, err := store.GetConversation("call-001")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if c.CustomerSentiment != "neutral" {
		t.Errorf("stored record overwritten without upsert: sentiment = %q", c.CustomerSentiment)
	}

	tr, err := store.GetTranscript("call-001")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if tr.Status != storage.TranscriptFailed {
		t.Errorf("transcript status = %q, want %q", tr.Status, storage.TranscriptFailed)
	}
}

func TestRunOnce_UpsertOverwrites(t *testing.T) {
	store := openWorkerStore(t)
	if err := store.SaveTranscript(storage.Transcript{ID: "call-001", Content: "Agent: Hello"}); err != nil {
		t.Fatalf("saving transcript: %v", err)
	}

	enqueueAnnotateJob(t, store, "1", Payload{TranscriptID: "call-001"})
	w := NewWorker(store, &stubAnnotator{ann: workerAnnotation()}, 0, 0)
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}

	second := workerAnnotation()
	second.Overall.CustomerSentiment = "negative"
	enqueueAnnotateJob(t, store, "2", Payload{TranscriptID: "call-001", Upsert: true})
	w = NewWorker(store, &stubAnnotator{ann: second}, 0, 0)
	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}

	c, err := store.GetConversation("call-001")
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if c.CustomerSentiment != "negative" {
		t.Errorf("sentiment = %q, want overwrite to negative", c.CustomerSentiment)
	}

	tr, err := store.GetTranscript("call-001")
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	if tr.Status != storage.TranscriptAnnotated {
		t.Errorf("transcript status = %q, want %q", tr.Status, storage.TranscriptAnnotated)
	}
}

func TestRunOnce_MissingTranscriptFailsJob(t *testing.T) {
	store := openWorkerStore(t)
	enqueueAnnotateJob(t, store, "1", Payload{TranscriptID: "no-such-id"})

	ann := &stubAnnotator{ann: workerAnnotation()}
	w := NewWorker(store, ann, 0, 0)

	done, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !done {
		t.Fatal("done = false, want a processed job")
	}
	if ann.calls != 0 {
		t.Errorf("annotator called %d times for a missing transcript", ann.calls)
	}
}

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamilsm/TranscriptAnalysis/internal/derive"
	"github.com/tamilsm/TranscriptAnalysis/internal/schema"
	"github.com/tamilsm/TranscriptAnalysis/internal/storage"
)

// JobType is the queue type tag for annotation jobs.
const JobType = "annotate"

// JobStore abstracts the job queue and persistence operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetTranscript(id string) (storage.Transcript, error)
	UpdateTranscriptStatus(id, status, lastError string) error
	SaveConversation(c storage.Conversation) error
	UpsertConversation(c storage.Conversation) error
}

// TranscriptAnnotator produces a validated annotation for one transcript.
type TranscriptAnnotator interface {
	Annotate(ctx context.Context, transcript string) (*schema.Annotation, error)
}

// Worker processes annotate jobs from the SQLite job queue, one at a time.
// A fixed delay is imposed after every model call to respect upstream quota;
// it is a cooperative pause between sequential iterations, not a lock.
type Worker struct {
	store     JobStore
	annotator TranscriptAnnotator
	poll      time.Duration
	rateDelay time.Duration
	logger    *slog.Logger
}

// NewWorker creates a Worker. If pollInterval <= 0 it defaults to 500ms;
// rateDelay <= 0 disables the inter-call pause.
func NewWorker(store JobStore, annotator TranscriptAnnotator, pollInterval, rateDelay time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:     store,
		annotator: annotator,
		poll:      pollInterval,
		rateDelay: rateDelay,
		logger:    slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}

		wait := w.poll
		if done {
			// A model call just happened; honor the rate-limit delay
			// before the next one.
			wait = w.rateDelay
			if wait <= 0 {
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// Payload is the job payload for annotate jobs. Upsert requests explicit
// overwrite semantics for a re-analysis of an existing conversation.
type Payload struct {
	TranscriptID string `json:"transcript_id"`
	Upsert       bool   `json:"upsert,omitempty"`
}

// RunOnce claims and processes a single annotate job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobType})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("annotation job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload Payload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	t, err := w.store.GetTranscript(payload.TranscriptID)
	if err != nil {
		return fmt.Errorf("loading transcript %s: %w", payload.TranscriptID, err)
	}

	ann, err := w.annotator.Annotate(ctx, t.Content)
	if err != nil {
		if statusErr := w.store.UpdateTranscriptStatus(t.ID, storage.TranscriptFailed, err.Error()); statusErr != nil {
			w.logger.Error("failed to record transcript failure", "transcript_id", t.ID, "error", statusErr)
		}
		return fmt.Errorf("annotating transcript %s: %w", t.ID, err)
	}

	rec := BuildConversation(t, ann, derive.Apply(ann))

	if payload.Upsert {
		err = w.store.UpsertConversation(rec)
	} else {
		err = w.store.SaveConversation(rec)
	}
	if errors.Is(err, storage.ErrConflict) {
		// Same key, different payload. Never silently overwritten; the
		// caller must re-run with upsert to replace the stored record.
		if statusErr := w.store.UpdateTranscriptStatus(t.ID, storage.TranscriptFailed, err.Error()); statusErr != nil {
			w.logger.Error("failed to record transcript conflict", "transcript_id", t.ID, "error", statusErr)
		}
		return fmt.Errorf("persisting conversation %s: %w", rec.ConversationID, err)
	}
	if err != nil {
		return fmt.Errorf("persisting conversation %s: %w", rec.ConversationID, err)
	}

	if err := w.store.UpdateTranscriptStatus(t.ID, storage.TranscriptAnnotated, ""); err != nil {
		return fmt.Errorf("updating transcript status: %w", err)
	}

	w.logger.Info("transcript annotated",
		"conversation_id", rec.ConversationID,
		"sentiment", rec.CustomerSentiment,
		"dominant_emotion", rec.DominantCustomerEmotion,
	)
	return nil
}

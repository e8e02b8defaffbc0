package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/plainsight/internal/lexicon"
	"github.com/kalambet/plainsight/internal/profile"
	"github.com/kalambet/plainsight/internal/storage"
)

// JobType is the queue job type the worker consumes. Payloads carry a
// single document_id field.
const JobType = "document_analyze"

// DocumentStore abstracts the job queue and document operations.
type DocumentStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetDocument(id string) (storage.Document, error)
	SetDocumentStatus(id, status string) error
	SetDocumentAnalysis(id, analysisJSON string, analyzedAt time.Time) error
	FailDocument(id, errMsg string) error
}

// ProfileUpdater feeds completed analyses back into the reader profile.
type ProfileUpdater interface {
	UpdateReader(fn func(*profile.ReaderProfile)) (profile.ReaderProfile, error)
}

// Worker processes document_analyze jobs from the SQLite job queue.
type Worker struct {
	store    DocumentStore
	profiles ProfileUpdater
	lex      *lexicon.Lexicon
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store DocumentStore, profiles ProfileUpdater, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		profiles: profiles,
		lex:      lexicon.Default(),
		poll:     pollInterval,
		logger:   slog.Default(),
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
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single document_analyze job.
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
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if job.Attempts+1 >= job.MaxAttempts {
			w.failDocument(job, err)
		}
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

type analyzePayload struct {
	DocumentID string `json:"document_id"`
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload analyzePayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	doc, err := w.store.GetDocument(payload.DocumentID)
	if err != nil {
		return fmt.Errorf("loading document %s: %w", payload.DocumentID, err)
	}

	if err := w.store.SetDocumentStatus(doc.ID, "processing"); err != nil {
		return fmt.Errorf("marking document processing: %w", err)
	}

	result, err := w.Analyze(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("analyzing document %s: %w", doc.ID, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}
	if err := w.store.SetDocumentAnalysis(doc.ID, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("storing analysis: %w", err)
	}

	terms := make([]string, 0, len(result.MedicalTerms))
	for _, t := range result.MedicalTerms {
		terms = append(terms, t.Term)
	}
	if _, err := w.profiles.UpdateReader(func(p *profile.ReaderProfile) {
		p.ReadingProgress.TextsRead++
		p.AddLearnedTerms(terms...)
	}); err != nil {
		return fmt.Errorf("updating reader profile: %w", err)
	}

	return nil
}

// failDocument marks the document behind an exhausted job as failed so
// its status reflects that no further attempts will run.
func (w *Worker) failDocument(job *storage.Job, cause error) {
	var payload analyzePayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil || payload.DocumentID == "" {
		return
	}
	if err := w.store.FailDocument(payload.DocumentID, cause.Error()); err != nil {
		w.logger.Error("failed to mark document as failed", "document_id", payload.DocumentID, "error", err)
	}
}

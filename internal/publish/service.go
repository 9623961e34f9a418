package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lessonbin/quizdoc/internal/db/repository"
	"github.com/lessonbin/quizdoc/internal/document"
	"github.com/lessonbin/quizdoc/internal/metrics"
	"github.com/lessonbin/quizdoc/internal/registry"
)

var (
	// ErrQueueFull is returned when the publish queue cannot take another job.
	ErrQueueFull = errors.New("publish queue full")

	// ErrMalformed is returned when the submitted bytes are not JSON at all.
	ErrMalformed = errors.New("malformed document")
)

// Job is one document waiting to be pushed to the bin host.
type Job struct {
	DocumentID uuid.UUID
	DocKey     string
	Title      string
	Content    []byte
}

// DocumentStore persists document rows (implemented by DocumentRepository).
type DocumentStore interface {
	Insert(ctx context.Context, docKey, title string, content []byte) (repository.DocumentRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.DocumentRecord, error)
	MarkPublished(ctx context.Context, id uuid.UUID, binID, publicURL string) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
}

// BinCreator uploads documents to the bin host (implemented by bin.Client).
type BinCreator interface {
	Create(ctx context.Context, content []byte) (string, error)
	PublicURL(binID string) string
}

// RegistryUpserter records published documents (implemented by registry.Service).
type RegistryUpserter interface {
	Upsert(ctx context.Context, entries []registry.Entry) error
}

// SubmitResult reports what happened to a submitted document.
type SubmitResult struct {
	DocumentID uuid.UUID
	Result     document.Result
}

// Service validates submitted documents, stores accepted ones, and queues
// them for the background publisher.
type Service struct {
	docs     DocumentStore
	bins     BinCreator
	registry RegistryUpserter
	queue    chan Job
	logger   zerolog.Logger
}

func NewService(docs DocumentStore, bins BinCreator, reg RegistryUpserter, queueSize int, logger zerolog.Logger) *Service {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Service{
		docs:     docs,
		bins:     bins,
		registry: reg,
		queue:    make(chan Job, queueSize),
		logger:   logger.With().Str("component", "publish_service").Logger(),
	}
}

// Queue exposes the job channel for the worker.
func (s *Service) Queue() <-chan Job {
	return s.queue
}

// Submit validates raw document bytes. A conforming document is stored in
// pending state and queued for publishing; a non-conforming one comes back
// with the full violation list and touches nothing.
func (s *Service) Submit(ctx context.Context, raw []byte) (SubmitResult, error) {
	doc, res, err := document.Parse(raw)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	metrics.ObserveValidation(res.Valid(), len(res.Violations))
	if !res.Valid() {
		return SubmitResult{Result: res}, nil
	}

	rec, err := s.docs.Insert(ctx, doc.ID, doc.Title, raw)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("store document: %w", err)
	}

	job := Job{
		DocumentID: rec.DocumentID,
		DocKey:     doc.ID,
		Title:      doc.Title,
		Content:    raw,
	}
	select {
	case s.queue <- job:
		metrics.PublishQueueDepth.Inc()
	default:
		// Keep the row; the operator can requeue once the backlog drains.
		s.logger.Error().Str("doc_key", doc.ID).Msg("publish queue full")
		return SubmitResult{DocumentID: rec.DocumentID, Result: res}, ErrQueueFull
	}

	return SubmitResult{DocumentID: rec.DocumentID, Result: res}, nil
}

// ValidateOnly runs the validator without storing anything.
func (s *Service) ValidateOnly(raw []byte) (document.Result, error) {
	_, res, err := document.Parse(raw)
	if err != nil {
		return document.Result{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	metrics.ObserveValidation(res.Valid(), len(res.Violations))
	return res, nil
}

// GetDocument fetches a stored document row.
func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (repository.DocumentRecord, error) {
	return s.docs.GetByID(ctx, id)
}

// Publish pushes one queued document to the bin host and records the result.
func (s *Service) Publish(ctx context.Context, job Job) error {
	metrics.PublishQueueDepth.Dec()

	binID, err := s.bins.Create(ctx, job.Content)
	if err != nil {
		metrics.PublishesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		if markErr := s.docs.MarkFailed(ctx, job.DocumentID, err.Error()); markErr != nil {
			s.logger.Error().Err(markErr).Str("doc_key", job.DocKey).Msg("mark failed after bin error")
		}
		return fmt.Errorf("create bin for %s: %w", job.DocKey, err)
	}

	publicURL := s.bins.PublicURL(binID)
	if err := s.docs.MarkPublished(ctx, job.DocumentID, binID, publicURL); err != nil {
		metrics.PublishesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("mark published %s: %w", job.DocKey, err)
	}

	if err := s.registry.Upsert(ctx, []registry.Entry{{
		ID:    job.DocKey,
		Title: job.Title,
		URL:   publicURL,
	}}); err != nil {
		metrics.PublishesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("registry upsert %s: %w", job.DocKey, err)
	}

	metrics.PublishesTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	s.logger.Info().
		Str("doc_key", job.DocKey).
		Str("bin_id", binID).
		Str("url", publicURL).
		Msg("document published")
	return nil
}

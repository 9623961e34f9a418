package publish

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Worker drains the publish queue in the background so API submissions
// return before the bin host round-trip completes.
type Worker struct {
	service   *Service
	queue     <-chan Job
	logger    zerolog.Logger
	timeout   time.Duration
	shutdownC chan struct{}
}

func NewWorker(service *Service, logger zerolog.Logger, timeout time.Duration) *Worker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Worker{
		service:   service,
		queue:     service.Queue(),
		logger:    logger.With().Str("component", "publish_worker").Logger(),
		timeout:   timeout,
		shutdownC: make(chan struct{}),
	}
}

func (w *Worker) Run() {
	for {
		select {
		case <-w.shutdownC:
			w.logger.Info().Msg("publish worker stopping")
			return
		case job := <-w.queue:
			w.handle(job)
		}
	}
}

func (w *Worker) handle(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.service.Publish(ctx, job); err != nil {
		w.logger.Warn().Err(err).Str("doc_key", job.DocKey).Msg("publish failed")
	}
}

func (w *Worker) Stop() {
	close(w.shutdownC)
}

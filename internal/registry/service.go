package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lessonbin/quizdoc/internal/db/repository"
)

// Entry is one published document in the registry.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// EntryStore persists registry entries (implemented by RegistryRepository).
type EntryStore interface {
	Upsert(ctx context.Context, entries []repository.RegistryRecord) error
	List(ctx context.Context) ([]repository.RegistryRecord, error)
}

// EntryCache holds the assembled registry (implemented by the Redis Cache).
type EntryCache interface {
	Get(ctx context.Context) ([]Entry, error)
	Set(ctx context.Context, entries []Entry) error
	Invalidate(ctx context.Context) error
}

// Publisher emits registry-changed events (implemented by *redis.Client).
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Service maintains the registry of published quiz documents. Incoming
// batches replace entries with matching ids and append the rest, so a
// republished lesson keeps a single registry row.
type Service struct {
	store   EntryStore
	cache   EntryCache
	pub     Publisher
	channel string
	logger  zerolog.Logger
}

type ServiceOptions struct {
	UpdateChannel string
}

func NewService(store EntryStore, cache EntryCache, pub Publisher, opts ServiceOptions, logger zerolog.Logger) *Service {
	channel := opts.UpdateChannel
	if channel == "" {
		channel = "registry:updates"
	}
	return &Service{
		store:   store,
		cache:   cache,
		pub:     pub,
		channel: channel,
		logger:  logger.With().Str("component", "registry_service").Logger(),
	}
}

// Upsert applies a batch of entries, drops the stale cache, and notifies
// stream subscribers.
func (s *Service) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	records := make([]repository.RegistryRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, repository.RegistryRecord{
			EntryID: e.ID,
			Title:   e.Title,
			URL:     e.URL,
		})
	}
	if err := s.store.Upsert(ctx, records); err != nil {
		return fmt.Errorf("upsert registry: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("registry cache invalidation failed")
		}
	}

	s.notify(ctx, entries)
	return nil
}

// List returns the full registry, cache-first.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, Entry{ID: rec.EntryID, Title: rec.Title, URL: rec.URL})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, entries); err != nil {
			s.logger.Warn().Err(err).Msg("registry cache fill failed")
		}
	}
	return entries, nil
}

func (s *Service) notify(ctx context.Context, entries []Entry) {
	if s.pub == nil {
		return
	}
	payload, err := json.Marshal(updateEvent{Entries: entries})
	if err != nil {
		s.logger.Warn().Err(err).Msg("encode registry update event")
		return
	}
	if err := s.pub.Publish(ctx, s.channel, payload).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("publish registry update event")
	}
}

type updateEvent struct {
	Entries []Entry `json:"entries"`
}

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonbin/quizdoc/internal/db/repository"
	"github.com/lessonbin/quizdoc/internal/registry"
)

type stubDocStore struct {
	mu        sync.Mutex
	inserted  []repository.DocumentRecord
	published map[uuid.UUID]string
	failed    map[uuid.UUID]string
}

func newStubDocStore() *stubDocStore {
	return &stubDocStore{
		published: map[uuid.UUID]string{},
		failed:    map[uuid.UUID]string{},
	}
}

func (s *stubDocStore) Insert(_ context.Context, docKey, title string, content []byte) (repository.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := repository.DocumentRecord{
		DocumentID: uuid.New(),
		DocKey:     docKey,
		Title:      title,
		Content:    content,
		Status:     repository.StatusPending,
	}
	s.inserted = append(s.inserted, rec)
	return rec, nil
}

func (s *stubDocStore) GetByID(_ context.Context, id uuid.UUID) (repository.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.inserted {
		if rec.DocumentID == id {
			return rec, nil
		}
	}
	return repository.DocumentRecord{}, repository.ErrNotFound
}

func (s *stubDocStore) MarkPublished(_ context.Context, id uuid.UUID, binID, publicURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[id] = publicURL
	return nil
}

func (s *stubDocStore) MarkFailed(_ context.Context, id uuid.UUID, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = cause
	return nil
}

type stubBins struct {
	createErr error
	created   int
}

func (b *stubBins) Create(context.Context, []byte) (string, error) {
	if b.createErr != nil {
		return "", b.createErr
	}
	b.created++
	return fmt.Sprintf("bin-%d", b.created), nil
}

func (b *stubBins) PublicURL(binID string) string {
	return "https://bins.example/" + binID
}

type stubRegistry struct {
	entries []registry.Entry
}

func (r *stubRegistry) Upsert(_ context.Context, entries []registry.Entry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func validDocJSON(t *testing.T) []byte {
	t.Helper()
	questions := make([]map[string]any, 0, 5)
	for i := 1; i <= 5; i++ {
		questions = append(questions, map[string]any{
			"id":             i,
			"text":           fmt.Sprintf("Question %d?", i),
			"options":        []string{"a", "b", "c", "d"},
			"correctIndices": []int{0},
			"hint":           "",
			"explanation":    "",
		})
	}
	data, err := json.Marshal(map[string]any{
		"id":              "grade-5-plants",
		"title":           "Plants",
		"description":     "Grade 5 science",
		"durationMinutes": 10,
		"questions":       questions,
	})
	require.NoError(t, err)
	return data
}

func TestSubmitQueuesValidDocument(t *testing.T) {
	docs := newStubDocStore()
	svc := NewService(docs, &stubBins{}, &stubRegistry{}, 4, zerolog.Nop())

	res, err := svc.Submit(context.Background(), validDocJSON(t))
	require.NoError(t, err)
	assert.True(t, res.Result.Valid())
	assert.NotEqual(t, uuid.Nil, res.DocumentID)
	require.Len(t, docs.inserted, 1)
	assert.Equal(t, "grade-5-plants", docs.inserted[0].DocKey)

	select {
	case job := <-svc.Queue():
		assert.Equal(t, res.DocumentID, job.DocumentID)
		assert.Equal(t, "Plants", job.Title)
	case <-time.After(time.Second):
		t.Fatal("expected a queued job")
	}
}

func TestSubmitRejectsInvalidDocument(t *testing.T) {
	docs := newStubDocStore()
	svc := NewService(docs, &stubBins{}, &stubRegistry{}, 4, zerolog.Nop())

	res, err := svc.Submit(context.Background(), []byte(`{"id":"Bad_Key"}`))
	require.NoError(t, err)
	assert.False(t, res.Result.Valid())
	assert.Empty(t, docs.inserted, "invalid documents must not be stored")
	assert.Empty(t, svc.Queue())
}

func TestSubmitQueueFull(t *testing.T) {
	docs := newStubDocStore()
	svc := NewService(docs, &stubBins{}, &stubRegistry{}, 1, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, validDocJSON(t))
	require.NoError(t, err)

	_, err = svc.Submit(ctx, validDocJSON(t))
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Len(t, docs.inserted, 2, "row is kept for later requeue")
}

func TestPublishSuccessUpdatesRegistry(t *testing.T) {
	docs := newStubDocStore()
	bins := &stubBins{}
	reg := &stubRegistry{}
	svc := NewService(docs, bins, reg, 4, zerolog.Nop())
	ctx := context.Background()

	res, err := svc.Submit(ctx, validDocJSON(t))
	require.NoError(t, err)
	job := <-svc.Queue()

	require.NoError(t, svc.Publish(ctx, job))

	assert.Equal(t, "https://bins.example/bin-1", docs.published[res.DocumentID])
	require.Len(t, reg.entries, 1)
	assert.Equal(t, registry.Entry{
		ID:    "grade-5-plants",
		Title: "Plants",
		URL:   "https://bins.example/bin-1",
	}, reg.entries[0])
}

func TestPublishFailureMarksDocument(t *testing.T) {
	docs := newStubDocStore()
	bins := &stubBins{createErr: errors.New("host down")}
	svc := NewService(docs, bins, &stubRegistry{}, 4, zerolog.Nop())
	ctx := context.Background()

	res, err := svc.Submit(ctx, validDocJSON(t))
	require.NoError(t, err)
	job := <-svc.Queue()

	err = svc.Publish(ctx, job)
	require.Error(t, err)
	assert.Contains(t, docs.failed[res.DocumentID], "host down")
}

func TestWorkerDrainsQueue(t *testing.T) {
	docs := newStubDocStore()
	bins := &stubBins{}
	reg := &stubRegistry{}
	svc := NewService(docs, bins, reg, 4, zerolog.Nop())

	res, err := svc.Submit(context.Background(), validDocJSON(t))
	require.NoError(t, err)

	worker := NewWorker(svc, zerolog.Nop(), time.Second)
	go worker.Run()
	defer worker.Stop()

	assert.Eventually(t, func() bool {
		docs.mu.Lock()
		defer docs.mu.Unlock()
		_, ok := docs.published[res.DocumentID]
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestValidateOnlyDoesNotStore(t *testing.T) {
	docs := newStubDocStore()
	svc := NewService(docs, &stubBins{}, &stubRegistry{}, 4, zerolog.Nop())

	res, err := svc.ValidateOnly(validDocJSON(t))
	require.NoError(t, err)
	assert.True(t, res.Valid())
	assert.Empty(t, docs.inserted)
}

package registry

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lessonbin/quizdoc/internal/db/repository"
)

type memoryStore struct {
	rows map[string]repository.RegistryRecord
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: map[string]repository.RegistryRecord{}}
}

func (s *memoryStore) Upsert(_ context.Context, entries []repository.RegistryRecord) error {
	for _, e := range entries {
		s.rows[e.EntryID] = e
	}
	return nil
}

func (s *memoryStore) List(_ context.Context) ([]repository.RegistryRecord, error) {
	out := make([]repository.RegistryRecord, 0, len(s.rows))
	for _, rec := range s.rows {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	return out, nil
}

type memoryEntryCache struct {
	entries []Entry
	filled  bool
}

func (c *memoryEntryCache) Get(context.Context) ([]Entry, error) {
	if !c.filled {
		return nil, nil
	}
	return c.entries, nil
}

func (c *memoryEntryCache) Set(_ context.Context, entries []Entry) error {
	c.entries = entries
	c.filled = true
	return nil
}

func (c *memoryEntryCache) Invalidate(context.Context) error {
	c.entries = nil
	c.filled = false
	return nil
}

type capturingPublisher struct {
	channel  string
	payloads [][]byte
}

func (p *capturingPublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	p.channel = channel
	p.payloads = append(p.payloads, message.([]byte))
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func TestUpsertReplacesMatchingIDs(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil, nil, ServiceOptions{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, []Entry{
		{ID: "grade-5-plants", Title: "Plants", URL: "https://api.npoint.io/aaa"},
		{ID: "grade-6-space", Title: "Space", URL: "https://api.npoint.io/bbb"},
	}))
	require.NoError(t, svc.Upsert(ctx, []Entry{
		{ID: "grade-5-plants", Title: "Plants v2", URL: "https://api.npoint.io/ccc"},
	}))

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Plants v2", entries[0].Title)
	assert.Equal(t, "https://api.npoint.io/ccc", entries[0].URL)
	assert.Equal(t, "grade-6-space", entries[1].ID)
}

func TestUpsertEmptyBatchIsNoop(t *testing.T) {
	store := newMemoryStore()
	pub := &capturingPublisher{}
	svc := NewService(store, nil, pub, ServiceOptions{}, zerolog.Nop())

	require.NoError(t, svc.Upsert(context.Background(), nil))
	assert.Empty(t, pub.payloads)
}

func TestUpsertNotifiesSubscribers(t *testing.T) {
	store := newMemoryStore()
	pub := &capturingPublisher{}
	svc := NewService(store, nil, pub, ServiceOptions{UpdateChannel: "registry:test"}, zerolog.Nop())

	entries := []Entry{{ID: "grade-5-plants", Title: "Plants", URL: "https://api.npoint.io/aaa"}}
	require.NoError(t, svc.Upsert(context.Background(), entries))

	assert.Equal(t, "registry:test", pub.channel)
	require.Len(t, pub.payloads, 1)

	var evt updateEvent
	require.NoError(t, json.Unmarshal(pub.payloads[0], &evt))
	assert.Equal(t, entries, evt.Entries)
}

func TestListFillsAndUsesCache(t *testing.T) {
	store := newMemoryStore()
	cache := &memoryEntryCache{}
	svc := NewService(store, cache, nil, ServiceOptions{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, []Entry{
		{ID: "grade-5-plants", Title: "Plants", URL: "https://api.npoint.io/aaa"},
	}))

	first, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, cache.filled, "list should fill the cache")

	// mutate the store behind the cache; the cached copy should win
	store.rows["grade-5-plants"] = repository.RegistryRecord{EntryID: "grade-5-plants", Title: "changed"}
	second, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Plants", second[0].Title)
}

func TestUpsertInvalidatesCache(t *testing.T) {
	store := newMemoryStore()
	cache := &memoryEntryCache{}
	svc := NewService(store, cache, nil, ServiceOptions{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, []Entry{{ID: "a", Title: "A", URL: "u"}}))
	_, err := svc.List(ctx)
	require.NoError(t, err)
	require.True(t, cache.filled)

	require.NoError(t, svc.Upsert(ctx, []Entry{{ID: "b", Title: "B", URL: "u2"}}))
	assert.False(t, cache.filled, "upsert should drop the cached registry")

	entries, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

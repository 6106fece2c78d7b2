package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orthrauku-dev/yt-sus/internal/model"
	"github.com/orthrauku-dev/yt-sus/internal/repository"
)

var t0 = time.Date(2025, 11, 17, 12, 0, 0, 0, time.UTC)

// memStore implements ChannelStore with the same atomicity guarantees
// the Postgres repository provides: key-conflicting inserts fail and
// increments are applied under a single lock.
type memStore struct {
	mu       sync.Mutex
	channels map[string]*model.Channel

	failInsert    error // forced Insert error, checked before state
	failIncrement error // forced IncrementVote error
}

func newMemStore() *memStore {
	return &memStore{channels: make(map[string]*model.Channel)}
}

func (m *memStore) Get(_ context.Context, channelID string) (*model.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channelID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *ch
	return &copied, nil
}

func (m *memStore) Insert(_ context.Context, ch *model.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failInsert != nil {
		return m.failInsert
	}
	if _, ok := m.channels[ch.ChannelID]; ok {
		return repository.ErrAlreadyExists
	}
	copied := *ch
	m.channels[ch.ChannelID] = &copied
	return nil
}

func (m *memStore) IncrementVote(_ context.Context, channelID, name string, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIncrement != nil {
		return 0, m.failIncrement
	}
	ch, ok := m.channels[channelID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	ch.VoteCount++
	ch.LastVotedAt = at
	if ch.ChannelName == "" || ch.ChannelName == model.UnknownName {
		ch.ChannelName = name
	}
	return ch.VoteCount, nil
}

func (m *memStore) ListFlagged(_ context.Context) ([]model.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Channel
	for _, ch := range m.channels {
		if ch.Flagged {
			out = append(out, *ch)
		}
	}
	return out, nil
}

func (m *memStore) Stats(_ context.Context) (*model.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &model.Stats{TotalChannels: len(m.channels)}
	for _, ch := range m.channels {
		s.TotalVotes += ch.VoteCount
		if ch.Flagged {
			s.FlaggedChannels++
		}
	}
	return s, nil
}

func TestApply_FirstVoteCreatesRecord(t *testing.T) {
	store := newMemStore()
	svc := NewVoteService(store, nil)

	id := "UCxxxxxxxxxxxxxxxxxxxxxx"
	count, err := svc.Apply(context.Background(), id, "Test Channel", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ch, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Test Channel", ch.ChannelName)
	assert.False(t, ch.Flagged)
	assert.Equal(t, model.DefaultReason, ch.Reason)
	assert.Equal(t, t0, ch.FirstVotedAt)
	assert.Equal(t, t0, ch.LastVotedAt)
}

func TestApply_SecondVoteIncrements(t *testing.T) {
	store := newMemStore()
	svc := NewVoteService(store, nil)

	id := "UCxxxxxxxxxxxxxxxxxxxxxx"
	_, err := svc.Apply(context.Background(), id, "Test Channel", t0)
	require.NoError(t, err)

	count, err := svc.Apply(context.Background(), id, "Test Channel", t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	ch, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, ch.Flagged)
	assert.Equal(t, t0, ch.FirstVotedAt, "firstVotedAt is set once at creation")
	assert.Equal(t, t0.Add(time.Second), ch.LastVotedAt)
}

func TestApply_ReplacesPlaceholderName(t *testing.T) {
	store := newMemStore()
	svc := NewVoteService(store, nil)

	id := "@somechannel"
	_, err := svc.Apply(context.Background(), id, model.UnknownName, t0)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), id, "Real Name", t0.Add(time.Second))
	require.NoError(t, err)

	ch, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Real Name", ch.ChannelName)

	// An established name is not overwritten by later candidates.
	_, err = svc.Apply(context.Background(), id, "Different Name", t0.Add(2*time.Second))
	require.NoError(t, err)
	ch, _ = store.Get(context.Background(), id)
	assert.Equal(t, "Real Name", ch.ChannelName)
}

func TestApply_NeverTouchesModerationFields(t *testing.T) {
	store := newMemStore()
	store.channels["@somechannel"] = &model.Channel{
		ChannelID:    "@somechannel",
		ChannelName:  "Some Channel",
		VoteCount:    4,
		Flagged:      true,
		Reason:       "AI Generated Videos",
		FlaggedDate:  "2025-11-16T00:00:00Z",
		FirstVotedAt: t0.Add(-time.Hour),
		LastVotedAt:  t0.Add(-time.Hour),
	}
	svc := NewVoteService(store, nil)

	for i := 0; i < 5; i++ {
		_, err := svc.Apply(context.Background(), "@somechannel", "Some Channel", t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	ch, err := store.Get(context.Background(), "@somechannel")
	require.NoError(t, err)
	assert.Equal(t, 9, ch.VoteCount)
	assert.True(t, ch.Flagged)
	assert.Equal(t, "AI Generated Videos", ch.Reason)
	assert.Equal(t, "2025-11-16T00:00:00Z", ch.FlaggedDate)
}

func TestApply_ConcurrentFirstVotes(t *testing.T) {
	store := newMemStore()
	svc := NewVoteService(store, nil)

	id := "UCyyyyyyyyyyyyyyyyyyyyyy"
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Apply(context.Background(), id, "Race Channel", t0)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Exactly one record, no lost update.
	ch, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, 2, ch.VoteCount)
	assert.Len(t, store.channels, 1)
}

func TestApply_StorageErrorSurfaces(t *testing.T) {
	store := newMemStore()
	dbErr := errors.New("connection reset")
	store.failIncrement = dbErr
	svc := NewVoteService(store, nil)

	_, err := svc.Apply(context.Background(), "@somechannel", "Name", t0)
	assert.ErrorIs(t, err, dbErr)
}

func TestApply_InsertFailureIsNotRetriedForever(t *testing.T) {
	store := newMemStore()
	dbErr := errors.New("disk full")
	store.failInsert = dbErr
	svc := NewVoteService(store, nil)

	// Increment finds nothing, insert fails with a non-conflict error:
	// surfaced, not retried.
	_, err := svc.Apply(context.Background(), "@somechannel", "Name", t0)
	assert.ErrorIs(t, err, dbErr)
}

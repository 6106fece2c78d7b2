package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/orthrauku-dev/yt-sus/internal/model"
	"github.com/orthrauku-dev/yt-sus/internal/repository"
)

// ChannelStore is the backing-store contract the services depend on.
// Implemented by repository.ChannelRepo; mocked in tests. Insert must
// return repository.ErrAlreadyExists when the key is taken and
// IncrementVote must return repository.ErrNotFound when it is not —
// the creation-race handling below relies on exactly those signals.
type ChannelStore interface {
	Get(ctx context.Context, channelID string) (*model.Channel, error)
	Insert(ctx context.Context, ch *model.Channel) error
	IncrementVote(ctx context.Context, channelID, name string, at time.Time) (int, error)
	ListFlagged(ctx context.Context) ([]model.Channel, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

type VoteService struct {
	store ChannelStore
	cache *CacheService
}

func NewVoteService(store ChannelStore, cache *CacheService) *VoteService {
	return &VoteService{store: store, cache: cache}
}

// Apply commits one admitted vote for channelID and returns the new
// vote count. channelName must already be sanitized.
//
// The write is an optimistic increment with a single bounded retry for
// the first-vote creation race:
//
//  1. Try an atomic increment of the existing record.
//  2. If no record exists, insert a fresh one with vote_count = 1.
//  3. If the insert loses to a concurrent first vote, increment the
//     record that won exactly once more. A further failure is returned
//     as a storage error rather than retried, to bound latency and
//     avoid masking a broken store.
func (s *VoteService) Apply(ctx context.Context, channelID, channelName string, now time.Time) (int, error) {
	count, err := s.store.IncrementVote(ctx, channelID, channelName, now)
	if err == nil {
		s.invalidate(ctx, channelID)
		return count, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("increment vote: %w", err)
	}

	// First vote for this channel.
	ch := &model.Channel{
		ChannelID:    channelID,
		ChannelName:  channelName,
		VoteCount:    1,
		Flagged:      false,
		Reason:       model.DefaultReason,
		FirstVotedAt: now,
		LastVotedAt:  now,
	}
	err = s.store.Insert(ctx, ch)
	if err == nil {
		s.invalidate(ctx, channelID)
		return 1, nil
	}
	if !errors.Is(err, repository.ErrAlreadyExists) {
		return 0, fmt.Errorf("insert channel: %w", err)
	}

	// Lost the creation race: another first vote committed between the
	// increment and the insert. Fall back to incrementing the winner.
	count, err = s.store.IncrementVote(ctx, channelID, channelName, now)
	if err != nil {
		return 0, fmt.Errorf("increment after creation race: %w", err)
	}
	s.invalidate(ctx, channelID)
	return count, nil
}

// invalidate drops cached reads that embed vote counts. Cache errors
// are logged and ignored; the store commit is the source of truth.
func (s *VoteService) invalidate(ctx context.Context, channelID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlagged(ctx); err != nil {
		log.Printf("cache: invalidate flagged list error: %v", err)
	}
	if err := s.cache.InvalidateChannel(ctx, channelID); err != nil {
		log.Printf("cache: invalidate channel error: %v", err)
	}
}

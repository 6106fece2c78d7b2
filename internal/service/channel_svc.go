package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/orthrauku-dev/yt-sus/internal/model"
	"github.com/orthrauku-dev/yt-sus/internal/repository"
)

type ChannelService struct {
	store ChannelStore
	cache *CacheService
}

func NewChannelService(store ChannelStore, cache *CacheService) *ChannelService {
	return &ChannelService{store: store, cache: cache}
}

// ListFlagged returns every moderated channel keyed by channel ID, the
// shape the extension consumes for its local lookup table. Uses
// cache-aside: check Redis first, fall back to the store, then
// populate the cache.
func (s *ChannelService) ListFlagged(ctx context.Context) (map[string]model.FlaggedChannelInfo, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlagged(ctx)
		if err != nil {
			log.Printf("cache: flagged list get error: %v", err)
		} else if cached != nil {
			var out map[string]model.FlaggedChannelInfo
			if err := json.Unmarshal(cached, &out); err == nil {
				return out, nil
			}
		}
	}

	channels, err := s.store.ListFlagged(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]model.FlaggedChannelInfo, len(channels))
	for _, ch := range channels {
		out[ch.ChannelID] = flaggedInfo(&ch)
	}

	if s.cache != nil {
		if err := s.cache.SetFlagged(ctx, out); err != nil {
			log.Printf("cache: flagged list set error: %v", err)
		}
	}

	return out, nil
}

// Check reports whether a single channel is flagged. A channel with no
// record, or a record moderation has not flagged, answers
// flagged=false rather than an error.
func (s *ChannelService) Check(ctx context.Context, channelID string) (*model.CheckResponse, error) {
	if s.cache != nil {
		cached, err := s.cache.GetChannel(ctx, channelID)
		if err != nil {
			log.Printf("cache: channel get error: %v", err)
		} else if cached != nil {
			var resp model.CheckResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				return &resp, nil
			}
		}
	}

	resp := &model.CheckResponse{ChannelID: channelID}
	ch, err := s.store.Get(ctx, channelID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// Not tracked at all: not flagged.
	case err != nil:
		return nil, err
	case ch.Flagged:
		info := flaggedInfo(ch)
		resp.Flagged = true
		resp.Details = &info
	}

	if s.cache != nil {
		if err := s.cache.SetChannel(ctx, channelID, resp); err != nil {
			log.Printf("cache: channel set error: %v", err)
		}
	}

	return resp, nil
}

// Stats returns aggregate counts over tracked channels.
func (s *ChannelService) Stats(ctx context.Context) (*model.Stats, error) {
	return s.store.Stats(ctx)
}

func flaggedInfo(ch *model.Channel) model.FlaggedChannelInfo {
	return model.FlaggedChannelInfo{
		ChannelName: ch.ChannelName,
		FlaggedDate: ch.FlaggedDate,
		Reason:      ch.Reason,
		Votes:       ch.VoteCount,
	}
}

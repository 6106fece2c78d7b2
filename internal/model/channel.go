package model

import "time"

// DefaultReason is the reason stored on records created by the vote
// path, before any moderation decision has been made.
const DefaultReason = "AI Content"

// UnknownName is the placeholder display name stored when a client
// submits no usable channel name.
const UnknownName = "Unknown"

// Channel is one tracked YouTube channel and its aggregated vote state.
// The vote path owns channel_name, vote_count and the voted-at
// timestamps; flagged, reason and flagged_date are written only by
// out-of-band moderation and are never touched when applying a vote.
type Channel struct {
	ChannelID    string    `json:"channelId"`
	ChannelName  string    `json:"channelName"`
	VoteCount    int       `json:"voteCount"`
	Flagged      bool      `json:"flagged"`
	Reason       string    `json:"reason,omitempty"`
	FlaggedDate  string    `json:"flaggedDate,omitempty"`
	FirstVotedAt time.Time `json:"firstVotedAt"`
	LastVotedAt  time.Time `json:"lastVotedAt"`
}

// VoteRequest is the API request body for submitting a vote.
type VoteRequest struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName,omitempty"`
}

// VoteResponse is the API response after a successful vote.
type VoteResponse struct {
	Success   bool   `json:"success"`
	ChannelID string `json:"channelId"`
	Votes     int    `json:"votes"`
}

// FlaggedChannelInfo is one entry in the flagged-channel map the
// extension consumes.
type FlaggedChannelInfo struct {
	ChannelName string `json:"channelName"`
	FlaggedDate string `json:"flaggedDate"`
	Reason      string `json:"reason"`
	Votes       int    `json:"votes"`
}

// CheckResponse is the API response for a single-channel flag check.
// Details is present only when the channel is flagged.
type CheckResponse struct {
	Flagged   bool                `json:"flagged"`
	ChannelID string              `json:"channelId"`
	Details   *FlaggedChannelInfo `json:"details,omitempty"`
}

// Stats summarizes the tracked channel population.
type Stats struct {
	TotalChannels   int `json:"totalChannels"`
	FlaggedChannels int `json:"flaggedChannels"`
	TotalVotes      int `json:"totalVotes"`
}

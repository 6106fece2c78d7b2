package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/orthrauku-dev/yt-sus/internal/model"
)

// The channels table keeps the table-storage addressing scheme the
// extension's original backend used: a fixed partition tag plus a
// unique row key per channel.
//
//	CREATE TABLE channels (
//	    partition      TEXT NOT NULL,
//	    row_key        VARCHAR(100) NOT NULL,
//	    channel_name   VARCHAR(200) NOT NULL DEFAULT 'Unknown',
//	    vote_count     INTEGER NOT NULL DEFAULT 0,
//	    flagged        BOOLEAN NOT NULL DEFAULT FALSE,
//	    reason         TEXT NOT NULL DEFAULT 'AI Content',
//	    flagged_date   TEXT NOT NULL DEFAULT '',
//	    first_voted_at TIMESTAMPTZ NOT NULL,
//	    last_voted_at  TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (partition, row_key)
//	);
const Partition = "flagged"

var (
	// ErrNotFound is returned when no record exists for a channel ID.
	ErrNotFound = errors.New("channel not found")
	// ErrAlreadyExists is returned when an insert loses a creation
	// race: a record with the same key committed first.
	ErrAlreadyExists = errors.New("channel already exists")
)

// uniqueViolation is the Postgres SQLSTATE for a unique-constraint
// conflict.
const uniqueViolation = "23505"

// pool is the subset of *pgxpool.Pool the repository needs. Declared
// as an interface so tests can substitute pgxmock.
type pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ChannelRepo struct {
	pool pool
}

func NewChannelRepo(p pool) *ChannelRepo {
	return &ChannelRepo{pool: p}
}

// Get returns the record for a channel ID, or ErrNotFound.
func (r *ChannelRepo) Get(ctx context.Context, channelID string) (*model.Channel, error) {
	query := `
		SELECT row_key, channel_name, vote_count, flagged, reason, flagged_date,
		       first_voted_at, last_voted_at
		FROM channels
		WHERE partition = $1 AND row_key = $2`

	var ch model.Channel
	err := r.pool.QueryRow(ctx, query, Partition, channelID).Scan(
		&ch.ChannelID, &ch.ChannelName, &ch.VoteCount, &ch.Flagged, &ch.Reason,
		&ch.FlaggedDate, &ch.FirstVotedAt, &ch.LastVotedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// Insert creates a brand-new record. It deliberately does not use
// ON CONFLICT: a concurrent first-vote must surface as
// ErrAlreadyExists so the caller can fall back to an increment.
func (r *ChannelRepo) Insert(ctx context.Context, ch *model.Channel) error {
	query := `
		INSERT INTO channels (partition, row_key, channel_name, vote_count, flagged,
		                      reason, flagged_date, first_voted_at, last_voted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		Partition, ch.ChannelID, ch.ChannelName, ch.VoteCount, ch.Flagged,
		ch.Reason, ch.FlaggedDate, ch.FirstVotedAt, ch.LastVotedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrAlreadyExists
	}
	return err
}

// IncrementVote applies one vote to an existing record in a single
// statement: vote_count increments atomically, last_voted_at advances,
// and the stored name is replaced only if it is empty or the
// placeholder. Moderation-owned columns (flagged, reason, flagged_date)
// are never touched. Returns the new count, or ErrNotFound if no
// record exists yet.
func (r *ChannelRepo) IncrementVote(ctx context.Context, channelID, name string, at time.Time) (int, error) {
	query := `
		UPDATE channels
		SET vote_count = vote_count + 1,
		    last_voted_at = $4,
		    channel_name = CASE
		        WHEN channel_name = '' OR channel_name = $5 THEN $3
		        ELSE channel_name
		    END
		WHERE partition = $1 AND row_key = $2
		RETURNING vote_count`

	var count int
	err := r.pool.QueryRow(ctx, query, Partition, channelID, name, at, model.UnknownName).Scan(&count)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListFlagged returns all channels marked by moderation, with their
// vote counts, ordered by flag date then key for a stable response.
func (r *ChannelRepo) ListFlagged(ctx context.Context) ([]model.Channel, error) {
	query := `
		SELECT row_key, channel_name, vote_count, flagged, reason, flagged_date,
		       first_voted_at, last_voted_at
		FROM channels
		WHERE partition = $1 AND flagged
		ORDER BY flagged_date, row_key`

	rows, err := r.pool.Query(ctx, query, Partition)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []model.Channel
	for rows.Next() {
		var ch model.Channel
		if err := rows.Scan(
			&ch.ChannelID, &ch.ChannelName, &ch.VoteCount, &ch.Flagged, &ch.Reason,
			&ch.FlaggedDate, &ch.FirstVotedAt, &ch.LastVotedAt,
		); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// Stats returns aggregate counts over the tracked channel population.
func (r *ChannelRepo) Stats(ctx context.Context) (*model.Stats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE flagged),
		       COALESCE(SUM(vote_count), 0)
		FROM channels
		WHERE partition = $1`

	var s model.Stats
	err := r.pool.QueryRow(ctx, query, Partition).Scan(&s.TotalChannels, &s.FlaggedChannels, &s.TotalVotes)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

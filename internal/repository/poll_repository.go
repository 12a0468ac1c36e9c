package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"livepoll/internal/domain"
	poll_errors "livepoll/pkg/errors"
)

type PostgresPollRepository struct {
	db DBTX
}

func NewPollRepository(db DBTX) PollRepository {
	return &PostgresPollRepository{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS polls (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    created_by TEXT NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    is_removed BOOLEAN NOT NULL DEFAULT FALSE,
    share_code VARCHAR(16) NOT NULL UNIQUE,
    preview_image_url TEXT NOT NULL DEFAULT '',
    ends_at TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_polls_is_active ON polls(is_active);

CREATE TABLE IF NOT EXISTS options (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    text TEXT NOT NULL,
    position INT NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_options_poll_id ON options(poll_id);

CREATE TABLE IF NOT EXISTS votes (
    poll_id TEXT NOT NULL REFERENCES polls(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    option_id TEXT NOT NULL REFERENCES options(id) ON DELETE CASCADE,
    cast_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (poll_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_poll_id ON votes(poll_id);
`

// EnsureSchema creates the tables. Safe to call more than once.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *PostgresPollRepository) CreatePoll(ctx context.Context, poll domain.Poll, options []domain.Option) error {
	return WithTx(ctx, r.db, func(tx DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO polls (id, question, created_by, is_active, is_removed, share_code, preview_image_url, ends_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			poll.ID, poll.Question, poll.CreatedBy, poll.IsActive, poll.IsRemoved,
			poll.ShareCode, poll.PreviewImageURL, poll.EndsAt, poll.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return poll_errors.ErrAlreadyExists
			}
			return err
		}
		for _, opt := range options {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO options (id, poll_id, text, position)
				VALUES ($1, $2, $3, $4)`,
				opt.ID, opt.PollID, opt.Text, opt.Position)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresPollRepository) GetPoll(ctx context.Context, id string) (domain.Poll, error) {
	return r.getPollBy(ctx, "id", id)
}

// GetPollByShareCode resolves a shareable link code to its poll.
func (r *PostgresPollRepository) GetPollByShareCode(ctx context.Context, code string) (domain.Poll, error) {
	return r.getPollBy(ctx, "share_code", code)
}

func (r *PostgresPollRepository) getPollBy(ctx context.Context, column, value string) (domain.Poll, error) {
	var p domain.Poll
	err := r.db.QueryRowContext(ctx, `
		SELECT id, question, created_by, is_active, is_removed, share_code, preview_image_url, ends_at, created_at
		FROM polls WHERE `+column+` = $1`, value).
		Scan(&p.ID, &p.Question, &p.CreatedBy, &p.IsActive, &p.IsRemoved,
			&p.ShareCode, &p.PreviewImageURL, &p.EndsAt, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Poll{}, poll_errors.ErrNotFound
		}
		return domain.Poll{}, err
	}
	return p, nil
}

func (r *PostgresPollRepository) ListPolls(ctx context.Context, active bool) ([]domain.Poll, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, question, created_by, is_active, is_removed, share_code, preview_image_url, ends_at, created_at
		FROM polls
		WHERE is_active = $1 AND is_removed = FALSE
		ORDER BY created_at DESC`, active)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var polls []domain.Poll
	for rows.Next() {
		var p domain.Poll
		if err := rows.Scan(&p.ID, &p.Question, &p.CreatedBy, &p.IsActive, &p.IsRemoved,
			&p.ShareCode, &p.PreviewImageURL, &p.EndsAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	return polls, rows.Err()
}

func (r *PostgresPollRepository) GetOptions(ctx context.Context, pollID string) ([]domain.Option, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, poll_id, text, position
		FROM options WHERE poll_id = $1
		ORDER BY position ASC`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var options []domain.Option
	for rows.Next() {
		var o domain.Option
		if err := rows.Scan(&o.ID, &o.PollID, &o.Text, &o.Position); err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

func (r *PostgresPollRepository) GetVotesByPoll(ctx context.Context, pollID string) ([]domain.VoteRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT poll_id, user_id, option_id, cast_at
		FROM votes WHERE poll_id = $1`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []domain.VoteRecord
	for rows.Next() {
		var v domain.VoteRecord
		if err := rows.Scan(&v.PollID, &v.UserID, &v.OptionID, &v.CastAt); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

func (r *PostgresPollRepository) GetVoteByUserAndPoll(ctx context.Context, userID, pollID string) (*domain.VoteRecord, error) {
	var v domain.VoteRecord
	err := r.db.QueryRowContext(ctx, `
		SELECT poll_id, user_id, option_id, cast_at
		FROM votes WHERE poll_id = $1 AND user_id = $2`, pollID, userID).
		Scan(&v.PollID, &v.UserID, &v.OptionID, &v.CastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *PostgresPollRepository) CreateOrUpdateVote(ctx context.Context, pollID, userID, optionID string) (domain.VoteRecord, error) {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO votes (poll_id, user_id, option_id, cast_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (poll_id, user_id)
		DO UPDATE SET option_id = EXCLUDED.option_id, cast_at = EXCLUDED.cast_at`,
		pollID, userID, optionID, now)
	if err != nil {
		return domain.VoteRecord{}, err
	}
	return domain.VoteRecord{PollID: pollID, UserID: userID, OptionID: optionID, CastAt: now}, nil
}

func (r *PostgresPollRepository) MarkPollExpired(ctx context.Context, pollID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE polls SET is_active = FALSE
		WHERE id = $1 AND is_active = TRUE`, pollID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresPollRepository) MarkPollRemoved(ctx context.Context, pollID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE polls SET is_removed = TRUE, is_active = FALSE
		WHERE id = $1 AND is_removed = FALSE`, pollID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *PostgresPollRepository) SetPreviewImage(ctx context.Context, pollID, url string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE polls SET preview_image_url = $2 WHERE id = $1`, pollID, url)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return poll_errors.ErrNotFound
	}
	return nil
}

package repository

import (
	"context"

	"livepoll/internal/domain"
)

// PollRepository is the durable collaborator for polls, options and votes.
// It is the system of record; the real-time core only consults and relays it.
type PollRepository interface {
	CreatePoll(ctx context.Context, poll domain.Poll, options []domain.Option) error
	GetPoll(ctx context.Context, id string) (domain.Poll, error)
	GetPollByShareCode(ctx context.Context, code string) (domain.Poll, error)
	ListPolls(ctx context.Context, active bool) ([]domain.Poll, error)
	GetOptions(ctx context.Context, pollID string) ([]domain.Option, error)
	GetVotesByPoll(ctx context.Context, pollID string) ([]domain.VoteRecord, error)
	GetVoteByUserAndPoll(ctx context.Context, userID, pollID string) (*domain.VoteRecord, error)
	// CreateOrUpdateVote upserts the single vote record for (pollID, userID).
	CreateOrUpdateVote(ctx context.Context, pollID, userID, optionID string) (domain.VoteRecord, error)
	// MarkPollExpired flips is_active off and reports whether this call did
	// the flip. Racing callers observe false and must not re-broadcast.
	MarkPollExpired(ctx context.Context, pollID string) (bool, error)
	MarkPollRemoved(ctx context.Context, pollID string) (bool, error)
	SetPreviewImage(ctx context.Context, pollID, url string) error
}

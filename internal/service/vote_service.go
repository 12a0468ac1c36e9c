package service

import (
	"context"
	"errors"
	"fmt"

	"livepoll/internal/domain"
	"livepoll/internal/repository"
	poll_errors "livepoll/pkg/errors"
	"livepoll/pkg/logger"
)

// VoteOutcome is the coordinator's decision plus the tally it implies.
// Changed is false for an identical re-vote, which callers must treat as a
// no-op: same tally, no broadcast.
type VoteOutcome struct {
	Vote    domain.VoteRecord
	Detail  domain.PollDetail
	Changed bool
}

// VoteService is the authoritative decision point for vote acceptance. A
// user holds at most one vote per poll; a different option updates the
// record in place, the same option is idempotent.
type VoteService struct {
	repo      repository.PollRepository
	lifecycle *LifecycleManager
	logger    *logger.Logger
}

func NewVoteService(repo repository.PollRepository, lifecycle *LifecycleManager, l *logger.Logger) *VoteService {
	return &VoteService{repo: repo, lifecycle: lifecycle, logger: l}
}

// CastVote validates and applies one vote attempt. The tally in the outcome
// is recomputed from the committed vote records, never from counters, so a
// broadcast built from it cannot reflect an uncommitted write.
func (s *VoteService) CastVote(ctx context.Context, pollID, userID, optionID string) (*VoteOutcome, error) {
	poll, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return nil, storageErr(err)
	}
	if poll.IsRemoved {
		return nil, poll_errors.ErrPollClosed
	}

	expired, err := s.lifecycle.ExpireIfDue(ctx, poll)
	if err != nil {
		return nil, err
	}
	if expired || !poll.IsActive {
		return nil, poll_errors.ErrPollClosed
	}

	options, err := s.repo.GetOptions(ctx, pollID)
	if err != nil {
		return nil, storageErr(err)
	}
	if !hasOption(options, optionID) {
		return nil, poll_errors.ErrInvalidOption
	}

	existing, err := s.repo.GetVoteByUserAndPoll(ctx, userID, pollID)
	if err != nil {
		return nil, storageErr(err)
	}

	if existing != nil && existing.OptionID == optionID {
		// Identical re-vote: nothing to commit, current tally unchanged.
		votes, err := s.repo.GetVotesByPoll(ctx, pollID)
		if err != nil {
			return nil, storageErr(err)
		}
		return &VoteOutcome{
			Vote:    *existing,
			Detail:  domain.NewPollDetail(poll, options, votes, existing),
			Changed: false,
		}, nil
	}

	vote, err := s.repo.CreateOrUpdateVote(ctx, pollID, userID, optionID)
	if err != nil {
		return nil, storageErr(err)
	}
	if existing == nil {
		s.logger.Infof("new vote on poll %s by %s", pollID, userID)
	} else {
		s.logger.Infof("vote change on poll %s by %s", pollID, userID)
	}

	votes, err := s.repo.GetVotesByPoll(ctx, pollID)
	if err != nil {
		return nil, storageErr(err)
	}
	return &VoteOutcome{
		Vote:    vote,
		Detail:  domain.NewPollDetail(poll, options, votes, &vote),
		Changed: true,
	}, nil
}

func hasOption(options []domain.Option, optionID string) bool {
	for _, o := range options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, poll_errors.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s", poll_errors.ErrStorageUnavailable, err)
}

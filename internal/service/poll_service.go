package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"livepoll/internal/domain"
	"livepoll/internal/repository"
	poll_errors "livepoll/pkg/errors"
	"livepoll/pkg/logger"

	"github.com/google/uuid"
)

type CreatePollInput struct {
	Question  string
	Options   []string
	CreatedBy string
	EndsAt    time.Time
}

// PollService handles the poll CRUD surface around the sync core and
// assembles the client-facing snapshots.
type PollService struct {
	repo      repository.PollRepository
	lifecycle *LifecycleManager
	logger    *logger.Logger
}

func NewPollService(repo repository.PollRepository, lifecycle *LifecycleManager, l *logger.Logger) *PollService {
	return &PollService{repo: repo, lifecycle: lifecycle, logger: l}
}

func (s *PollService) CreatePoll(ctx context.Context, input CreatePollInput) (domain.PollDetail, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" || input.CreatedBy == "" {
		return domain.PollDetail{}, poll_errors.ErrInvalidInput
	}
	if len(input.Options) < 2 {
		return domain.PollDetail{}, poll_errors.ErrInvalidInput
	}
	if !input.EndsAt.After(time.Now()) {
		return domain.PollDetail{}, poll_errors.ErrInvalidInput
	}

	poll := domain.Poll{
		ID:        uuid.New().String(),
		Question:  question,
		CreatedBy: input.CreatedBy,
		IsActive:  true,
		ShareCode: newShareCode(),
		EndsAt:    input.EndsAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
	options := make([]domain.Option, 0, len(input.Options))
	for i, text := range input.Options {
		text = strings.TrimSpace(text)
		if text == "" {
			return domain.PollDetail{}, poll_errors.ErrInvalidInput
		}
		options = append(options, domain.Option{
			ID:       uuid.New().String(),
			PollID:   poll.ID,
			Text:     text,
			Position: i,
		})
	}

	if err := s.repo.CreatePoll(ctx, poll, options); err != nil {
		return domain.PollDetail{}, storageErr(err)
	}
	s.lifecycle.Schedule(poll)
	s.logger.Infof("poll %s created by %s", poll.ID, poll.CreatedBy)

	return domain.NewPollDetail(poll, options, nil, nil), nil
}

// GetPollDetail returns the snapshot for one poll, running the lazy expiry
// check first. userID is optional; when set, the caller's vote is included.
func (s *PollService) GetPollDetail(ctx context.Context, pollID, userID string) (domain.PollDetail, error) {
	poll, err := s.repo.GetPoll(ctx, pollID)
	if err != nil {
		return domain.PollDetail{}, storageErr(err)
	}

	expired, err := s.lifecycle.ExpireIfDue(ctx, poll)
	if err != nil {
		return domain.PollDetail{}, err
	}
	if expired {
		poll.IsActive = false
	}

	options, err := s.repo.GetOptions(ctx, pollID)
	if err != nil {
		return domain.PollDetail{}, storageErr(err)
	}
	votes, err := s.repo.GetVotesByPoll(ctx, pollID)
	if err != nil {
		return domain.PollDetail{}, storageErr(err)
	}

	var userVote *domain.VoteRecord
	if userID != "" {
		userVote, err = s.repo.GetVoteByUserAndPoll(ctx, userID, pollID)
		if err != nil {
			return domain.PollDetail{}, storageErr(err)
		}
	}

	return domain.NewPollDetail(poll, options, votes, userVote), nil
}

// GetPollByShareCode resolves a shareable link code and returns the same
// snapshot as the detail endpoint. Removed polls stay resolvable by id for
// their tombstone but not through share links.
func (s *PollService) GetPollByShareCode(ctx context.Context, code, userID string) (domain.PollDetail, error) {
	poll, err := s.repo.GetPollByShareCode(ctx, code)
	if err != nil {
		return domain.PollDetail{}, storageErr(err)
	}
	if poll.IsRemoved {
		return domain.PollDetail{}, poll_errors.ErrPollRemoved
	}
	return s.GetPollDetail(ctx, poll.ID, userID)
}

const shareCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// newShareCode returns the 8-character code embedded in shareable poll links.
func newShareCode() string {
	buf := make([]byte, 8)
	alphabetLen := big.NewInt(int64(len(shareCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return uuid.New().String()[:8]
		}
		buf[i] = shareCodeAlphabet[n.Int64()]
	}
	return string(buf)
}

// JoinSnapshot is the room-join view of a poll. Removed polls cannot be
// joined.
func (s *PollService) JoinSnapshot(ctx context.Context, pollID string) (domain.PollDetail, error) {
	detail, err := s.GetPollDetail(ctx, pollID, "")
	if err != nil {
		return domain.PollDetail{}, err
	}
	if detail.IsRemoved {
		return domain.PollDetail{}, poll_errors.ErrPollRemoved
	}
	return detail, nil
}

func (s *PollService) ListPolls(ctx context.Context, active bool) ([]domain.PollDetail, error) {
	polls, err := s.repo.ListPolls(ctx, active)
	if err != nil {
		return nil, storageErr(err)
	}

	details := make([]domain.PollDetail, 0, len(polls))
	for _, poll := range polls {
		options, err := s.repo.GetOptions(ctx, poll.ID)
		if err != nil {
			return nil, storageErr(err)
		}
		votes, err := s.repo.GetVotesByPoll(ctx, poll.ID)
		if err != nil {
			return nil, storageErr(err)
		}
		details = append(details, domain.NewPollDetail(poll, options, votes, nil))
	}
	return details, nil
}

// RemovePoll marks the poll removed and disarms its expiry timer. Returns
// whether this call performed the removal.
func (s *PollService) RemovePoll(ctx context.Context, pollID string) (bool, error) {
	if _, err := s.repo.GetPoll(ctx, pollID); err != nil {
		return false, storageErr(err)
	}
	changed, err := s.repo.MarkPollRemoved(ctx, pollID)
	if err != nil {
		return false, storageErr(err)
	}
	if changed {
		s.lifecycle.Cancel(pollID)
		s.logger.Infof("poll %s removed", pollID)
	}
	return changed, nil
}

func (s *PollService) SetPreviewImage(ctx context.Context, pollID, url string) error {
	if url == "" {
		return poll_errors.ErrInvalidInput
	}
	if err := s.repo.SetPreviewImage(ctx, pollID, url); err != nil {
		return storageErr(err)
	}
	return nil
}

package testutil

import (
	"context"
	"sync"
	"time"

	"livepoll/internal/domain"
	poll_errors "livepoll/pkg/errors"
)

// FakePollRepository is an in-memory stand-in for the durable collaborator.
// Setting Err makes every call fail, for exercising the storage-unavailable
// paths.
type FakePollRepository struct {
	mu      sync.Mutex
	polls   map[string]domain.Poll
	options map[string][]domain.Option
	votes   map[string]map[string]domain.VoteRecord
	Err     error
}

func NewFakePollRepository() *FakePollRepository {
	return &FakePollRepository{
		polls:   make(map[string]domain.Poll),
		options: make(map[string][]domain.Option),
		votes:   make(map[string]map[string]domain.VoteRecord),
	}
}

// AddPoll seeds a poll with its options.
func (f *FakePollRepository) AddPoll(poll domain.Poll, options []domain.Option) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls[poll.ID] = poll
	f.options[poll.ID] = options
}

func (f *FakePollRepository) CreatePoll(_ context.Context, poll domain.Poll, options []domain.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if _, ok := f.polls[poll.ID]; ok {
		return poll_errors.ErrAlreadyExists
	}
	f.polls[poll.ID] = poll
	f.options[poll.ID] = options
	return nil
}

func (f *FakePollRepository) GetPoll(_ context.Context, id string) (domain.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return domain.Poll{}, f.Err
	}
	poll, ok := f.polls[id]
	if !ok {
		return domain.Poll{}, poll_errors.ErrNotFound
	}
	return poll, nil
}

func (f *FakePollRepository) GetPollByShareCode(_ context.Context, code string) (domain.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return domain.Poll{}, f.Err
	}
	for _, p := range f.polls {
		if p.ShareCode == code && code != "" {
			return p, nil
		}
	}
	return domain.Poll{}, poll_errors.ErrNotFound
}

func (f *FakePollRepository) ListPolls(_ context.Context, active bool) ([]domain.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var polls []domain.Poll
	for _, p := range f.polls {
		if p.IsActive == active && !p.IsRemoved {
			polls = append(polls, p)
		}
	}
	return polls, nil
}

func (f *FakePollRepository) GetOptions(_ context.Context, pollID string) ([]domain.Option, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.options[pollID], nil
}

func (f *FakePollRepository) GetVotesByPoll(_ context.Context, pollID string) ([]domain.VoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var votes []domain.VoteRecord
	for _, v := range f.votes[pollID] {
		votes = append(votes, v)
	}
	return votes, nil
}

func (f *FakePollRepository) GetVoteByUserAndPoll(_ context.Context, userID, pollID string) (*domain.VoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	v, ok := f.votes[pollID][userID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *FakePollRepository) CreateOrUpdateVote(_ context.Context, pollID, userID, optionID string) (domain.VoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return domain.VoteRecord{}, f.Err
	}
	if f.votes[pollID] == nil {
		f.votes[pollID] = make(map[string]domain.VoteRecord)
	}
	vote := domain.VoteRecord{PollID: pollID, UserID: userID, OptionID: optionID, CastAt: time.Now().UTC()}
	f.votes[pollID][userID] = vote
	return vote, nil
}

func (f *FakePollRepository) MarkPollExpired(_ context.Context, pollID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	poll, ok := f.polls[pollID]
	if !ok || !poll.IsActive {
		return false, nil
	}
	poll.IsActive = false
	f.polls[pollID] = poll
	return true, nil
}

func (f *FakePollRepository) MarkPollRemoved(_ context.Context, pollID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return false, f.Err
	}
	poll, ok := f.polls[pollID]
	if !ok || poll.IsRemoved {
		return false, nil
	}
	poll.IsRemoved = true
	poll.IsActive = false
	f.polls[pollID] = poll
	return true, nil
}

func (f *FakePollRepository) SetPreviewImage(_ context.Context, pollID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	poll, ok := f.polls[pollID]
	if !ok {
		return poll_errors.ErrNotFound
	}
	poll.PreviewImageURL = url
	f.polls[pollID] = poll
	return nil
}

// BroadcastEvent is one captured fan-out call.
type BroadcastEvent struct {
	PollID  string
	Payload []byte
}

// RecordingBroadcaster captures broadcasts instead of delivering them.
type RecordingBroadcaster struct {
	mu     sync.Mutex
	events []BroadcastEvent
}

func NewRecordingBroadcaster() *RecordingBroadcaster {
	return &RecordingBroadcaster{}
}

func (b *RecordingBroadcaster) Broadcast(pollID string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, BroadcastEvent{PollID: pollID, Payload: payload})
}

func (b *RecordingBroadcaster) Events() []BroadcastEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]BroadcastEvent(nil), b.events...)
}

func (b *RecordingBroadcaster) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"livepoll/internal/domain"
	"livepoll/internal/protocol"
	"livepoll/internal/repository"
	poll_errors "livepoll/pkg/errors"
	"livepoll/pkg/logger"
)

// Broadcaster fans an encoded event out to a poll's room. Backed either by
// the in-process hub or by the redis bus.
type Broadcaster interface {
	Broadcast(pollID string, payload []byte)
}

// LifecycleManager owns the one-way Active -> Expired transition. The timer
// path and the lazy check both converge on Expire, which is idempotent: the
// repository does the compare-and-set, and only the caller that actually
// flipped the flag broadcasts the closure.
type LifecycleManager struct {
	repo        repository.PollRepository
	broadcaster Broadcaster
	logger      *logger.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewLifecycleManager(repo repository.PollRepository, broadcaster Broadcaster, l *logger.Logger) *LifecycleManager {
	return &LifecycleManager{
		repo:        repo,
		broadcaster: broadcaster,
		logger:      l,
		timers:      make(map[string]*time.Timer),
	}
}

// Schedule arms the expiry timer for an active poll. A poll already past its
// end time is expired immediately.
func (m *LifecycleManager) Schedule(poll domain.Poll) {
	if !poll.IsActive || poll.IsRemoved {
		return
	}

	delay := time.Until(poll.EndsAt)
	if delay <= 0 {
		go func() {
			if _, err := m.Expire(context.Background(), poll.ID); err != nil {
				m.logger.Errorf("expiring overdue poll %s: %s", poll.ID, err)
			}
		}()
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[poll.ID]; ok {
		t.Stop()
	}
	pollID := poll.ID
	m.timers[pollID] = time.AfterFunc(delay, func() {
		if _, err := m.Expire(context.Background(), pollID); err != nil {
			m.logger.Errorf("scheduled expiry of poll %s: %s", pollID, err)
		}
	})
}

// ScheduleAll arms timers for every active poll. Called on startup so polls
// created before a restart still close on time.
func (m *LifecycleManager) ScheduleAll(ctx context.Context) error {
	polls, err := m.repo.ListPolls(ctx, true)
	if err != nil {
		return fmt.Errorf("%w: %s", poll_errors.ErrStorageUnavailable, err)
	}
	for _, p := range polls {
		m.Schedule(p)
	}
	return nil
}

// Cancel disarms a poll's expiry timer, typically because the poll was
// removed before its end time.
func (m *LifecycleManager) Cancel(pollID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.timers[pollID]; ok {
		t.Stop()
		delete(m.timers, pollID)
	}
}

// Expire marks a poll expired. Returns true only for the caller that
// performed the transition; racing callers get false and no broadcast fires
// for them.
func (m *LifecycleManager) Expire(ctx context.Context, pollID string) (bool, error) {
	changed, err := m.repo.MarkPollExpired(ctx, pollID)
	if err != nil {
		return false, fmt.Errorf("%w: %s", poll_errors.ErrStorageUnavailable, err)
	}
	m.Cancel(pollID)
	if !changed {
		return false, nil
	}

	m.logger.Infof("poll %s expired", pollID)
	m.broadcastClosure(ctx, pollID)
	return true, nil
}

// ExpireIfDue runs the lazy check against a poll already in hand. Returns
// whether the poll is past its end time, regardless of which caller won the
// transition.
func (m *LifecycleManager) ExpireIfDue(ctx context.Context, poll domain.Poll) (bool, error) {
	if !poll.Expired(time.Now()) {
		return false, nil
	}
	if !poll.IsActive {
		return true, nil
	}
	_, err := m.Expire(ctx, poll.ID)
	return true, err
}

func (m *LifecycleManager) broadcastClosure(ctx context.Context, pollID string) {
	poll, err := m.repo.GetPoll(ctx, pollID)
	if err != nil {
		m.logger.Errorf("closure broadcast for poll %s: %s", pollID, err)
		return
	}
	options, err := m.repo.GetOptions(ctx, pollID)
	if err != nil {
		m.logger.Errorf("closure broadcast for poll %s: %s", pollID, err)
		return
	}
	votes, err := m.repo.GetVotesByPoll(ctx, pollID)
	if err != nil {
		m.logger.Errorf("closure broadcast for poll %s: %s", pollID, err)
		return
	}
	detail := domain.NewPollDetail(poll, options, votes, nil)
	m.broadcaster.Broadcast(pollID, protocol.Encode(protocol.NewPollUpdateMessage(detail)))
}

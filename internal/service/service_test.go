package service

import (
	"time"

	"livepoll/internal/domain"
	"livepoll/internal/testutil"
	"livepoll/pkg/logger"
)

type fixture struct {
	repo      *testutil.FakePollRepository
	bc        *testutil.RecordingBroadcaster
	lifecycle *LifecycleManager
	polls     *PollService
	votes     *VoteService
}

func newFixture() *fixture {
	repo := testutil.NewFakePollRepository()
	bc := testutil.NewRecordingBroadcaster()
	lifecycle := NewLifecycleManager(repo, bc, logger.NewNop())
	return &fixture{
		repo:      repo,
		bc:        bc,
		lifecycle: lifecycle,
		polls:     NewPollService(repo, lifecycle, logger.NewNop()),
		votes:     NewVoteService(repo, lifecycle, logger.NewNop()),
	}
}

// seedPoll adds an active two-option poll ending an hour from now.
func (f *fixture) seedPoll(pollID string) {
	f.seedPollEnding(pollID, time.Now().Add(time.Hour))
}

func (f *fixture) seedPollEnding(pollID string, endsAt time.Time) {
	f.repo.AddPoll(
		domain.Poll{
			ID:        pollID,
			Question:  "favorite color?",
			CreatedBy: "creator",
			IsActive:  true,
			ShareCode: "code-" + pollID,
			EndsAt:    endsAt,
			CreatedAt: time.Now().Add(-time.Minute),
		},
		[]domain.Option{
			{ID: "opt-a", PollID: pollID, Text: "red", Position: 0},
			{ID: "opt-b", PollID: pollID, Text: "blue", Position: 1},
		},
	)
}

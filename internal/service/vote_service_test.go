package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepoll/internal/domain"
	poll_errors "livepoll/pkg/errors"
)

func optionResult(t *testing.T, detail domain.PollDetail, optionID string) domain.OptionResult {
	t.Helper()
	for _, o := range detail.Options {
		if o.ID == optionID {
			return o
		}
	}
	t.Fatalf("option %s not in detail", optionID)
	return domain.OptionResult{}
}

func TestCastVoteFirstVote(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")

	outcome, err := f.votes.CastVote(context.Background(), "p1", "alice", "opt-a")
	require.NoError(t, err)

	assert.True(t, outcome.Changed)
	assert.Equal(t, "opt-a", outcome.Vote.OptionID)
	assert.Equal(t, 1, outcome.Detail.TotalVotes)

	a := optionResult(t, outcome.Detail, "opt-a")
	b := optionResult(t, outcome.Detail, "opt-b")
	assert.Equal(t, 1, a.Votes)
	assert.Equal(t, 100, a.Percentage)
	assert.Equal(t, 0, b.Votes)
	assert.Equal(t, 0, b.Percentage)

	require.NotNil(t, outcome.Detail.UserVote)
	assert.Equal(t, "opt-a", outcome.Detail.UserVote.OptionID)
}

func TestCastVoteChangeUpdatesInPlace(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	_, err := f.votes.CastVote(ctx, "p1", "alice", "opt-a")
	require.NoError(t, err)

	outcome, err := f.votes.CastVote(ctx, "p1", "alice", "opt-b")
	require.NoError(t, err)

	// The total never grows: the one record moved options.
	assert.True(t, outcome.Changed)
	assert.Equal(t, 1, outcome.Detail.TotalVotes)
	assert.Equal(t, 0, optionResult(t, outcome.Detail, "opt-a").Votes)
	assert.Equal(t, 1, optionResult(t, outcome.Detail, "opt-b").Votes)
	assert.Equal(t, 100, optionResult(t, outcome.Detail, "opt-b").Percentage)
}

func TestCastVoteIdenticalRevoteIsNoOp(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	first, err := f.votes.CastVote(ctx, "p1", "alice", "opt-a")
	require.NoError(t, err)
	require.True(t, first.Changed)

	second, err := f.votes.CastVote(ctx, "p1", "alice", "opt-a")
	require.NoError(t, err)

	assert.False(t, second.Changed)
	assert.Equal(t, 1, second.Detail.TotalVotes)
	assert.Equal(t, first.Vote.OptionID, second.Vote.OptionID)
}

func TestCastVoteTalliesMultipleUsers(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	_, err := f.votes.CastVote(ctx, "p1", "alice", "opt-a")
	require.NoError(t, err)
	_, err = f.votes.CastVote(ctx, "p1", "bob", "opt-b")
	require.NoError(t, err)
	outcome, err := f.votes.CastVote(ctx, "p1", "carol", "opt-b")
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.Detail.TotalVotes)
	assert.Equal(t, 33, optionResult(t, outcome.Detail, "opt-a").Percentage)
	assert.Equal(t, 67, optionResult(t, outcome.Detail, "opt-b").Percentage)
}

func TestCastVoteUnknownPoll(t *testing.T) {
	f := newFixture()

	_, err := f.votes.CastVote(context.Background(), "ghost", "alice", "opt-a")
	assert.ErrorIs(t, err, poll_errors.ErrNotFound)
}

func TestCastVoteInvalidOption(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")

	_, err := f.votes.CastVote(context.Background(), "p1", "alice", "opt-z")
	assert.ErrorIs(t, err, poll_errors.ErrInvalidOption)
}

func TestCastVoteClosedPoll(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	changed, err := f.repo.MarkPollExpired(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, changed)

	_, err = f.votes.CastVote(context.Background(), "p1", "alice", "opt-a")
	assert.ErrorIs(t, err, poll_errors.ErrPollClosed)
}

func TestCastVoteRemovedPoll(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	changed, err := f.repo.MarkPollRemoved(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, changed)

	_, err = f.votes.CastVote(context.Background(), "p1", "alice", "opt-a")
	assert.ErrorIs(t, err, poll_errors.ErrPollClosed)
}

func TestCastVoteOnOverduePollClosesItOnce(t *testing.T) {
	f := newFixture()
	f.seedPollEnding("p1", time.Now().Add(-time.Minute))
	ctx := context.Background()

	// Both attempts are rejected, but only the first one flips the poll and
	// broadcasts the closure.
	_, err := f.votes.CastVote(ctx, "p1", "alice", "opt-a")
	assert.ErrorIs(t, err, poll_errors.ErrPollClosed)
	assert.Equal(t, 1, f.bc.Count())

	_, err = f.votes.CastVote(ctx, "p1", "bob", "opt-b")
	assert.ErrorIs(t, err, poll_errors.ErrPollClosed)
	assert.Equal(t, 1, f.bc.Count())

	poll, err := f.repo.GetPoll(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, poll.IsActive)
}

func TestCastVoteStorageFailure(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	f.repo.Err = errors.New("connection refused")

	_, err := f.votes.CastVote(context.Background(), "p1", "alice", "opt-a")
	assert.ErrorIs(t, err, poll_errors.ErrStorageUnavailable)
}

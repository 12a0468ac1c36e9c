package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepoll/internal/domain"
	"livepoll/internal/protocol"
)

func TestExpireIsIdempotent(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	changed, err := f.lifecycle.Expire(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, f.bc.Count())

	// The loser of the race sees no transition and stays silent.
	changed, err = f.lifecycle.Expire(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, f.bc.Count())
}

func TestExpireBroadcastsFinalTally(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	_, err := f.votes.CastVote(ctx, "p1", "alice", "opt-a")
	require.NoError(t, err)

	changed, err := f.lifecycle.Expire(ctx, "p1")
	require.NoError(t, err)
	require.True(t, changed)

	events := f.bc.Events()
	require.NotEmpty(t, events)
	closure := events[len(events)-1]
	assert.Equal(t, "p1", closure.PollID)

	var msg protocol.ServerMessage
	require.NoError(t, json.Unmarshal(closure.Payload, &msg))
	assert.Equal(t, protocol.TypePollUpdate, msg.Type)

	raw, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	var detail domain.PollDetail
	require.NoError(t, json.Unmarshal(raw, &detail))
	assert.False(t, detail.IsActive)
	assert.Equal(t, 1, detail.TotalVotes)
}

func TestScheduleFiresAtEndTime(t *testing.T) {
	f := newFixture()
	f.seedPollEnding("p1", time.Now().Add(30*time.Millisecond))
	poll, err := f.repo.GetPoll(context.Background(), "p1")
	require.NoError(t, err)

	f.lifecycle.Schedule(poll)

	require.Eventually(t, func() bool {
		return f.bc.Count() == 1
	}, time.Second, 5*time.Millisecond)

	poll, err = f.repo.GetPoll(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, poll.IsActive)
}

func TestScheduleExpiresOverduePollImmediately(t *testing.T) {
	f := newFixture()
	f.seedPollEnding("p1", time.Now().Add(-time.Hour))
	poll, err := f.repo.GetPoll(context.Background(), "p1")
	require.NoError(t, err)

	f.lifecycle.Schedule(poll)

	require.Eventually(t, func() bool {
		return f.bc.Count() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestScheduleIgnoresInactivePolls(t *testing.T) {
	f := newFixture()

	f.lifecycle.Schedule(domain.Poll{ID: "p1", IsActive: false, EndsAt: time.Now().Add(-time.Hour)})
	f.lifecycle.Schedule(domain.Poll{ID: "p2", IsActive: true, IsRemoved: true, EndsAt: time.Now().Add(-time.Hour)})

	assert.Never(t, func() bool {
		return f.bc.Count() > 0
	}, 100*time.Millisecond, 20*time.Millisecond)
}

func TestCancelDisarmsTimer(t *testing.T) {
	f := newFixture()
	f.seedPollEnding("p1", time.Now().Add(50*time.Millisecond))
	poll, err := f.repo.GetPoll(context.Background(), "p1")
	require.NoError(t, err)

	f.lifecycle.Schedule(poll)
	f.lifecycle.Cancel("p1")

	assert.Never(t, func() bool {
		return f.bc.Count() > 0
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestScheduleAllArmsActivePolls(t *testing.T) {
	f := newFixture()
	f.seedPollEnding("p1", time.Now().Add(30*time.Millisecond))
	f.seedPollEnding("p2", time.Now().Add(40*time.Millisecond))

	require.NoError(t, f.lifecycle.ScheduleAll(context.Background()))

	require.Eventually(t, func() bool {
		return f.bc.Count() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestExpireIfDue(t *testing.T) {
	f := newFixture()
	f.seedPoll("live")
	f.seedPollEnding("overdue", time.Now().Add(-time.Minute))
	ctx := context.Background()

	live, err := f.repo.GetPoll(ctx, "live")
	require.NoError(t, err)
	due, err := f.lifecycle.ExpireIfDue(ctx, live)
	require.NoError(t, err)
	assert.False(t, due)
	assert.Equal(t, 0, f.bc.Count())

	overdue, err := f.repo.GetPoll(ctx, "overdue")
	require.NoError(t, err)
	due, err = f.lifecycle.ExpireIfDue(ctx, overdue)
	require.NoError(t, err)
	assert.True(t, due)
	assert.Equal(t, 1, f.bc.Count())

	// Re-checking an already closed poll reports due without a second
	// broadcast.
	overdue.IsActive = false
	due, err = f.lifecycle.ExpireIfDue(ctx, overdue)
	require.NoError(t, err)
	assert.True(t, due)
	assert.Equal(t, 1, f.bc.Count())
}

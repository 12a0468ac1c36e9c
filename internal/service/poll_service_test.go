package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	poll_errors "livepoll/pkg/errors"
)

func validCreateInput() CreatePollInput {
	return CreatePollInput{
		Question:  "favorite color?",
		Options:   []string{"red", "blue"},
		CreatedBy: "creator",
		EndsAt:    time.Now().Add(time.Hour),
	}
}

func TestCreatePoll(t *testing.T) {
	f := newFixture()

	detail, err := f.polls.CreatePoll(context.Background(), validCreateInput())
	require.NoError(t, err)

	assert.NotEmpty(t, detail.ID)
	assert.True(t, detail.IsActive)
	assert.Equal(t, 0, detail.TotalVotes)
	require.Len(t, detail.Options, 2)
	assert.Equal(t, "red", detail.Options[0].Text)
	assert.Equal(t, 0, detail.Options[0].Position)
	assert.Equal(t, 1, detail.Options[1].Position)
}

func TestCreatePollValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreatePollInput)
	}{
		{"empty question", func(in *CreatePollInput) { in.Question = "  " }},
		{"missing creator", func(in *CreatePollInput) { in.CreatedBy = "" }},
		{"single option", func(in *CreatePollInput) { in.Options = []string{"red"} }},
		{"blank option", func(in *CreatePollInput) { in.Options = []string{"red", " "} }},
		{"end time in the past", func(in *CreatePollInput) { in.EndsAt = time.Now().Add(-time.Minute) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			input := validCreateInput()
			tt.mutate(&input)

			_, err := f.polls.CreatePoll(context.Background(), input)
			assert.ErrorIs(t, err, poll_errors.ErrInvalidInput)
		})
	}
}

func TestCreatePollAssignsShareCode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.polls.CreatePoll(ctx, validCreateInput())
	require.NoError(t, err)
	second, err := f.polls.CreatePoll(ctx, validCreateInput())
	require.NoError(t, err)

	assert.Len(t, first.ShareCode, 8)
	assert.Len(t, second.ShareCode, 8)
	assert.NotEqual(t, first.ShareCode, second.ShareCode)
}

func TestGetPollByShareCode(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	_, err := f.votes.CastVote(ctx, "p1", "alice", "opt-a")
	require.NoError(t, err)

	detail, err := f.polls.GetPollByShareCode(ctx, "code-p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "p1", detail.ID)
	assert.Equal(t, 1, detail.TotalVotes)
	require.NotNil(t, detail.UserVote)
	assert.Equal(t, "opt-a", detail.UserVote.OptionID)

	_, err = f.polls.GetPollByShareCode(ctx, "no-such-code", "")
	assert.ErrorIs(t, err, poll_errors.ErrNotFound)
}

func TestGetPollByShareCodeRejectsRemovedPoll(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	changed, err := f.repo.MarkPollRemoved(ctx, "p1")
	require.NoError(t, err)
	require.True(t, changed)

	_, err = f.polls.GetPollByShareCode(ctx, "code-p1", "")
	assert.ErrorIs(t, err, poll_errors.ErrPollRemoved)
}

func TestGetPollDetailUnknownPoll(t *testing.T) {
	f := newFixture()

	_, err := f.polls.GetPollDetail(context.Background(), "ghost", "")
	assert.ErrorIs(t, err, poll_errors.ErrNotFound)
}

func TestGetPollDetailIncludesCallerVote(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	_, err := f.votes.CastVote(ctx, "p1", "alice", "opt-a")
	require.NoError(t, err)

	detail, err := f.polls.GetPollDetail(ctx, "p1", "alice")
	require.NoError(t, err)
	require.NotNil(t, detail.UserVote)
	assert.Equal(t, "opt-a", detail.UserVote.OptionID)

	detail, err = f.polls.GetPollDetail(ctx, "p1", "bob")
	require.NoError(t, err)
	assert.Nil(t, detail.UserVote)
}

func TestGetPollDetailClosesOverduePoll(t *testing.T) {
	f := newFixture()
	f.seedPollEnding("p1", time.Now().Add(-time.Minute))

	detail, err := f.polls.GetPollDetail(context.Background(), "p1", "")
	require.NoError(t, err)

	// The read itself converged the poll onto the closed state.
	assert.False(t, detail.IsActive)
	assert.Equal(t, 1, f.bc.Count())

	poll, err := f.repo.GetPoll(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, poll.IsActive)
}

func TestJoinSnapshotRejectsRemovedPoll(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	changed, err := f.repo.MarkPollRemoved(ctx, "p1")
	require.NoError(t, err)
	require.True(t, changed)

	_, err = f.polls.JoinSnapshot(ctx, "p1")
	assert.ErrorIs(t, err, poll_errors.ErrPollRemoved)
}

func TestJoinSnapshot(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")

	detail, err := f.polls.JoinSnapshot(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", detail.ID)
	assert.Nil(t, detail.UserVote)
}

func TestListPolls(t *testing.T) {
	f := newFixture()
	f.seedPoll("active")
	f.seedPoll("closed")
	ctx := context.Background()

	changed, err := f.repo.MarkPollExpired(ctx, "closed")
	require.NoError(t, err)
	require.True(t, changed)

	active, err := f.polls.ListPolls(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "active", active[0].ID)

	closed, err := f.polls.ListPolls(ctx, false)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "closed", closed[0].ID)
}

func TestRemovePoll(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	changed, err := f.polls.RemovePoll(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, changed)

	// Removal is one-way; a second call reports no transition.
	changed, err = f.polls.RemovePoll(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = f.polls.RemovePoll(ctx, "ghost")
	assert.ErrorIs(t, err, poll_errors.ErrNotFound)
}

func TestSetPreviewImage(t *testing.T) {
	f := newFixture()
	f.seedPoll("p1")
	ctx := context.Background()

	require.NoError(t, f.polls.SetPreviewImage(ctx, "p1", "https://cdn.example.com/p1.png"))

	poll, err := f.repo.GetPoll(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/p1.png", poll.PreviewImageURL)

	assert.ErrorIs(t, f.polls.SetPreviewImage(ctx, "p1", ""), poll_errors.ErrInvalidInput)
	assert.ErrorIs(t, f.polls.SetPreviewImage(ctx, "ghost", "https://x"), poll_errors.ErrNotFound)
}

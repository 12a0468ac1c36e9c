package domain

import "math"

// OptionResult is one option with its share of the vote.
type OptionResult struct {
	Option
	Votes      int `json:"votes"`
	Percentage int `json:"percentage"`
}

// Tally is derived from the vote records of a poll, never stored. Percentages
// are rounded independently per option and are not guaranteed to sum to 100.
type Tally struct {
	TotalVotes int            `json:"totalVotes"`
	Options    []OptionResult `json:"options"`
}

// PollDetail is the full snapshot pushed to clients and returned by the
// read endpoints.
type PollDetail struct {
	Poll
	TotalVotes int            `json:"totalVotes"`
	Options    []OptionResult `json:"options"`
	UserVote   *VoteRecord    `json:"userVote,omitempty"`
}

// ComputeTally folds votes into per-option counts. Votes referencing options
// not in the list are ignored; they cannot occur through the vote path but a
// stale read must not skew the shares of valid options.
func ComputeTally(options []Option, votes []VoteRecord) Tally {
	counts := make(map[string]int, len(options))
	total := 0
	for _, v := range votes {
		counts[v.OptionID]++
	}

	results := make([]OptionResult, 0, len(options))
	for _, opt := range options {
		total += counts[opt.ID]
	}
	for _, opt := range options {
		results = append(results, OptionResult{
			Option:     opt,
			Votes:      counts[opt.ID],
			Percentage: percentage(counts[opt.ID], total),
		})
	}

	return Tally{TotalVotes: total, Options: results}
}

func percentage(votes, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(votes) / float64(total) * 100))
}

// NewPollDetail assembles the client-facing snapshot for a poll.
func NewPollDetail(poll Poll, options []Option, votes []VoteRecord, userVote *VoteRecord) PollDetail {
	tally := ComputeTally(options, votes)
	return PollDetail{
		Poll:       poll,
		TotalVotes: tally.TotalVotes,
		Options:    tally.Options,
		UserVote:   userVote,
	}
}

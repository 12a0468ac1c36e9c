package domain

import "time"

// Poll mirrors the durable poll row. The real-time core never owns the
// authoritative copy; it reads this through the repository and relays it.
type Poll struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	CreatedBy       string    `json:"createdBy"`
	IsActive        bool      `json:"isActive"`
	IsRemoved       bool      `json:"isRemoved"`
	ShareCode       string    `json:"shareCode"`
	PreviewImageURL string    `json:"previewImageUrl,omitempty"`
	EndsAt          time.Time `json:"endsAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Expired reports whether the poll's end time has passed, regardless of the
// stored IsActive flag.
func (p *Poll) Expired(now time.Time) bool {
	return !now.Before(p.EndsAt)
}

// Option is one votable choice belonging to a poll.
type Option struct {
	ID       string `json:"id"`
	PollID   string `json:"pollId"`
	Text     string `json:"text"`
	Position int    `json:"position"`
}

// VoteRecord is the single vote a user holds on a poll. At most one record
// exists per (poll, user); a re-vote overwrites OptionID in place.
type VoteRecord struct {
	PollID   string    `json:"pollId"`
	UserID   string    `json:"userId"`
	OptionID string    `json:"optionId"`
	CastAt   time.Time `json:"castAt"`
}

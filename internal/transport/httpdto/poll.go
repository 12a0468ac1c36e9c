package httpdto

import "time"

type CreatePollRequest struct {
	Question  string    `json:"question" binding:"required"`
	Options   []string  `json:"options" binding:"required,min=2"`
	CreatedBy string    `json:"createdBy" binding:"required"`
	EndsAt    time.Time `json:"endsAt" binding:"required"`
}

type CastVoteRequest struct {
	PollID   string `json:"pollId" binding:"required"`
	UserID   string `json:"userId" binding:"required"`
	OptionID string `json:"optionId" binding:"required"`
}

type UpdatePreviewRequest struct {
	PreviewImageURL string `json:"previewImageUrl" binding:"required"`
}

type PresignPreviewRequest struct {
	ContentType string `json:"contentType" binding:"required"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type PresignPreviewResponse struct {
	UploadURL string            `json:"uploadUrl"`
	Headers   map[string]string `json:"headers"`
	FileURL   string            `json:"fileUrl"`
}

package handler

import (
	"errors"
	"net/http"

	"livepoll/internal/protocol"
	"livepoll/internal/service"
	"livepoll/internal/storage"
	"livepoll/internal/transport/httpdto"
	poll_errors "livepoll/pkg/errors"
	"livepoll/pkg/logger"

	"github.com/gin-gonic/gin"
)

type PollHandler struct {
	polls       *service.PollService
	broadcaster service.Broadcaster
	previews    *storage.PreviewStore
	logger      *logger.Logger
}

func NewPollHandler(polls *service.PollService, broadcaster service.Broadcaster, previews *storage.PreviewStore, l *logger.Logger) *PollHandler {
	return &PollHandler{polls: polls, broadcaster: broadcaster, previews: previews, logger: l}
}

func (h *PollHandler) Create(c *gin.Context) {
	var req httpdto.CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_INPUT"))
		return
	}

	detail, err := h.polls.CreatePoll(c.Request.Context(), service.CreatePollInput{
		Question:  req.Question,
		Options:   req.Options,
		CreatedBy: req.CreatedBy,
		EndsAt:    req.EndsAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(detail))
}

func (h *PollHandler) ListActive(c *gin.Context) {
	h.list(c, true)
}

func (h *PollHandler) ListClosed(c *gin.Context) {
	h.list(c, false)
}

func (h *PollHandler) list(c *gin.Context, active bool) {
	details, err := h.polls.ListPolls(c.Request.Context(), active)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(details))
}

func (h *PollHandler) Get(c *gin.Context) {
	detail, err := h.polls.GetPollDetail(c.Request.Context(), c.Param("id"), c.Query("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(detail))
}

// GetByShareCode serves shareable poll links.
func (h *PollHandler) GetByShareCode(c *gin.Context) {
	detail, err := h.polls.GetPollByShareCode(c.Request.Context(), c.Param("code"), c.Query("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(detail))
}

// Delete marks the poll removed and tells the room so viewers stop waiting
// for updates that will never come.
func (h *PollHandler) Delete(c *gin.Context) {
	pollID := c.Param("id")
	changed, err := h.polls.RemovePoll(c.Request.Context(), pollID)
	if err != nil {
		respondError(c, err)
		return
	}
	if changed {
		h.broadcaster.Broadcast(pollID, protocol.Encode(
			protocol.NewPollRemovedMessage(pollID, "This poll has been removed by its creator")))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"id": pollID, "message": "Poll successfully removed"}))
}

func (h *PollHandler) UpdatePreview(c *gin.Context) {
	var req httpdto.UpdatePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_INPUT"))
		return
	}
	if err := h.polls.SetPreviewImage(c.Request.Context(), c.Param("id"), req.PreviewImageURL); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"previewImageUrl": req.PreviewImageURL}))
}

func (h *PollHandler) PresignPreview(c *gin.Context) {
	if h.previews == nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("preview uploads not configured", "UNAVAILABLE"))
		return
	}

	var req httpdto.PresignPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_INPUT"))
		return
	}

	pollID := c.Param("id")
	if _, err := h.polls.GetPollDetail(c.Request.Context(), pollID, ""); err != nil {
		respondError(c, err)
		return
	}

	key := storage.PreviewKey(pollID, req.ContentType)
	uploadURL, headers, err := h.previews.PresignPut(c.Request.Context(), key, req.ContentType, req.SizeBytes)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_INPUT"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresignPreviewResponse{
		UploadURL: uploadURL,
		Headers:   headers,
		FileURL:   h.previews.FileURL(key),
	}))
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, poll_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse("poll not found", "NOT_FOUND"))
	case errors.Is(err, poll_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid input", "INVALID_INPUT"))
	case errors.Is(err, poll_errors.ErrPollClosed):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("poll is closed", "POLL_CLOSED"))
	case errors.Is(err, poll_errors.ErrPollRemoved):
		c.JSON(http.StatusGone, httpdto.NewErrorResponse("poll has been removed", "POLL_REMOVED"))
	case errors.Is(err, poll_errors.ErrInvalidOption):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid option", "INVALID_OPTION"))
	case errors.Is(err, poll_errors.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("storage unavailable", "STORAGE_UNAVAILABLE"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse(err.Error(), "INTERNAL_ERROR"))
	}
}

package handler

import (
	"net/http"

	"livepoll/internal/protocol"
	"livepoll/internal/service"
	"livepoll/internal/transport/httpdto"
	"livepoll/pkg/logger"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes       *service.VoteService
	broadcaster service.Broadcaster
	logger      *logger.Logger
}

func NewVoteHandler(votes *service.VoteService, broadcaster service.Broadcaster, l *logger.Logger) *VoteHandler {
	return &VoteHandler{votes: votes, broadcaster: broadcaster, logger: l}
}

// Cast runs one vote attempt through the coordinator. An accepted state
// change broadcasts NEW_VOTE followed by the updated tally, exactly once;
// an identical re-vote returns the unchanged tally with no broadcast.
func (h *VoteHandler) Cast(c *gin.Context) {
	var req httpdto.CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_INPUT"))
		return
	}

	outcome, err := h.votes.CastVote(c.Request.Context(), req.PollID, req.UserID, req.OptionID)
	if err != nil {
		respondError(c, err)
		return
	}

	if outcome.Changed {
		h.broadcaster.Broadcast(req.PollID, protocol.Encode(
			protocol.NewVoteMessage(req.PollID, req.OptionID, req.UserID)))
		h.broadcaster.Broadcast(req.PollID, protocol.Encode(
			protocol.NewPollUpdateMessage(outcome.Detail)))
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(gin.H{
		"vote": outcome.Vote,
		"poll": outcome.Detail,
	}))
}

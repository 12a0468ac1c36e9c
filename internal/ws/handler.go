package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"livepoll/internal/domain"
	"livepoll/internal/protocol"
	poll_errors "livepoll/pkg/errors"
	"livepoll/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PollSource provides the current snapshot for a room join. The lazy expiry
// check runs inside it, so a join on an overdue poll also closes the poll.
type PollSource interface {
	JoinSnapshot(ctx context.Context, pollID string) (domain.PollDetail, error)
}

type Handler struct {
	hub      *Hub
	registry *Registry
	auth     *Authorizer
	polls    PollSource
	interval time.Duration
	logger   *logger.Logger
}

func NewHandler(hub *Hub, registry *Registry, auth *Authorizer, polls PollSource, interval time.Duration, l *logger.Logger) *Handler {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	return &Handler{hub: hub, registry: registry, auth: auth, polls: polls, interval: interval, logger: l}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Connect upgrades the request and runs the connection's read loop until the
// client disconnects or the heartbeat reclaims it.
func (h *Handler) Connect(c *gin.Context) {
	tokenUser, err := h.auth.UserID(c.Query("token"))
	if err != nil {
		// Invalid tokens degrade to anonymous, matching the relaxed
		// viewing policy: identity is only needed to join as a user.
		h.logger.Warnf("ignoring invalid connect token: %s", err)
		tokenUser = ""
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn)
	h.hub.Register(client)
	go client.WriteLoop()

	_ = client.SendMessage(protocol.Encode(protocol.NewWelcomeMessage(h.hub.ClientCount())))

	h.readLoop(client, conn, tokenUser)

	h.hub.Unregister(client)
}

func (h *Handler) readLoop(client *Client, conn Conn, tokenUser string) {
	// A connection may legitimately stay silent for a full sweep before its
	// pong; give it two intervals plus write slack before the read times out.
	readWait := 2*h.interval + writeWait

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPongHandler(func(string) error {
		h.registry.MarkAlive(client.ID)
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Logger.Warn("websocket unexpected close",
					zap.String("conn_id", client.ID), zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		h.handleMessage(client, raw, tokenUser)
	}
}

// handleMessage dispatches one inbound frame. Errors here are local to the
// connection: malformed input earns an ERROR reply and the connection stays
// open; unknown types are logged and ignored.
func (h *Handler) handleMessage(client *Client, raw []byte, tokenUser string) {
	var msg protocol.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.logger.Warnf("malformed message from %s: %s", client.ID, err)
		_ = client.SendMessage(protocol.Encode(protocol.NewErrorMessage("malformed message")))
		return
	}

	switch msg.Type {
	case protocol.TypeJoinPoll:
		h.handleJoin(client, msg, tokenUser)
	case protocol.TypeLeavePoll:
		h.hub.Leave(client)
	default:
		h.logger.Warnf("ignoring unknown message type %q from %s", msg.Type, client.ID)
	}
}

func (h *Handler) handleJoin(client *Client, msg protocol.ClientMessage, tokenUser string) {
	userID := msg.UserID
	if userID == "" {
		userID = tokenUser
	}
	if msg.PollID == "" || userID == "" {
		_ = client.SendMessage(protocol.Encode(protocol.NewErrorMessage("pollId and userId are required to join")))
		return
	}

	// Validate the poll before touching room state; a failed lookup must
	// leave presence untouched.
	detail, err := h.polls.JoinSnapshot(context.Background(), msg.PollID)
	if err != nil {
		switch {
		case errors.Is(err, poll_errors.ErrNotFound):
			_ = client.SendMessage(protocol.Encode(protocol.NewErrorMessage("poll not found")))
		case errors.Is(err, poll_errors.ErrPollRemoved):
			_ = client.SendMessage(protocol.Encode(protocol.NewErrorMessage("poll has been removed")))
		default:
			h.logger.Errorf("join snapshot for poll %s: %s", msg.PollID, err)
			_ = client.SendMessage(protocol.Encode(protocol.NewErrorMessage("temporarily unable to join poll")))
		}
		return
	}

	if !h.hub.Join(client, msg.PollID, userID) {
		return
	}
	h.hub.Broadcast(msg.PollID, protocol.Encode(protocol.NewPollUpdateMessage(detail)))
}

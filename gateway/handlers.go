package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/roneel47/4Sure-sub000/domain"
	"github.com/roneel47/4Sure-sub000/game"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type Coordinator interface {
	Join(ctx context.Context, req game.JoinRequest) (game.JoinResult, error)
	SubmitSecret(ctx context.Context, roomID, handle, secret string) (*domain.Room, error)
	MakeGuess(ctx context.Context, req game.GuessRequest) (*domain.Room, error)
	ForfeitTurn(ctx context.Context, roomID, handle string) (*domain.Room, error)
	Disconnect(ctx context.Context, roomID, handle, connID string) (*domain.Room, error)
	Leave(ctx context.Context, roomID, handle, connID string) (*domain.Room, error)
	Room(ctx context.Context, roomID string) (*domain.Room, error)
}

type GameHandler struct {
	coordinator    Coordinator
	hub            *Hub
	tickerCreator  game.PeriodicTickerChannelCreator
	allowedOrigins []string
	messageRate    rate.Limit
	messageBurst   int
	opTimeout      time.Duration
}

type GameHandlerOpt func(*GameHandler)

func WithRateLimit(perSecond float64, burst int) GameHandlerOpt {
	return func(h *GameHandler) {
		h.messageRate = rate.Limit(perSecond)
		h.messageBurst = burst
	}
}

func WithOperationTimeout(d time.Duration) GameHandlerOpt {
	return func(h *GameHandler) {
		h.opTimeout = d
	}
}

func NewGameHandler(coordinator Coordinator, hub *Hub, tickerCreator game.PeriodicTickerChannelCreator, allowedOrigins []string, opts ...GameHandlerOpt) *GameHandler {
	h := &GameHandler{
		coordinator:    coordinator,
		hub:            hub,
		tickerCreator:  tickerCreator,
		allowedOrigins: allowedOrigins,
		messageRate:    5,
		messageBurst:   10,
		opTimeout:      5 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *GameHandler) WebsocketHandler(ctx *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return slices.Contains(h.allowedOrigins, r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	h.Serve(ctx.Request.Context(), NewWebsocketConnection(conn))
}

// RoomHandler serves the room without any secret, for clients that poll.
func (h *GameHandler) RoomHandler(ctx *gin.Context) {
	room, err := h.coordinator.Room(ctx.Request.Context(), ctx.Param("roomid"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, game.ErrInvalidRoomID):
			status = http.StatusBadRequest
		case errors.Is(err, domain.ErrRoomNotFound):
			status = http.StatusNotFound
		case errors.Is(err, domain.ErrStoreUnavailable):
			status = http.StatusServiceUnavailable
		}
		ctx.AbortWithStatusJSON(status, gin.H{"error": game.ReasonCode(err)})
		return
	}
	ctx.JSON(http.StatusOK, game.NewRoomView(room, ""))
}

// Serve runs one connection until its transport fails, then releases its seat.
func (h *GameHandler) Serve(ctx context.Context, socket NetworkSession) {
	c := NewClient(uuid.NewString(), socket, rate.NewLimiter(h.messageRate, h.messageBurst))
	h.hub.Register(c)
	logger := log.With().Str("conn", c.id).Logger()
	logger.Debug().Int("clients", h.hub.ClientCount()).Msg("client connected")

	go c.WritePump(h.tickerCreator.Create(pingInterval))
	c.ReadPump(func(data []byte) {
		h.dispatch(ctx, c, data)
	})
	c.Close(CloseGone)

	b, ok := h.hub.Unregister(c.id)
	logger.Debug().Bool("bound", ok).Int("clients", h.hub.ClientCount()).Msg("client disconnected")
	if !ok {
		return
	}
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.opTimeout)
	defer cancel()
	if _, err := h.coordinator.Disconnect(opCtx, b.roomID, b.handle, c.id); err != nil {
		logger.Warn().Err(err).Str("room", b.roomID).Str("handle", b.handle).Msg("disconnect not recorded")
	}
}

func (h *GameHandler) dispatch(ctx context.Context, c *Client, data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.reject(c, "", ReasonBadRequest, "malformed message")
		return
	}
	if !c.rateLimiter.Allow() {
		h.reject(c, msg.Type, ReasonRateLimited, "slow down")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, h.opTimeout)
	defer cancel()

	if msg.Type == MsgJoin {
		h.join(opCtx, c, msg)
		return
	}

	b, ok := h.hub.Binding(c.id)
	if !ok || (msg.RoomID != "" && msg.RoomID != b.roomID) || (msg.PlayerHandle != "" && msg.PlayerHandle != b.handle) {
		h.reject(c, msg.Type, ReasonNotJoined, "join a room first")
		return
	}

	var err error
	switch msg.Type {
	case MsgSubmitSecret:
		_, err = h.coordinator.SubmitSecret(opCtx, b.roomID, b.handle, msg.Secret)
	case MsgMakeGuess:
		_, err = h.coordinator.MakeGuess(opCtx, game.GuessRequest{RoomID: b.roomID, Handle: b.handle, Guess: msg.Guess, Seq: msg.Seq})
	case MsgForfeitTurn:
		_, err = h.coordinator.ForfeitTurn(opCtx, b.roomID, b.handle)
	case MsgLeave:
		if _, err = h.coordinator.Leave(opCtx, b.roomID, b.handle, c.id); err == nil {
			h.hub.Unbind(c.id)
		}
	default:
		h.reject(c, msg.Type, ReasonBadRequest, "unknown message type")
		return
	}
	if err != nil {
		h.rejectErr(c, msg.Type, b, err)
	}
}

func (h *GameHandler) join(ctx context.Context, c *Client, msg ClientMessage) {
	if b, ok := h.hub.Binding(c.id); ok && b.roomID != msg.RoomID {
		h.reject(c, msg.Type, game.ReasonInvalidState, "already in room "+b.roomID)
		return
	}
	res, err := h.coordinator.Join(ctx, game.JoinRequest{
		RoomID:          msg.RoomID,
		CapacityHint:    msg.CapacityHint,
		RejoiningHandle: msg.RejoiningHandle,
		ConnectionID:    c.id,
	})
	if err != nil {
		h.rejectErr(c, msg.Type, binding{roomID: msg.RoomID}, err)
		return
	}
	// the broadcast binds too, but through a broker it may land after the next message
	h.hub.Bind(c.id, msg.RoomID, res.Handle)
}

func (h *GameHandler) rejectErr(c *Client, request string, b binding, err error) {
	reason := game.ReasonCode(err)
	message := err.Error()
	event := log.Debug()
	switch reason {
	case game.ReasonIntegrityFault, game.ReasonStoreUnavailable, game.ReasonInternal:
		event = log.Error()
		message = "the room could not be updated"
	}
	event.Err(err).Str("conn", c.id).Str("room", b.roomID).Str("handle", b.handle).Str("request", request).Msg("operation rejected")
	h.reject(c, request, reason, message)
}

func (h *GameHandler) reject(c *Client, request, reason, message string) {
	if err := c.Send(rejectedMessage(request, reason, message)); err != nil {
		log.Warn().Err(err).Str("conn", c.id).Msg("could not deliver rejection")
	}
}

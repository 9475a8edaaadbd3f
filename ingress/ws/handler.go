// Package ws is the streaming ingress: one websocket per user, announced
// through presence, fed by the broadcast router, and accepting a small set
// of client actions on the read side.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"channel-hub/contract"
	"channel-hub/domain"
	"channel-hub/domain/event"
	"channel-hub/runtime"
	"channel-hub/services"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type Handler struct {
	log        *slog.Logger
	auth       contract.AuthService
	presence   *runtime.PresenceManager
	chat       *services.ChatService
	upgrader   websocket.Upgrader
	bufferSize int
	eventRate  rate.Limit
	eventBurst int
}

func NewHandler(log *slog.Logger, auth contract.AuthService, presence *runtime.PresenceManager,
	chat *services.ChatService, bufferSize int, eventRate float64, eventBurst int) *Handler {
	return &Handler{
		log:        log,
		auth:       auth,
		presence:   presence,
		chat:       chat,
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		bufferSize: bufferSize,
		eventRate:  rate.Limit(eventRate),
		eventBurst: eventBurst,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/v1/ws", h.Serve)
}

// Serve authenticates the handshake, upgrades the socket, and blocks on the
// read loop until the client goes away. Presence transitions bracket the
// whole lifetime.
func (h *Handler) Serve(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing token"})
	}
	userID, role, err := h.auth.Authenticate(c.Request().Context(), token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	}

	socket, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	conn := NewConnection(h.log, socket, h.bufferSize)
	go conn.writePump()

	ctx := c.Request().Context()
	p := services.Principal{UserID: userID, Role: role}
	h.presence.Connected(ctx, userID, conn)
	// Teardown is keyed on this connection handle: if the user reconnected
	// meanwhile, this goroutine's exit must not evict the new session.
	defer h.presence.Disconnected(ctx, userID, conn)

	h.readLoop(c, conn, p)
	return nil
}

func (h *Handler) readLoop(c echo.Context, conn *Connection, p services.Principal) {
	socket := conn.conn
	_ = socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		return socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := rate.NewLimiter(h.eventRate, h.eventBurst)

	for {
		var evt clientEvent
		if err := socket.ReadJSON(&evt); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Unexpected close", "user", p.UserID, "error", err)
			}
			return
		}
		if !limiter.Allow() {
			h.sendError(c, conn, "rate_limited", "too many events")
			continue
		}
		h.dispatch(c, conn, p, evt)
	}
}

// errBadFrame marks client frames the server could not interpret. They map
// to a bad_request error envelope instead of operation_failed.
var errBadFrame = fmt.Errorf("bad request")

// dispatch routes one client frame. Failures come back to the sender as an
// error envelope; they never close the connection.
func (h *Handler) dispatch(c echo.Context, conn *Connection, p services.Principal, evt clientEvent) {
	if err := h.apply(c.Request().Context(), p, evt); err != nil {
		code := "operation_failed"
		if errors.Is(err, errBadFrame) {
			code = "bad_request"
		}
		h.sendError(c, conn, code, err.Error())
	}
}

// apply maps one client action onto its chat operation. Every mutation the
// request/response ingress exposes is reachable here too, through the same
// service calls, so the two paths cannot drift apart.
func (h *Handler) apply(ctx context.Context, p services.Principal, evt clientEvent) error {
	channelID := domain.ChannelID(evt.ChannelID)

	switch evt.Action {
	case actionJoinChannel:
		return h.chat.JoinChannel(ctx, p, channelID)
	case actionLeaveChannel:
		return h.chat.LeaveChannel(ctx, p, channelID)
	case actionSendMessage:
		in := services.CreateInput{
			ChannelID: channelID,
			Content:   evt.Content,
			Type:      domain.MessageType(evt.Type),
		}
		if evt.ReplyTo != "" {
			replyTo, err := uuid.Parse(evt.ReplyTo)
			if err != nil {
				return fmt.Errorf("%w: invalid reply_to", errBadFrame)
			}
			in.ReplyTo = &replyTo
		}
		_, err := h.chat.SendMessage(ctx, p, in)
		return err
	case actionEditMessage:
		id, err := messageID(evt)
		if err != nil {
			return err
		}
		_, err = h.chat.EditMessage(ctx, p, id, evt.Content)
		return err
	case actionDeleteMessage:
		id, err := messageID(evt)
		if err != nil {
			return err
		}
		return h.chat.DeleteMessage(ctx, p, id)
	case actionFlagMessage:
		id, err := messageID(evt)
		if err != nil {
			return err
		}
		return h.chat.FlagMessage(ctx, p, id, domain.FlagReason(evt.Reason))
	case actionUnflagMessage:
		id, err := messageID(evt)
		if err != nil {
			return err
		}
		return h.chat.UnflagMessage(ctx, p, id)
	case actionTypingStart:
		h.chat.StartTyping(p, channelID)
		return nil
	case actionTypingStop:
		h.chat.StopTyping(p, channelID)
		return nil
	default:
		return fmt.Errorf("%w: unknown action %s", errBadFrame, evt.Action)
	}
}

func messageID(evt clientEvent) (uuid.UUID, error) {
	id, err := uuid.Parse(evt.MessageID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid message_id", errBadFrame)
	}
	return id, nil
}

func (h *Handler) sendError(c echo.Context, conn *Connection, code, message string) {
	env := event.Envelope{
		Kind:    event.KindError,
		Payload: event.Error{Code: code, Message: message},
		At:      time.Now().UTC(),
	}
	if err := conn.Send(c.Request().Context(), env); err != nil {
		h.log.Debug("Error envelope lost", "error", err)
	}
}

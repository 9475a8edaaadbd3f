// Package httpapi exposes the request/response surface of the hub over
// REST. Real-time delivery lives in the websocket ingress; this package
// covers everything that fits a single round trip.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"channel-hub/domain"
	"channel-hub/domain/event"
	"channel-hub/observability"
	"channel-hub/services"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const defaultPageSize = 50

type Handler struct {
	log        *slog.Logger
	chat       *services.ChatService
	auth       services.IAuthService
	monitoring *observability.Manager
	validate   *validator.Validate
}

func NewHandler(log *slog.Logger, chat *services.ChatService, auth services.IAuthService,
	monitoring *observability.Manager) *Handler {
	return &Handler{
		log:        log,
		chat:       chat,
		auth:       auth,
		monitoring: monitoring,
		validate:   validator.New(),
	}
}

// RegisterRoutes attaches every route to the echo server. Auth endpoints
// stay public; everything else goes through the bearer-token middleware.
func (h *Handler) RegisterRoutes(e *echo.Echo, authMW echo.MiddlewareFunc) {
	e.POST("/v1/auth/register", h.Register)
	e.POST("/v1/auth/login", h.Login)

	v1 := e.Group("/v1", authMW)
	v1.POST("/channels", h.CreateChannel)
	v1.POST("/channels/:channel_id/join", h.JoinChannel)
	v1.POST("/channels/:channel_id/leave", h.LeaveChannel)
	v1.GET("/channels/:channel_id/messages", h.History)
	v1.GET("/channels/:channel_id/search", h.SearchMessages)
	v1.POST("/channels/:channel_id/messages", h.SendMessage)
	v1.PATCH("/messages/:message_id", h.EditMessage)
	v1.DELETE("/messages/:message_id", h.DeleteMessage)
	v1.POST("/messages/:message_id/restore", h.RestoreMessage)
	v1.POST("/messages/:message_id/flag", h.FlagMessage)
	v1.POST("/messages/:message_id/unflag", h.UnflagMessage)
	v1.GET("/monitoring", h.Monitoring)
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := h.bind(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	token, err := h.auth.Register(req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, TokenResponse{Token: string(token)})
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := h.bind(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	token, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: string(token)})
}

func (h *Handler) CreateChannel(c echo.Context) error {
	var req CreateChannelRequest
	if err := h.bind(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	ch, err := h.chat.CreateChannel(c.Request().Context(), principal(c), req.Name, req.Private)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, ChannelResponse{
		ID:        ch.ID,
		Name:      ch.Name,
		CreatorID: ch.CreatorID,
		Private:   ch.Private,
	})
}

func (h *Handler) JoinChannel(c echo.Context) error {
	if err := h.chat.JoinChannel(c.Request().Context(), principal(c),
		domain.ChannelID(c.Param("channel_id"))); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LeaveChannel(c echo.Context) error {
	if err := h.chat.LeaveChannel(c.Request().Context(), principal(c),
		domain.ChannelID(c.Param("channel_id"))); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := h.bind(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	in := services.CreateInput{
		ChannelID:  domain.ChannelID(c.Param("channel_id")),
		Content:    req.Content,
		Type:       domain.MessageType(req.Type),
		Attachment: req.Attachment,
	}
	if req.ReplyTo != "" {
		id, err := uuid.Parse(req.ReplyTo)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid reply_to"})
		}
		in.ReplyTo = &id
	}
	msg, err := h.chat.SendMessage(c.Request().Context(), principal(c), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, event.FromMessage(msg))
}

func (h *Handler) EditMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
	}
	var req EditMessageRequest
	if err := h.bind(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	msg, err := h.chat.EditMessage(c.Request().Context(), principal(c), id, req.Content)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, event.FromMessage(msg))
}

func (h *Handler) DeleteMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
	}
	if err := h.chat.DeleteMessage(c.Request().Context(), principal(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RestoreMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
	}
	msg, err := h.chat.RestoreMessage(c.Request().Context(), principal(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, event.FromMessage(msg))
}

func (h *Handler) FlagMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
	}
	var req FlagMessageRequest
	if err := h.bind(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if err := h.chat.FlagMessage(c.Request().Context(), principal(c), id,
		domain.FlagReason(req.Reason)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) UnflagMessage(c echo.Context) error {
	id, err := uuid.Parse(c.Param("message_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
	}
	if err := h.chat.UnflagMessage(c.Request().Context(), principal(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) History(c echo.Context) error {
	var cursor *string
	if raw := c.QueryParam("cursor"); raw != "" {
		cursor = &raw
	}
	limit := defaultPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = parsed
	}
	page, next, err := h.chat.History(c.Request().Context(), principal(c),
		domain.ChannelID(c.Param("channel_id")), cursor, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessagesResponse{Messages: page, Cursor: next})
}

func (h *Handler) SearchMessages(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "q is required"})
	}
	limit := defaultPageSize
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = parsed
	}
	hits, err := h.chat.SearchMessages(c.Request().Context(), principal(c),
		domain.ChannelID(c.Param("channel_id")), query, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessagesResponse{Messages: hits})
}

func (h *Handler) Monitoring(c echo.Context) error {
	return c.JSON(http.StatusOK, h.monitoring.Snapshot())
}

func (h *Handler) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return err
	}
	return h.validate.Struct(req)
}

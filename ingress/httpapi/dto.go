package httpapi

import (
	"channel-hub/domain"
	"channel-hub/domain/event"
)

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type CreateChannelRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=80"`
	Private bool   `json:"private"`
}

type ChannelResponse struct {
	ID        domain.ChannelID `json:"id"`
	Name      string           `json:"name"`
	CreatorID domain.UserID    `json:"creator_id"`
	Private   bool             `json:"private"`
}

type SendMessageRequest struct {
	Content    string `json:"content" validate:"required"`
	Type       string `json:"message_type" validate:"omitempty,oneof=text image file system"`
	ReplyTo    string `json:"reply_to" validate:"omitempty,uuid"`
	Attachment []byte `json:"attachment"`
}

type EditMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type FlagMessageRequest struct {
	Reason string `json:"reason" validate:"required,oneof=spam harassment inappropriate off_topic other"`
}

type MessagesResponse struct {
	Messages []event.MessagePayload `json:"messages"`
	Cursor   *string                `json:"cursor,omitempty"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

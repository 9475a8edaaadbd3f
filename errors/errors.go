package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// ErrNotFound covers absent channels, messages, and users alike.
	ErrNotFound = fmt.Errorf("not found")
	// ErrForbidden means the caller is authenticated but not authorized for the action.
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrInvalidState       = fmt.Errorf("invalid state for this operation")
	ErrInvalidReference   = fmt.Errorf("reply target is not in the same channel")
	ErrWindowExpired      = fmt.Errorf("edit window expired")
	ErrConflict           = fmt.Errorf("concurrent update lost")
	ErrAlreadyMember      = fmt.Errorf("already a member of this channel")
	ErrNotMember          = fmt.Errorf("not a member of this channel")
	ErrCreatorCannotLeave = fmt.Errorf("channel creator cannot leave")

	ErrStore     = fmt.Errorf("store failure")
	ErrTransport = fmt.Errorf("transport failure")

	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)

// ModerationReason identifies which content filter rejected a message.
// Each reason is stable so clients can render a specific message.
type ModerationReason string

const (
	ReasonProfanity  ModerationReason = "profanity"
	ReasonCooldown   ModerationReason = "cooldown"
	ReasonDuplicate  ModerationReason = "duplicate"
	ReasonTooLong    ModerationReason = "too_long"
	ReasonRepetition ModerationReason = "repetition"
	ReasonTooManyURL ModerationReason = "too_many_urls"
	ReasonAttachment ModerationReason = "attachment_mismatch"
)

// ModerationRejected is returned when the moderation pipeline refuses
// a message body. It wraps a stable reason rather than a free-form string.
type ModerationRejected struct {
	Reason ModerationReason
}

func (e ModerationRejected) Error() string {
	return fmt.Sprintf("moderation rejected: %s", e.Reason)
}

// RejectedReason reports whether err carries a moderation reason.
func RejectedReason(err error) (ModerationReason, bool) {
	var mr ModerationRejected
	if stderrors.As(err, &mr) {
		return mr.Reason, true
	}
	return "", false
}

// Is delegates to the standard library so callers do not need two imports.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As delegates to the standard library.
func As(err error, target any) bool { return stderrors.As(err, target) }

package httpapi

import (
	"net/http"

	"channel-hub/errors"

	"github.com/labstack/echo/v4"
)

// writeError translates the service error taxonomy into HTTP statuses.
// The response body carries the sentinel text; moderation rejections add
// their stable reason code.
func writeError(c echo.Context, err error) error {
	if reason, ok := errors.RejectedReason(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:  "moderation rejected",
			Reason: string(reason),
		})
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errors.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, errors.ErrInvalidState),
		errors.Is(err, errors.ErrConflict),
		errors.Is(err, errors.ErrAlreadyMember),
		errors.Is(err, errors.ErrNotMember),
		errors.Is(err, errors.ErrCreatorCannotLeave),
		errors.Is(err, errors.ErrUserAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, errors.ErrInvalidReference),
		errors.Is(err, errors.ErrWindowExpired):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrInvalidPassword):
		status = http.StatusBadRequest
	}

	body := ErrorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		// Internal details stay in the logs.
		body.Error = "internal error"
	}
	return c.JSON(status, body)
}

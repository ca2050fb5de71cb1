package app

import (
	"errors"
	"net/http"

	"eventfeed/internal/service"
	"eventfeed/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondServiceError maps service errors onto HTTP statuses. Unrecognized
// errors become 500 with a generic message so internals never leak.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrParentNotFound),
		errors.Is(err, service.ErrNotificationNotFound):
		util.NotFound(c, err.Error())
	case errors.Is(err, service.ErrNotOwner),
		errors.Is(err, service.ErrNotNotificationOwner):
		util.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrInvalidCursor),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrContentTooLong),
		errors.Is(err, service.ErrParentMismatch):
		util.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrUploadFailed):
		util.ErrorResponse(c, http.StatusBadGateway, err.Error(), nil)
	default:
		util.ErrorResponse(c, http.StatusInternalServerError, "Internal server error", nil)
	}
}

// bindErrorMessage turns binding errors into user-friendly messages instead
// of leaking struct field paths.
func bindErrorMessage(err error) string {
	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		for _, fieldErr := range validationErr {
			switch fieldErr.Field() {
			case "PostID":
				return "post_id is required"
			case "Content":
				return "content is required"
			}
		}
	}
	return err.Error()
}

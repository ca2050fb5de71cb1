package service

import "errors"

// Sentinel errors returned by the services. Handlers map these to HTTP
// statuses with errors.Is.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrPostNotFound    = errors.New("post not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrParentNotFound  = errors.New("parent comment not found")
	ErrParentMismatch  = errors.New("parent comment does not belong to this post")
	ErrNotOwner        = errors.New("you are not the author of this comment")
	ErrInvalidCursor   = errors.New("invalid pagination cursor")
	ErrEmptyContent    = errors.New("comment content is required")
	ErrContentTooLong  = errors.New("comment content too long")
	ErrUploadFailed    = errors.New("attachment upload failed")

	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotNotificationOwner = errors.New("you do not own this notification")
)

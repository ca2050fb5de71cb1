package app

import (
	"net/http"
	"strconv"

	"eventfeed/internal/middleware"
	"eventfeed/internal/service"
	"eventfeed/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationService service.NotificationService
}

func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// GetNotifications handles listing the caller's notifications
// GET /api/v1/notifications?limit=&offset=
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	notifications, err := h.notificationService.GetNotificationsByUserID(userID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Notifications retrieved successfully", gin.H{
		"notifications": notifications,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetUnreadCount handles getting the caller's unread notification count
// GET /api/v1/notifications/unread/count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	count, err := h.notificationService.GetUnreadCount(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Unread count retrieved successfully", gin.H{"count": count})
}

// MarkAsRead handles marking one notification as read
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	notificationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkAsRead(notificationID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Notification marked as read", nil)
}

// MarkAllAsRead handles marking all of the caller's notifications as read
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.notificationService.MarkAllAsRead(userID); err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "All notifications marked as read", nil)
}

// DeleteNotification handles deleting one of the caller's notifications
// DELETE /api/v1/notifications/:id
func (h *NotificationHandler) DeleteNotification(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	notificationID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.DeleteNotification(notificationID, userID); err != nil {
		respondServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Notification deleted successfully", nil)
}

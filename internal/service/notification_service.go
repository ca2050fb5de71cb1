package service

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"eventfeed/internal/model"
	"eventfeed/internal/repository"
	"eventfeed/internal/util"
)

// UserHub is the per-user push surface. The websocket hub satisfies it.
type UserHub interface {
	BroadcastToUser(userID uint64, payload map[string]interface{})
}

type NotificationService interface {
	// The Notify* methods are fire-and-forget: they enqueue the delivery on
	// a bounded worker pool and return immediately. When the queue is full
	// the notification is dropped with a log line, never blocking the
	// request path.
	NotifyCommentReply(receiverID, senderID uint64, senderName string, commentID, postID uint64, content string)
	NotifyPostComment(receiverID, senderID uint64, senderName string, commentID, postID uint64, content string)
	NotifyCommentLiked(receiverID, senderID uint64, senderName string, commentID uint64)

	GetNotificationsByUserID(userID uint64, limit, offset int) ([]*model.Notification, error)
	GetUnreadCount(userID uint64) (int64, error)
	MarkAsRead(notificationID, userID uint64) error
	MarkAllAsRead(userID uint64) error
	DeleteNotification(notificationID, userID uint64) error

	SetWSHub(hub UserHub)
	Stop()
}

// NotificationMessage is the wire structure published to RabbitMQ
type NotificationMessage struct {
	NotificationID uint64                 `json:"notification_id"`
	UserID         uint64                 `json:"user_id"`
	Type           string                 `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
}

const (
	NotificationQueueName  = "notification_queue"
	NotificationExchange   = "notification_exchange"
	NotificationRoutingKey = "notification"

	// previewLength bounds the comment excerpt embedded in a notification
	previewLength = 80
)

type notificationTask struct {
	receiverID uint64
	senderID   uint64
	notifType  string
	title      string
	message    string
	data       map[string]interface{}
	targetID   uint64
}

type notificationService struct {
	notifRepo repository.NotificationRepository
	rabbitMQ  *util.RabbitMQClient

	mu    sync.RWMutex
	wsHub UserHub

	tasks    chan notificationTask
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewNotificationService builds the service and starts its worker pool.
// workers and queueSize bound the async delivery capacity.
func NewNotificationService(notifRepo repository.NotificationRepository, rabbitMQ *util.RabbitMQClient, workers, queueSize int) NotificationService {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 1024
	}

	s := &notificationService{
		notifRepo: notifRepo,
		rabbitMQ:  rabbitMQ,
		tasks:     make(chan notificationTask, queueSize),
	}

	if rabbitMQ != nil {
		if err := rabbitMQ.DeclareExchangeAndQueue(NotificationExchange, NotificationQueueName, NotificationRoutingKey); err != nil {
			log.Printf("Failed to declare notification exchange/queue: %v", err)
		}
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

// SetWSHub sets the WebSocket hub for realtime notifications
func (s *notificationService) SetWSHub(hub UserHub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wsHub = hub
}

// Stop drains the worker pool. Pending tasks are still delivered.
func (s *notificationService) Stop() {
	s.stopOnce.Do(func() {
		close(s.tasks)
	})
	s.wg.Wait()
}

func (s *notificationService) worker() {
	defer s.wg.Done()
	for task := range s.tasks {
		if err := s.deliver(task); err != nil {
			log.Printf("Failed to deliver %s notification to user %d: %v", task.notifType, task.receiverID, err)
		}
	}
}

// submit enqueues a task without blocking. Under pool exhaustion the task is
// dropped, which is the documented delivery policy: notifications are
// best-effort and must never back-pressure comment creation.
func (s *notificationService) submit(task notificationTask) {
	select {
	case s.tasks <- task:
	default:
		log.Printf("Notification queue full, dropping %s notification for user %d", task.notifType, task.receiverID)
	}
}

// deliver persists the notification and pushes it to the receiver: through
// RabbitMQ when available (the queue worker forwards it to the hub), or
// straight to the hub otherwise.
func (s *notificationService) deliver(task notificationTask) error {
	senderID := task.senderID
	targetID := task.targetID
	notification := &model.Notification{
		UserID:   task.receiverID,
		SenderID: &senderID,
		Type:     task.notifType,
		Title:    task.title,
		Message:  task.message,
		TargetID: &targetID,
		IsRead:   false,
	}

	if task.data != nil {
		if dataJSON, err := json.Marshal(task.data); err == nil {
			notification.Data = string(dataJSON)
		}
	}

	if err := s.notifRepo.Create(notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	msg := NotificationMessage{
		NotificationID: notification.ID,
		UserID:         notification.UserID,
		Type:           notification.Type,
		Title:          notification.Title,
		Message:        notification.Message,
		Data:           task.data,
		Timestamp:      time.Now(),
	}

	if s.rabbitMQ != nil {
		msgJSON, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal notification message: %w", err)
		}
		if err := s.rabbitMQ.Publish(NotificationExchange, NotificationRoutingKey, msgJSON); err == nil {
			return nil
		} else {
			log.Printf("Failed to publish notification to RabbitMQ, falling back to direct push: %v", err)
		}
	}

	s.pushToHub(msg)
	return nil
}

func (s *notificationService) pushToHub(msg NotificationMessage) {
	s.mu.RLock()
	hub := s.wsHub
	s.mu.RUnlock()
	if hub == nil {
		return
	}

	payload := map[string]interface{}{
		"id":         msg.NotificationID,
		"user_id":    msg.UserID,
		"type":       msg.Type,
		"title":      msg.Title,
		"message":    msg.Message,
		"created_at": msg.Timestamp.Format(time.RFC3339),
	}
	if msg.Data != nil {
		payload["data"] = msg.Data
	}

	hub.BroadcastToUser(msg.UserID, payload)
}

// NotifyCommentReply notifies the parent comment's author about a new reply
func (s *notificationService) NotifyCommentReply(receiverID, senderID uint64, senderName string, commentID, postID uint64, content string) {
	s.submit(notificationTask{
		receiverID: receiverID,
		senderID:   senderID,
		notifType:  model.NotificationTypeCommentReply,
		title:      "New Reply",
		message:    fmt.Sprintf("%s replied to your comment: %s", senderName, preview(content)),
		targetID:   commentID,
		data: map[string]interface{}{
			"comment_id":  commentID,
			"post_id":     postID,
			"sender_id":   senderID,
			"sender_name": senderName,
		},
	})
}

// NotifyPostComment notifies the post owner about a new comment
func (s *notificationService) NotifyPostComment(receiverID, senderID uint64, senderName string, commentID, postID uint64, content string) {
	s.submit(notificationTask{
		receiverID: receiverID,
		senderID:   senderID,
		notifType:  model.NotificationTypePostComment,
		title:      "New Comment",
		message:    fmt.Sprintf("%s commented on your post: %s", senderName, preview(content)),
		targetID:   commentID,
		data: map[string]interface{}{
			"comment_id":  commentID,
			"post_id":     postID,
			"sender_id":   senderID,
			"sender_name": senderName,
		},
	})
}

// NotifyCommentLiked notifies a comment's author that someone liked it
func (s *notificationService) NotifyCommentLiked(receiverID, senderID uint64, senderName string, commentID uint64) {
	s.submit(notificationTask{
		receiverID: receiverID,
		senderID:   senderID,
		notifType:  model.NotificationTypeCommentLiked,
		title:      "Comment Liked",
		message:    fmt.Sprintf("%s liked your comment", senderName),
		targetID:   commentID,
		data: map[string]interface{}{
			"comment_id":  commentID,
			"sender_id":   senderID,
			"sender_name": senderName,
		},
	})
}

// GetNotificationsByUserID gets notifications for a user with pagination
func (s *notificationService) GetNotificationsByUserID(userID uint64, limit, offset int) ([]*model.Notification, error) {
	return s.notifRepo.FindByUserID(userID, limit, offset)
}

// GetUnreadCount gets unread notification count for a user
func (s *notificationService) GetUnreadCount(userID uint64) (int64, error) {
	return s.notifRepo.CountUnreadByUserID(userID)
}

// MarkAsRead marks a notification as read
func (s *notificationService) MarkAsRead(notificationID, userID uint64) error {
	notification, err := s.notifRepo.FindByID(notificationID)
	if err != nil {
		return ErrNotificationNotFound
	}
	if notification.UserID != userID {
		return ErrNotNotificationOwner
	}
	return s.notifRepo.MarkAsRead(notificationID)
}

// MarkAllAsRead marks all notifications as read for a user
func (s *notificationService) MarkAllAsRead(userID uint64) error {
	return s.notifRepo.MarkAllAsRead(userID)
}

// DeleteNotification deletes a notification
func (s *notificationService) DeleteNotification(notificationID, userID uint64) error {
	notification, err := s.notifRepo.FindByID(notificationID)
	if err != nil {
		return ErrNotificationNotFound
	}
	if notification.UserID != userID {
		return ErrNotNotificationOwner
	}
	return s.notifRepo.Delete(notificationID)
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}

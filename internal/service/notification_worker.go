package service

import (
	"encoding/json"
	"log"
	"time"

	"eventfeed/internal/util"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationWorker consumes notification messages from RabbitMQ and pushes
// them to connected clients through the WebSocket hub.
type NotificationWorker struct {
	rabbitMQ *util.RabbitMQClient
	wsHub    UserHub
	stopChan chan struct{}
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(rabbitMQ *util.RabbitMQClient, wsHub UserHub) *NotificationWorker {
	return &NotificationWorker{
		rabbitMQ: rabbitMQ,
		wsHub:    wsHub,
		stopChan: make(chan struct{}),
	}
}

// Start starts consuming notification messages from RabbitMQ
func (w *NotificationWorker) Start() error {
	if w.rabbitMQ == nil {
		return nil // RabbitMQ not available, worker will not start
	}

	channel := w.rabbitMQ.GetChannel()
	if channel == nil {
		return nil
	}

	if err := w.rabbitMQ.DeclareExchangeAndQueue(NotificationExchange, NotificationQueueName, NotificationRoutingKey); err != nil {
		return err
	}

	msgs, err := channel.Consume(
		NotificationQueueName,
		"notification_worker",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		log.Println("Notification worker started, consuming messages...")
		for {
			select {
			case <-w.stopChan:
				log.Println("Notification worker stopped")
				return
			case msg, ok := <-msgs:
				if !ok {
					log.Println("Notification queue closed")
					return
				}
				if err := w.processMessage(msg); err != nil {
					log.Printf("Error processing notification message: %v", err)
					// Requeue so another consumer can retry
					msg.Nack(false, true)
				} else {
					msg.Ack(false)
				}
			}
		}
	}()

	return nil
}

func (w *NotificationWorker) processMessage(msg amqp.Delivery) error {
	var notificationMsg NotificationMessage
	if err := json.Unmarshal(msg.Body, &notificationMsg); err != nil {
		return err
	}

	if w.wsHub != nil {
		payload := map[string]interface{}{
			"id":         notificationMsg.NotificationID,
			"user_id":    notificationMsg.UserID,
			"type":       notificationMsg.Type,
			"title":      notificationMsg.Title,
			"message":    notificationMsg.Message,
			"created_at": notificationMsg.Timestamp.Format(time.RFC3339),
		}
		if notificationMsg.Data != nil {
			payload["data"] = notificationMsg.Data
		}
		w.wsHub.BroadcastToUser(notificationMsg.UserID, payload)
	}

	return nil
}

// Stop stops the notification worker
func (w *NotificationWorker) Stop() {
	close(w.stopChan)
}

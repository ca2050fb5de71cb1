package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"eventfeed/internal/model"
	"eventfeed/internal/util"

	"github.com/google/uuid"
)

// TopicHub is the in-process delivery surface for topic subscribers. The
// websocket hub satisfies it.
type TopicHub interface {
	BroadcastToTopic(topic string, payload map[string]interface{})
}

// Broadcaster fans newly created comments out to interested topics. It is
// strictly best-effort: every publish failure is logged and swallowed so the
// create path cannot be failed by the realtime side.
type Broadcaster struct {
	redis *util.RedisClient
	hub   TopicHub
}

func NewBroadcaster(redis *util.RedisClient, hub TopicHub) *Broadcaster {
	return &Broadcaster{
		redis: redis,
		hub:   hub,
	}
}

// PostCommentsTopic names the stream every watcher of a post's comments
// subscribes to.
func PostCommentsTopic(postID uint64) string {
	return fmt.Sprintf("post:%d:comments", postID)
}

// CommentRepliesTopic names the stream for watchers of a single sub-thread.
func CommentRepliesTopic(commentID uint64) string {
	return fmt.Sprintf("comment:%d:replies", commentID)
}

// PublishComment publishes a newly created, counter-enriched comment to the
// post's comment topic and, when it is a reply, additionally to the parent's
// replies topic. Never returns an error.
func (b *Broadcaster) PublishComment(comment *model.Comment) {
	payload := commentPayload(comment)

	b.publish(PostCommentsTopic(comment.PostID), payload)
	if comment.ParentID != nil {
		b.publish(CommentRepliesTopic(*comment.ParentID), payload)
	}
}

func (b *Broadcaster) publish(topic string, payload map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic broadcasting to topic %s: %v", topic, r)
		}
	}()

	// With Redis available the message goes through pub/sub and the bridge
	// delivers it to every hub, this instance's included. Publishing to the
	// local hub as well would hand local subscribers a duplicate.
	if b.redis != nil {
		if err := b.redis.Publish(topic, payload); err == nil {
			return
		} else {
			log.Printf("Failed to publish to topic %s via Redis: %v", topic, err)
		}
	}

	if b.hub != nil {
		b.hub.BroadcastToTopic(topic, payload)
	}
}

func commentPayload(comment *model.Comment) map[string]interface{} {
	payload := map[string]interface{}{
		"event":     "comment.created",
		"id":        uuid.New().String(),
		"timestamp": time.Now().Format(time.RFC3339),
	}

	// Flatten the comment representation into the payload
	raw, err := json.Marshal(comment)
	if err != nil {
		log.Printf("Failed to marshal comment %d for broadcast: %v", comment.ID, err)
		return payload
	}
	var commentMap map[string]interface{}
	if err := json.Unmarshal(raw, &commentMap); err == nil {
		payload["comment"] = commentMap
	}

	return payload
}

// RunFanoutBridge subscribes to the fan-out channels on Redis and forwards
// every message to the local hub's topic subscribers. It blocks until the
// subscription is closed, so run it on its own goroutine.
func RunFanoutBridge(redis *util.RedisClient, hub TopicHub) {
	sub := redis.Subscribe("post:*", "comment:*")
	defer sub.Close()

	log.Println("Fan-out bridge started, forwarding Redis pub/sub to websocket hub")
	for msg := range sub.Channel() {
		var payload map[string]interface{}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Dropping malformed fan-out message on %s: %v", msg.Channel, err)
			continue
		}
		hub.BroadcastToTopic(msg.Channel, payload)
	}
}

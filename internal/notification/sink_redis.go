package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "sged/pkg/domain"
)

const (
	// Redis key prefixes for per-recipient inboxes.
	inboxKeyPrefix  = "notif:inbox:"
	unreadKeyPrefix = "notif:unread:"

	// inboxCap bounds each recipient's inbox; older entries fall off.
	inboxCap = 50
)

// RedisSink keeps a capped per-recipient inbox in Redis. Each delivery
// pushes a JSON entry and bumps the unread counter; clients consume the list
// directly.
type RedisSink struct {
	client *redis.Client
}

func NewRedisSink(client *redis.Client) *RedisSink {
	return &RedisSink{client: client}
}

type inboxEntry struct {
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Link      string    `json:"link,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *RedisSink) Deliver(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(inboxEntry{
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Link:      n.Link,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	inboxKey := inboxKeyPrefix + n.Recipient.String()
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, inboxKey, payload)
	pipe.LTrim(ctx, inboxKey, 0, inboxCap-1)
	pipe.Incr(ctx, unreadKeyPrefix+n.Recipient.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	return nil
}

// Unread returns the recipient's unread counter.
func (s *RedisSink) Unread(ctx context.Context, userID id.UserID) (int64, error) {
	n, err := s.client.Get(ctx, unreadKeyPrefix+userID.String()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

// MarkAllRead clears the recipient's unread counter.
func (s *RedisSink) MarkAllRead(ctx context.Context, userID id.UserID) error {
	if err := s.client.Del(ctx, unreadKeyPrefix+userID.String()).Err(); err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

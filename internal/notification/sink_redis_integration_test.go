//go:build integration

package notification_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"sged/internal/notification"
	id "sged/pkg/domain"
	"sged/pkg/testutil/containers"
)

type RedisSinkSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	sink  *notification.RedisSink
}

func TestRedisSinkSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSinkSuite))
}

func (s *RedisSinkSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.sink = notification.NewRedisSink(s.redis.Client)
}

func (s *RedisSinkSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisSinkSuite) TestDeliverAppendsToInbox() {
	ctx := context.Background()
	recipient := id.NewUserID()

	err := s.sink.Deliver(ctx, notification.Notification{
		Recipient: recipient,
		Type:      notification.TypeDossierIncoming,
		Title:     "Dossier incoming",
		Message:   "D-001 is headed your way",
		CreatedAt: time.Now().UTC(),
	})
	s.Require().NoError(err)

	entries, err := s.redis.Client.LRange(ctx, "notif:inbox:"+recipient.String(), 0, -1).Result()
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	var entry struct {
		Type    string `json:"type"`
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	s.Require().NoError(json.Unmarshal([]byte(entries[0]), &entry))
	s.Equal(string(notification.TypeDossierIncoming), entry.Type)
	s.Equal("Dossier incoming", entry.Title)
	s.Equal("D-001 is headed your way", entry.Message)

	unread, err := s.sink.Unread(ctx, recipient)
	s.Require().NoError(err)
	s.Equal(int64(1), unread)
}

func (s *RedisSinkSuite) TestInboxCappedNewestFirst() {
	ctx := context.Background()
	recipient := id.NewUserID()

	const deliveries = 60
	for i := 0; i < deliveries; i++ {
		err := s.sink.Deliver(ctx, notification.Notification{
			Recipient: recipient,
			Type:      notification.TypeDossierPending,
			Title:     fmt.Sprintf("notification %d", i),
			CreatedAt: time.Now().UTC(),
		})
		s.Require().NoError(err)
	}

	entries, err := s.redis.Client.LRange(ctx, "notif:inbox:"+recipient.String(), 0, -1).Result()
	s.Require().NoError(err)
	s.Len(entries, 50, "inbox keeps only the newest entries")

	var newest struct {
		Title string `json:"title"`
	}
	s.Require().NoError(json.Unmarshal([]byte(entries[0]), &newest))
	s.Equal(fmt.Sprintf("notification %d", deliveries-1), newest.Title)

	// The counter still reflects everything delivered, read or not.
	unread, err := s.sink.Unread(ctx, recipient)
	s.Require().NoError(err)
	s.Equal(int64(deliveries), unread)
}

func (s *RedisSinkSuite) TestMarkAllRead() {
	ctx := context.Background()
	recipient := id.NewUserID()

	for i := 0; i < 3; i++ {
		s.Require().NoError(s.sink.Deliver(ctx, notification.Notification{
			Recipient: recipient,
			Type:      notification.TypeDossierProcessed,
			Title:     "Dossier processed",
			CreatedAt: time.Now().UTC(),
		}))
	}

	s.Require().NoError(s.sink.MarkAllRead(ctx, recipient))
	unread, err := s.sink.Unread(ctx, recipient)
	s.Require().NoError(err)
	s.Zero(unread)
}

func (s *RedisSinkSuite) TestUnreadForQuietRecipient() {
	unread, err := s.sink.Unread(context.Background(), id.NewUserID())
	s.Require().NoError(err)
	s.Zero(unread)
}

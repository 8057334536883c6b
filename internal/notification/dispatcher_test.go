package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sged/internal/platform/logger"
	id "sged/pkg/domain"
)

func TestDispatcherDeliversToSink(t *testing.T) {
	sink := NewMemorySink()
	d := NewDispatcher(sink, logger.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = d.Run(ctx)
		close(done)
	}()

	recipient := id.NewUserID()
	d.Notify(ctx, Notification{Recipient: recipient, Type: TypeDossierPending, Title: "Dossier awaiting intake"})

	require.Eventually(t, func() bool {
		return len(sink.For(recipient)) == 1
	}, time.Second, 5*time.Millisecond)

	got := sink.For(recipient)[0]
	assert.Equal(t, TypeDossierPending, got.Type)
	assert.False(t, got.CreatedAt.IsZero(), "dispatcher stamps missing timestamps")

	cancel()
	<-done
}

func TestDispatcherDropsWhenInboxFull(t *testing.T) {
	sink := NewMemorySink()
	d := NewDispatcher(sink, logger.New())

	// No Run loop draining: fill the inbox and overflow it. Notify must not
	// block.
	recipient := id.NewUserID()
	overflow := defaultInboxSize + 10
	finished := make(chan struct{})
	go func() {
		for i := 0; i < overflow; i++ {
			d.Notify(context.Background(), Notification{Recipient: recipient, Type: TypeDossierIncoming})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a full inbox")
	}
	assert.Len(t, d.inbox, defaultInboxSize)
}

func TestMemorySinkIsPerRecipient(t *testing.T) {
	sink := NewMemorySink()
	a, b := id.NewUserID(), id.NewUserID()

	require.NoError(t, sink.Deliver(context.Background(), Notification{Recipient: a, Type: TypeDossierPending}))
	require.NoError(t, sink.Deliver(context.Background(), Notification{Recipient: a, Type: TypeDossierProcessed}))
	require.NoError(t, sink.Deliver(context.Background(), Notification{Recipient: b, Type: TypeDossierIncoming}))

	assert.Len(t, sink.For(a), 2)
	assert.Len(t, sink.For(b), 1)
	assert.Empty(t, sink.For(id.NewUserID()))
}

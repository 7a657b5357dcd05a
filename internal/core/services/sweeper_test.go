package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

func newSweepFixture(t *testing.T, limit int) (*OfflineSweeper, *fakeMessageRepo, *fakeBroadcaster) {
	t.Helper()
	msgs := newFakeMessageRepo()
	bcast := &fakeBroadcaster{}
	receipts := NewReceiptService(discardLogger(), msgs, newFakeConversationRepo(), passTxRunner{}, bcast, 16, 4, time.Minute)
	return NewOfflineSweeper(discardLogger(), msgs, receipts, limit), msgs, bcast
}

func TestSweep_MarksPendingMessagesDelivered(t *testing.T) {
	t.Parallel()
	sweeper, msgs, bcast := newSweepFixture(t, 100)
	convID := uuid.New()
	base := time.Now().Add(-time.Hour)
	missed := seedMessage(msgs, convID, "alice", base)
	already := seedMessage(msgs, convID, "alice", base.Add(time.Minute))
	own := seedMessage(msgs, convID, "bob", base.Add(2*time.Minute))
	_, err := msgs.AddDeliveryEntry(context.Background(), already.ID, "bob", base.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, sweeper.Sweep(context.Background(), "bob"))

	require.True(t, msgs.isDelivered(missed.ID, "bob"))
	require.False(t, msgs.isDelivered(own.ID, "bob"))
	// Only the newly delivered message produced events; the replay
	// rides the same reconciler path as a live receipt.
	require.Equal(t, 1, bcast.countTo("user", "alice"))
}

func TestSweep_CapsReplay(t *testing.T) {
	t.Parallel()
	sweeper, msgs, _ := newSweepFixture(t, 3)
	convID := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		seedMessage(msgs, convID, "alice", base.Add(time.Duration(i)*time.Minute))
	}

	require.NoError(t, sweeper.Sweep(context.Background(), "bob"))

	var delivered int
	for id := range msgs.messages {
		if msgs.isDelivered(id, "bob") {
			delivered++
		}
	}
	require.Equal(t, 3, delivered)
}

func TestSweep_NothingPendingIsQuiet(t *testing.T) {
	t.Parallel()
	sweeper, _, bcast := newSweepFixture(t, 100)
	require.NoError(t, sweeper.Sweep(context.Background(), "bob"))
	require.Empty(t, bcast.events())
}

func TestSweep_RequiresUser(t *testing.T) {
	t.Parallel()
	sweeper, _, _ := newSweepFixture(t, 100)
	require.ErrorIs(t, sweeper.Sweep(context.Background(), ""), domain.ErrInvalidUserID)
}

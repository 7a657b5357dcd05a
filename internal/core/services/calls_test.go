package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

type callFixture struct {
	svc    *CallService
	convs  *fakeConversationRepo
	repo   *fakeCallRepo
	blocks *fakeBlocks
	sched  *fakeScheduler
	bcast  *fakeBroadcaster
	convID uuid.UUID
}

func newCallFixture(t *testing.T, members ...string) *callFixture {
	t.Helper()
	if len(members) == 0 {
		members = []string{"alice", "bob"}
	}
	f := &callFixture{
		convs:  newFakeConversationRepo(),
		repo:   newFakeCallRepo(),
		blocks: newFakeBlocks(),
		sched:  &fakeScheduler{},
		bcast:  &fakeBroadcaster{},
		convID: uuid.New(),
	}
	f.convs.members[f.convID] = members
	f.svc = NewCallService(discardLogger(), f.convs, f.repo, f.blocks, &fakeLimiter{}, f.sched, f.bcast, 30*time.Second)
	return f
}

func (f *callFixture) start(t *testing.T) *domain.Call {
	t.Helper()
	call, err := f.svc.Start(context.Background(), "alice", f.convID, domain.CallAudio, nil, uuid.Nil)
	require.NoError(t, err)
	return call
}

func TestCallStart_RingsCalleesAndArmsTimer(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	call := f.start(t)

	require.Equal(t, domain.CallRinging, call.Status)
	require.Equal(t, []string{"bob"}, call.CalleeIDs)
	require.NotNil(t, f.sched.last())
	require.Equal(t, 1, f.bcast.countTo("user", "bob"))
	require.Equal(t, 1, f.bcast.countTo("conv", f.convID.String()))
	require.Equal(t, 1, f.bcast.countTo("others", "alice"))

	stored, err := f.repo.GetCall(context.Background(), call.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CallRinging, stored.Status)
}

func TestCallStart_Validation(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	ctx := context.Background()

	_, err := f.svc.Start(ctx, "", f.convID, domain.CallAudio, nil, uuid.Nil)
	require.ErrorIs(t, err, domain.ErrInvalidUserID)

	_, err = f.svc.Start(ctx, "alice", uuid.Nil, domain.CallAudio, nil, uuid.Nil)
	require.ErrorIs(t, err, domain.ErrInvalidConversationID)

	_, err = f.svc.Start(ctx, "alice", f.convID, domain.CallType("hologram"), nil, uuid.Nil)
	require.ErrorIs(t, err, domain.ErrInvalidCallType)

	_, err = f.svc.Start(ctx, "mallory", f.convID, domain.CallAudio, nil, uuid.Nil)
	require.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestCallStart_BlockedPair(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	f.blocks.pairs["bob/alice"] = true

	_, err := f.svc.Start(context.Background(), "alice", f.convID, domain.CallVideo, nil, uuid.Nil)
	require.ErrorIs(t, err, domain.ErrBlocked)
}

func TestCallStart_Cooldown(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	f.svc.limiter = &fakeLimiter{limit: 1}

	f.start(t)
	_, err := f.svc.Start(context.Background(), "alice", f.convID, domain.CallAudio, nil, uuid.Nil)
	require.ErrorIs(t, err, domain.ErrCallCooldown)
}

func TestCallAccept_CancelsTimerAndRecordsAcceptedAt(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	call := f.start(t)
	timer := f.sched.last()

	require.NoError(t, f.svc.Accept(context.Background(), call.ID, "bob"))

	stored, err := f.repo.GetCall(context.Background(), call.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CallAccepted, stored.Status)
	require.NotNil(t, stored.AcceptedAt)

	// The ring timer was cancelled under the call lock; a late fire
	// must not flip the accepted call to missed.
	timer.fire()
	stored, err = f.repo.GetCall(context.Background(), call.ID)
	require.NoError(t, err)
	require.Equal(t, domain.CallAccepted, stored.Status)
}

func TestCallReject_TerminalAndBroadcast(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	call := f.start(t)

	require.NoError(t, f.svc.Reject(context.Background(), call.ID, "bob"))

	stored, _ := f.repo.GetCall(context.Background(), call.ID)
	require.Equal(t, domain.CallRejected, stored.Status)
	require.NotNil(t, stored.EndedAt)

	// Terminal: any further action is a state conflict.
	err := f.svc.Accept(context.Background(), call.ID, "bob")
	require.ErrorIs(t, err, domain.ErrCallAlreadyHandled)
	err = f.svc.End(context.Background(), call.ID, "alice")
	require.ErrorIs(t, err, domain.ErrCallAlreadyHandled)
}

func TestCallEnd_AcceptedCallGetsDuration(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)

	base := time.Now()
	mu := sync.Mutex{}
	offset := time.Duration(0)
	f.svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return base.Add(offset)
	}

	call := f.start(t)
	require.NoError(t, f.svc.Accept(context.Background(), call.ID, "bob"))
	mu.Lock()
	offset = 42 * time.Second
	mu.Unlock()
	require.NoError(t, f.svc.End(context.Background(), call.ID, "alice"))

	stored, _ := f.repo.GetCall(context.Background(), call.ID)
	require.Equal(t, domain.CallEnded, stored.Status)
	require.Equal(t, 42*time.Second, stored.Duration)
}

func TestCallEnd_FromRingingHasZeroDuration(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	call := f.start(t)

	require.NoError(t, f.svc.End(context.Background(), call.ID, "alice"))

	stored, _ := f.repo.GetCall(context.Background(), call.ID)
	require.Equal(t, domain.CallEnded, stored.Status)
	require.Zero(t, stored.Duration)
	require.Nil(t, stored.AcceptedAt)
}

func TestCallTimerFire_MarksMissed(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	call := f.start(t)

	f.sched.last().fire()

	stored, _ := f.repo.GetCall(context.Background(), call.ID)
	require.Equal(t, domain.CallMissed, stored.Status)

	// Accepting after the timeout is a conflict, not a resurrection.
	err := f.svc.Accept(context.Background(), call.ID, "bob")
	require.ErrorIs(t, err, domain.ErrCallAlreadyHandled)
}

func TestCallMarkMissed_OnlyFromRinging(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	call := f.start(t)
	require.NoError(t, f.svc.Accept(context.Background(), call.ID, "bob"))

	err := f.svc.MarkMissed(context.Background(), call.ID, "alice")
	require.ErrorIs(t, err, domain.ErrCallAlreadyHandled)

	stored, _ := f.repo.GetCall(context.Background(), call.ID)
	require.Equal(t, domain.CallAccepted, stored.Status)
}

func TestCallAction_NonParticipant(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t, "alice", "bob", "carol")
	call := f.start(t)

	err := f.svc.Accept(context.Background(), call.ID, "mallory")
	require.ErrorIs(t, err, domain.ErrNotParticipant)
}

func TestCallAction_UnknownCall(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	err := f.svc.Accept(context.Background(), uuid.New(), "bob")
	require.ErrorIs(t, err, domain.ErrCallNotFound)
}

func TestCallConcurrentAcceptReject_SingleWinner(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t)
	call := f.start(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = f.svc.Accept(context.Background(), call.ID, "bob")
	}()
	go func() {
		defer wg.Done()
		errs[1] = f.svc.Reject(context.Background(), call.ID, "bob")
	}()
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			require.ErrorIs(t, err, domain.ErrCallAlreadyHandled)
			conflicts++
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, conflicts)

	stored, _ := f.repo.GetCall(context.Background(), call.ID)
	require.True(t, stored.Status.Terminal())
}

func TestCallGroup_RingsEveryCallee(t *testing.T) {
	t.Parallel()
	f := newCallFixture(t, "alice", "bob", "carol", "dave")
	call := f.start(t)

	require.ElementsMatch(t, []string{"bob", "carol", "dave"}, call.CalleeIDs)
	require.Equal(t, 1, f.bcast.countTo("user", "bob"))
	require.Equal(t, 1, f.bcast.countTo("user", "carol"))
	require.Equal(t, 1, f.bcast.countTo("user", "dave"))
}

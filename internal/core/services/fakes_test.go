package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeMessageRepo keeps messages and both receipt sets in maps, with
// the same idempotent insert semantics as the postgres adapter.
type fakeMessageRepo struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]*domain.Message
	delivered map[uuid.UUID]map[string]time.Time
	read      map[uuid.UUID]map[string]time.Time
	listErr   error
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		messages:  make(map[uuid.UUID]*domain.Message),
		delivered: make(map[uuid.UUID]map[string]time.Time),
		read:      make(map[uuid.UUID]map[string]time.Time),
	}
}

func (f *fakeMessageRepo) put(msg *domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[msg.ID] = msg
}

func (f *fakeMessageRepo) GetMessage(_ context.Context, id uuid.UUID) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, domain.ErrMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

func (f *fakeMessageRepo) AddDeliveryEntry(_ context.Context, messageID uuid.UUID, userID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return addEntry(f.delivered, messageID, userID, at), nil
}

func (f *fakeMessageRepo) AddReadEntry(_ context.Context, messageID uuid.UUID, userID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return addEntry(f.read, messageID, userID, at), nil
}

func addEntry(sets map[uuid.UUID]map[string]time.Time, messageID uuid.UUID, userID string, at time.Time) bool {
	set := sets[messageID]
	if set == nil {
		set = make(map[string]time.Time)
		sets[messageID] = set
	}
	if _, ok := set[userID]; ok {
		return false
	}
	set[userID] = at
	return true
}

func (f *fakeMessageRepo) MarkReadUpTo(_ context.Context, conversationID uuid.UUID, userID string, cutoff, at time.Time) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var marked []uuid.UUID
	for id, msg := range f.messages {
		if msg.ConversationID != conversationID || msg.SenderID == userID {
			continue
		}
		if msg.CreatedAt.After(cutoff) {
			continue
		}
		if addEntry(f.read, id, userID, at) {
			marked = append(marked, id)
		}
	}
	return marked, nil
}

func (f *fakeMessageRepo) ListUndelivered(_ context.Context, userID string, limit int) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Message
	for id, msg := range f.messages {
		if msg.SenderID == userID {
			continue
		}
		if _, ok := f.delivered[id][userID]; ok {
			continue
		}
		out = append(out, *msg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageRepo) SaveWithSequence(_ context.Context, msg *domain.Message) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var seq int64
	for _, m := range f.messages {
		if m.ConversationID == msg.ConversationID && m.Seq > seq {
			seq = m.Seq
		}
	}
	seq++
	msg.Seq = seq
	cp := *msg
	f.messages[msg.ID] = &cp
	return seq, nil
}

func (f *fakeMessageRepo) isDelivered(messageID uuid.UUID, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.delivered[messageID][userID]
	return ok
}

func (f *fakeMessageRepo) isRead(messageID uuid.UUID, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.read[messageID][userID]
	return ok
}

// fakeConversationRepo serves a static membership table and counts
// unread resets.
type fakeConversationRepo struct {
	mu      sync.Mutex
	members map[uuid.UUID][]string
	resets  []string
	bumps   int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{members: make(map[uuid.UUID][]string)}
}

func seedConversation(f *fakeConversationRepo, members ...string) uuid.UUID {
	id := uuid.New()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[id] = members
	return id
}

func (f *fakeConversationRepo) Members(_ context.Context, conversationID uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[conversationID]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	return append([]string(nil), m...), nil
}

func (f *fakeConversationRepo) IsMember(_ context.Context, conversationID uuid.UUID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[conversationID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeConversationRepo) ResetUnread(_ context.Context, conversationID uuid.UUID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, conversationID.String()+"/"+userID)
	return nil
}

func (f *fakeConversationRepo) IncrementUnread(_ context.Context, _ uuid.UUID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bumps++
	return nil
}

// fakeCallRepo records calls in a map.
type fakeCallRepo struct {
	mu        sync.Mutex
	calls     map[uuid.UUID]*domain.Call
	createErr error
	updates   int
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{calls: make(map[uuid.UUID]*domain.Call)}
}

func (f *fakeCallRepo) Create(_ context.Context, call *domain.Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *call
	f.calls[call.ID] = &cp
	return nil
}

func (f *fakeCallRepo) UpdateStatus(_ context.Context, call *domain.Call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	cp := *call
	f.calls[call.ID] = &cp
	return nil
}

func (f *fakeCallRepo) GetCall(_ context.Context, id uuid.UUID) (*domain.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call, ok := f.calls[id]
	if !ok {
		return nil, domain.ErrCallNotFound
	}
	cp := *call
	return &cp, nil
}

// sentEvent is one captured broadcast.
type sentEvent struct {
	target string // "user", "others", "conv", "all"
	id     string
	event  any
}

// fakeBroadcaster records every publish in order.
type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (f *fakeBroadcaster) ToUser(_ context.Context, userID string, event any) {
	f.record(sentEvent{target: "user", id: userID, event: event})
}

func (f *fakeBroadcaster) ToUserOthers(_ context.Context, userID string, _ uuid.UUID, event any) {
	f.record(sentEvent{target: "others", id: userID, event: event})
}

func (f *fakeBroadcaster) ToConversation(_ context.Context, conversationID uuid.UUID, event any) {
	f.record(sentEvent{target: "conv", id: conversationID.String(), event: event})
}

func (f *fakeBroadcaster) ToAll(_ context.Context, event any) {
	f.record(sentEvent{target: "all", event: event})
}

func (f *fakeBroadcaster) record(e sentEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
}

func (f *fakeBroadcaster) events() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEvent(nil), f.sent...)
}

func (f *fakeBroadcaster) countTo(target, id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int
	for _, e := range f.sent {
		if e.target == target && e.id == id {
			n++
		}
	}
	return n
}

// passTxRunner runs the function without a real transaction.
type passTxRunner struct{}

func (passTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeTimer reports whether Cancel preceded the fire.
type fakeTimer struct {
	mu        sync.Mutex
	fn        func()
	fired     bool
	cancelled bool
}

func (t *fakeTimer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fired || t.cancelled {
		return false
	}
	t.cancelled = true
	return true
}

// fire runs the scheduled function unless the timer was cancelled.
func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.cancelled || t.fired {
		t.mu.Unlock()
		return
	}
	t.fired = true
	fn := t.fn
	t.mu.Unlock()
	fn()
}

// fakeScheduler hands out timers that fire only on demand.
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) Schedule(_ time.Duration, fn func()) contracts.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{fn: fn}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) last() *fakeTimer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// fakeBlocks answers the block predicate from two sets.
type fakeBlocks struct {
	pairs map[string]bool
	convs map[string]bool
}

func newFakeBlocks() *fakeBlocks {
	return &fakeBlocks{pairs: make(map[string]bool), convs: make(map[string]bool)}
}

func (f *fakeBlocks) IsBlocked(_ context.Context, userID, otherID string) (bool, error) {
	return f.pairs[userID+"/"+otherID] || f.pairs[otherID+"/"+userID], nil
}

func (f *fakeBlocks) IsConversationBlocked(_ context.Context, userID string, conversationID uuid.UUID) (bool, error) {
	return f.convs[userID+"/"+conversationID.String()], nil
}

// fakeLimiter denies after denyAfter allowed calls.
type fakeLimiter struct {
	mu      sync.Mutex
	allowed int
	limit   int
}

func (f *fakeLimiter) Allow(_ context.Context, _ string) (bool, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.limit > 0 && f.allowed >= f.limit {
		return false, 5 * time.Second, nil
	}
	return true, 0, nil
}

func (f *fakeLimiter) Record(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allowed++
	return nil
}

// fakePresenceStore is the redis mirror stand-in.
type fakePresenceStore struct {
	mu     sync.Mutex
	online map[string]bool
}

func newFakePresenceStore() *fakePresenceStore {
	return &fakePresenceStore{online: make(map[string]bool)}
}

func (f *fakePresenceStore) SetOnline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = true
	return nil
}

func (f *fakePresenceStore) SetOffline(_ context.Context, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[userID] = false
	return nil
}

func (f *fakePresenceStore) IsOnline(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[userID], nil
}

// fakeStatusRepo records SetOnline calls in order.
type fakeStatusRepo struct {
	mu    sync.Mutex
	flags []bool
}

func (f *fakeStatusRepo) SetOnline(_ context.Context, _ string, online bool, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags = append(f.flags, online)
	return nil
}

func (f *fakeStatusRepo) GetStatus(_ context.Context, _ string) (*domain.UserStatus, error) {
	return nil, domain.ErrUserNotFound
}

// fakeClient satisfies contracts.Client without a socket.
type fakeClient struct {
	id     uuid.UUID
	user   string
	device string
	mu     sync.Mutex
	sent   [][]byte
}

func newFakeClient(user, device string) *fakeClient {
	return &fakeClient{id: uuid.New(), user: user, device: device}
}

func (c *fakeClient) ID() uuid.UUID    { return c.id }
func (c *fakeClient) UserID() string   { return c.user }
func (c *fakeClient) DeviceID() string { return c.device }
func (c *fakeClient) Close()           {}

func (c *fakeClient) Send(_ context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeClient) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

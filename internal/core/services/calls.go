package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

var callTracer = otel.Tracer("call-service")

// callState serializes every status change for one call id through one
// mutex, so a simultaneous accept and reject resolve to exactly one
// winner. The new status is written under the lock, before the slower
// broadcast side effect, so a racing timer fire or second accept sees
// fresh state.
type callState struct {
	mu    sync.Mutex
	call  *domain.Call
	timer contracts.Timer
}

// CallService owns the ringing → accepted/rejected/ended/missed state
// machine for ephemeral calls, the ring-timeout timer, and the
// per-caller cooldown.
type CallService struct {
	convs   domain.ConversationRepository
	repo    domain.CallRepository
	blocks  contracts.BlockChecker
	limiter contracts.RateLimiter
	sched   contracts.Scheduler
	bcast   contracts.Broadcaster

	ringTimeout time.Duration
	log         *slog.Logger
	now         func() time.Time

	mu    sync.RWMutex
	calls map[uuid.UUID]*callState
}

func NewCallService(
	log *slog.Logger,
	convs domain.ConversationRepository,
	repo domain.CallRepository,
	blocks contracts.BlockChecker,
	limiter contracts.RateLimiter,
	sched contracts.Scheduler,
	bcast contracts.Broadcaster,
	ringTimeout time.Duration,
) *CallService {
	if ringTimeout <= 0 {
		ringTimeout = 30 * time.Second
	}
	return &CallService{
		log:         log,
		convs:       convs,
		repo:        repo,
		blocks:      blocks,
		limiter:     limiter,
		sched:       sched,
		bcast:       bcast,
		ringTimeout: ringTimeout,
		now:         time.Now,
		calls:       make(map[uuid.UUID]*callState),
	}
}

// Start validates membership, the block predicate, and the caller
// cooldown, creates the call in ringing, arms the ring timer, and
// broadcasts call-ringing to each callee, the conversation, and the
// caller's other connections.
func (s *CallService) Start(ctx context.Context, callerID string, conversationID uuid.UUID, typ domain.CallType, metadata json.RawMessage, from uuid.UUID) (*domain.Call, error) {
	ctx, span := callTracer.Start(ctx, "CallService.Start", trace.WithAttributes(
		attribute.String("caller_id", callerID),
		attribute.String("conv_id", conversationID.String()),
		attribute.String("call_type", string(typ)),
	))
	defer span.End()
	if callerID == "" {
		return nil, domain.ErrInvalidUserID
	}
	if conversationID == uuid.Nil {
		return nil, domain.ErrInvalidConversationID
	}
	if !typ.Valid() {
		return nil, domain.ErrInvalidCallType
	}
	members, err := s.convs.Members(ctx, conversationID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	callees := make([]string, 0, len(members))
	var isMember bool
	for _, m := range members {
		if m == callerID {
			isMember = true
			continue
		}
		callees = append(callees, m)
	}
	if !isMember {
		return nil, domain.ErrNotParticipant
	}
	if len(callees) == 0 {
		return nil, domain.ErrInvalidConversationID
	}
	if len(members) == 2 {
		blocked, err := s.blocks.IsBlocked(ctx, callerID, callees[0])
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if blocked {
			return nil, domain.ErrBlocked
		}
	} else {
		blocked, err := s.blocks.IsConversationBlocked(ctx, callerID, conversationID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if blocked {
			return nil, domain.ErrBlocked
		}
	}
	ok, retryAfter, err := s.limiter.Allow(ctx, callerID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !ok {
		span.SetAttributes(attribute.String("retry_after", retryAfter.String()))
		return nil, domain.ErrCallCooldown
	}

	now := s.now()
	call := &domain.Call{
		ID:             uuid.New(),
		ConversationID: conversationID,
		CallerID:       callerID,
		CalleeIDs:      callees,
		Type:           typ,
		Status:         domain.CallRinging,
		Metadata:       metadata,
		StartedAt:      now,
	}
	if err := s.repo.Create(ctx, call); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist call failed")
		return nil, err
	}
	st := &callState{call: call}
	s.mu.Lock()
	s.calls[call.ID] = st
	s.mu.Unlock()
	st.mu.Lock()
	st.timer = s.sched.Schedule(s.ringTimeout, func() { s.expire(call.ID) })
	st.mu.Unlock()
	if err := s.limiter.Record(ctx, callerID); err != nil {
		s.log.ErrorContext(ctx, "calls - start - record cooldown failed", "caller_id", callerID, "err", err)
	}
	s.log.InfoContext(ctx, "calls - start - ringing", "call_id", call.ID.String(), "conv_id", conversationID.String(), "caller_id", callerID, "callees", len(callees))

	event := domain.CallRingingEvent{
		Type:      domain.TypeCallRinging,
		CallID:    call.ID.String(),
		ChatID:    conversationID.String(),
		CallType:  typ,
		CallerID:  callerID,
		CalleeIDs: callees,
		Metadata:  metadata,
		Timestamp: now,
	}
	for _, callee := range callees {
		s.bcast.ToUser(ctx, callee, event)
	}
	s.bcast.ToConversation(ctx, conversationID, event)
	s.bcast.ToUserOthers(ctx, callerID, from, event)
	snapshot := *call
	return &snapshot, nil
}

// Accept moves a ringing call to accepted, cancels the ring timer, and
// broadcasts call-accepted to all participants.
func (s *CallService) Accept(ctx context.Context, callID uuid.UUID, actingUserID string) error {
	call, err := s.transition(ctx, callID, actingUserID, domain.CallAccepted, true)
	if err != nil {
		return err
	}
	s.broadcastToParticipants(ctx, call, domain.CallAcceptedEvent{
		Type:      domain.TypeCallAccepted,
		CallID:    call.ID.String(),
		UserID:    actingUserID,
		Timestamp: *call.AcceptedAt,
	})
	return nil
}

// Reject moves a ringing call to rejected.
func (s *CallService) Reject(ctx context.Context, callID uuid.UUID, actingUserID string) error {
	call, err := s.transition(ctx, callID, actingUserID, domain.CallRejected, true)
	if err != nil {
		return err
	}
	s.broadcastToParticipants(ctx, call, domain.CallRejectedEvent{
		Type:      domain.TypeCallRejected,
		CallID:    call.ID.String(),
		UserID:    actingUserID,
		Timestamp: *call.EndedAt,
	})
	return nil
}

// End finishes a call. An accepted call gains its duration; ending a
// call that never left ringing records a zero duration.
func (s *CallService) End(ctx context.Context, callID uuid.UUID, actingUserID string) error {
	call, err := s.transition(ctx, callID, actingUserID, domain.CallEnded, false)
	if err != nil {
		return err
	}
	s.broadcastToParticipants(ctx, call, domain.CallEndedEvent{
		Type:       domain.TypeCallEnded,
		CallID:     call.ID.String(),
		DurationMS: call.Duration.Milliseconds(),
		EndedBy:    actingUserID,
		Timestamp:  *call.EndedAt,
	})
	return nil
}

// MarkMissed is the explicit caller-giving-up path. It carries the
// same ringing-only guard as the timer fire: terminal states are never
// left, so marking an already-accepted call missed is a state
// conflict, not an override.
func (s *CallService) MarkMissed(ctx context.Context, callID uuid.UUID, actingUserID string) error {
	call, err := s.transition(ctx, callID, actingUserID, domain.CallMissed, true)
	if err != nil {
		return err
	}
	s.broadcastToParticipants(ctx, call, domain.CallMissedEvent{
		Type:      domain.TypeCallMissed,
		CallID:    call.ID.String(),
		ChatID:    call.ConversationID.String(),
		Timestamp: *call.EndedAt,
	})
	return nil
}

// expire is the timer-fire path. It acts only if the call is still
// ringing at fire time; losing the race to an accept or reject is an
// expected outcome, not a fault, so every error aborts silently.
func (s *CallService) expire(callID uuid.UUID) {
	ctx := context.Background()
	call, err := s.transition(ctx, callID, "", domain.CallMissed, true)
	if err != nil {
		return
	}
	s.log.Info("calls - expire - ring timeout fired", "call_id", callID.String())
	s.broadcastToParticipants(ctx, call, domain.CallMissedEvent{
		Type:      domain.TypeCallMissed,
		CallID:    call.ID.String(),
		ChatID:    call.ConversationID.String(),
		Timestamp: *call.EndedAt,
	})
}

// transition is the single status-change path shared by user actions
// and the timer fire, so the guards hold identically either way.
// actingUserID is empty for the timer. requireRinging rejects any call
// that already left ringing; without it only the terminal guard
// applies.
func (s *CallService) transition(ctx context.Context, callID uuid.UUID, actingUserID string, to domain.CallStatus, requireRinging bool) (*domain.Call, error) {
	if callID == uuid.Nil {
		return nil, domain.ErrInvalidCallID
	}
	s.mu.RLock()
	st := s.calls[callID]
	s.mu.RUnlock()
	if st == nil {
		// Live state is gone: either the id is unknown, or the call
		// reached a terminal status and was evicted. The persisted
		// record tells the two apart.
		if _, err := s.repo.GetCall(ctx, callID); err == nil {
			return nil, domain.ErrCallAlreadyHandled
		}
		return nil, domain.ErrCallNotFound
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	call := st.call
	if actingUserID != "" && !call.HasParticipant(actingUserID) {
		return nil, domain.ErrNotParticipant
	}
	if call.Status.Terminal() {
		return nil, domain.ErrCallAlreadyHandled
	}
	if requireRinging && call.Status != domain.CallRinging {
		return nil, domain.ErrCallAlreadyHandled
	}
	now := s.now()
	call.Status = to
	switch to {
	case domain.CallAccepted:
		call.AcceptedAt = &now
	case domain.CallEnded:
		call.EndedAt = &now
		if call.AcceptedAt != nil {
			call.Duration = now.Sub(*call.AcceptedAt)
		}
	case domain.CallRejected, domain.CallMissed:
		call.EndedAt = &now
	}
	if st.timer != nil {
		st.timer.Cancel()
		st.timer = nil
	}
	// The in-memory status is already visible to concurrent actors;
	// the record update may block without widening the race window.
	if err := s.repo.UpdateStatus(ctx, call); err != nil {
		s.log.ErrorContext(ctx, "calls - transition - persist status failed", "call_id", callID.String(), "status", string(to), "err", err)
	}
	if call.Status.Terminal() {
		s.mu.Lock()
		delete(s.calls, callID)
		s.mu.Unlock()
	}
	snapshot := *call
	return &snapshot, nil
}

func (s *CallService) broadcastToParticipants(ctx context.Context, call *domain.Call, event any) {
	for _, userID := range call.Participants() {
		s.bcast.ToUser(ctx, userID, event)
	}
}

package services

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RohanSantra/Connecto-sub000/internal/app/registry"
	"github.com/RohanSantra/Connecto-sub000/internal/core/contracts"
	"github.com/RohanSantra/Connecto-sub000/internal/core/domain"
)

var presenceTracer = otel.Tracer("presence-service")

// Sweeper replays delivery receipts for a user who just came online.
type Sweeper interface {
	Sweep(ctx context.Context, userID string) error
}

// PresenceService owns the online/offline transitions. It is the only
// writer of the persisted online flag, which is what keeps racing
// connect/disconnect commands from producing a wrong flag: the
// registry decides first-in/last-out under its lock, and everything
// downstream of that decision happens here.
type PresenceService struct {
	registry *registry.Registry
	status   domain.UserStatusRepository
	mirror   contracts.PresenceStore
	bcast    contracts.Broadcaster
	sweeper  Sweeper
	log      *slog.Logger
	now      func() time.Time
}

func NewPresenceService(
	log *slog.Logger,
	reg *registry.Registry,
	status domain.UserStatusRepository,
	mirror contracts.PresenceStore,
	bcast contracts.Broadcaster,
	sweeper Sweeper,
) *PresenceService {
	return &PresenceService{
		log:      log,
		registry: reg,
		status:   status,
		mirror:   mirror,
		bcast:    bcast,
		sweeper:  sweeper,
		now:      time.Now,
	}
}

// HandleConnect registers the connection. On the user's first
// connection it persists online=true, mirrors the flag, broadcasts
// presence-changed, and kicks the offline delivery sweep.
func (p *PresenceService) HandleConnect(ctx context.Context, c contracts.Client) {
	ctx, span := presenceTracer.Start(ctx, "PresenceService.HandleConnect", trace.WithAttributes(
		attribute.String("user_id", c.UserID()),
		attribute.String("conn_id", c.ID().String()),
	))
	defer span.End()
	first := p.registry.Register(c)
	p.log.InfoContext(ctx, "presence - handle connect - connection registered", "user_id", c.UserID(), "conn_id", c.ID().String(), "first", first)
	if !first {
		return
	}
	now := p.now()
	if err := p.status.SetOnline(ctx, c.UserID(), true, now); err != nil {
		span.RecordError(err)
		p.log.ErrorContext(ctx, "presence - handle connect - persist online failed", "user_id", c.UserID(), "err", err)
	}
	if err := p.mirror.SetOnline(ctx, c.UserID()); err != nil {
		p.log.ErrorContext(ctx, "presence - handle connect - mirror online failed", "user_id", c.UserID(), "err", err)
	}
	p.bcast.ToAll(ctx, domain.PresenceChangedEvent{
		Type:       domain.TypePresenceChanged,
		UserID:     c.UserID(),
		IsOnline:   true,
		LastSeenAt: now,
	})
	// Replay pending delivery receipts off the connect path; the sweep
	// publishes its own events as entries land.
	sweepCtx := context.WithoutCancel(ctx)
	go func() {
		if err := p.sweeper.Sweep(sweepCtx, c.UserID()); err != nil {
			p.log.ErrorContext(sweepCtx, "presence - handle connect - offline sweep failed", "user_id", c.UserID(), "err", err)
		}
	}()
}

// HandleDisconnect unregisters the connection. On last-connection-out
// it persists last-seen and online=false and broadcasts the offline
// transition; otherwise it notifies only the user's other connections.
func (p *PresenceService) HandleDisconnect(ctx context.Context, c contracts.Client) {
	ctx, span := presenceTracer.Start(ctx, "PresenceService.HandleDisconnect", trace.WithAttributes(
		attribute.String("user_id", c.UserID()),
		attribute.String("conn_id", c.ID().String()),
	))
	defer span.End()
	last := p.registry.Unregister(c)
	p.log.InfoContext(ctx, "presence - handle disconnect - connection removed", "user_id", c.UserID(), "conn_id", c.ID().String(), "last", last)
	now := p.now()
	if !last {
		p.bcast.ToUserOthers(ctx, c.UserID(), c.ID(), domain.DeviceOfflineEvent{
			Type:     domain.TypeDeviceOffline,
			UserID:   c.UserID(),
			DeviceID: c.DeviceID(),
		})
		return
	}
	if err := p.status.SetOnline(ctx, c.UserID(), false, now); err != nil {
		span.RecordError(err)
		p.log.ErrorContext(ctx, "presence - handle disconnect - persist offline failed", "user_id", c.UserID(), "err", err)
	}
	if err := p.mirror.SetOffline(ctx, c.UserID(), now); err != nil {
		p.log.ErrorContext(ctx, "presence - handle disconnect - mirror offline failed", "user_id", c.UserID(), "err", err)
	}
	p.bcast.ToAll(ctx, domain.PresenceChangedEvent{
		Type:       domain.TypePresenceChanged,
		UserID:     c.UserID(),
		IsOnline:   false,
		LastSeenAt: now,
	})
}

// IsOnline reads the local registry; the redis mirror serves readers
// on other nodes.
func (p *PresenceService) IsOnline(userID string) bool {
	return p.registry.IsOnline(userID)
}

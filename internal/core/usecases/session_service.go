package usecases

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/ports"
	"github.com/becomap/becomap-go/pkg/becomap"
)

// SessionService tracks live bridge sessions and answers health
// checks. Session telemetry goes to the event bus best-effort; a
// broker outage never fails a bridge operation.
type SessionService struct {
	publisher ports.EventPublisher
	version   string
	startedAt time.Time
	active    atomic.Int64
}

func NewSessionService(publisher ports.EventPublisher, version string) *SessionService {
	return &SessionService{
		publisher: publisher,
		version:   version,
		startedAt: time.Now(),
	}
}

// SessionOpened records a new bridge session.
func (s *SessionService) SessionOpened(ctx context.Context, sessionID string) {
	s.active.Add(1)
	s.publish(ctx, sessionID, "", domain.SessionOpened, "", "")
}

// SessionClosed records a bridge session ending.
func (s *SessionService) SessionClosed(ctx context.Context, sessionID, siteID string) {
	s.active.Add(-1)
	s.publish(ctx, sessionID, siteID, domain.SessionClosed, "", "")
}

// RecordOperation records a handled bridge operation.
func (s *SessionService) RecordOperation(ctx context.Context, sessionID, siteID, operation string) {
	s.publish(ctx, sessionID, siteID, domain.SessionOperation, operation, "")
}

// RecordError records an error surfaced to a bridge client.
func (s *SessionService) RecordError(ctx context.Context, sessionID, siteID, operation, code string) {
	s.publish(ctx, sessionID, siteID, domain.SessionError, operation, code)
}

func (s *SessionService) publish(ctx context.Context, sessionID, siteID, kind, operation, code string) {
	if s.publisher == nil {
		return
	}
	_ = s.publisher.PublishSessionEvent(ctx, &domain.SessionEvent{
		SessionID:  sessionID,
		SiteID:     siteID,
		Kind:       kind,
		Operation:  operation,
		ErrorCode:  code,
		OccurredAt: time.Now(),
	})
}

// ActiveSessions returns the current live session count.
func (s *SessionService) ActiveSessions() int {
	return int(s.active.Load())
}

// Health reports engine health in the shape bridge clients receive
// from a healthCheck call.
func (s *SessionService) Health() becomap.HealthStatus {
	return becomap.HealthStatus{
		Status:   "healthy",
		Version:  s.version,
		Uptime:   time.Since(s.startedAt).Round(time.Second).String(),
		Sessions: s.ActiveSessions(),
	}
}

package ports

import (
	"context"

	"github.com/becomap/becomap-go/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishSiteRefresh(ctx context.Context, ref *domain.SiteRefresh) error
	PublishSessionEvent(ctx context.Context, ev *domain.SessionEvent) error
	PublishBroadcast(ctx context.Context, data []byte) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeSiteRefresh(ctx context.Context, handler func(ctx context.Context, ref *domain.SiteRefresh) error) error
	SubscribeSessionEvents(ctx context.Context, handler func(ctx context.Context, ev *domain.SessionEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// NotificationService informs venue operators of publish outcomes.
type NotificationService interface {
	NotifyPublished(ctx context.Context, siteID string, version int) error
}

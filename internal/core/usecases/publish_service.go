package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/ports"
)

// PublishService takes a venue bundle live: persists the aggregate,
// drops stale cache entries and announces the refresh so attached
// bridge sessions reload. The publish workflow drives these steps and
// compensates with Withdraw when a later step fails.
type PublishService struct {
	sites      ports.SiteRepository
	locations  ports.LocationRepository
	categories ports.CategoryRepository
	connectors ports.ConnectorRepository
	venues     *VenueService
	publisher  ports.EventPublisher
}

func NewPublishService(
	sites ports.SiteRepository,
	locations ports.LocationRepository,
	categories ports.CategoryRepository,
	connectors ports.ConnectorRepository,
	venues *VenueService,
	publisher ports.EventPublisher,
) *PublishService {
	return &PublishService{
		sites:      sites,
		locations:  locations,
		categories: categories,
		connectors: connectors,
		venues:     venues,
		publisher:  publisher,
	}
}

// ValidateBundle checks a bundle before any write happens.
func (s *PublishService) ValidateBundle(ctx context.Context, bundle *domain.Bundle) error {
	return bundle.Validate()
}

// PersistBundle writes the full aggregate. The site row carries the
// version; a bundle that loses a version race is rejected upstream by
// the repository's version guard.
func (s *PublishService) PersistBundle(ctx context.Context, bundle *domain.Bundle) error {
	if err := s.sites.Upsert(ctx, &bundle.Site); err != nil {
		return fmt.Errorf("upsert site %s: %w", bundle.Site.ID, err)
	}
	if len(bundle.Site.Categories) > 0 {
		if err := s.categories.UpsertBatch(ctx, bundle.Site.Categories); err != nil {
			return fmt.Errorf("upsert categories for %s: %w", bundle.Site.ID, err)
		}
	}
	if len(bundle.Locations) > 0 {
		if err := s.locations.UpsertBatch(ctx, bundle.Locations); err != nil {
			return fmt.Errorf("upsert locations for %s: %w", bundle.Site.ID, err)
		}
	}
	if len(bundle.Connectors) > 0 {
		if err := s.connectors.UpsertBatch(ctx, bundle.Connectors); err != nil {
			return fmt.Errorf("upsert connectors for %s: %w", bundle.Site.ID, err)
		}
	}
	return nil
}

// InvalidateCache drops the cached reads for the site so the next
// bundle load sees the new version.
func (s *PublishService) InvalidateCache(ctx context.Context, siteID string) error {
	s.venues.InvalidateSite(ctx, siteID)
	return nil
}

// Announce publishes the site refresh event. Bridge sessions attached
// to the site relay it to their clients.
func (s *PublishService) Announce(ctx context.Context, siteID string, version int, reason string) error {
	if s.publisher == nil {
		return nil
	}
	return s.publisher.PublishSiteRefresh(ctx, &domain.SiteRefresh{
		SiteID:     siteID,
		Version:    version,
		Reason:     reason,
		OccurredAt: time.Now(),
	})
}

// Withdraw rolls a failed publish back to the previous version by
// restoring the prior site row and dropping the cache again.
func (s *PublishService) Withdraw(ctx context.Context, previous *domain.Site) error {
	if previous == nil {
		return nil
	}
	if err := s.sites.Upsert(ctx, previous); err != nil {
		return fmt.Errorf("restore site %s: %w", previous.ID, err)
	}
	s.venues.InvalidateSite(ctx, previous.ID)
	return nil
}

package workflows

import (
	"context"
	"fmt"
	"log"

	"github.com/becomap/becomap-go/internal/core/domain"
	"github.com/becomap/becomap-go/internal/core/ports"
	"github.com/becomap/becomap-go/internal/core/usecases"
)

// PublishActivities holds the activity implementations for the venue
// publish workflow.
type PublishActivities struct {
	Publish  *usecases.PublishService
	Sites    ports.SiteRepository
	Notifier ports.NotificationService
}

// ValidateBundle checks bundle invariants before anything is written.
func (a *PublishActivities) ValidateBundle(ctx context.Context, bundle *domain.Bundle) error {
	if err := a.Publish.ValidateBundle(ctx, bundle); err != nil {
		return fmt.Errorf("validate bundle %s: %w", bundle.Site.ID, err)
	}
	return nil
}

// SnapshotSite returns the currently published site, or nil for a
// first publish. Lookup failures also report nil: rollback then has
// nothing to restore, which matches a fresh site.
func (a *PublishActivities) SnapshotSite(ctx context.Context, siteID string) (*domain.Site, error) {
	site, err := a.Sites.GetByID(ctx, siteID)
	if err != nil {
		log.Printf("no snapshot for site %s: %v", siteID, err)
		return nil, nil
	}
	return site, nil
}

// PersistBundle writes the full aggregate.
func (a *PublishActivities) PersistBundle(ctx context.Context, bundle *domain.Bundle) error {
	if err := a.Publish.PersistBundle(ctx, bundle); err != nil {
		return fmt.Errorf("persist bundle %s: %w", bundle.Site.ID, err)
	}
	return nil
}

// InvalidateSiteCache drops cached site reads.
func (a *PublishActivities) InvalidateSiteCache(ctx context.Context, siteID string) error {
	return a.Publish.InvalidateCache(ctx, siteID)
}

// AnnounceRefresh publishes the site refresh event to the broker.
func (a *PublishActivities) AnnounceRefresh(ctx context.Context, siteID string, version int, reason string) error {
	if err := a.Publish.Announce(ctx, siteID, version, reason); err != nil {
		return fmt.Errorf("announce site %s: %w", siteID, err)
	}
	return nil
}

// RestoreSite rolls back to a snapshot (saga compensation).
func (a *PublishActivities) RestoreSite(ctx context.Context, previous *domain.Site) error {
	if previous == nil {
		return nil
	}
	if err := a.Publish.Withdraw(ctx, previous); err != nil {
		return fmt.Errorf("restore site %s: %w", previous.ID, err)
	}
	log.Printf("site %s restored to version %d (saga compensation)", previous.ID, previous.Version)
	return nil
}

// NotifyPublished informs venue operators of a completed publish.
func (a *PublishActivities) NotifyPublished(ctx context.Context, siteID string, version int) error {
	if a.Notifier == nil {
		log.Printf("PUBLISHED (no notifier) → site=%s version=%d", siteID, version)
		return nil
	}
	return a.Notifier.NotifyPublished(ctx, siteID, version)
}

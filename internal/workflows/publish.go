package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/becomap/becomap-go/internal/core/domain"
)

// PublishInput is the input for the venue publish workflow.
type PublishInput struct {
	Bundle *domain.Bundle
	Reason string
}

// PublishWorkflow takes a venue bundle live: validate, snapshot the
// current site for rollback, persist, drop caches, announce. If the
// announce fails the site is restored to the snapshot (saga
// compensation), because sessions must never observe a version that
// was not announced.
func PublishWorkflow(ctx workflow.Context, input PublishInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting venue publish workflow",
		"siteId", input.Bundle.Site.ID, "version", input.Bundle.Site.Version)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Validate before any write
	if err := workflow.ExecuteActivity(ctx, "ValidateBundle", input.Bundle).Get(ctx, nil); err != nil {
		return err
	}

	// Step 2: Snapshot the live site for rollback
	var previous *domain.Site
	_ = workflow.ExecuteActivity(ctx, "SnapshotSite", input.Bundle.Site.ID).Get(ctx, &previous)

	// Step 3: Persist the aggregate
	if err := workflow.ExecuteActivity(ctx, "PersistBundle", input.Bundle).Get(ctx, nil); err != nil {
		return err
	}

	// Step 4: Drop stale cached reads
	if err := workflow.ExecuteActivity(ctx, "InvalidateSiteCache", input.Bundle.Site.ID).Get(ctx, nil); err != nil {
		return err
	}

	// Step 5: Announce the refresh to live sessions
	err := workflow.ExecuteActivity(ctx, "AnnounceRefresh",
		input.Bundle.Site.ID, input.Bundle.Site.Version, input.Reason).Get(ctx, nil)
	if err != nil {
		logger.Warn("announce failed, restoring previous site version", "error", err)
		// Compensate: roll the site back to the snapshot
		_ = workflow.ExecuteActivity(ctx, "RestoreSite", previous).Get(ctx, nil)
		return err
	}

	// Step 6: Notify operators (best-effort)
	_ = workflow.ExecuteActivity(ctx, "NotifyPublished",
		input.Bundle.Site.ID, input.Bundle.Site.Version).Get(ctx, nil)

	logger.Info("Venue published", "siteId", input.Bundle.Site.ID, "version", input.Bundle.Site.Version)
	return nil
}

package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/groupcart/groupcart-backend/internal/campaigns"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

type expiredGraceReader interface {
	FindGraceExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.Campaign, error)
}

type campaignLocker interface {
	Lock(ctx context.Context, campaignID uuid.UUID, actor *campaigns.ActorInput) error
}

// FinalizeJobParams configure the grace-deadline scheduler.
type FinalizeJobParams struct {
	Logger    *logger.Logger
	Reader    expiredGraceReader
	Campaigns campaignLocker
}

// NewFinalizeJob builds the cron job that locks campaigns once their grace
// period deadline passes. Locked campaigns accept no further pledge changes;
// the supplier closes them out manually from there.
func NewFinalizeJob(params FinalizeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("campaign reader required")
	}
	if params.Campaigns == nil {
		return nil, fmt.Errorf("campaign service required")
	}
	return &finalizeJob{
		logg:      params.Logger,
		reader:    params.Reader,
		campaigns: params.Campaigns,
		now:       time.Now,
	}, nil
}

type finalizeJob struct {
	logg      *logger.Logger
	reader    expiredGraceReader
	campaigns campaignLocker
	now       func() time.Time
}

func (j *finalizeJob) Name() string { return "campaign-finalize" }

func (j *finalizeJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.reader.FindGraceExpiredBefore(ctx, now)
	if err != nil {
		return fmt.Errorf("query expired grace periods: %w", err)
	}

	var errs []error
	count := 0
	for _, campaign := range due {
		if err := j.campaigns.Lock(ctx, campaign.ID, nil); err != nil {
			errs = append(errs, fmt.Errorf("lock campaign %s: %w", campaign.ID, err))
			continue
		}
		count++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"due": len(due), "locked": count})
	j.logg.Info(logCtx, "campaign finalize sweep complete")
	return multierr.Combine(errs...)
}

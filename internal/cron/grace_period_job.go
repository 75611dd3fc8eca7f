package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

const defaultGraceWindow = 48 * time.Hour

type endedCampaignReader interface {
	FindActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Campaign, error)
}

type gracePeriodStarter interface {
	StartGracePeriod(ctx context.Context, campaignID uuid.UUID, graceEnd time.Time) error
}

// GracePeriodJobParams configure the end-date scheduler.
type GracePeriodJobParams struct {
	Logger      *logger.Logger
	Reader      endedCampaignReader
	Campaigns   gracePeriodStarter
	GraceWindow time.Duration
}

// NewGracePeriodJob builds the cron job that moves active campaigns whose
// end date has passed into their grace period.
func NewGracePeriodJob(params GracePeriodJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("campaign reader required")
	}
	if params.Campaigns == nil {
		return nil, fmt.Errorf("campaign service required")
	}
	window := params.GraceWindow
	if window <= 0 {
		window = defaultGraceWindow
	}
	return &gracePeriodJob{
		logg:      params.Logger,
		reader:    params.Reader,
		campaigns: params.Campaigns,
		window:    window,
		now:       time.Now,
	}, nil
}

type gracePeriodJob struct {
	logg      *logger.Logger
	reader    endedCampaignReader
	campaigns gracePeriodStarter
	window    time.Duration
	now       func() time.Time
}

func (j *gracePeriodJob) Name() string { return "campaign-grace-period" }

func (j *gracePeriodJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	due, err := j.reader.FindActiveEndedBefore(ctx, now)
	if err != nil {
		return fmt.Errorf("query ended campaigns: %w", err)
	}

	var errs []error
	count := 0
	for _, campaign := range due {
		// The commitment deadline is anchored to the campaign's end date,
		// not to when this job happened to run.
		graceEnd := campaign.EndDate.UTC().Add(j.window)
		if err := j.campaigns.StartGracePeriod(ctx, campaign.ID, graceEnd); err != nil {
			errs = append(errs, fmt.Errorf("start grace period %s: %w", campaign.ID, err))
			continue
		}
		count++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"due": len(due), "transitioned": count})
	j.logg.Info(logCtx, "grace period sweep complete")
	return multierr.Combine(errs...)
}

package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/internal/campaigns"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

type fakeGraceExpiredReader struct {
	campaigns []models.Campaign
	err       error
}

func (f *fakeGraceExpiredReader) FindGraceExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.Campaign, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.campaigns, nil
}

type fakeLocker struct {
	locked []uuid.UUID
	errBy  map[uuid.UUID]error
}

func (f *fakeLocker) Lock(ctx context.Context, campaignID uuid.UUID, actor *campaigns.ActorInput) error {
	if err, ok := f.errBy[campaignID]; ok {
		return err
	}
	if actor != nil {
		return errors.New("scheduler locks must not carry an actor")
	}
	f.locked = append(f.locked, campaignID)
	return nil
}

func newFinalizeJob(t *testing.T, reader *fakeGraceExpiredReader, locker *fakeLocker) *finalizeJob {
	t.Helper()
	job, err := NewFinalizeJob(FinalizeJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test"}),
		Reader:    reader,
		Campaigns: locker,
	})
	if err != nil {
		t.Fatalf("build job: %v", err)
	}
	return job.(*finalizeJob)
}

func TestFinalizeJob_LocksExpiredCampaigns(t *testing.T) {
	first := models.Campaign{ID: uuid.New()}
	second := models.Campaign{ID: uuid.New()}
	reader := &fakeGraceExpiredReader{campaigns: []models.Campaign{first, second}}
	locker := &fakeLocker{}

	job := newFinalizeJob(t, reader, locker)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(locker.locked) != 2 {
		t.Fatalf("expected 2 locks, got %d", len(locker.locked))
	}
}

func TestFinalizeJob_AggregatesFailures(t *testing.T) {
	failing := models.Campaign{ID: uuid.New()}
	healthy := models.Campaign{ID: uuid.New()}
	reader := &fakeGraceExpiredReader{campaigns: []models.Campaign{failing, healthy}}
	locker := &fakeLocker{errBy: map[uuid.UUID]error{failing.ID: errors.New("boom")}}

	job := newFinalizeJob(t, reader, locker)
	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(locker.locked) != 1 || locker.locked[0] != healthy.ID {
		t.Fatalf("expected healthy campaign locked, got %v", locker.locked)
	}
}

func TestFinalizeJob_ReaderFailure(t *testing.T) {
	reader := &fakeGraceExpiredReader{err: errors.New("db down")}
	job := newFinalizeJob(t, reader, &fakeLocker{})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

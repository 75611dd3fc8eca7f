package pledges

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/internal/campaigns"
	"github.com/groupcart/groupcart-backend/internal/tiering"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/outbox"
	"github.com/groupcart/groupcart-backend/pkg/outbox/payloads"
	"github.com/groupcart/groupcart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateInput carries a buyer's quantity commitment on a campaign.
type CreateInput struct {
	CampaignID uuid.UUID
	BuyerOrgID uuid.UUID
	UserID     uuid.UUID
	Quantity   int64
}

// Service defines pledge operations across the campaign lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Pledge, error)
	Withdraw(ctx context.Context, pledgeID, buyerOrgID, userID uuid.UUID) error
	Commit(ctx context.Context, pledgeID, buyerOrgID, userID uuid.UUID) (*models.Pledge, error)
	Get(ctx context.Context, pledgeID uuid.UUID) (*models.Pledge, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Pledge, error)
	ListByBuyer(ctx context.Context, buyerOrgID uuid.UUID, params pagination.Params) ([]models.Pledge, string, error)
}

type service struct {
	repo      Repository
	campaigns campaigns.Repository
	tx        txRunner
	outbox    outboxPublisher
}

// NewService builds a pledge service with the required dependencies.
func NewService(repo Repository, campaignRepo campaigns.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pledges repository required")
	}
	if campaignRepo == nil {
		return nil, fmt.Errorf("campaigns repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		campaigns: campaignRepo,
		tx:        tx,
		outbox:    outboxSvc,
	}, nil
}

// Create records a pledge and, when the added quantity pushes the campaign
// into a deeper bracket, emits campaign_tier_advanced. The campaign row lock
// serializes concurrent pledges so the advance fires exactly once per tier.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Pledge, error) {
	if input.CampaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	if input.BuyerOrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer organization context missing")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var created *models.Pledge
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		campaignRepo := s.campaigns.WithTx(tx)
		repo := s.repo.WithTx(tx)

		campaign, err := s.lockCampaign(ctx, campaignRepo, input.CampaignID)
		if err != nil {
			return err
		}
		if !tiering.CanAcceptPledges(campaign.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign is not accepting pledges")
		}

		existing, err := repo.FindByCampaign(ctx, campaign.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pledges")
		}
		before := tiering.Resolve(
			tiering.AggregatePledges(existing, tiering.ExcludeWithdrawn).TotalQuantity,
			campaign.Brackets,
		)

		pledge := &models.Pledge{
			CampaignID: campaign.ID,
			BuyerOrgID: input.BuyerOrgID,
			Quantity:   input.Quantity,
			Status:     enums.PledgeStatusPending,
		}
		if _, err := repo.Create(ctx, pledge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pledge")
		}
		created = pledge

		event := outbox.DomainEvent{
			EventType:     enums.EventPledgeCreated,
			AggregateType: enums.AggregatePledge,
			AggregateID:   pledge.ID,
			Version:       1,
			Actor:         actorRef(input.UserID, input.BuyerOrgID),
			Data: payloads.PledgeCreatedEvent{
				PledgeID:   pledge.ID,
				CampaignID: campaign.ID,
				BuyerOrgID: input.BuyerOrgID,
				Quantity:   input.Quantity,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit pledge event")
		}

		after := tiering.Resolve(
			tiering.AggregatePledges(append(existing, *pledge), tiering.ExcludeWithdrawn).TotalQuantity,
			campaign.Brackets,
		)
		return s.maybeEmitTierAdvanced(ctx, tx, campaign, before, after, existing, *pledge)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Withdraw(ctx context.Context, pledgeID, buyerOrgID, userID uuid.UUID) error {
	if pledgeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "pledge id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		campaignRepo := s.campaigns.WithTx(tx)

		pledge, err := s.loadOwnedForUpdate(ctx, repo, pledgeID, buyerOrgID)
		if err != nil {
			return err
		}
		if pledge.Status == enums.PledgeStatusWithdrawn {
			return nil
		}
		if pledge.Status == enums.PledgeStatusCommitted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "committed pledges cannot be withdrawn")
		}

		campaign, err := s.lockCampaign(ctx, campaignRepo, pledge.CampaignID)
		if err != nil {
			return err
		}
		if campaign.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign no longer accepts pledge changes")
		}

		if err := repo.Update(ctx, pledge.ID, map[string]any{
			"status": enums.PledgeStatusWithdrawn,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "withdraw pledge")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPledgeWithdrawn,
			AggregateType: enums.AggregatePledge,
			AggregateID:   pledge.ID,
			Version:       1,
			Actor:         actorRef(userID, buyerOrgID),
			Data: payloads.PledgeWithdrawnEvent{
				PledgeID:    pledge.ID,
				CampaignID:  pledge.CampaignID,
				BuyerOrgID:  pledge.BuyerOrgID,
				Quantity:    pledge.Quantity,
				WithdrawnAt: time.Now().UTC(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit withdraw event")
		}
		return nil
	})
}

// Commit finalizes a pledge at the campaign's current unit price. It is only
// legal during the grace period and stamps CommittedAt exactly once; a
// repeat commit of the same pledge is a no-op.
func (s *service) Commit(ctx context.Context, pledgeID, buyerOrgID, userID uuid.UUID) (*models.Pledge, error) {
	if pledgeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pledge id required")
	}

	var committed *models.Pledge
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		campaignRepo := s.campaigns.WithTx(tx)

		pledge, err := s.loadOwnedForUpdate(ctx, repo, pledgeID, buyerOrgID)
		if err != nil {
			return err
		}
		if pledge.Status == enums.PledgeStatusCommitted {
			committed = pledge
			return nil
		}
		if pledge.Status == enums.PledgeStatusWithdrawn {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawn pledges cannot be committed")
		}

		campaign, err := s.lockCampaign(ctx, campaignRepo, pledge.CampaignID)
		if err != nil {
			return err
		}
		if !tiering.CanCommitPledges(campaign.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pledges can only be committed during the grace period")
		}

		all, err := repo.FindByCampaign(ctx, campaign.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pledges")
		}
		resolution := tiering.Resolve(
			tiering.AggregatePledges(all, tiering.ExcludeWithdrawn).TotalQuantity,
			campaign.Brackets,
		)
		if resolution.Current == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign volume has not reached any price bracket")
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, pledge.ID, map[string]any{
			"status":       enums.PledgeStatusCommitted,
			"committed_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "commit pledge")
		}
		pledge.Status = enums.PledgeStatusCommitted
		pledge.CommittedAt = &now
		committed = pledge

		event := outbox.DomainEvent{
			EventType:     enums.EventPledgeCommitted,
			AggregateType: enums.AggregatePledge,
			AggregateID:   pledge.ID,
			Version:       1,
			Actor:         actorRef(userID, buyerOrgID),
			Data: payloads.PledgeCommittedEvent{
				PledgeID:    pledge.ID,
				CampaignID:  pledge.CampaignID,
				BuyerOrgID:  pledge.BuyerOrgID,
				Quantity:    pledge.Quantity,
				UnitPrice:   resolution.Current.UnitPrice,
				CommittedAt: now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit commit event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return committed, nil
}

func (s *service) Get(ctx context.Context, pledgeID uuid.UUID) (*models.Pledge, error) {
	if pledgeID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pledge id required")
	}
	pledge, err := s.repo.FindByID(ctx, pledgeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pledge not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pledge")
	}
	return pledge, nil
}

func (s *service) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Pledge, error) {
	if campaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	pledges, err := s.repo.FindByCampaign(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pledges")
	}
	return pledges, nil
}

func (s *service) ListByBuyer(ctx context.Context, buyerOrgID uuid.UUID, params pagination.Params) ([]models.Pledge, string, error) {
	if buyerOrgID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "buyer organization id required")
	}
	rows, err := s.repo.ListByBuyer(ctx, buyerOrgID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pledges")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, next, nil
}

// maybeEmitTierAdvanced fires when the resolved bracket after a pledge is
// deeper than the one before it.
func (s *service) maybeEmitTierAdvanced(ctx context.Context, tx *gorm.DB, campaign *models.Campaign, before, after tiering.Resolution, existing []models.Pledge, pledge models.Pledge) error {
	if after.Current == nil {
		return nil
	}
	if before.Current != nil && before.Current.MinQuantity >= after.Current.MinQuantity {
		return nil
	}

	var prevID *uuid.UUID
	if before.Current != nil {
		id := before.Current.ID
		prevID = &id
	}
	total := tiering.AggregatePledges(append(existing, pledge), tiering.ExcludeWithdrawn).TotalQuantity

	event := outbox.DomainEvent{
		EventType:     enums.EventCampaignTierAdvanced,
		AggregateType: enums.AggregateCampaign,
		AggregateID:   campaign.ID,
		Version:       1,
		Data: payloads.CampaignTierAdvancedEvent{
			CampaignID:    campaign.ID,
			SupplierID:    campaign.SupplierID,
			BracketID:     after.Current.ID,
			MinQuantity:   after.Current.MinQuantity,
			UnitPrice:     after.Current.UnitPrice,
			TotalQuantity: total,
			PrevBracketID: prevID,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit tier event")
	}
	return nil
}

func (s *service) lockCampaign(ctx context.Context, repo campaigns.Repository, campaignID uuid.UUID) (*models.Campaign, error) {
	campaign, err := repo.FindByIDForUpdate(ctx, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
	}
	return campaign, nil
}

func (s *service) loadOwnedForUpdate(ctx context.Context, repo Repository, pledgeID, buyerOrgID uuid.UUID) (*models.Pledge, error) {
	pledge, err := repo.FindByIDForUpdate(ctx, pledgeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pledge not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pledge")
	}
	if buyerOrgID != uuid.Nil && pledge.BuyerOrgID != buyerOrgID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "pledge does not belong to organization")
	}
	return pledge, nil
}

func actorRef(userID, orgID uuid.UUID) *outbox.ActorRef {
	org := orgID
	return &outbox.ActorRef{
		UserID: userID,
		OrgID:  &org,
		Role:   string(enums.MemberRoleBuyer),
	}
}

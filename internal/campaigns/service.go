package campaigns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/internal/tiering"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/outbox"
	"github.com/groupcart/groupcart-backend/pkg/outbox/payloads"
	"github.com/groupcart/groupcart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PledgeReader exposes the pledge rows the summary computation needs.
type PledgeReader interface {
	FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Pledge, error)
}

// Service defines campaign lifecycle and tier-pricing operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Campaign, error)
	Update(ctx context.Context, input UpdateInput) (*models.Campaign, error)
	Get(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) ([]models.Campaign, string, error)

	AddBracket(ctx context.Context, campaignID, supplierID uuid.UUID, input BracketInput) (*models.DiscountBracket, error)
	UpdateBracket(ctx context.Context, campaignID, bracketID, supplierID uuid.UUID, input BracketInput) (*models.DiscountBracket, error)
	RemoveBracket(ctx context.Context, campaignID, bracketID, supplierID uuid.UUID) error

	Publish(ctx context.Context, campaignID uuid.UUID, actor ActorInput) error
	Cancel(ctx context.Context, campaignID uuid.UUID, actor ActorInput) error
	Lock(ctx context.Context, campaignID uuid.UUID, actor *ActorInput) error
	Complete(ctx context.Context, campaignID uuid.UUID, actor *ActorInput) error
	StartGracePeriod(ctx context.Context, campaignID uuid.UUID, graceEnd time.Time) error

	Summary(ctx context.Context, campaignID uuid.UUID) (*Summary, error)
}

type service struct {
	repo    Repository
	pledges PledgeReader
	tx      txRunner
	outbox  outboxPublisher
	logg    *logger.Logger
}

// NewService builds a campaign service with the required dependencies.
func NewService(repo Repository, pledges PledgeReader, tx txRunner, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("campaigns repository required")
	}
	if pledges == nil {
		return nil, fmt.Errorf("pledge reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		pledges: pledges,
		tx:      tx,
		outbox:  outboxSvc,
		logg:    logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Campaign, error) {
	if input.SupplierID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}
	if input.TargetQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target quantity cannot be negative")
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must be after start date")
	}

	brackets := make([]models.DiscountBracket, 0, len(input.Brackets))
	for _, b := range input.Brackets {
		brackets = append(brackets, models.DiscountBracket{
			MinQuantity:  b.MinQuantity,
			MaxQuantity:  b.MaxQuantity,
			UnitPrice:    b.UnitPrice,
			BracketOrder: b.BracketOrder,
		})
	}
	if err := s.checkBracketSet(ctx, brackets); err != nil {
		return nil, err
	}

	campaign := &models.Campaign{
		SupplierID:     input.SupplierID,
		Title:          input.Title,
		Description:    input.Description,
		ProductDetails: input.ProductDetails,
		Status:         enums.CampaignStatusDraft,
		TargetQuantity: input.TargetQuantity,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Brackets:       brackets,
	}

	created, err := s.repo.Create(ctx, campaign)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create campaign")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, input UpdateInput) (*models.Campaign, error) {
	if input.CampaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}

	var updated *models.Campaign
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		campaign, err := s.loadOwned(ctx, repo, input.CampaignID, input.SupplierID)
		if err != nil {
			return err
		}
		if campaign.Status != enums.CampaignStatusDraft {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "campaign can only be edited while in draft")
		}

		updates := map[string]any{}
		if input.Title != nil {
			updates["title"] = *input.Title
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		if input.ProductDetails != nil {
			updates["product_details"] = *input.ProductDetails
		}
		if input.TargetQuantity != nil {
			if *input.TargetQuantity < 0 {
				return pkgerrors.New(pkgerrors.CodeValidation, "target quantity cannot be negative")
			}
			updates["target_quantity"] = *input.TargetQuantity
		}
		if input.StartDate != nil {
			updates["start_date"] = *input.StartDate
		}
		if input.EndDate != nil {
			updates["end_date"] = *input.EndDate
		}
		if len(updates) == 0 {
			updated = campaign
			return nil
		}
		if err := repo.Update(ctx, campaign.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campaign")
		}
		updated, err = repo.FindByID(ctx, campaign.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload campaign")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Get(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error) {
	if campaignID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	campaign, err := s.repo.FindByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
	}
	return campaign, nil
}

func (s *service) ListBySupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) ([]models.Campaign, string, error) {
	if supplierID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	rows, err := s.repo.ListBySupplier(ctx, supplierID, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list campaigns")
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

func (s *service) AddBracket(ctx context.Context, campaignID, supplierID uuid.UUID, input BracketInput) (*models.DiscountBracket, error) {
	var created *models.DiscountBracket
	err := s.mutateBrackets(ctx, campaignID, supplierID, func(repo Repository, campaign *models.Campaign) ([]models.DiscountBracket, error) {
		bracket := &models.DiscountBracket{
			CampaignID:   campaign.ID,
			MinQuantity:  input.MinQuantity,
			MaxQuantity:  input.MaxQuantity,
			UnitPrice:    input.UnitPrice,
			BracketOrder: input.BracketOrder,
		}
		if _, err := repo.CreateBracket(ctx, bracket); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bracket")
		}
		created = bracket
		return append(campaign.Brackets, *bracket), nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) UpdateBracket(ctx context.Context, campaignID, bracketID, supplierID uuid.UUID, input BracketInput) (*models.DiscountBracket, error) {
	var updated *models.DiscountBracket
	err := s.mutateBrackets(ctx, campaignID, supplierID, func(repo Repository, campaign *models.Campaign) ([]models.DiscountBracket, error) {
		idx := -1
		for i := range campaign.Brackets {
			if campaign.Brackets[i].ID == bracketID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bracket not found")
		}

		updates := map[string]any{
			"min_quantity":  input.MinQuantity,
			"max_quantity":  input.MaxQuantity,
			"unit_price":    input.UnitPrice,
			"bracket_order": input.BracketOrder,
		}
		if err := repo.UpdateBracket(ctx, bracketID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update bracket")
		}

		campaign.Brackets[idx].MinQuantity = input.MinQuantity
		campaign.Brackets[idx].MaxQuantity = input.MaxQuantity
		campaign.Brackets[idx].UnitPrice = input.UnitPrice
		campaign.Brackets[idx].BracketOrder = input.BracketOrder
		updated = &campaign.Brackets[idx]
		return campaign.Brackets, nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RemoveBracket(ctx context.Context, campaignID, bracketID, supplierID uuid.UUID) error {
	return s.mutateBrackets(ctx, campaignID, supplierID, func(repo Repository, campaign *models.Campaign) ([]models.DiscountBracket, error) {
		remaining := make([]models.DiscountBracket, 0, len(campaign.Brackets))
		found := false
		for _, b := range campaign.Brackets {
			if b.ID == bracketID {
				found = true
				continue
			}
			remaining = append(remaining, b)
		}
		if !found {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bracket not found")
		}
		if err := repo.DeleteBracket(ctx, bracketID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete bracket")
		}
		return remaining, nil
	})
}

// mutateBrackets runs a bracket mutation under the campaign row lock and
// validates the resulting set before commit. Any inconsistency rolls the
// whole mutation back.
func (s *service) mutateBrackets(ctx context.Context, campaignID, supplierID uuid.UUID, fn func(Repository, *models.Campaign) ([]models.DiscountBracket, error)) error {
	if campaignID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		campaign, err := s.loadOwnedForUpdate(ctx, repo, campaignID, supplierID)
		if err != nil {
			return err
		}
		if !tiering.CanEditBrackets(campaign.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "brackets can only change while the campaign is in draft")
		}

		result, err := fn(repo, campaign)
		if err != nil {
			return err
		}
		return s.checkBracketSet(ctx, result)
	})
}

func (s *service) Publish(ctx context.Context, campaignID uuid.UUID, actor ActorInput) error {
	if campaignID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		campaign, err := s.loadOwnedForUpdate(ctx, repo, campaignID, actor.OrgID)
		if err != nil {
			return err
		}

		if err := tiering.EnsurePublishable(campaign.Status, campaign.Brackets); err != nil {
			return mapLifecycleError(err)
		}

		if err := repo.Update(ctx, campaign.ID, map[string]any{
			"status": enums.CampaignStatusActive,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate campaign")
		}

		published := outbox.DomainEvent{
			EventType:     enums.EventCampaignPublished,
			AggregateType: enums.AggregateCampaign,
			AggregateID:   campaign.ID,
			Version:       1,
			Actor:         buildActor(&actor),
			Data: payloads.CampaignPublishedEvent{
				CampaignID:     campaign.ID,
				SupplierID:     campaign.SupplierID,
				TargetQuantity: campaign.TargetQuantity,
				BracketCount:   len(campaign.Brackets),
				StartDate:      campaign.StartDate,
				EndDate:        campaign.EndDate,
			},
		}
		if err := s.outbox.EmitIfNotExists(ctx, tx, published); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit publish event")
		}
		return s.emitStatusChanged(ctx, tx, campaign, enums.CampaignStatusActive, &actor)
	})
}

func (s *service) Cancel(ctx context.Context, campaignID uuid.UUID, actor ActorInput) error {
	return s.transitionTo(ctx, campaignID, enums.CampaignStatusCancelled, &actor, nil)
}

func (s *service) Lock(ctx context.Context, campaignID uuid.UUID, actor *ActorInput) error {
	return s.transitionTo(ctx, campaignID, enums.CampaignStatusLocked, actor, nil)
}

func (s *service) Complete(ctx context.Context, campaignID uuid.UUID, actor *ActorInput) error {
	return s.transitionTo(ctx, campaignID, enums.CampaignStatusDone, actor, nil)
}

// StartGracePeriod is driven by the deadline scheduler when a campaign's end
// date passes. There is no acting user.
func (s *service) StartGracePeriod(ctx context.Context, campaignID uuid.UUID, graceEnd time.Time) error {
	return s.transitionTo(ctx, campaignID, enums.CampaignStatusGracePeriod, nil, map[string]any{
		"grace_period_end_date": graceEnd,
	})
}

func (s *service) transitionTo(ctx context.Context, campaignID uuid.UUID, to enums.CampaignStatus, actor *ActorInput, extra map[string]any) error {
	if campaignID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign id required")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var campaign *models.Campaign
		var err error
		if actor != nil {
			campaign, err = s.loadOwnedForUpdate(ctx, repo, campaignID, actor.OrgID)
		} else {
			campaign, err = s.loadForUpdate(ctx, repo, campaignID)
		}
		if err != nil {
			return err
		}

		if err := tiering.Transition(campaign.Status, to); err != nil {
			return mapLifecycleError(err)
		}

		updates := map[string]any{"status": to}
		for k, v := range extra {
			updates[k] = v
		}
		if err := repo.Update(ctx, campaign.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update campaign status")
		}
		return s.emitStatusChanged(ctx, tx, campaign, to, actor)
	})
}

func (s *service) Summary(ctx context.Context, campaignID uuid.UUID) (*Summary, error) {
	campaign, err := s.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	pledges, err := s.pledges.FindByCampaign(ctx, campaignID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pledges")
	}
	return BuildSummary(campaign, pledges), nil
}

// BuildSummary derives the full progress view for a campaign from its
// brackets and pledges. All tier math funnels through here so the API,
// events, and scheduler agree on the numbers.
func BuildSummary(campaign *models.Campaign, pledges []models.Pledge) *Summary {
	totals := tiering.AggregatePledges(pledges, tiering.ExcludeWithdrawn)
	resolution := tiering.Resolve(totals.TotalQuantity, campaign.Brackets)

	summary := &Summary{
		CampaignID:      campaign.ID,
		Status:          campaign.Status,
		TotalPledges:    totals.TotalPledges,
		TotalQuantity:   totals.TotalQuantity,
		UnitsToNextTier: resolution.UnitsToNext,
		PercentToNext:   tiering.PercentWithinBracket(totals.TotalQuantity, resolution.Current, resolution.Next),
	}
	if resolution.Current != nil {
		price := resolution.Current.UnitPrice
		summary.CurrentUnitPrice = &price
		id := resolution.Current.ID
		summary.CurrentBracketID = &id
	}
	if resolution.Next != nil {
		id := resolution.Next.ID
		summary.NextBracketID = &id
	}

	summary.Brackets = make([]BracketStatus, 0, len(campaign.Brackets))
	for _, b := range campaign.Brackets {
		summary.Brackets = append(summary.Brackets, BracketStatus{
			BracketID:   b.ID,
			MinQuantity: b.MinQuantity,
			MaxQuantity: b.MaxQuantity,
			UnitPrice:   b.UnitPrice,
			Standing:    tiering.Classify(b, resolution.Current),
		})
	}
	return summary
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, campaign *models.Campaign, to enums.CampaignStatus, actor *ActorInput) error {
	event := outbox.DomainEvent{
		EventType:     enums.EventCampaignStatusChanged,
		AggregateType: enums.AggregateCampaign,
		AggregateID:   campaign.ID,
		Version:       1,
		Actor:         buildActor(actor),
		Data: payloads.CampaignStatusChangedEvent{
			CampaignID: campaign.ID,
			SupplierID: campaign.SupplierID,
			FromStatus: campaign.Status,
			ToStatus:   to,
			ChangedAt:  time.Now().UTC(),
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status event")
	}
	return nil
}

// checkBracketSet enforces the structural invariants and logs the advisory
// price monotonicity check. An increasing price ladder is legal but almost
// always a data entry mistake, so it is surfaced without blocking.
func (s *service) checkBracketSet(ctx context.Context, brackets []models.DiscountBracket) error {
	for i := range brackets {
		if brackets[i].MinQuantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "bracket min_quantity must be at least 1").
				WithDetails(map[string]any{"offending_indices": []int{i}})
		}
		if brackets[i].BracketOrder < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "bracket_order must be a positive integer").
				WithDetails(map[string]any{"offending_indices": []int{i}})
		}
	}
	if v := tiering.ValidateBracketSet(brackets); !v.OK {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("bracket set invalid: %s", v.Kind)).
			WithDetails(map[string]any{
				"kind":              v.Kind,
				"offending_indices": v.OffendingIndices,
			})
	}
	if s.logg != nil {
		if suspicious := tiering.CheckPriceMonotonicity(brackets); len(suspicious) > 0 {
			logCtx := s.logg.WithField(ctx, "bracket_indices", suspicious)
			s.logg.Warn(logCtx, "bracket unit price increases at higher volume")
		}
	}
	return nil
}

func (s *service) loadOwned(ctx context.Context, repo Repository, campaignID, supplierID uuid.UUID) (*models.Campaign, error) {
	campaign, err := repo.FindByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
	}
	if supplierID != uuid.Nil && campaign.SupplierID != supplierID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "campaign does not belong to supplier")
	}
	return campaign, nil
}

func (s *service) loadOwnedForUpdate(ctx context.Context, repo Repository, campaignID, supplierID uuid.UUID) (*models.Campaign, error) {
	campaign, err := s.loadForUpdate(ctx, repo, campaignID)
	if err != nil {
		return nil, err
	}
	if supplierID != uuid.Nil && campaign.SupplierID != supplierID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "campaign does not belong to supplier")
	}
	return campaign, nil
}

func (s *service) loadForUpdate(ctx context.Context, repo Repository, campaignID uuid.UUID) (*models.Campaign, error) {
	campaign, err := repo.FindByIDForUpdate(ctx, campaignID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "campaign not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load campaign")
	}
	return campaign, nil
}

func mapLifecycleError(err error) error {
	var terr *tiering.TransitionError
	if errors.As(err, &terr) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, terr.Error())
	}
	if errors.Is(err, tiering.ErrEmptyBracketSetOnPublish) {
		return pkgerrors.New(pkgerrors.CodeValidation, "campaign requires at least one discount bracket")
	}
	var berr *tiering.BracketSetError
	if errors.As(err, &berr) {
		return pkgerrors.New(pkgerrors.CodeValidation, berr.Error()).
			WithDetails(map[string]any{
				"kind":              berr.Validation.Kind,
				"offending_indices": berr.Validation.OffendingIndices,
			})
	}
	return err
}

func buildActor(actor *ActorInput) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	org := actor.OrgID
	return &outbox.ActorRef{
		UserID: actor.UserID,
		OrgID:  &org,
		Role:   actor.Role,
	}
}

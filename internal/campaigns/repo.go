package campaigns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	"github.com/groupcart/groupcart-backend/pkg/pagination"
)

// Repository defines persistence operations for campaigns and their brackets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	ListBySupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) ([]models.Campaign, error)
	FindActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Campaign, error)
	FindGraceExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.Campaign, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	CreateBracket(ctx context.Context, bracket *models.DiscountBracket) (*models.DiscountBracket, error)
	UpdateBracket(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeleteBracket(ctx context.Context, id uuid.UUID) error
	FindBracket(ctx context.Context, id uuid.UUID) (*models.DiscountBracket, error)
	FindBracketsByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.DiscountBracket, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a campaigns repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	if err := r.db.WithContext(ctx).Create(campaign).Error; err != nil {
		return nil, err
	}
	return campaign, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).
		Preload("Brackets", func(db *gorm.DB) *gorm.DB {
			return db.Order("bracket_order ASC")
		}).
		Where("id = ?", id).
		First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// FindByIDForUpdate locks the campaign row for the duration of the enclosing
// transaction. Lifecycle changes and tier recomputation serialize on this
// lock so concurrent pledges cannot race past a status change.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&campaign).Error
	if err != nil {
		return nil, err
	}
	var brackets []models.DiscountBracket
	err = r.db.WithContext(ctx).
		Where("campaign_id = ?", id).
		Order("bracket_order ASC").
		Find(&brackets).Error
	if err != nil {
		return nil, err
	}
	campaign.Brackets = brackets
	return &campaign, nil
}

func (r *repository) ListBySupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) ([]models.Campaign, error) {
	query := r.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}
	var rows []models.Campaign
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindActiveEndedBefore lists active campaigns whose end date has passed.
// The scheduler moves them into their grace period.
func (r *repository) FindActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Campaign, error) {
	var rows []models.Campaign
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date <= ?", enums.CampaignStatusActive, cutoff).
		Order("end_date ASC").
		Find(&rows).Error
	return rows, err
}

// FindGraceExpiredBefore lists grace-period campaigns whose commitment
// deadline has passed. The scheduler locks them.
func (r *repository) FindGraceExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.Campaign, error) {
	var rows []models.Campaign
	err := r.db.WithContext(ctx).
		Where("status = ? AND grace_period_end_date IS NOT NULL AND grace_period_end_date <= ?", enums.CampaignStatusGracePeriod, cutoff).
		Order("grace_period_end_date ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) CreateBracket(ctx context.Context, bracket *models.DiscountBracket) (*models.DiscountBracket, error) {
	if err := r.db.WithContext(ctx).Create(bracket).Error; err != nil {
		return nil, err
	}
	return bracket, nil
}

func (r *repository) UpdateBracket(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.DiscountBracket{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteBracket(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.DiscountBracket{}).Error
}

func (r *repository) FindBracket(ctx context.Context, id uuid.UUID) (*models.DiscountBracket, error) {
	var bracket models.DiscountBracket
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&bracket).Error
	if err != nil {
		return nil, err
	}
	return &bracket, nil
}

func (r *repository) FindBracketsByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.DiscountBracket, error) {
	var brackets []models.DiscountBracket
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("bracket_order ASC").
		Find(&brackets).Error
	if err != nil {
		return nil, err
	}
	return brackets, nil
}

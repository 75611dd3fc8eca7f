package pledges

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/pagination"
)

// Repository defines persistence operations for pledges.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pledge *models.Pledge) (*models.Pledge, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Pledge, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Pledge, error)
	FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Pledge, error)
	ListByBuyer(ctx context.Context, buyerOrgID uuid.UUID, params pagination.Params) ([]models.Pledge, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a pledges repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pledge *models.Pledge) (*models.Pledge, error) {
	if err := r.db.WithContext(ctx).Create(pledge).Error; err != nil {
		return nil, err
	}
	return pledge, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Pledge, error) {
	var pledge models.Pledge
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&pledge).Error
	if err != nil {
		return nil, err
	}
	return &pledge, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Pledge, error) {
	var pledge models.Pledge
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&pledge).Error
	if err != nil {
		return nil, err
	}
	return &pledge, nil
}

func (r *repository) FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Pledge, error) {
	var pledges []models.Pledge
	err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at ASC").
		Find(&pledges).Error
	if err != nil {
		return nil, err
	}
	return pledges, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerOrgID uuid.UUID, params pagination.Params) ([]models.Pledge, error) {
	query := r.db.WithContext(ctx).
		Where("buyer_org_id = ?", buyerOrgID).
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
	var rows []models.Pledge
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Pledge{}).
		Where("id = ?", id).
		Updates(updates).Error
}

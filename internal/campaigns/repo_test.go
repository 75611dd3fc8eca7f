package campaigns

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	"github.com/groupcart/groupcart-backend/pkg/pagination"
)

func setupCampaignsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	campaigns := `
CREATE TABLE IF NOT EXISTS campaigns (
  id TEXT PRIMARY KEY,
  supplier_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  product_details TEXT,
  status TEXT NOT NULL DEFAULT 'draft',
  target_quantity INTEGER NOT NULL DEFAULT 0,
  start_date DATETIME NOT NULL,
  end_date DATETIME NOT NULL,
  grace_period_end_date DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	brackets := `
CREATE TABLE IF NOT EXISTS discount_brackets (
  id TEXT PRIMARY KEY,
  campaign_id TEXT NOT NULL,
  min_quantity INTEGER NOT NULL,
  max_quantity INTEGER,
  unit_price NUMERIC NOT NULL,
  bracket_order INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(campaigns).Error)
	require.NoError(t, db.Exec(brackets).Error)
	return db
}

func newCampaign(t *testing.T, db *gorm.DB, supplierID uuid.UUID, status enums.CampaignStatus, created time.Time) *models.Campaign {
	t.Helper()

	campaign := &models.Campaign{
		ID:             uuid.New(),
		SupplierID:     supplierID,
		Title:          "Bulk Widgets",
		Status:         status,
		TargetQuantity: 100,
		StartDate:      created,
		EndDate:        created.Add(30 * 24 * time.Hour),
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	require.NoError(t, db.Create(campaign).Error)
	return campaign
}

func newBracket(t *testing.T, db *gorm.DB, campaignID uuid.UUID, min int64, max *int64, price string, order int) *models.DiscountBracket {
	t.Helper()

	bracket := &models.DiscountBracket{
		ID:           uuid.New(),
		CampaignID:   campaignID,
		MinQuantity:  min,
		MaxQuantity:  max,
		UnitPrice:    decimal.RequireFromString(price),
		BracketOrder: order,
	}
	require.NoError(t, db.Create(bracket).Error)
	return bracket
}

func int64Ptr(v int64) *int64 { return &v }

func TestRepositoryFindByID_loadsBracketsInOrder(t *testing.T) {
	db := setupCampaignsTestDB(t)
	repo := NewRepository(db)

	campaign := newCampaign(t, db, uuid.New(), enums.CampaignStatusDraft, time.Now().UTC())
	newBracket(t, db, campaign.ID, 50, nil, "18.00", 2)
	newBracket(t, db, campaign.ID, 1, int64Ptr(49), "21.50", 1)

	found, err := repo.FindByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, found.Brackets, 2)
	assert.Equal(t, 1, found.Brackets[0].BracketOrder)
	assert.Equal(t, int64(1), found.Brackets[0].MinQuantity)
	assert.True(t, found.Brackets[0].UnitPrice.Equal(decimal.RequireFromString("21.50")))
	assert.Nil(t, found.Brackets[1].MaxQuantity)
}

func TestRepositoryListBySupplier_cursor(t *testing.T) {
	db := setupCampaignsTestDB(t)
	repo := NewRepository(db)

	supplierID := uuid.New()
	now := time.Now().UTC()
	older := newCampaign(t, db, supplierID, enums.CampaignStatusDraft, now.Add(-2*time.Hour))
	newer := newCampaign(t, db, supplierID, enums.CampaignStatusActive, now)
	newCampaign(t, db, uuid.New(), enums.CampaignStatusDraft, now)

	rows, err := repo.ListBySupplier(context.Background(), supplierID, pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)

	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: newer.CreatedAt, ID: newer.ID})
	rows, err = repo.ListBySupplier(context.Background(), supplierID, pagination.Params{Limit: 10, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, older.ID, rows[0].ID)

	_, err = repo.ListBySupplier(context.Background(), supplierID, pagination.Params{Cursor: "%%%"})
	assert.Error(t, err)
}

func TestRepositoryDeadlineScans(t *testing.T) {
	db := setupCampaignsTestDB(t)
	repo := NewRepository(db)

	now := time.Now().UTC()

	ended := newCampaign(t, db, uuid.New(), enums.CampaignStatusActive, now.Add(-60*24*time.Hour))
	running := newCampaign(t, db, uuid.New(), enums.CampaignStatusActive, now)
	drafted := newCampaign(t, db, uuid.New(), enums.CampaignStatusDraft, now.Add(-60*24*time.Hour))
	_ = running
	_ = drafted

	due, err := repo.FindActiveEndedBefore(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, ended.ID, due[0].ID)

	graceEnd := now.Add(-time.Hour)
	expired := newCampaign(t, db, uuid.New(), enums.CampaignStatusGracePeriod, now.Add(-10*24*time.Hour))
	require.NoError(t, repo.Update(context.Background(), expired.ID, map[string]any{"grace_period_end_date": graceEnd}))
	stillInGrace := newCampaign(t, db, uuid.New(), enums.CampaignStatusGracePeriod, now.Add(-10*24*time.Hour))
	require.NoError(t, repo.Update(context.Background(), stillInGrace.ID, map[string]any{"grace_period_end_date": now.Add(time.Hour)}))

	locked, err := repo.FindGraceExpiredBefore(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, locked, 1)
	assert.Equal(t, expired.ID, locked[0].ID)
}

func TestRepositoryBracketLifecycle(t *testing.T) {
	db := setupCampaignsTestDB(t)
	repo := NewRepository(db)

	campaign := newCampaign(t, db, uuid.New(), enums.CampaignStatusDraft, time.Now().UTC())
	bracket := newBracket(t, db, campaign.ID, 1, int64Ptr(9), "25.00", 1)
	newBracket(t, db, campaign.ID, 10, nil, "22.00", 2)

	require.NoError(t, repo.UpdateBracket(context.Background(), bracket.ID, map[string]any{
		"unit_price":   decimal.RequireFromString("24.00"),
		"max_quantity": int64(19),
	}))
	updated, err := repo.FindBracket(context.Background(), bracket.ID)
	require.NoError(t, err)
	assert.True(t, updated.UnitPrice.Equal(decimal.RequireFromString("24.00")))
	require.NotNil(t, updated.MaxQuantity)
	assert.Equal(t, int64(19), *updated.MaxQuantity)

	require.NoError(t, repo.DeleteBracket(context.Background(), bracket.ID))
	remaining, err := repo.FindBracketsByCampaign(context.Background(), campaign.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(10), remaining[0].MinQuantity)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := setupCampaignsTestDB(t)
	repo := NewRepository(db)

	campaign := newCampaign(t, db, uuid.New(), enums.CampaignStatusDraft, time.Now().UTC())
	require.NoError(t, repo.Update(context.Background(), campaign.ID, map[string]any{
		"status": enums.CampaignStatusActive,
	}))

	found, err := repo.FindByID(context.Background(), campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CampaignStatusActive, found.Status)
}

package pledges

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/groupcart/groupcart-backend/internal/campaigns"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/outbox"
	"github.com/groupcart/groupcart-backend/pkg/pagination"
)

type stubPledgeRepo struct {
	pledges map[uuid.UUID]*models.Pledge
	created *models.Pledge
	updates map[string]any
}

func newStubPledgeRepo(pledges ...*models.Pledge) *stubPledgeRepo {
	repo := &stubPledgeRepo{pledges: map[uuid.UUID]*models.Pledge{}}
	for _, p := range pledges {
		repo.pledges[p.ID] = p
	}
	return repo
}

func (s *stubPledgeRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubPledgeRepo) Create(ctx context.Context, pledge *models.Pledge) (*models.Pledge, error) {
	if pledge.ID == uuid.Nil {
		pledge.ID = uuid.New()
	}
	s.created = pledge
	s.pledges[pledge.ID] = pledge
	return pledge, nil
}

func (s *stubPledgeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Pledge, error) {
	pledge, ok := s.pledges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return pledge, nil
}

func (s *stubPledgeRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Pledge, error) {
	return s.FindByID(ctx, id)
}

func (s *stubPledgeRepo) FindByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Pledge, error) {
	var rows []models.Pledge
	for _, p := range s.pledges {
		if p.CampaignID == campaignID {
			rows = append(rows, *p)
		}
	}
	return rows, nil
}

func (s *stubPledgeRepo) ListByBuyer(ctx context.Context, buyerOrgID uuid.UUID, params pagination.Params) ([]models.Pledge, error) {
	var rows []models.Pledge
	for _, p := range s.pledges {
		if p.BuyerOrgID == buyerOrgID {
			rows = append(rows, *p)
		}
	}
	return rows, nil
}

func (s *stubPledgeRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	pledge, ok := s.pledges[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"].(enums.PledgeStatus); ok {
		pledge.Status = status
	}
	return nil
}

type stubCampaignRepo struct {
	campaign *models.Campaign
}

func (s *stubCampaignRepo) WithTx(tx *gorm.DB) campaigns.Repository {
	return s
}

func (s *stubCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) (*models.Campaign, error) {
	panic("not implemented")
}

func (s *stubCampaignRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	if s.campaign == nil || s.campaign.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.campaign, nil
}

func (s *stubCampaignRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return s.FindByID(ctx, id)
}

func (s *stubCampaignRepo) ListBySupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) ([]models.Campaign, error) {
	panic("not implemented")
}

func (s *stubCampaignRepo) FindActiveEndedBefore(ctx context.Context, cutoff time.Time) ([]models.Campaign, error) {
	panic("not implemented")
}

func (s *stubCampaignRepo) FindGraceExpiredBefore(ctx context.Context, cutoff time.Time) ([]models.Campaign, error) {
	panic("not implemented")
}

func (s *stubCampaignRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (s *stubCampaignRepo) CreateBracket(ctx context.Context, bracket *models.DiscountBracket) (*models.DiscountBracket, error) {
	panic("not implemented")
}

func (s *stubCampaignRepo) UpdateBracket(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (s *stubCampaignRepo) DeleteBracket(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}

func (s *stubCampaignRepo) FindBracket(ctx context.Context, id uuid.UUID) (*models.DiscountBracket, error) {
	panic("not implemented")
}

func (s *stubCampaignRepo) FindBracketsByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.DiscountBracket, error) {
	if s.campaign == nil {
		return nil, nil
	}
	return s.campaign.Brackets, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func price(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func maxQty(v int64) *int64 {
	return &v
}

func activeCampaign(brackets ...models.DiscountBracket) *models.Campaign {
	return &models.Campaign{
		ID:         uuid.New(),
		SupplierID: uuid.New(),
		Title:      "Bulk matcha order",
		Status:     enums.CampaignStatusActive,
		StartDate:  time.Now().Add(-time.Hour),
		EndDate:    time.Now().Add(time.Hour),
		Brackets:   brackets,
	}
}

func newTestService(t *testing.T, repo Repository, campaignRepo campaigns.Repository, pub outboxPublisher) Service {
	t.Helper()
	svc, err := NewService(repo, campaignRepo, stubTxRunner{}, pub)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func eventTypes(events []outbox.DomainEvent) []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}

func TestCreate_RecordsPendingPledge(t *testing.T) {
	campaign := activeCampaign(models.DiscountBracket{
		ID: uuid.New(), MinQuantity: 10, MaxQuantity: maxQty(49), UnitPrice: price("25.00"), BracketOrder: 1,
	})
	repo := newStubPledgeRepo()
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, &stubCampaignRepo{campaign: campaign}, pub)

	pledge, err := svc.Create(context.Background(), CreateInput{
		CampaignID: campaign.ID,
		BuyerOrgID: uuid.New(),
		UserID:     uuid.New(),
		Quantity:   5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if pledge.Status != enums.PledgeStatusPending {
		t.Fatalf("expected pending, got %s", pledge.Status)
	}
	if got := eventTypes(pub.events); len(got) != 1 || got[0] != enums.EventPledgeCreated {
		t.Fatalf("expected pledge_created only, got %v", got)
	}
}

func TestCreate_EmitsTierAdvanced(t *testing.T) {
	bracket := models.DiscountBracket{
		ID: uuid.New(), MinQuantity: 10, MaxQuantity: maxQty(49), UnitPrice: price("25.00"), BracketOrder: 1,
	}
	campaign := activeCampaign(bracket)
	existing := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: uuid.New(),
		Quantity: 8, Status: enums.PledgeStatusPending,
	}
	repo := newStubPledgeRepo(existing)
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, &stubCampaignRepo{campaign: campaign}, pub)

	// 8 existing + 5 new = 13, crossing the bracket's minimum of 10.
	_, err := svc.Create(context.Background(), CreateInput{
		CampaignID: campaign.ID,
		BuyerOrgID: uuid.New(),
		UserID:     uuid.New(),
		Quantity:   5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got := eventTypes(pub.events)
	if len(got) != 2 || got[0] != enums.EventPledgeCreated || got[1] != enums.EventCampaignTierAdvanced {
		t.Fatalf("expected created then tier_advanced, got %v", got)
	}
}

func TestCreate_NoTierEventWithinSameBracket(t *testing.T) {
	bracket := models.DiscountBracket{
		ID: uuid.New(), MinQuantity: 10, MaxQuantity: maxQty(49), UnitPrice: price("25.00"), BracketOrder: 1,
	}
	campaign := activeCampaign(bracket)
	existing := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: uuid.New(),
		Quantity: 20, Status: enums.PledgeStatusPending,
	}
	repo := newStubPledgeRepo(existing)
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, &stubCampaignRepo{campaign: campaign}, pub)

	_, err := svc.Create(context.Background(), CreateInput{
		CampaignID: campaign.ID,
		BuyerOrgID: uuid.New(),
		UserID:     uuid.New(),
		Quantity:   5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := eventTypes(pub.events); len(got) != 1 || got[0] != enums.EventPledgeCreated {
		t.Fatalf("expected pledge_created only, got %v", got)
	}
}

func TestCreate_RejectsClosedCampaign(t *testing.T) {
	campaign := activeCampaign()
	campaign.Status = enums.CampaignStatusLocked
	svc := newTestService(t, newStubPledgeRepo(), &stubCampaignRepo{campaign: campaign}, &stubOutboxPublisher{})

	_, err := svc.Create(context.Background(), CreateInput{
		CampaignID: campaign.ID,
		BuyerOrgID: uuid.New(),
		Quantity:   5,
	})

	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreate_RejectsNonPositiveQuantity(t *testing.T) {
	campaign := activeCampaign()
	svc := newTestService(t, newStubPledgeRepo(), &stubCampaignRepo{campaign: campaign}, &stubOutboxPublisher{})

	_, err := svc.Create(context.Background(), CreateInput{
		CampaignID: campaign.ID,
		BuyerOrgID: uuid.New(),
		Quantity:   0,
	})

	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestWithdraw_MarksPledgeAndEmits(t *testing.T) {
	campaign := activeCampaign()
	buyerID := uuid.New()
	pledge := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: buyerID,
		Quantity: 10, Status: enums.PledgeStatusPending,
	}
	repo := newStubPledgeRepo(pledge)
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, &stubCampaignRepo{campaign: campaign}, pub)

	if err := svc.Withdraw(context.Background(), pledge.ID, buyerID, uuid.New()); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if pledge.Status != enums.PledgeStatusWithdrawn {
		t.Fatalf("expected withdrawn, got %s", pledge.Status)
	}
	if got := eventTypes(pub.events); len(got) != 1 || got[0] != enums.EventPledgeWithdrawn {
		t.Fatalf("expected pledge_withdrawn, got %v", got)
	}
}

func TestWithdraw_RepeatIsNoOp(t *testing.T) {
	campaign := activeCampaign()
	buyerID := uuid.New()
	pledge := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: buyerID,
		Quantity: 10, Status: enums.PledgeStatusWithdrawn,
	}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, newStubPledgeRepo(pledge), &stubCampaignRepo{campaign: campaign}, pub)

	if err := svc.Withdraw(context.Background(), pledge.ID, buyerID, uuid.New()); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("expected no events, got %v", eventTypes(pub.events))
	}
}

func TestWithdraw_RejectsCommittedPledge(t *testing.T) {
	campaign := activeCampaign()
	buyerID := uuid.New()
	now := time.Now()
	pledge := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: buyerID,
		Quantity: 10, Status: enums.PledgeStatusCommitted, CommittedAt: &now,
	}
	svc := newTestService(t, newStubPledgeRepo(pledge), &stubCampaignRepo{campaign: campaign}, &stubOutboxPublisher{})

	err := svc.Withdraw(context.Background(), pledge.ID, buyerID, uuid.New())

	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestWithdraw_RejectsForeignBuyer(t *testing.T) {
	campaign := activeCampaign()
	pledge := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: uuid.New(),
		Quantity: 10, Status: enums.PledgeStatusPending,
	}
	svc := newTestService(t, newStubPledgeRepo(pledge), &stubCampaignRepo{campaign: campaign}, &stubOutboxPublisher{})

	err := svc.Withdraw(context.Background(), pledge.ID, uuid.New(), uuid.New())

	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCommit_StampsCommittedAtOnce(t *testing.T) {
	bracket := models.DiscountBracket{
		ID: uuid.New(), MinQuantity: 10, MaxQuantity: maxQty(49), UnitPrice: price("25.00"), BracketOrder: 1,
	}
	campaign := activeCampaign(bracket)
	campaign.Status = enums.CampaignStatusGracePeriod
	buyerID := uuid.New()
	pledge := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: buyerID,
		Quantity: 15, Status: enums.PledgeStatusPending,
	}
	repo := newStubPledgeRepo(pledge)
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, repo, &stubCampaignRepo{campaign: campaign}, pub)

	committed, err := svc.Commit(context.Background(), pledge.ID, buyerID, uuid.New())
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if committed.Status != enums.PledgeStatusCommitted {
		t.Fatalf("expected committed, got %s", committed.Status)
	}
	if committed.CommittedAt == nil {
		t.Fatal("expected committed_at stamped")
	}
	if got := eventTypes(pub.events); len(got) != 1 || got[0] != enums.EventPledgeCommitted {
		t.Fatalf("expected pledge_committed, got %v", got)
	}

	firstStamp := *committed.CommittedAt

	again, err := svc.Commit(context.Background(), pledge.ID, buyerID, uuid.New())
	if err != nil {
		t.Fatalf("repeat commit: %v", err)
	}
	if !again.CommittedAt.Equal(firstStamp) {
		t.Fatal("committed_at must not change on repeat commit")
	}
	if len(pub.events) != 1 {
		t.Fatalf("repeat commit must not emit, got %v", eventTypes(pub.events))
	}
}

func TestCommit_OnlyDuringGracePeriod(t *testing.T) {
	campaign := activeCampaign(models.DiscountBracket{
		ID: uuid.New(), MinQuantity: 10, UnitPrice: price("25.00"), BracketOrder: 1,
	})
	buyerID := uuid.New()
	pledge := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: buyerID,
		Quantity: 15, Status: enums.PledgeStatusPending,
	}
	svc := newTestService(t, newStubPledgeRepo(pledge), &stubCampaignRepo{campaign: campaign}, &stubOutboxPublisher{})

	_, err := svc.Commit(context.Background(), pledge.ID, buyerID, uuid.New())

	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCommit_RejectsBelowFirstBracket(t *testing.T) {
	campaign := activeCampaign(models.DiscountBracket{
		ID: uuid.New(), MinQuantity: 10, UnitPrice: price("25.00"), BracketOrder: 1,
	})
	campaign.Status = enums.CampaignStatusGracePeriod
	buyerID := uuid.New()
	pledge := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: buyerID,
		Quantity: 5, Status: enums.PledgeStatusPending,
	}
	pub := &stubOutboxPublisher{}
	svc := newTestService(t, newStubPledgeRepo(pledge), &stubCampaignRepo{campaign: campaign}, pub)

	// Total volume of 5 never reached the first bracket's minimum of 10, so
	// there is no resolved unit price to settle the pledge at.
	_, err := svc.Commit(context.Background(), pledge.ID, buyerID, uuid.New())

	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatalf("no events expected, got %v", eventTypes(pub.events))
	}
}

func TestCommit_RejectsWithdrawnPledge(t *testing.T) {
	campaign := activeCampaign()
	campaign.Status = enums.CampaignStatusGracePeriod
	buyerID := uuid.New()
	pledge := &models.Pledge{
		ID: uuid.New(), CampaignID: campaign.ID, BuyerOrgID: buyerID,
		Quantity: 15, Status: enums.PledgeStatusWithdrawn,
	}
	svc := newTestService(t, newStubPledgeRepo(pledge), &stubCampaignRepo{campaign: campaign}, &stubOutboxPublisher{})

	_, err := svc.Commit(context.Background(), pledge.ID, buyerID, uuid.New())

	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

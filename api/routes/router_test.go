package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/internal/campaigns"
	"github.com/groupcart/groupcart-backend/internal/pledges"
	pkgauth "github.com/groupcart/groupcart-backend/pkg/auth"
	"github.com/groupcart/groupcart-backend/pkg/config"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/pagination"
	"github.com/groupcart/groupcart-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubCampaignService struct{}

func (stubCampaignService) Create(ctx context.Context, input campaigns.CreateInput) (*models.Campaign, error) {
	panic("unimplemented")
}

func (stubCampaignService) Update(ctx context.Context, input campaigns.UpdateInput) (*models.Campaign, error) {
	return &models.Campaign{ID: input.CampaignID, Title: "updated", Status: enums.CampaignStatusDraft}, nil
}

func (stubCampaignService) Get(ctx context.Context, campaignID uuid.UUID) (*models.Campaign, error) {
	return &models.Campaign{ID: campaignID, Title: "stub", Status: enums.CampaignStatusDraft}, nil
}

func (stubCampaignService) ListBySupplier(ctx context.Context, supplierID uuid.UUID, params pagination.Params) ([]models.Campaign, string, error) {
	return []models.Campaign{}, "", nil
}

func (stubCampaignService) AddBracket(ctx context.Context, campaignID, supplierID uuid.UUID, input campaigns.BracketInput) (*models.DiscountBracket, error) {
	panic("unimplemented")
}

func (stubCampaignService) UpdateBracket(ctx context.Context, campaignID, bracketID, supplierID uuid.UUID, input campaigns.BracketInput) (*models.DiscountBracket, error) {
	panic("unimplemented")
}

func (stubCampaignService) RemoveBracket(ctx context.Context, campaignID, bracketID, supplierID uuid.UUID) error {
	return nil
}

func (stubCampaignService) Publish(ctx context.Context, campaignID uuid.UUID, actor campaigns.ActorInput) error {
	panic("unimplemented")
}

func (stubCampaignService) Cancel(ctx context.Context, campaignID uuid.UUID, actor campaigns.ActorInput) error {
	panic("unimplemented")
}

func (stubCampaignService) Lock(ctx context.Context, campaignID uuid.UUID, actor *campaigns.ActorInput) error {
	panic("unimplemented")
}

func (stubCampaignService) Complete(ctx context.Context, campaignID uuid.UUID, actor *campaigns.ActorInput) error {
	panic("unimplemented")
}

func (stubCampaignService) StartGracePeriod(ctx context.Context, campaignID uuid.UUID, graceEnd time.Time) error {
	panic("unimplemented")
}

func (stubCampaignService) Summary(ctx context.Context, campaignID uuid.UUID) (*campaigns.Summary, error) {
	panic("unimplemented")
}

type stubPledgeService struct{}

func (stubPledgeService) Create(ctx context.Context, input pledges.CreateInput) (*models.Pledge, error) {
	panic("unimplemented")
}

func (stubPledgeService) Withdraw(ctx context.Context, pledgeID, buyerOrgID, userID uuid.UUID) error {
	panic("unimplemented")
}

func (stubPledgeService) Commit(ctx context.Context, pledgeID, buyerOrgID, userID uuid.UUID) (*models.Pledge, error) {
	panic("unimplemented")
}

func (stubPledgeService) Get(ctx context.Context, pledgeID uuid.UUID) (*models.Pledge, error) {
	return &models.Pledge{ID: pledgeID, Status: enums.PledgeStatusPending}, nil
}

func (stubPledgeService) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Pledge, error) {
	return []models.Pledge{}, nil
}

func (stubPledgeService) ListByBuyer(ctx context.Context, buyerOrgID uuid.UUID, params pagination.Params) ([]models.Pledge, string, error) {
	return []models.Pledge{}, "", nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
		RateLimit: config.RateLimitConfig{
			PledgeWindow:    time.Minute,
			PledgeIPLimit:   60,
			PledgeUserLimit: 30,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},         // db.Pinger
		(*redis.Client)(nil), // *redis.Client
		stubPinger{},         // pubsub pinger
		stubCampaignService{},
		stubPledgeService{},
	)
}

func mintToken(t *testing.T, cfg *config.Config, role enums.MemberRole, orgID *uuid.UUID) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		OrgID:  orgID,
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPublicPing(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/public/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsTokenWithoutOrg(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleAdmin, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without org claim got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	orgID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleBuyer, &orgID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), orgID.String()) {
		t.Fatalf("expected private ping to echo org id, got %s", resp.Body.String())
	}
}

func TestCampaignListAccessibleToBuyers(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	orgID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/campaigns", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleBuyer, &orgID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCampaignUpdateRequiresSupplierRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	orgID := uuid.New()
	url := "/api/v1/campaigns/" + uuid.NewString()

	buyer := httptest.NewRequest(http.MethodPatch, url, strings.NewReader(`{}`))
	buyer.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleBuyer, &orgID))
	buyer.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, buyer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer got %d", resp.Code)
	}

	supplier := httptest.NewRequest(http.MethodPatch, url, strings.NewReader(`{}`))
	supplier.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleSupplier, &orgID))
	supplier.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, supplier)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for supplier got %d", resp.Code)
	}
}

func TestBracketRemoveRequiresSupplierRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	orgID := uuid.New()
	url := "/api/v1/campaigns/" + uuid.NewString() + "/brackets/" + uuid.NewString()

	buyer := httptest.NewRequest(http.MethodDelete, url, nil)
	buyer.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleBuyer, &orgID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, buyer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for buyer got %d", resp.Code)
	}

	supplier := httptest.NewRequest(http.MethodDelete, url, nil)
	supplier.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleSupplier, &orgID))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, supplier)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for supplier got %d", resp.Code)
	}
}

func TestPledgeListMineAccessible(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	orgID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pledges", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, cfg, enums.MemberRoleBuyer, &orgID))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

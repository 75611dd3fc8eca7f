package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/api/middleware"
	"github.com/groupcart/groupcart-backend/internal/pledges"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/pagination"
)

type stubPledgeService struct {
	created   *pledges.CreateInput
	withdrawn *uuid.UUID
	committed *uuid.UUID
	err       error
}

func (s *stubPledgeService) Create(_ context.Context, input pledges.CreateInput) (*models.Pledge, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &input
	return &models.Pledge{
		ID:         uuid.New(),
		CampaignID: input.CampaignID,
		BuyerOrgID: input.BuyerOrgID,
		Quantity:   input.Quantity,
		Status:     enums.PledgeStatusPending,
	}, nil
}

func (s *stubPledgeService) Withdraw(_ context.Context, pledgeID, _, _ uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.withdrawn = &pledgeID
	return nil
}

func (s *stubPledgeService) Commit(_ context.Context, pledgeID, buyerOrgID, _ uuid.UUID) (*models.Pledge, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.committed = &pledgeID
	now := time.Now().UTC()
	return &models.Pledge{
		ID:          pledgeID,
		BuyerOrgID:  buyerOrgID,
		Quantity:    10,
		Status:      enums.PledgeStatusCommitted,
		CommittedAt: &now,
	}, nil
}

func (s *stubPledgeService) Get(context.Context, uuid.UUID) (*models.Pledge, error) {
	panic("unimplemented")
}

func (s *stubPledgeService) ListByCampaign(context.Context, uuid.UUID) ([]models.Pledge, error) {
	panic("unimplemented")
}

func (s *stubPledgeService) ListByBuyer(context.Context, uuid.UUID, pagination.Params) ([]models.Pledge, string, error) {
	panic("unimplemented")
}

func TestPledgeCreate(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	orgID := uuid.New()
	campaignID := uuid.New()

	body := `{"campaign_id": "` + campaignID.String() + `", "quantity": 15}`

	t.Run("missing user", func(t *testing.T) {
		ctx := middleware.WithOrgID(context.Background(), orgID.String())
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", strings.NewReader(body)).WithContext(ctx)
		rec := httptest.NewRecorder()
		PledgeCreate(&stubPledgeService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects zero quantity", func(t *testing.T) {
		bad := `{"campaign_id": "` + campaignID.String() + `", "quantity": 0}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", strings.NewReader(bad)).
			WithContext(actorContext(userID, orgID))
		rec := httptest.NewRecorder()
		PledgeCreate(&stubPledgeService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		stub := &stubPledgeService{}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", strings.NewReader(body)).
			WithContext(actorContext(userID, orgID))
		rec := httptest.NewRecorder()
		PledgeCreate(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.created == nil {
			t.Fatal("expected Create to be invoked")
		}
		if stub.created.BuyerOrgID != orgID {
			t.Fatalf("buyer org should come from the org claim, got %s", stub.created.BuyerOrgID)
		}
		if stub.created.Quantity != 15 {
			t.Fatalf("expected quantity 15, got %d", stub.created.Quantity)
		}
	})

	t.Run("service state conflict maps to 422", func(t *testing.T) {
		stub := &stubPledgeService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "campaign is not accepting pledges")}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges", strings.NewReader(body)).
			WithContext(actorContext(userID, orgID))
		rec := httptest.NewRecorder()
		PledgeCreate(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestPledgeWithdraw(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	orgID := uuid.New()
	pledgeID := uuid.New()

	stub := &stubPledgeService{}
	ctx := withRouteParam(actorContext(userID, orgID), "pledgeId", pledgeID.String())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges/"+pledgeID.String()+"/withdraw", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	PledgeWithdraw(stub, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.withdrawn == nil || *stub.withdrawn != pledgeID {
		t.Fatal("expected Withdraw to be invoked with the path id")
	}
}

func TestPledgeCommit(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	orgID := uuid.New()
	pledgeID := uuid.New()

	stub := &stubPledgeService{}
	ctx := withRouteParam(actorContext(userID, orgID), "pledgeId", pledgeID.String())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pledges/"+pledgeID.String()+"/commit", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	PledgeCommit(stub, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.committed == nil || *stub.committed != pledgeID {
		t.Fatal("expected Commit to be invoked with the path id")
	}
	if !strings.Contains(rec.Body.String(), string(enums.PledgeStatusCommitted)) {
		t.Fatalf("expected committed status in body: %s", rec.Body.String())
	}
}

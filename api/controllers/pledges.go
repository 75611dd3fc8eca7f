package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/groupcart/groupcart-backend/api/responses"
	"github.com/groupcart/groupcart-backend/api/validators"
	"github.com/groupcart/groupcart-backend/internal/pledges"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

type pledgeCreateRequest struct {
	CampaignID string `json:"campaign_id" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"required,min=1"`
}

// PledgeCreate records a buyer organization's quantity commitment.
func PledgeCreate(svc pledges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pledge service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload pledgeCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaignID, err := uuid.Parse(payload.CampaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campaign_id"))
			return
		}

		created, err := svc.Create(r.Context(), pledges.CreateInput{
			CampaignID: campaignID,
			BuyerOrgID: actor.OrgID,
			UserID:     actor.UserID,
			Quantity:   payload.Quantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, pledgeResponseFromModel(created))
	}
}

// PledgeWithdraw releases a pending pledge. Withdrawing twice is a no-op.
func PledgeWithdraw(svc pledges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pledge service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pledgeID, err := pathUUID(r, "pledgeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Withdraw(r.Context(), pledgeID, actor.OrgID, actor.UserID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(enums.PledgeStatusWithdrawn)})
	}
}

// PledgeCommit finalizes a pledge at the campaign's reached unit price.
func PledgeCommit(svc pledges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pledge service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pledgeID, err := pathUUID(r, "pledgeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		committed, err := svc.Commit(r.Context(), pledgeID, actor.OrgID, actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pledgeResponseFromModel(committed))
	}
}

// PledgeGet returns one pledge.
func PledgeGet(svc pledges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pledge service unavailable"))
			return
		}

		pledgeID, err := pathUUID(r, "pledgeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pledge, err := svc.Get(r.Context(), pledgeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, pledgeResponseFromModel(pledge))
	}
}

// PledgeListMine pages through the acting buyer organization's pledges.
func PledgeListMine(svc pledges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pledge service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := paginationParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, nextCursor, err := svc.ListByBuyer(r.Context(), actor.OrgID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]pledgeResponse, 0, len(items))
		for i := range items {
			out = append(out, pledgeResponseFromModel(&items[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"items":       out,
			"next_cursor": nextCursor,
		})
	}
}

// PledgeListByCampaign returns every pledge on a campaign in creation order.
func PledgeListByCampaign(svc pledges.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pledge service unavailable"))
			return
		}

		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.ListByCampaign(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]pledgeResponse, 0, len(items))
		for i := range items {
			out = append(out, pledgeResponseFromModel(&items[i]))
		}
		responses.WriteSuccess(w, map[string]any{"items": out})
	}
}

type pledgeResponse struct {
	ID          uuid.UUID          `json:"id"`
	CampaignID  uuid.UUID          `json:"campaign_id"`
	BuyerOrgID  uuid.UUID          `json:"buyer_org_id"`
	Quantity    int64              `json:"quantity"`
	Status      enums.PledgeStatus `json:"status"`
	CommittedAt *time.Time         `json:"committed_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func pledgeResponseFromModel(m *models.Pledge) pledgeResponse {
	return pledgeResponse{
		ID:          m.ID,
		CampaignID:  m.CampaignID,
		BuyerOrgID:  m.BuyerOrgID,
		Quantity:    m.Quantity,
		Status:      m.Status,
		CommittedAt: m.CommittedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

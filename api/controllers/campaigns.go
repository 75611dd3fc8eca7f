package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/groupcart/groupcart-backend/api/middleware"
	"github.com/groupcart/groupcart-backend/api/responses"
	"github.com/groupcart/groupcart-backend/api/validators"
	"github.com/groupcart/groupcart-backend/internal/campaigns"
	"github.com/groupcart/groupcart-backend/pkg/db/models"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/pagination"
)

type bracketRequest struct {
	MinQuantity  int64  `json:"min_quantity" validate:"min=1"`
	MaxQuantity  *int64 `json:"max_quantity"`
	UnitPrice    string `json:"unit_price" validate:"required"`
	BracketOrder int    `json:"bracket_order" validate:"min=1"`
}

func (r bracketRequest) toInput() (campaigns.BracketInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.UnitPrice))
	if err != nil {
		return campaigns.BracketInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit_price")
	}
	if price.IsNegative() {
		return campaigns.BracketInput{}, pkgerrors.New(pkgerrors.CodeValidation, "unit_price cannot be negative")
	}
	return campaigns.BracketInput{
		MinQuantity:  r.MinQuantity,
		MaxQuantity:  r.MaxQuantity,
		UnitPrice:    price,
		BracketOrder: r.BracketOrder,
	}, nil
}

type campaignCreateRequest struct {
	Title          string           `json:"title" validate:"required,max=200"`
	Description    *string          `json:"description"`
	ProductDetails *string          `json:"product_details"`
	TargetQuantity int64            `json:"target_quantity" validate:"min=0"`
	StartDate      time.Time        `json:"start_date" validate:"required"`
	EndDate        time.Time        `json:"end_date" validate:"required"`
	Brackets       []bracketRequest `json:"brackets" validate:"dive"`
}

type campaignUpdateRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	ProductDetails *string    `json:"product_details"`
	TargetQuantity *int64     `json:"target_quantity"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
}

// actorFromRequest resolves the authenticated actor for lifecycle endpoints.
func actorFromRequest(r *http.Request) (campaigns.ActorInput, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return campaigns.ActorInput{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	orgID := middleware.OrgIDFromContext(r.Context())
	if orgID == "" {
		return campaigns.ActorInput{}, pkgerrors.New(pkgerrors.CodeForbidden, "organization context missing")
	}

	uid, err := uuid.Parse(userID)
	if err != nil {
		return campaigns.ActorInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	oid, err := uuid.Parse(orgID)
	if err != nil {
		return campaigns.ActorInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid org id")
	}

	return campaigns.ActorInput{
		UserID: uid,
		OrgID:  oid,
		Role:   middleware.RoleFromContext(r.Context()),
	}, nil
}

func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name)
	}
	return id, nil
}

func paginationParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

// CampaignCreate drafts a campaign, optionally with its initial price ladder.
func CampaignCreate(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload campaignCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		brackets := make([]campaigns.BracketInput, 0, len(payload.Brackets))
		for _, b := range payload.Brackets {
			input, err := b.toInput()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			brackets = append(brackets, input)
		}

		created, err := svc.Create(r.Context(), campaigns.CreateInput{
			SupplierID:     actor.OrgID,
			Title:          strings.TrimSpace(payload.Title),
			Description:    payload.Description,
			ProductDetails: payload.ProductDetails,
			TargetQuantity: payload.TargetQuantity,
			StartDate:      payload.StartDate,
			EndDate:        payload.EndDate,
			Brackets:       brackets,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, campaignResponseFromModel(created))
	}
}

// CampaignUpdate edits draft fields. Publishing locks the ladder, not the copy.
func CampaignUpdate(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload campaignUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), campaigns.UpdateInput{
			CampaignID:     campaignID,
			SupplierID:     actor.OrgID,
			Title:          payload.Title,
			Description:    payload.Description,
			ProductDetails: payload.ProductDetails,
			TargetQuantity: payload.TargetQuantity,
			StartDate:      payload.StartDate,
			EndDate:        payload.EndDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, campaignResponseFromModel(updated))
	}
}

// CampaignGet returns one campaign with its price ladder.
func CampaignGet(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}

		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaign, err := svc.Get(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, campaignResponseFromModel(campaign))
	}
}

// CampaignList pages through the acting supplier's campaigns.
func CampaignList(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
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

		items, nextCursor, err := svc.ListBySupplier(r.Context(), actor.OrgID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]campaignResponse, 0, len(items))
		for i := range items {
			out = append(out, campaignResponseFromModel(&items[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"items":       out,
			"next_cursor": nextCursor,
		})
	}
}

// CampaignPublish moves a draft live once its ladder passes validation.
func CampaignPublish(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Publish(r.Context(), campaignID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(enums.CampaignStatusActive)})
	}
}

// CampaignCancel aborts a campaign from any non-terminal state.
func CampaignCancel(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), campaignID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(enums.CampaignStatusCancelled)})
	}
}

// CampaignLock freezes a grace-period campaign so remaining pledges settle.
func CampaignLock(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Lock(r.Context(), campaignID, &actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(enums.CampaignStatusLocked)})
	}
}

// CampaignComplete marks a locked campaign fulfilled.
func CampaignComplete(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Complete(r.Context(), campaignID, &actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(enums.CampaignStatusDone)})
	}
}

// CampaignSummary returns the centrally computed progress snapshot.
func CampaignSummary(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "campaign service unavailable"))
			return
		}

		campaignID, err := pathUUID(r, "campaignId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), campaignID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

type campaignResponse struct {
	ID                 uuid.UUID            `json:"id"`
	SupplierID         uuid.UUID            `json:"supplier_id"`
	Title              string               `json:"title"`
	Description        *string              `json:"description,omitempty"`
	ProductDetails     *string              `json:"product_details,omitempty"`
	Status             enums.CampaignStatus `json:"status"`
	TargetQuantity     int64                `json:"target_quantity"`
	StartDate          time.Time            `json:"start_date"`
	EndDate            time.Time            `json:"end_date"`
	GracePeriodEndDate *time.Time           `json:"grace_period_end_date,omitempty"`
	Brackets           []bracketResponse    `json:"brackets"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

type bracketResponse struct {
	ID           uuid.UUID       `json:"id"`
	MinQuantity  int64           `json:"min_quantity"`
	MaxQuantity  *int64          `json:"max_quantity,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	BracketOrder int             `json:"bracket_order"`
}

func campaignResponseFromModel(m *models.Campaign) campaignResponse {
	brackets := make([]bracketResponse, 0, len(m.Brackets))
	for _, b := range m.Brackets {
		brackets = append(brackets, bracketResponseFromModel(&b))
	}
	return campaignResponse{
		ID:                 m.ID,
		SupplierID:         m.SupplierID,
		Title:              m.Title,
		Description:        m.Description,
		ProductDetails:     m.ProductDetails,
		Status:             m.Status,
		TargetQuantity:     m.TargetQuantity,
		StartDate:          m.StartDate,
		EndDate:            m.EndDate,
		GracePeriodEndDate: m.GracePeriodEndDate,
		Brackets:           brackets,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func bracketResponseFromModel(b *models.DiscountBracket) bracketResponse {
	return bracketResponse{
		ID:           b.ID,
		MinQuantity:  b.MinQuantity,
		MaxQuantity:  b.MaxQuantity,
		UnitPrice:    b.UnitPrice,
		BracketOrder: b.BracketOrder,
	}
}

package controllers

import (
	"net/http"

	"github.com/groupcart/groupcart-backend/api/responses"
	"github.com/groupcart/groupcart-backend/api/validators"
	"github.com/groupcart/groupcart-backend/internal/campaigns"
	pkgerrors "github.com/groupcart/groupcart-backend/pkg/errors"
	"github.com/groupcart/groupcart-backend/pkg/logger"
)

// BracketAdd appends a quantity range to a draft campaign's ladder.
func BracketAdd(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload bracketRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.AddBracket(r.Context(), campaignID, actor.OrgID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, bracketResponseFromModel(created))
	}
}

// BracketUpdate rewrites one range of a draft ladder.
func BracketUpdate(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
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

		bracketID, err := pathUUID(r, "bracketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bracketRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateBracket(r.Context(), campaignID, bracketID, actor.OrgID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, bracketResponseFromModel(updated))
	}
}

// BracketRemove drops one range from a draft ladder.
func BracketRemove(svc campaigns.Service, logg *logger.Logger) http.HandlerFunc {
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

		bracketID, err := pathUUID(r, "bracketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RemoveBracket(r.Context(), campaignID, bracketID, actor.OrgID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/groupcart/groupcart-backend/api/controllers"
	"github.com/groupcart/groupcart-backend/api/middleware"
	"github.com/groupcart/groupcart-backend/internal/campaigns"
	"github.com/groupcart/groupcart-backend/internal/pledges"
	"github.com/groupcart/groupcart-backend/pkg/config"
	"github.com/groupcart/groupcart-backend/pkg/db"
	"github.com/groupcart/groupcart-backend/pkg/enums"
	"github.com/groupcart/groupcart-backend/pkg/logger"
	"github.com/groupcart/groupcart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	brokerP controllers.PubSubPinger,
	campaignService campaigns.Service,
	pledgeService pledges.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	pledgePolicy := middleware.NewWriteRateLimitPolicy(
		"pledge",
		cfg.RateLimit.PledgeWindow,
		cfg.RateLimit.PledgeIPLimit,
		cfg.RateLimit.PledgeUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, brokerP))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.OrgContext(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", controllers.CampaignList(campaignService, logg))
			r.Get("/{campaignId}", controllers.CampaignGet(campaignService, logg))
			r.Get("/{campaignId}/summary", controllers.CampaignSummary(campaignService, logg))
			r.Get("/{campaignId}/pledges", controllers.PledgeListByCampaign(pledgeService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.MemberRoleSupplier), logg))
				r.Post("/", controllers.CampaignCreate(campaignService, logg))
				r.Patch("/{campaignId}", controllers.CampaignUpdate(campaignService, logg))
				r.Post("/{campaignId}/publish", controllers.CampaignPublish(campaignService, logg))
				r.Post("/{campaignId}/cancel", controllers.CampaignCancel(campaignService, logg))
				r.Post("/{campaignId}/lock", controllers.CampaignLock(campaignService, logg))
				r.Post("/{campaignId}/complete", controllers.CampaignComplete(campaignService, logg))
				r.Route("/{campaignId}/brackets", func(r chi.Router) {
					r.Post("/", controllers.BracketAdd(campaignService, logg))
					r.Patch("/{bracketId}", controllers.BracketUpdate(campaignService, logg))
					r.Delete("/{bracketId}", controllers.BracketRemove(campaignService, logg))
				})
			})
		})

		r.Route("/pledges", func(r chi.Router) {
			r.Get("/", controllers.PledgeListMine(pledgeService, logg))
			r.Get("/{pledgeId}", controllers.PledgeGet(pledgeService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.MemberRoleBuyer), logg))
				r.Use(middleware.WriteRateLimit(pledgePolicy, redisClient, logg))
				r.Post("/", controllers.PledgeCreate(pledgeService, logg))
				r.Post("/{pledgeId}/withdraw", controllers.PledgeWithdraw(pledgeService, logg))
				r.Post("/{pledgeId}/commit", controllers.PledgeCommit(pledgeService, logg))
			})
		})
	})

	return r
}

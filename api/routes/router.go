package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborfin/contactdesk-backend/api/controllers"
	"github.com/harborfin/contactdesk-backend/api/middleware"
	"github.com/harborfin/contactdesk-backend/internal/automation"
	"github.com/harborfin/contactdesk-backend/internal/outbound"
	"github.com/harborfin/contactdesk-backend/pkg/config"
	"github.com/harborfin/contactdesk-backend/pkg/db"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
	"github.com/harborfin/contactdesk-backend/pkg/redis"
)

// RouterParams collect everything the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DBPinger   db.Pinger
	Redis      redis.Pinger
	Jobs       outbound.Service
	Runner     controllers.OutboundRunner
	Automation automation.Service
}

// NewRouter wires the admin API. Everything under /api/v1 requires either
// the internal key or the admin role header.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Get("/health/ready", controllers.HealthReady(cfg, logg, params.DBPinger, params.Redis))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.InternalOrAdmin(cfg.Auth, logg))

		r.Route("/outbound", func(r chi.Router) {
			r.Post("/jobs", controllers.SubmitOutboundJob(params.Jobs, logg))
			r.Get("/jobs", controllers.ListOutboundJobs(params.Jobs, logg))
			r.Get("/jobs/{jobId}", controllers.GetOutboundJob(params.Jobs, logg))
			r.Post("/jobs/{jobId}/cancel", controllers.CancelOutboundJob(params.Jobs, logg))
			r.Post("/run", controllers.TriggerOutboundRun(params.Runner, logg))
		})

		r.Route("/automation", func(r chi.Router) {
			r.Post("/dispatch", controllers.TriggerEventDispatch(params.Automation, logg))
			r.Get("/events", controllers.ListAutomationEvents(params.Automation, logg))
			r.Post("/events/{eventId}/retry", controllers.RetryAutomationEvent(params.Automation, logg))
		})

		r.Route("/inbox", func(r chi.Router) {
			r.Get("/", controllers.ListInboxItems(params.Automation, logg))
			r.Post("/{itemId}/{action}", controllers.ActOnInboxItem(params.Automation, logg))
		})
	})

	return r
}

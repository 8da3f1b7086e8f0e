package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/harborfin/contactdesk-backend/api/responses"
	"github.com/harborfin/contactdesk-backend/api/validators"
	"github.com/harborfin/contactdesk-backend/internal/automation"
	"github.com/harborfin/contactdesk-backend/internal/outbound"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

// OutboundRunner is the slice of the runner the trigger endpoint needs.
type OutboundRunner interface {
	Run(ctx context.Context, limit int, now time.Time) (outbound.RunSummary, error)
}

// EventDispatcher is the slice of the dispatcher the trigger endpoint needs.
type EventDispatcher interface {
	Dispatch(ctx context.Context, limit int, now time.Time) (automation.DispatchSummary, error)
}

type runRequest struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=500"`
}

// TriggerOutboundRun drains due jobs once. Per-job failures are counted in
// the summary, not surfaced as request errors.
func TriggerOutboundRun(runner OutboundRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req runRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		summary, err := runner.Run(r.Context(), req.Limit, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// TriggerEventDispatch drains due automation events once.
func TriggerEventDispatch(dispatcher EventDispatcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req runRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		summary, err := dispatcher.Dispatch(r.Context(), req.Limit, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/api/responses"
	"github.com/harborfin/contactdesk-backend/internal/automation"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

// ListAutomationEvents returns a filtered, paginated event listing.
func ListAutomationEvents(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		limit := 0
		if limitStr := strings.TrimSpace(query.Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			limit = value
		}

		result, err := svc.ListEvents(r.Context(),
			strings.TrimSpace(query.Get("status")),
			strings.TrimSpace(query.Get("type")),
			limit,
			strings.TrimSpace(query.Get("cursor")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// RetryAutomationEvent puts a sent or failed event back on the queue.
func RetryAutomationEvent(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, err := uuid.Parse(chi.URLParam(r, "eventId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}
		event, err := svc.RetryEvent(r.Context(), eventID, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/api/responses"
	"github.com/harborfin/contactdesk-backend/internal/automation"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

// ListInboxItems returns a filtered, paginated admin inbox listing.
func ListInboxItems(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
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

		result, err := svc.ListInbox(r.Context(),
			strings.TrimSpace(query.Get("status")),
			strings.TrimSpace(query.Get("severity")),
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

// ActOnInboxItem applies acknowledge, resolve, or dismiss to an item.
func ActOnInboxItem(svc automation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuid.Parse(chi.URLParam(r, "itemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inbox item id"))
			return
		}
		action, err := enums.ParseInboxAction(chi.URLParam(r, "action"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inbox action"))
			return
		}

		item, err := svc.ActOnInbox(r.Context(), itemID, action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

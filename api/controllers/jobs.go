package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/harborfin/contactdesk-backend/api/responses"
	"github.com/harborfin/contactdesk-backend/api/validators"
	"github.com/harborfin/contactdesk-backend/internal/outbound"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
	pkgerrors "github.com/harborfin/contactdesk-backend/pkg/errors"
	"github.com/harborfin/contactdesk-backend/pkg/logger"
)

type campaignSpecRequest struct {
	Name            string   `json:"name" validate:"required"`
	Purpose         string   `json:"purpose" validate:"required"`
	AllowedChannels []string `json:"allowedChannels" validate:"required,min=1"`
}

type submitJobRequest struct {
	CampaignID     *uuid.UUID           `json:"campaignId"`
	Campaign       *campaignSpecRequest `json:"campaign"`
	BankCustomerID *uuid.UUID           `json:"bankCustomerId"`
	Channel        string               `json:"channel" validate:"required"`
	TargetAddress  string               `json:"targetAddress" validate:"required"`
	Payload        json.RawMessage      `json:"payload"`
	ScheduledAt    *time.Time           `json:"scheduledAt"`
	MaxAttempts    *int                 `json:"maxAttempts"`
}

type cancelJobRequest struct {
	ReasonCode    string `json:"reasonCode" validate:"required"`
	ReasonMessage string `json:"reasonMessage"`
}

// SubmitOutboundJob accepts a new delivery for an existing or inline campaign.
func SubmitOutboundJob(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitJobRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		channel, err := enums.ParseChannel(req.Channel)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid channel"))
			return
		}

		in := outbound.SubmitInput{
			CampaignID:     req.CampaignID,
			BankCustomerID: req.BankCustomerID,
			Channel:        channel,
			TargetAddress:  req.TargetAddress,
			Payload:        req.Payload,
			ScheduledAt:    req.ScheduledAt,
			MaxAttempts:    req.MaxAttempts,
		}
		if req.Campaign != nil {
			purpose, err := enums.ParseCampaignPurpose(req.Campaign.Purpose)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campaign purpose"))
				return
			}
			channels := make([]enums.Channel, 0, len(req.Campaign.AllowedChannels))
			for _, raw := range req.Campaign.AllowedChannels {
				ch, err := enums.ParseChannel(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid allowed channel"))
					return
				}
				channels = append(channels, ch)
			}
			in.Campaign = &outbound.CampaignSpec{
				Name:            req.Campaign.Name,
				Purpose:         purpose,
				AllowedChannels: channels,
			}
		}

		job, err := svc.Submit(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

// ListOutboundJobs returns a status-filtered, cursor-paginated job listing.
func ListOutboundJobs(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := outbound.ListParams{}

		if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
			parsed, err := enums.ParseJobStatus(status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &parsed
		}
		if limitStr := strings.TrimSpace(r.URL.Query().Get("limit")); limitStr != "" {
			value, err := strconv.Atoi(limitStr)
			if err != nil || value <= 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer"))
				return
			}
			params.Limit = value
		}
		params.Cursor = strings.TrimSpace(r.URL.Query().Get("cursor"))

		result, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// GetOutboundJob returns a job with its attempt history and audit tail.
func GetOutboundJob(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id"))
			return
		}
		detail, err := svc.Detail(r.Context(), jobID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// CancelOutboundJob cancels a job; cancelling a terminal job is a no-op.
func CancelOutboundJob(svc outbound.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid job id"))
			return
		}
		var req cancelJobRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.Cancel(r.Context(), jobID, outbound.CancelInput{
			ReasonCode:    req.ReasonCode,
			ReasonMessage: req.ReasonMessage,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, job)
	}
}

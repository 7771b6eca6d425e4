package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/carewell/foundation-backend/api/responses"
	"github.com/carewell/foundation-backend/api/validators"
	bloodsvc "github.com/carewell/foundation-backend/internal/bloodrequests"
	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
	"github.com/carewell/foundation-backend/pkg/logger"
)

type createBloodRequestRequest struct {
	BloodType     string  `json:"blood_type" validate:"required"`
	Quantity      int     `json:"quantity" validate:"required,min=1"`
	Urgency       string  `json:"urgency,omitempty" validate:"omitempty,oneof=normal urgent critical"`
	RequesterName string  `json:"requester_name" validate:"required"`
	ContactNumber string  `json:"contact_number" validate:"required"`
	PatientID     *string `json:"patient_id,omitempty"`
	Notes         *string `json:"notes,omitempty"`
}

type transitionBloodRequestRequest struct {
	Status string  `json:"status" validate:"required,oneof=confirmed fulfilled cancelled"`
	Notes  *string `json:"notes,omitempty"`
}

type bloodRequestView struct {
	ID            uuid.UUID  `json:"id"`
	BankID        uuid.UUID  `json:"bank_id"`
	BloodType     string     `json:"blood_type"`
	Quantity      int        `json:"quantity"`
	Urgency       string     `json:"urgency"`
	Status        string     `json:"status"`
	RequesterName string     `json:"requester_name"`
	ContactNumber string     `json:"contact_number"`
	Notes         *string    `json:"notes,omitempty"`
	FulfilledAt   *time.Time `json:"fulfilled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toBloodRequestView(request *models.BloodRequest) bloodRequestView {
	return bloodRequestView{
		ID:            request.ID,
		BankID:        request.BankID,
		BloodType:     request.BloodType,
		Quantity:      request.Quantity,
		Urgency:       request.Urgency.String(),
		Status:        request.Status.String(),
		RequesterName: request.RequesterName,
		ContactNumber: request.ContactNumber,
		Notes:         request.Notes,
		FulfilledAt:   request.FulfilledAt,
		CreatedAt:     request.CreatedAt,
	}
}

// CreateBloodRequest registers a pending request against the default bank.
func CreateBloodRequest(svc *bloodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createBloodRequestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := bloodsvc.CreateInput{
			BloodType:     payload.BloodType,
			Quantity:      payload.Quantity,
			Urgency:       enums.Urgency(payload.Urgency),
			RequesterName: payload.RequesterName,
			ContactNumber: payload.ContactNumber,
			Notes:         payload.Notes,
		}
		if payload.PatientID != nil {
			patientID, err := uuid.Parse(*payload.PatientID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid patient id"))
				return
			}
			input.PatientID = &patientID
		}

		request, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toBloodRequestView(request))
	}
}

// TransitionBloodRequest moves a request along the workflow.
func TransitionBloodRequest(svc *bloodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transitionBloodRequestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseBloodRequestStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		request, err := svc.Transition(r.Context(), id, status, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBloodRequestView(request))
	}
}

// GetBloodRequest returns one request.
func GetBloodRequest(svc *bloodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "requestID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toBloodRequestView(request))
	}
}

// ListBloodRequests returns requests newest first for operator triage.
func ListBloodRequests(svc *bloodsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := enums.BloodRequestStatus(r.URL.Query().Get("status"))
		requests, next, err := svc.List(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]bloodRequestView, 0, len(requests))
		for i := range requests {
			views = append(views, toBloodRequestView(&requests[i]))
		}
		responses.WriteSuccess(w, map[string]any{
			"requests":    views,
			"next_cursor": next,
		})
	}
}

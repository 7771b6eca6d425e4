package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/carewell/foundation-backend/api/middleware"
	"github.com/carewell/foundation-backend/api/responses"
	"github.com/carewell/foundation-backend/api/validators"
	ordersvc "github.com/carewell/foundation-backend/internal/orders"
	"github.com/carewell/foundation-backend/pkg/enums"
	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
	"github.com/carewell/foundation-backend/pkg/logger"
	"github.com/carewell/foundation-backend/pkg/pagination"
)

type orderLineRequest struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type createOrderRequest struct {
	Items           []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	ShippingAddress *string            `json:"shipping_address,omitempty"`
	ContactPhone    *string            `json:"contact_phone,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	PaymentTxnID    string             `json:"payment_txn_id,omitempty"`
}

// CreateOrder handles the pharmacy checkout endpoint.
func CreateOrder(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ordersvc.CreateOrderInput{
			UserID:          userID,
			ShippingAddress: payload.ShippingAddress,
			ContactPhone:    payload.ContactPhone,
			Notes:           payload.Notes,
			PaymentTxnID:    payload.PaymentTxnID,
		}
		for _, item := range payload.Items {
			input.Items = append(input.Items, ordersvc.LineItemInput{SKU: item.SKU, Quantity: item.Quantity})
		}

		view, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// ListMyOrders returns the caller's order history.
func ListMyOrders(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListMine(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// ListAllOrders returns every order for operator review.
func ListAllOrders(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAll(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetOrder returns one order, owner or staff only.
func GetOrder(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		role := middleware.RoleFromContext(r.Context())
		staff := role == enums.RoleOperator.String() || role == enums.RoleAdmin.String()

		view, err := svc.Get(r.Context(), orderID, userID, staff)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}

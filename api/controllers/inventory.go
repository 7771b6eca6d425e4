package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/carewell/foundation-backend/api/responses"
	"github.com/carewell/foundation-backend/api/validators"
	invsvc "github.com/carewell/foundation-backend/internal/inventory"
	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
	"github.com/carewell/foundation-backend/pkg/logger"
)

type createItemRequest struct {
	SKU             string  `json:"sku" validate:"required"`
	Kind            string  `json:"kind" validate:"required,oneof=medicine blood"`
	Name            string  `json:"name" validate:"required"`
	UnitPrice       string  `json:"unit_price" validate:"required"`
	DiscountPercent string  `json:"discount_percent,omitempty"`
	OpeningQuantity int     `json:"opening_quantity" validate:"min=0"`
	ImageURL        *string `json:"image_url,omitempty"`
}

type restockRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

type inventoryItemView struct {
	SKU             string          `json:"sku"`
	Kind            string          `json:"kind"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	QuantityOnHand  int             `json:"quantity_on_hand"`
	ImageURL        *string         `json:"image_url,omitempty"`
}

func toItemView(item *models.InventoryItem) inventoryItemView {
	return inventoryItemView{
		SKU:             item.SKU,
		Kind:            item.Kind.String(),
		Name:            item.Name,
		UnitPrice:       item.UnitPrice,
		DiscountPercent: item.DiscountPercent,
		QuantityOnHand:  item.QuantityOnHand,
		ImageURL:        item.ImageURL,
	}
}

// CreateInventoryItem registers a catalog SKU with its opening stock, or
// rewrites the catalog fields of an existing SKU. Quantity on an existing SKU
// only moves through the restock endpoint.
func CreateInventoryItem(svc *invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := enums.ParseStockKind(payload.Kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stock kind"))
			return
		}
		unitPrice, err := decimal.NewFromString(payload.UnitPrice)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price"))
			return
		}
		discount := decimal.Zero
		if payload.DiscountPercent != "" {
			discount, err = decimal.NewFromString(payload.DiscountPercent)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount percent"))
				return
			}
		}

		item, created, err := svc.UpsertItem(r.Context(), invsvc.CreateItemInput{
			SKU:             payload.SKU,
			Kind:            kind,
			Name:            payload.Name,
			UnitPrice:       unitPrice,
			DiscountPercent: discount,
			OpeningQuantity: payload.OpeningQuantity,
			ImageURL:        payload.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, toItemView(item))
	}
}

// RestockInventoryItem adds units to an existing SKU.
func RestockInventoryItem(svc *invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku := chi.URLParam(r, "sku")
		if sku == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "sku is required"))
			return
		}

		var payload restockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Restock(r.Context(), sku, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toItemView(item))
	}
}

// ListPublicInventory serves the storefront view. Callers can filter by kind
// and include zero-stock rows with ?include_out_of_stock=true.
func ListPublicInventory(svc *invsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := enums.StockKind(r.URL.Query().Get("kind"))
		includeEmpty := r.URL.Query().Get("include_out_of_stock") == "true"

		items, err := svc.ListAvailable(r.Context(), kind, !includeEmpty)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]inventoryItemView, 0, len(items))
		for i := range items {
			views = append(views, toItemView(&items[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

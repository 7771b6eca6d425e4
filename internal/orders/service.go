package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carewell/foundation-backend/internal/inventory"
	"github.com/carewell/foundation-backend/internal/payments"
	"github.com/carewell/foundation-backend/internal/pricing"
	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
	"github.com/carewell/foundation-backend/pkg/logger"
	"github.com/carewell/foundation-backend/pkg/pagination"
)

const maxLineItems = 25

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Catalog resolves SKUs to their catalog rows.
type Catalog interface {
	FindBySKUs(ctx context.Context, skus []string, kind enums.StockKind) ([]models.InventoryItem, error)
}

// Ledger reserves stock for checkout.
type Ledger interface {
	ReserveMany(ctx context.Context, tx *gorm.DB, reservations []inventory.Reservation) error
}

// Service runs the checkout pipeline and order reads.
type Service struct {
	repo     Repository
	catalog  Catalog
	ledger   Ledger
	payments payments.Adapter
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, catalog Catalog, ledger Ledger, adapter payments.Adapter, tx txRunner, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if adapter == nil {
		return nil, fmt.Errorf("payment adapter required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &Service{
		repo:     repo,
		catalog:  catalog,
		ledger:   ledger,
		payments: adapter,
		tx:       tx,
		logg:     logg,
	}, nil
}

// Create runs the checkout pipeline: validate the cart, resolve the catalog,
// price the lines, verify payment, then reserve stock and persist the order
// inside one transaction. A failure at any stage leaves no partial state.
func (s *Service) Create(ctx context.Context, input CreateOrderInput) (*OrderView, error) {
	if err := validateCart(input); err != nil {
		return nil, err
	}

	skus := make([]string, 0, len(input.Items))
	for _, item := range input.Items {
		skus = append(skus, item.SKU)
	}

	catalogRows, err := s.catalog.FindBySKUs(ctx, skus, enums.StockKindMedicine)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving catalog")
	}
	bySKU := make(map[string]models.InventoryItem, len(catalogRows))
	for _, row := range catalogRows {
		bySKU[row.SKU] = row
	}
	var missing []string
	for _, sku := range skus {
		if _, ok := bySKU[sku]; !ok {
			missing = append(missing, sku)
		}
	}
	if len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnknownSKU, fmt.Sprintf("unknown sku %s", missing[0])).
			WithDetails(map[string]any{"skus": missing})
	}

	lineItems := make([]models.OrderLineItem, 0, len(input.Items))
	reservations := make([]inventory.Reservation, 0, len(input.Items))
	priceLines := make([]pricing.LineInput, 0, len(input.Items))
	for _, item := range input.Items {
		row := bySKU[item.SKU]
		discount := pricing.ClampDiscount(row.DiscountPercent)
		line := pricing.LineInput{
			UnitPrice:       row.UnitPrice,
			DiscountPercent: discount,
			Quantity:        item.Quantity,
		}
		priceLines = append(priceLines, line)
		lineItems = append(lineItems, models.OrderLineItem{
			SKU:             row.SKU,
			Name:            row.Name,
			Quantity:        item.Quantity,
			UnitPrice:       row.UnitPrice,
			DiscountPercent: discount,
			LineTotal:       pricing.LineTotal(line),
		})
		reservations = append(reservations, inventory.Reservation{SKU: item.SKU, Quantity: item.Quantity})
	}
	total := pricing.OrderTotal(priceLines)

	order := &models.Order{
		UserID:          input.UserID,
		Status:          enums.OrderStatusPending,
		PaymentStatus:   enums.PaymentStatusPending,
		TotalAmount:     total,
		ShippingAddress: input.ShippingAddress,
		ContactPhone:    input.ContactPhone,
		Notes:           input.Notes,
	}

	// Payment is verified before any stock is touched so a declined card
	// never holds units hostage.
	if input.PaymentTxnID != "" {
		receipt, verr := s.payments.Verify(ctx, input.PaymentTxnID, total)
		if verr != nil {
			return nil, verr
		}
		order.Status = enums.OrderStatusConfirmed
		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaymentTxnID = &receipt.TransactionID
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if rerr := s.ledger.ReserveMany(ctx, tx, reservations); rerr != nil {
			return rerr
		}
		order.Items = lineItems
		if _, cerr := s.repo.WithTx(tx).CreateOrder(ctx, order); cerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, cerr, "persisting order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"user_id":  order.UserID.String(),
			"total":    order.TotalAmount.String(),
			"lines":    len(order.Items),
		}), "order created")
	}

	view := toOrderView(order)
	return &view, nil
}

func validateCart(input CreateOrderInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one line item is required")
	}
	if len(input.Items) > maxLineItems {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d line items allowed", maxLineItems))
	}
	seen := make(map[string]struct{}, len(input.Items))
	for _, item := range input.Items {
		if item.SKU == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item sku is required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity for %s must be positive", item.SKU))
		}
		if _, dup := seen[item.SKU]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate sku %s in cart", item.SKU)).
				WithDetails(map[string]any{"sku": item.SKU})
		}
		seen[item.SKU] = struct{}{}
	}
	return nil
}

// Get loads one order, restricted to its owner unless the caller is staff.
func (s *Service) Get(ctx context.Context, orderID, callerID uuid.UUID, staff bool) (*OrderView, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	if !staff && order.UserID != callerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	view := toOrderView(order)
	return &view, nil
}

// ListMine returns the caller's orders newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return buildList(rows, next), nil
}

// ListAll returns every order newest first for operator review.
func (s *Service) ListAll(ctx context.Context, params pagination.Params) (*OrderList, error) {
	rows, next, err := s.repo.ListAll(ctx, params)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}
	return buildList(rows, next), nil
}

func buildList(rows []models.Order, next *string) *OrderList {
	list := &OrderList{NextCursor: next, Orders: make([]OrderView, 0, len(rows))}
	for i := range rows {
		list.Orders = append(list.Orders, toOrderView(&rows[i]))
	}
	return list
}

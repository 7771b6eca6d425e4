package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/carewell/foundation-backend/pkg/db"
	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
	"github.com/carewell/foundation-backend/pkg/logger"
	"github.com/carewell/foundation-backend/pkg/metrics"
)

// Reservation asks the ledger to take qty units of one SKU off the shelf.
type Reservation struct {
	SKU      string
	Quantity int
}

// Service is the stock ledger. All quantity changes in the system go through
// it: reservations decrement conditionally, releases restore unconditionally.
type Service struct {
	repo    Repository
	metrics *metrics.LedgerMetrics
	logg    *logger.Logger
}

// NewService builds the ledger service with the required dependencies.
func NewService(repo Repository, ledgerMetrics *metrics.LedgerMetrics, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &Service{repo: repo, metrics: ledgerMetrics, logg: logg}, nil
}

// CreateItemInput captures the catalog fields for a new SKU.
type CreateItemInput struct {
	SKU             string
	Kind            enums.StockKind
	Name            string
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	OpeningQuantity int
	ImageURL        *string
}

// CreateItem registers a new SKU with its opening quantity. Quantity changes
// on existing SKUs must go through Restock or Reserve instead.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	if input.SKU == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stock kind %q", input.Kind))
	}
	if input.OpeningQuantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening quantity must not be negative")
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}

	if existing, err := s.repo.FindBySKU(ctx, input.SKU); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %s already exists", input.SKU))
	} else if err != nil {
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnknownSKU {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "checking existing sku")
		}
	}

	item := &models.InventoryItem{
		SKU:             input.SKU,
		Kind:            input.Kind,
		Name:            input.Name,
		UnitPrice:       input.UnitPrice,
		DiscountPercent: input.DiscountPercent,
		QuantityOnHand:  input.OpeningQuantity,
		ImageURL:        input.ImageURL,
	}
	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		// A concurrent create can slip past the existence check.
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("sku %s already exists", input.SKU))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating inventory item")
	}
	return created, nil
}

// Reserve takes qty units of sku inside the caller's transaction and returns
// the quantity left on the shelf. The decrement is guarded so stock can never
// go negative under interleaving.
func (s *Service) Reserve(ctx context.Context, tx *gorm.DB, sku string, qty int) (int, error) {
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
	}
	repo := s.repo.WithTx(tx)

	rows, err := repo.DecrementStock(ctx, sku, qty)
	if err != nil {
		s.metrics.IncReservation("", metrics.OutcomeError)
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decrementing stock")
	}
	if rows > 0 {
		item, lookErr := repo.FindBySKU(ctx, sku)
		if lookErr != nil {
			s.metrics.IncReservation("", metrics.OutcomeError)
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, lookErr, "loading sku after reservation")
		}
		s.metrics.IncReservation(item.Kind.String(), metrics.OutcomeReserved)
		s.metrics.AddUnitsReserved(item.Kind.String(), qty)
		return item.QuantityOnHand, nil
	}

	// Guard rejected the decrement. Look up the row to report why.
	item, err := repo.FindBySKU(ctx, sku)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeUnknownSKU {
			s.metrics.IncReservation("", metrics.OutcomeUnknownSKU)
			return 0, err
		}
		s.metrics.IncReservation("", metrics.OutcomeError)
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading sku after rejected reservation")
	}
	s.metrics.IncReservation(item.Kind.String(), metrics.OutcomeInsufficient)
	return 0, pkgerrors.InsufficientStock(sku, qty, item.QuantityOnHand)
}

// Release restores qty units of sku and returns the resulting quantity. Used
// for restocks and for compensating failed multi-line reservations, so it
// never checks a ceiling.
func (s *Service) Release(ctx context.Context, tx *gorm.DB, sku string, qty int) (int, error) {
	if qty <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "release quantity must be positive")
	}
	repo := s.repo.WithTx(tx)

	rows, err := repo.IncrementStock(ctx, sku, qty)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "incrementing stock")
	}
	if rows == 0 {
		return 0, pkgerrors.UnknownSKU(sku)
	}

	item, lookErr := repo.FindBySKU(ctx, sku)
	if lookErr != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, lookErr, "loading sku after release")
	}
	s.metrics.IncRelease(item.Kind.String())
	return item.QuantityOnHand, nil
}

// ReserveMany reserves every line or none. Lines are processed in SKU order
// so concurrent multi-line orders touching the same SKUs cannot deadlock.
// On failure, already-taken lines are released in reverse order before the
// original error is returned.
func (s *Service) ReserveMany(ctx context.Context, tx *gorm.DB, reservations []Reservation) error {
	if len(reservations) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one reservation required")
	}
	for _, r := range reservations {
		if r.SKU == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation sku is required")
		}
		if r.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be positive")
		}
	}

	sorted := make([]Reservation, len(reservations))
	copy(sorted, reservations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SKU < sorted[j].SKU })

	for i, r := range sorted {
		if _, err := s.Reserve(ctx, tx, r.SKU, r.Quantity); err != nil {
			for j := i - 1; j >= 0; j-- {
				taken := sorted[j]
				if _, relErr := s.Release(ctx, tx, taken.SKU, taken.Quantity); relErr != nil {
					if s.logg != nil {
						s.logg.Error(ctx, "compensating release failed", relErr)
					}
					err = multierr.Append(err, relErr)
				}
			}
			return err
		}
	}
	return nil
}

// Restock adds qty units to an existing SKU.
func (s *Service) Restock(ctx context.Context, sku string, qty int) (*models.InventoryItem, error) {
	if _, err := s.Release(ctx, nil, sku, qty); err != nil {
		return nil, err
	}
	item, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpsertItem creates the SKU when it is new, otherwise rewrites its catalog
// fields (name, price, discount, image). Quantity on an existing SKU is not
// touched here: Restock and Reserve own it. The second return value reports
// whether a row was created.
func (s *Service) UpsertItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, bool, error) {
	item, err := s.CreateItem(ctx, input)
	if err == nil {
		return item, true, nil
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		return nil, false, err
	}

	existing, err := s.repo.FindBySKU(ctx, input.SKU)
	if err != nil {
		return nil, false, err
	}
	if existing.Kind != input.Kind {
		return nil, false, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("sku %s holds %s stock, cannot change it to %s", input.SKU, existing.Kind, input.Kind))
	}

	rows, err := s.repo.UpdateCatalogFields(ctx, input.SKU, CatalogFields{
		Name:            input.Name,
		UnitPrice:       input.UnitPrice,
		DiscountPercent: input.DiscountPercent,
		ImageURL:        input.ImageURL,
	})
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating catalog fields")
	}
	if rows == 0 {
		return nil, false, pkgerrors.UnknownSKU(input.SKU)
	}

	updated, err := s.repo.FindBySKU(ctx, input.SKU)
	if err != nil {
		return nil, false, err
	}
	return updated, false, nil
}

// ListAvailable returns the public storefront view of one stock kind.
func (s *Service) ListAvailable(ctx context.Context, kind enums.StockKind, inStockOnly bool) ([]models.InventoryItem, error) {
	if kind != "" && !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stock kind %q", kind))
	}
	items, err := s.repo.ListByKind(ctx, kind, inStockOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing inventory")
	}
	return items, nil
}

// Item loads one SKU.
func (s *Service) Item(ctx context.Context, sku string) (*models.InventoryItem, error) {
	return s.repo.FindBySKU(ctx, sku)
}

package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
)

// CatalogFields are the descriptive columns of a SKU. Quantity is deliberately
// absent; only the guarded increment and decrement may move it.
type CatalogFields struct {
	Name            string
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	ImageURL        *string
}

// Repository defines persistence operations for the stock ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateItem(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error)
	FindBySKU(ctx context.Context, sku string) (*models.InventoryItem, error)
	FindBySKUs(ctx context.Context, skus []string, kind enums.StockKind) ([]models.InventoryItem, error)
	ListByKind(ctx context.Context, kind enums.StockKind, inStockOnly bool) ([]models.InventoryItem, error)
	UpdateCatalogFields(ctx context.Context, sku string, fields CatalogFields) (int64, error)
	DecrementStock(ctx context.Context, sku string, qty int) (int64, error)
	IncrementStock(ctx context.Context, sku string, qty int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateItem(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) FindBySKU(ctx context.Context, sku string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.UnknownSKU(sku)
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindBySKUs(ctx context.Context, skus []string, kind enums.StockKind) ([]models.InventoryItem, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	var items []models.InventoryItem
	q := r.db.WithContext(ctx).Where("sku IN ?", skus)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) ListByKind(ctx context.Context, kind enums.StockKind, inStockOnly bool) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	q := r.db.WithContext(ctx).Order("sku ASC")
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if inStockOnly {
		q = q.Where("quantity_on_hand > 0")
	}
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) UpdateCatalogFields(ctx context.Context, sku string, fields CatalogFields) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("sku = ?", sku).
		Updates(map[string]any{
			"name":             fields.Name,
			"unit_price":       fields.UnitPrice,
			"discount_percent": fields.DiscountPercent,
			"image_url":        fields.ImageURL,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// DecrementStock subtracts qty only when enough stock exists. The returned
// count is the number of rows touched; zero means the guard rejected it.
func (r *repository) DecrementStock(ctx context.Context, sku string, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("sku = ? AND quantity_on_hand >= ?", sku, qty).
		Updates(map[string]any{
			"quantity_on_hand": gorm.Expr("quantity_on_hand - ?", qty),
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// IncrementStock adds qty back unconditionally for an existing SKU.
func (r *repository) IncrementStock(ctx context.Context, sku string, qty int) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("sku = ?", sku).
		Updates(map[string]any{
			"quantity_on_hand": gorm.Expr("quantity_on_hand + ?", qty),
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

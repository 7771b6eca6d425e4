package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carewell/foundation-backend/pkg/enums"
)

// InventoryItem is one ledger row: a pharmacy SKU or a blood type code,
// together with its quantity on hand. QuantityOnHand is only ever mutated
// through the inventory ledger's conditional updates.
type InventoryItem struct {
	SKU             string          `gorm:"column:sku;primaryKey"`
	Kind            enums.StockKind `gorm:"column:kind;not null;default:'medicine'"`
	Name            string          `gorm:"column:name;not null"`
	UnitPrice       decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null;default:0"`
	DiscountPercent decimal.Decimal `gorm:"column:discount_percent;type:numeric(5,2);not null;default:0"`
	QuantityOnHand  int             `gorm:"column:quantity_on_hand;not null;default:0"`
	ExpiresAt       *time.Time      `gorm:"column:expires_at"`
	ImageURL        *string         `gorm:"column:image_url"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

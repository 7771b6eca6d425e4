package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/carewell/foundation-backend/internal/inventory"
	"github.com/carewell/foundation-backend/internal/orders"
	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	"github.com/carewell/foundation-backend/pkg/logger"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:cron_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}, &models.Order{}, &models.OrderLineItem{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newReaper(t *testing.T, db *gorm.DB, ttl time.Duration) Job {
	t.Helper()
	ledger, err := inventory.NewService(inventory.NewRepository(db), nil, nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	job, err := NewOrderReaperJob(OrderReaperJobParams{
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		DB:            gormTxRunner{db: db},
		PendingReader: orders.NewRepository(db),
		Ledger:        ledger,
		PendingTTL:    ttl,
	})
	if err != nil {
		t.Fatalf("new reaper: %v", err)
	}
	return job
}

func seedOrder(t *testing.T, db *gorm.DB, status enums.OrderStatus, age time.Duration, sku string, qty int) uuid.UUID {
	t.Helper()
	order := models.Order{
		UserID:      uuid.New(),
		Status:      status,
		TotalAmount: decimal.RequireFromString("10.00"),
		CreatedAt:   time.Now().UTC().Add(-age),
		Items: []models.OrderLineItem{{
			SKU:       sku,
			Name:      sku,
			Quantity:  qty,
			UnitPrice: decimal.RequireFromString("10.00"),
			LineTotal: decimal.RequireFromString("10.00"),
		}},
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order.ID
}

func seedStock(t *testing.T, db *gorm.DB, sku string, qty int) {
	t.Helper()
	item := models.InventoryItem{
		SKU:            sku,
		Kind:           enums.StockKindMedicine,
		Name:           sku,
		UnitPrice:      decimal.RequireFromString("10.00"),
		QuantityOnHand: qty,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func TestOrderReaperCancelsStaleAndReleasesStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedStock(t, db, "PARA-500", 5)
	staleID := seedOrder(t, db, enums.OrderStatusPending, 100*time.Hour, "PARA-500", 3)
	freshID := seedOrder(t, db, enums.OrderStatusPending, time.Hour, "PARA-500", 1)
	paidID := seedOrder(t, db, enums.OrderStatusConfirmed, 200*time.Hour, "PARA-500", 2)

	job := newReaper(t, db, 72*time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run reaper: %v", err)
	}

	statuses := map[uuid.UUID]enums.OrderStatus{}
	var rows []models.Order
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("load orders: %v", err)
	}
	for _, row := range rows {
		statuses[row.ID] = row.Status
	}

	if statuses[staleID] != enums.OrderStatusCancelled {
		t.Fatalf("expected stale order cancelled, got %s", statuses[staleID])
	}
	if statuses[freshID] != enums.OrderStatusPending {
		t.Fatalf("expected fresh order untouched, got %s", statuses[freshID])
	}
	if statuses[paidID] != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed order untouched, got %s", statuses[paidID])
	}

	var item models.InventoryItem
	if err := db.First(&item, "sku = ?", "PARA-500").Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if item.QuantityOnHand != 8 {
		t.Fatalf("expected stock 5+3=8 after release, got %d", item.QuantityOnHand)
	}
}

func TestOrderReaperIdempotentRun(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	seedStock(t, db, "AMOX-250", 2)
	seedOrder(t, db, enums.OrderStatusPending, 100*time.Hour, "AMOX-250", 2)

	job := newReaper(t, db, 72*time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var item models.InventoryItem
	if err := db.First(&item, "sku = ?", "AMOX-250").Error; err != nil {
		t.Fatalf("load stock: %v", err)
	}
	if item.QuantityOnHand != 4 {
		t.Fatalf("expected exactly one release (2+2=4), got %d", item.QuantityOnHand)
	}
}

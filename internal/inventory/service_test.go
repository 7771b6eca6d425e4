package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:ledger_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.InventoryItem{}); err != nil {
		t.Fatalf("migrate inventory: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func seedItem(t *testing.T, db *gorm.DB, sku string, kind enums.StockKind, qty int) {
	t.Helper()
	item := models.InventoryItem{
		SKU:            sku,
		Kind:           kind,
		Name:           sku,
		UnitPrice:      decimal.RequireFromString("10.00"),
		QuantityOnHand: qty,
	}
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed %s: %v", sku, err)
	}
}

func loadQty(t *testing.T, db *gorm.DB, sku string) int {
	t.Helper()
	var item models.InventoryItem
	if err := db.First(&item, "sku = ?", sku).Error; err != nil {
		t.Fatalf("load %s: %v", sku, err)
	}
	return item.QuantityOnHand
}

func TestReserveDecrementsStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "PARA-500", enums.StockKindMedicine, 5)

	left, err := svc.Reserve(ctx, db, "PARA-500", 3)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if left != 2 {
		t.Fatalf("expected 2 left on the shelf, got %d", left)
	}
	if got := loadQty(t, db, "PARA-500"); got != 2 {
		t.Fatalf("expected qty 2, got %d", got)
	}
}

func TestReserveInsufficientStockLeavesQtyUntouched(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "AMOX-250", enums.StockKindMedicine, 2)

	_, err := svc.Reserve(ctx, db, "AMOX-250", 3)
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["available"] != 2 {
		t.Fatalf("expected available=2 in details, got %v", details["available"])
	}
	if got := loadQty(t, db, "AMOX-250"); got != 2 {
		t.Fatalf("rejected reservation must not change qty, got %d", got)
	}
}

func TestReserveExactRemainingStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "IBU-400", enums.StockKindMedicine, 4)

	left, err := svc.Reserve(ctx, db, "IBU-400", 4)
	if err != nil {
		t.Fatalf("reserve all remaining: %v", err)
	}
	if left != 0 {
		t.Fatalf("expected 0 left, got %d", left)
	}

	_, err = svc.Reserve(ctx, db, "IBU-400", 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock at zero, got %v", err)
	}
}

func TestReserveUnknownSKU(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Reserve(context.Background(), db, "NOPE-1", 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnknownSKU {
		t.Fatalf("expected unknown sku error, got %v", err)
	}
}

func TestReserveInvalidQuantity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Reserve(context.Background(), db, "PARA-500", 0)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "O_NEG", enums.StockKindBlood, 1)

	after, err := svc.Release(ctx, db, "O_NEG", 4)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if after != 5 {
		t.Fatalf("expected 5 units reported, got %d", after)
	}
	if got := loadQty(t, db, "O_NEG"); got != 5 {
		t.Fatalf("expected qty 5, got %d", got)
	}
}

func TestReleaseUnknownSKU(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.Release(context.Background(), db, "NOPE-2", 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnknownSKU {
		t.Fatalf("expected unknown sku error, got %v", err)
	}
}

func TestReserveManyAllOrNothing(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "PARA-500", enums.StockKindMedicine, 5)
	seedItem(t, db, "AMOX-250", enums.StockKindMedicine, 1)

	err := svc.ReserveMany(ctx, db, []Reservation{
		{SKU: "PARA-500", Quantity: 3},
		{SKU: "AMOX-250", Quantity: 2},
	})
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("unexpected error: %v", err)
	}

	// The failed batch must leave every touched row as it started.
	if got := loadQty(t, db, "PARA-500"); got != 5 {
		t.Fatalf("expected PARA-500 restored to 5, got %d", got)
	}
	if got := loadQty(t, db, "AMOX-250"); got != 1 {
		t.Fatalf("expected AMOX-250 untouched at 1, got %d", got)
	}
}

func TestReserveManySuccess(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "PARA-500", enums.StockKindMedicine, 5)
	seedItem(t, db, "AMOX-250", enums.StockKindMedicine, 3)

	err := svc.ReserveMany(ctx, db, []Reservation{
		{SKU: "AMOX-250", Quantity: 2},
		{SKU: "PARA-500", Quantity: 5},
	})
	if err != nil {
		t.Fatalf("reserve many: %v", err)
	}
	if got := loadQty(t, db, "PARA-500"); got != 0 {
		t.Fatalf("expected PARA-500 at 0, got %d", got)
	}
	if got := loadQty(t, db, "AMOX-250"); got != 1 {
		t.Fatalf("expected AMOX-250 at 1, got %d", got)
	}
}

func TestSequentialReservesConserveStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "HOT-1", enums.StockKindMedicine, 10)

	granted := 0
	for i := 0; i < 8; i++ {
		if _, err := svc.Reserve(ctx, db, "HOT-1", 3); err == nil {
			granted += 3
		}
	}
	remaining := loadQty(t, db, "HOT-1")
	if granted+remaining != 10 {
		t.Fatalf("stock not conserved: granted=%d remaining=%d", granted, remaining)
	}
	if remaining < 0 {
		t.Fatalf("stock went negative: %d", remaining)
	}
}

// singleConn pins the pool to one connection. Shared-cache sqlite rejects
// overlapping writers, so statements serialize there while the goroutines
// above them still interleave freely.
func singleConn(t *testing.T, db *gorm.DB) {
	t.Helper()
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	singleConn(t, db)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "HOT-2", enums.StockKindMedicine, 10)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		granted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reserve(ctx, db, "HOT-2", 3); err == nil {
				mu.Lock()
				granted += 3
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	remaining := loadQty(t, db, "HOT-2")
	if remaining < 0 {
		t.Fatalf("stock went negative: %d", remaining)
	}
	// 10 units in lots of 3: exactly three reservations can win.
	if granted != 9 || remaining != 1 {
		t.Fatalf("expected 9 granted with 1 remaining, got granted=%d remaining=%d", granted, remaining)
	}
}

func TestConcurrentReserveReleaseConservation(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	singleConn(t, db)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "HOT-3", enums.StockKindMedicine, 10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Reserve(ctx, db, "HOT-3", 2); err == nil {
				mu.Lock()
				reserved += 2
				mu.Unlock()
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Release(ctx, db, "HOT-3", 3); err != nil {
				t.Errorf("release: %v", err)
			}
		}()
	}
	wg.Wait()

	remaining := loadQty(t, db, "HOT-3")
	if remaining < 0 {
		t.Fatalf("stock went negative: %d", remaining)
	}
	if want := 10 - reserved + 12; remaining != want {
		t.Fatalf("stock not conserved: reserved=%d remaining=%d want=%d", reserved, remaining, want)
	}
}

func TestCreateItemRejectsDuplicateSKU(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "PARA-500", enums.StockKindMedicine, 5)

	_, err := svc.CreateItem(ctx, CreateItemInput{
		SKU:             "PARA-500",
		Kind:            enums.StockKindMedicine,
		Name:            "Paracetamol 500mg",
		UnitPrice:       decimal.RequireFromString("3.50"),
		OpeningQuantity: 10,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestCreateItemAndRestock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	created, err := svc.CreateItem(ctx, CreateItemInput{
		SKU:             "A_POS",
		Kind:            enums.StockKindBlood,
		Name:            "A positive",
		UnitPrice:       decimal.Zero,
		OpeningQuantity: 2,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if created.QuantityOnHand != 2 {
		t.Fatalf("expected opening qty 2, got %d", created.QuantityOnHand)
	}

	after, err := svc.Restock(ctx, "A_POS", 3)
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if after.QuantityOnHand != 5 {
		t.Fatalf("expected qty 5 after restock, got %d", after.QuantityOnHand)
	}
}

func TestUpsertItemCreatesWhenNew(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)

	item, created, err := svc.UpsertItem(context.Background(), CreateItemInput{
		SKU:             "CETIRIZINE-10",
		Kind:            enums.StockKindMedicine,
		Name:            "Cetirizine 10mg",
		UnitPrice:       decimal.RequireFromString("2.00"),
		OpeningQuantity: 30,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !created {
		t.Fatal("expected a created row")
	}
	if item.QuantityOnHand != 30 {
		t.Fatalf("expected opening qty 30, got %d", item.QuantityOnHand)
	}
}

func TestUpsertItemRewritesCatalogWithoutTouchingStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "PARA-500", enums.StockKindMedicine, 7)

	newImage := "https://cdn.example.org/para-500.png"
	item, created, err := svc.UpsertItem(ctx, CreateItemInput{
		SKU:             "PARA-500",
		Kind:            enums.StockKindMedicine,
		Name:            "Paracetamol 500mg blister",
		UnitPrice:       decimal.RequireFromString("4.25"),
		DiscountPercent: decimal.RequireFromString("10"),
		OpeningQuantity: 999,
		ImageURL:        &newImage,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if created {
		t.Fatal("expected an update, not a create")
	}
	if item.Name != "Paracetamol 500mg blister" {
		t.Fatalf("expected renamed item, got %q", item.Name)
	}
	if !item.UnitPrice.Equal(decimal.RequireFromString("4.25")) {
		t.Fatalf("expected price 4.25, got %s", item.UnitPrice)
	}
	if !item.DiscountPercent.Equal(decimal.RequireFromString("10")) {
		t.Fatalf("expected discount 10, got %s", item.DiscountPercent)
	}
	if item.ImageURL == nil || *item.ImageURL != newImage {
		t.Fatalf("expected image url updated, got %v", item.ImageURL)
	}
	// The opening quantity of the payload must not leak into an existing row.
	if item.QuantityOnHand != 7 {
		t.Fatalf("expected qty still 7, got %d", item.QuantityOnHand)
	}
}

func TestUpsertItemRejectsKindChange(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	seedItem(t, db, "O_NEG", enums.StockKindBlood, 5)

	_, _, err := svc.UpsertItem(context.Background(), CreateItemInput{
		SKU:       "O_NEG",
		Kind:      enums.StockKindMedicine,
		Name:      "not blood",
		UnitPrice: decimal.Zero,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on kind change, got %v", err)
	}
}

func TestListAvailableFiltersOutOfStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()
	seedItem(t, db, "PARA-500", enums.StockKindMedicine, 5)
	seedItem(t, db, "AMOX-250", enums.StockKindMedicine, 0)
	seedItem(t, db, "O_NEG", enums.StockKindBlood, 3)

	items, err := svc.ListAvailable(ctx, enums.StockKindMedicine, true)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(items) != 1 || items[0].SKU != "PARA-500" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

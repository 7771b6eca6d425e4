package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	"github.com/carewell/foundation-backend/pkg/pagination"
)

func seedOrder(t *testing.T, repo Repository, userID uuid.UUID, status enums.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:        userID,
		Status:        status,
		PaymentStatus: enums.PaymentStatusPending,
		TotalAmount:   decimal.RequireFromString("10.00"),
		Items: []models.OrderLineItem{
			{SKU: "PARA-500", Name: "Paracetamol", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00"), LineTotal: decimal.RequireFromString("10.00")},
		},
	}
	created, err := repo.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	// Backdate after insert since autoCreateTime stamps on create.
	err = repo.(*repository).db.Model(&models.Order{}).
		Where("id = ?", created.ID).
		Update("created_at", createdAt).Error
	require.NoError(t, err)
	created.CreatedAt = createdAt
	return created
}

func TestUpdateStatusOnlyTouchesExpectedState(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), enums.OrderStatusPending, time.Now().UTC())

	rows, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// The same guarded flip loses once the state moved on.
	rows, err = repo.UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, reloaded.Status)
}

func TestFindPendingBeforeFiltersByStatusAndAge(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	repo := NewRepository(db)
	now := time.Now().UTC()

	stale := seedOrder(t, repo, uuid.New(), enums.OrderStatusPending, now.Add(-100*time.Hour))
	seedOrder(t, repo, uuid.New(), enums.OrderStatusPending, now.Add(-time.Hour))
	seedOrder(t, repo, uuid.New(), enums.OrderStatusConfirmed, now.Add(-200*time.Hour))

	found, err := repo.FindPendingBefore(context.Background(), now.Add(-72*time.Hour))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
	require.Len(t, found[0].Items, 1, "line items preloaded for the release pass")
}

func TestListByUserPaginatesNewestFirst(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		order := seedOrder(t, repo, userID, enums.OrderStatusPending, base.Add(time.Duration(i)*time.Minute))
		ids = append(ids, order.ID)
	}
	seedOrder(t, repo, uuid.New(), enums.OrderStatusPending, base)

	first, cursor, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, ids[2], first[0].ID)
	assert.Equal(t, ids[1], first[1].ID)

	rest, cursor, err := repo.ListByUser(context.Background(), userID, pagination.Params{Limit: 2, Cursor: *cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, ids[0], rest[0].ID)
	assert.Nil(t, cursor)
}

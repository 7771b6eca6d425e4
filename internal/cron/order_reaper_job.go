package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/carewell/foundation-backend/internal/orders"
	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	"github.com/carewell/foundation-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pendingOrderReader interface {
	FindPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderStatusUpdater interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) (int64, error)
}

// stockReleaser puts a cancelled order's units back on the shelf.
type stockReleaser interface {
	Release(ctx context.Context, tx *gorm.DB, sku string, qty int) (int, error)
}

type reaperRepoFactory func(tx *gorm.DB) orderStatusUpdater

func defaultReaperRepo(tx *gorm.DB) orderStatusUpdater {
	return orders.NewRepository(tx)
}

// OrderReaperJobParams configure the stale order reaper.
type OrderReaperJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	PendingReader pendingOrderReader
	Ledger        stockReleaser
	PendingTTL    time.Duration
	RepoFactory   reaperRepoFactory
}

// NewOrderReaperJob builds the cron job that cancels unpaid orders past
// their TTL and returns their reserved stock to the ledger.
func NewOrderReaperJob(params OrderReaperJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.PendingReader == nil {
		return nil, fmt.Errorf("pending orders reader required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock releaser required")
	}
	if params.PendingTTL <= 0 {
		return nil, fmt.Errorf("pending ttl must be positive")
	}
	repoFactory := params.RepoFactory
	if repoFactory == nil {
		repoFactory = defaultReaperRepo
	}
	return &orderReaperJob{
		logg:          params.Logger,
		db:            params.DB,
		pendingReader: params.PendingReader,
		ledger:        params.Ledger,
		pendingTTL:    params.PendingTTL,
		repoFactory:   repoFactory,
		now:           time.Now,
	}, nil
}

type orderReaperJob struct {
	logg          *logger.Logger
	db            txRunner
	pendingReader pendingOrderReader
	ledger        stockReleaser
	pendingTTL    time.Duration
	repoFactory   reaperRepoFactory
	now           func() time.Time
}

func (j *orderReaperJob) Name() string { return "order-reaper" }

func (j *orderReaperJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.pendingTTL)
	stale, err := j.pendingReader.FindPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	expired := 0
	for i := range stale {
		order := stale[i]
		if err := j.expireOrder(ctx, &order); err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		expired++
	}

	if expired > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"expired": expired,
			"scanned": len(stale),
		}), "stale pending orders cancelled")
	}
	return multierr.Combine(errs...)
}

// expireOrder cancels one order and returns its stock. The guarded status
// flip keeps a concurrent payment confirmation from losing its stock.
func (j *orderReaperJob) expireOrder(ctx context.Context, order *models.Order) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repoFactory(tx).UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Someone confirmed or cancelled it since the scan; leave it be.
			return nil
		}
		for _, item := range order.Items {
			if _, err := j.ledger.Release(ctx, tx, item.SKU, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

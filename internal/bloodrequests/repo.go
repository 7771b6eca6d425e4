package bloodrequests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	"github.com/carewell/foundation-backend/pkg/pagination"
)

// Repository defines persistence operations for blood requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.BloodRequest) (*models.BloodRequest, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error)
	List(ctx context.Context, status enums.BloodRequestStatus, params pagination.Params) ([]models.BloodRequest, *string, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.BloodRequestStatus, notes *string, fulfilledAt *time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a blood request repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.BloodRequest) (*models.BloodRequest, error) {
	if err := r.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, err
	}
	return request, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error) {
	var request models.BloodRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) List(ctx context.Context, status enums.BloodRequestStatus, params pagination.Params) ([]models.BloodRequest, *string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	q := r.db.WithContext(ctx)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var requests []models.BloodRequest
	err = q.Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&requests).Error
	if err != nil {
		return nil, nil, err
	}

	var next *string
	if len(requests) > limit {
		requests = requests[:limit]
		last := requests[len(requests)-1]
		encoded := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		next = &encoded
	}
	return requests, next, nil
}

// TransitionStatus flips the status only when the row still holds the
// expected one, so two operators racing the same request cannot both win.
// Operator notes, when provided, replace the stored ones in the same update.
func (r *repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.BloodRequestStatus, notes *string, fulfilledAt *time.Time) (int64, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	if fulfilledAt != nil {
		updates["fulfilled_at"] = *fulfilledAt
	}
	res := r.db.WithContext(ctx).Model(&models.BloodRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

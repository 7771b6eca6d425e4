package bloodrequests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/carewell/foundation-backend/pkg/db/models"
	"github.com/carewell/foundation-backend/pkg/enums"
	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
	"github.com/carewell/foundation-backend/pkg/logger"
	"github.com/carewell/foundation-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Ledger reserves blood units when a request is fulfilled.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, sku string, qty int) (int, error)
}

// Catalog checks that a blood type exists on the ledger.
type Catalog interface {
	FindBySKUs(ctx context.Context, skus []string, kind enums.StockKind) ([]models.InventoryItem, error)
}

// legalTransitions enumerates the allowed status edges. Fulfillment is only
// reachable through confirmation.
var legalTransitions = map[enums.BloodRequestStatus][]enums.BloodRequestStatus{
	enums.BloodRequestStatusPending:   {enums.BloodRequestStatusConfirmed, enums.BloodRequestStatusCancelled},
	enums.BloodRequestStatusConfirmed: {enums.BloodRequestStatusFulfilled, enums.BloodRequestStatusCancelled},
}

func transitionAllowed(from, to enums.BloodRequestStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Service runs the blood request workflow.
type Service struct {
	repo    Repository
	catalog Catalog
	ledger  Ledger
	tx      txRunner
	bankID  uuid.UUID
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the blood request service with the required dependencies.
func NewService(repo Repository, catalog Catalog, ledger Ledger, tx txRunner, bankID uuid.UUID, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("blood request repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if bankID == uuid.Nil {
		return nil, fmt.Errorf("default blood bank id required")
	}
	return &Service{
		repo:    repo,
		catalog: catalog,
		ledger:  ledger,
		tx:      tx,
		bankID:  bankID,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// CreateInput carries the fields of a new blood request.
type CreateInput struct {
	BloodType     string
	Quantity      int
	Urgency       enums.Urgency
	RequesterName string
	ContactNumber string
	PatientID     *uuid.UUID
	Notes         *string
}

// Create registers a pending blood request against the default bank. The
// blood type must exist on the ledger even if its current stock is zero.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.BloodRequest, error) {
	if input.BloodType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "blood type is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.RequesterName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester name is required")
	}
	if input.ContactNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "contact number is required")
	}
	urgency := input.Urgency
	if urgency == "" {
		urgency = enums.UrgencyNormal
	}
	if !urgency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid urgency %q", input.Urgency))
	}

	rows, err := s.catalog.FindBySKUs(ctx, []string{input.BloodType}, enums.StockKindBlood)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving blood type")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.UnknownSKU(input.BloodType)
	}

	request := &models.BloodRequest{
		BankID:        s.bankID,
		PatientID:     input.PatientID,
		BloodType:     input.BloodType,
		Quantity:      input.Quantity,
		Urgency:       urgency,
		Status:        enums.BloodRequestStatusPending,
		RequesterName: input.RequesterName,
		ContactNumber: input.ContactNumber,
		Notes:         input.Notes,
	}
	created, err := s.repo.Create(ctx, request)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating blood request")
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"request_id": created.ID.String(),
			"blood_type": created.BloodType,
			"quantity":   created.Quantity,
			"urgency":    created.Urgency.String(),
		}), "blood request created")
	}
	return created, nil
}

// Transition moves a request along the workflow, optionally replacing the
// operator notes. Fulfillment decrements the blood-type ledger row and stamps
// the status in one transaction; the guarded status flip makes a second
// fulfillment attempt lose cleanly.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to enums.BloodRequestStatus, notes *string) (*models.BloodRequest, error) {
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", to))
	}

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blood request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading blood request")
	}

	if !transitionAllowed(request.Status, to) {
		return nil, invalidTransition(request.Status, to)
	}

	if to == enums.BloodRequestStatusFulfilled {
		if err := s.fulfill(ctx, request, notes); err != nil {
			return nil, err
		}
	} else {
		rows, uerr := s.repo.TransitionStatus(ctx, id, request.Status, to, notes, nil)
		if uerr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, uerr, "updating blood request status")
		}
		if rows == 0 {
			return nil, s.reportLostRace(ctx, id, to)
		}
	}

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading blood request")
	}
	return updated, nil
}

// fulfill flips confirmed to fulfilled and takes the units off the ledger.
// The guarded update is what makes fulfillment exactly-once: whoever loses
// the flip never reaches the reservation.
func (s *Service) fulfill(ctx context.Context, request *models.BloodRequest, notes *string) error {
	fulfilledAt := s.now().UTC()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		rows, uerr := s.repo.WithTx(tx).TransitionStatus(
			ctx, request.ID,
			enums.BloodRequestStatusConfirmed, enums.BloodRequestStatusFulfilled,
			notes, &fulfilledAt,
		)
		if uerr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, uerr, "marking blood request fulfilled")
		}
		if rows == 0 {
			return s.reportLostRace(ctx, request.ID, enums.BloodRequestStatusFulfilled)
		}
		_, rerr := s.ledger.Reserve(ctx, tx, request.BloodType, request.Quantity)
		return rerr
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"request_id": request.ID.String(),
			"blood_type": request.BloodType,
			"quantity":   request.Quantity,
		}), "blood request fulfilled")
	}
	return nil
}

// reportLostRace reloads the row to name the state that beat us to it.
func (s *Service) reportLostRace(ctx context.Context, id uuid.UUID, to enums.BloodRequestStatus) error {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reloading contested blood request")
	}
	return invalidTransition(current.Status, to)
}

func invalidTransition(from, to enums.BloodRequestStatus) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition,
		fmt.Sprintf("cannot transition blood request from %s to %s", from, to)).
		WithDetails(map[string]any{"from": from.String(), "to": to.String()})
}

// Get loads one blood request.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.BloodRequest, error) {
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blood request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading blood request")
	}
	return request, nil
}

// List returns blood requests newest first, optionally filtered by status.
func (s *Service) List(ctx context.Context, status enums.BloodRequestStatus, params pagination.Params) ([]models.BloodRequest, *string, error) {
	if status != "" && !status.IsValid() {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", status))
	}
	requests, next, err := s.repo.List(ctx, status, params)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, nil, typed
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing blood requests")
	}
	return requests, next, nil
}

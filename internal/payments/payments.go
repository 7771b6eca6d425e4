package payments

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/carewell/foundation-backend/pkg/errors"
)

// Receipt is the processor's confirmation of a settled payment.
type Receipt struct {
	TransactionID string
	Amount        decimal.Decimal
	SettledAt     time.Time
}

// Adapter verifies an externally initiated payment before checkout commits.
type Adapter interface {
	Verify(ctx context.Context, transactionID string, amount decimal.Decimal) (*Receipt, error)
}

// MockProcessor stands in for the real payment gateway. It settles any
// non-empty transaction id that is not explicitly marked declined.
type MockProcessor struct {
	now func() time.Time
}

// NewMockProcessor builds the stand-in processor.
func NewMockProcessor() *MockProcessor {
	return &MockProcessor{now: time.Now}
}

// Verify checks the transaction id shape and returns a settled receipt.
func (m *MockProcessor) Verify(_ context.Context, transactionID string, amount decimal.Decimal) (*Receipt, error) {
	txnID := strings.TrimSpace(transactionID)
	if txnID == "" {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "transaction id is required").
			WithDetails(map[string]any{"reason": "missing_transaction_id"})
	}
	if strings.HasPrefix(strings.ToLower(txnID), "declined") {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment was declined by the processor").
			WithDetails(map[string]any{"transaction_id": txnID, "reason": "declined"})
	}
	if amount.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment amount must not be negative").
			WithDetails(map[string]any{"transaction_id": txnID, "reason": "invalid_amount"})
	}

	return &Receipt{
		TransactionID: txnID,
		Amount:        amount,
		SettledAt:     m.now().UTC(),
	}, nil
}

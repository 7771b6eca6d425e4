package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/carewell/foundation-backend/pkg/enums"
)

// BloodRequest tracks a request for blood units against the fulfillment
// authority's ledger. Status is mutated only by operator transitions;
// fulfillment decrements the blood-type ledger row exactly once.
type BloodRequest struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	BankID        uuid.UUID                `gorm:"column:bank_id;type:uuid;not null"`
	PatientID     *uuid.UUID               `gorm:"column:patient_id;type:uuid"`
	BloodType     string                   `gorm:"column:blood_type;not null"`
	Quantity      int                      `gorm:"column:quantity;not null"`
	Urgency       enums.Urgency            `gorm:"column:urgency;not null;default:'normal'"`
	Status        enums.BloodRequestStatus `gorm:"column:status;not null;default:'pending'"`
	RequesterName string                   `gorm:"column:requester_name;not null"`
	ContactNumber string                   `gorm:"column:contact_number;not null"`
	Notes         *string                  `gorm:"column:notes"`
	FulfilledAt   *time.Time               `gorm:"column:fulfilled_at"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

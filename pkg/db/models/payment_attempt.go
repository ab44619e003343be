package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cardhaus/cardhaus-backend/pkg/enums"
)

// PaymentAttempt tracks one handshake with the remote processor for an
// order. The stored RemoteRef is the source of truth when approving.
type PaymentAttempt struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID                  `gorm:"column:order_id;type:uuid;not null;index"`
	RemoteRef     string                     `gorm:"column:remote_ref;not null;index"`
	Status        enums.PaymentAttemptStatus `gorm:"column:status;type:payment_attempt_status;not null;default:'created'"`
	Amount        decimal.Decimal            `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      enums.Currency             `gorm:"column:currency;not null;default:'USD'"`
	FailureReason *string                    `gorm:"column:failure_reason"`
	CapturedAt    *time.Time                 `gorm:"column:captured_at"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

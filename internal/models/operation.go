package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// OperationType is the kind of ledger event.
type OperationType string

// OperationType values.
const (
	// OpEarn credits points computed from a purchase amount.
	OpEarn OperationType = "EARN"
	// OpRedeem debits points against the balance.
	OpRedeem OperationType = "REDEEM"
	// OpRefund reverses a prior EARN or REDEEM.
	OpRefund OperationType = "REFUND"
)

// OperationSource identifies which channel submitted the operation.
type OperationSource string

// OperationSource values.
const (
	// SourceStaffApp is the cashier-facing application.
	SourceStaffApp OperationSource = "STAFF_APP"
	// SourcePOS is a point-of-sale integration authenticated by API key.
	SourcePOS OperationSource = "POS"
	// SourceInternal is system-initiated activity.
	SourceInternal OperationSource = "INTERNAL"
)

// OperationStatus is the terminal status of an attempt.
type OperationStatus string

// OperationStatus values.
const (
	// OpSuccess means the balance mutation committed.
	OpSuccess OperationStatus = "SUCCESS"
	// OpFailed records an auditable rejected attempt.
	OpFailed OperationStatus = "FAILED"
)

// Operation is an immutable ledger fact: one row per accepted or rejected
// attempt against a real card. Rows are never updated or deleted; the
// append-only log is the audit trail and the basis for refund eligibility.
// BalanceAfter snapshots the card balance at commit time so idempotent
// replays return the original result verbatim.
type Operation struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID uint64 `gorm:"not null;index;uniqueIndex:uniq_ops_tenant_idem;index:idx_ops_tenant_receipt"` // Owning tenant.
	CardID   uint64 `gorm:"not null;index:idx_ops_card_created"`                                          // Affected card.

	Type   OperationType   `gorm:"type:varchar(8);not null"`
	Source OperationSource `gorm:"type:varchar(16);not null"`
	Status OperationStatus `gorm:"type:varchar(16);not null;default:'SUCCESS'"`

	Amount       decimal.Decimal `gorm:"type:decimal(12,2);not null"` // Monetary amount of the purchase/refund.
	Points       int64           `gorm:"not null;default:0"`          // Point delta magnitude.
	BalanceAfter int64           `gorm:"not null;default:0"`          // Card balance after commit.

	ReceiptID      *string `gorm:"type:varchar(64);index:idx_ops_tenant_receipt"`      // POS/cashier receipt reference.
	IdempotencyKey *string `gorm:"type:varchar(64);uniqueIndex:uniq_ops_tenant_idem"`  // At-most-once key, unique per tenant.

	OriginalOperationID *uint64 `gorm:"index"` // Back-reference for refunds.

	StaffID    *uint64 `gorm:"index"` // Acting staff member, nil for POS.
	LocationID *uint64 `gorm:"index"` // Location context, if any.

	FailReason string            `gorm:"type:varchar(64)"` // Reason code for FAILED rows.
	Metadata   datatypes.JSONMap `gorm:"type:json"`        // Free-form context.

	Card Card `gorm:"foreignKey:CardID"` // Card relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_ops_card_created"` // Creation timestamp.
}

package models

import "time"

// QRToken is a single-use, short-lived credential bound to one card. It
// transitions NOT-USED -> USED exactly once; expired unused tokens are
// garbage-collected by the sweeper.
type QRToken struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID uint64 `gorm:"not null;index:idx_qr_tenant_created"` // Owning tenant.
	CardID   uint64 `gorm:"not null;index"`                       // Bound card.
	Token    string `gorm:"type:varchar(64);not null;uniqueIndex"` // Opaque random payload.

	ExpiresAt time.Time  `gorm:"not null"` // Hard expiry, ~10s after issue.
	UsedAt    *time.Time // Set exactly once when consumed by the ledger.

	Card Card `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE"` // Card relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_qr_tenant_created"` // Creation timestamp.
}

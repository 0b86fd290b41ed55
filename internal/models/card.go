package models

import "time"

// CardStatus is the lifecycle state of a loyalty card.
type CardStatus string

// CardStatus values. Cards are never deleted, only blocked.
const (
	// CardActive allows earn/redeem operations.
	CardActive CardStatus = "ACTIVE"
	// CardBlocked rejects all operations until unblocked.
	CardBlocked CardStatus = "BLOCKED"
)

// Tier labels derived from the card balance and the resolved rule thresholds.
const (
	TierBronze = "Bronze"
	TierSilver = "Silver"
	TierGold   = "Gold"
)

// Card is a client's points-bearing account within one tenant. Balance is
// mutated only by the ledger engine under an exclusive row lock and never
// goes negative. Tier is derived, recomputed on every balance change.
type Card struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID uint64     `gorm:"not null;index"`       // Owning tenant.
	UserID   uint64     `gorm:"not null;uniqueIndex"` // Card owner, one card per user.
	Status   CardStatus `gorm:"type:varchar(16);not null;default:'ACTIVE'"`
	Balance  int64      `gorm:"not null;default:0"`                       // Current points, >= 0.
	Tier     string     `gorm:"type:varchar(16);not null;default:'Bronze'"` // Derived tier label.

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"` // Owner relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

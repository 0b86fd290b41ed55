package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OfferType is the kind of promotional offer.
type OfferType string

// OfferType values.
const (
	OfferMultiplier OfferType = "MULTIPLIER"
	OfferBonus      OfferType = "BONUS"
	OfferCoupon     OfferType = "COUPON"
)

// Offer is a tenant-scoped promotion surfaced to clients. Offers either
// apply to all clients or target a specific set via OfferTarget rows.
type Offer struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID    uint64    `gorm:"not null;index"` // Owning tenant.
	Title       string    `gorm:"type:varchar(160);not null"`
	Description string    `gorm:"type:text"`
	Type        OfferType `gorm:"type:varchar(16);not null;default:'BONUS'"`

	Multiplier  decimal.Decimal `gorm:"type:decimal(6,2);not null;default:1"`
	BonusPoints int64           `gorm:"not null;default:0"`

	ActiveFrom *time.Time
	ActiveTo   *time.Time
	// No column defaults on the bools: gorm skips zero-valued fields on
	// insert when a default tag is present, so false would never persist.
	IsActive bool `gorm:"not null"`

	AppliesToAll bool `gorm:"not null"` // False when targeted via OfferTarget rows.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// ActiveAt reports whether the offer window covers the given instant.
func (o *Offer) ActiveAt(now time.Time) bool {
	if !o.IsActive {
		return false
	}
	if o.ActiveFrom != nil && now.Before(*o.ActiveFrom) {
		return false
	}
	if o.ActiveTo != nil && now.After(*o.ActiveTo) {
		return false
	}
	return true
}

// OfferTarget binds a targeted offer to a single user.
type OfferTarget struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OfferID  uint64 `gorm:"not null;uniqueIndex:uniq_offer_target"`     // Targeted offer.
	UserID   uint64 `gorm:"not null;uniqueIndex:uniq_offer_target"`     // Targeted user.
	TenantID uint64 `gorm:"not null;index:idx_offer_targets_tenant_user"` // Owning tenant.

	Offer Offer `gorm:"foreignKey:OfferID;constraint:OnDelete:CASCADE"` // Offer relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

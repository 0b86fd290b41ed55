package models

import "time"

// Coupon is a redeemable voucher definition, code unique per tenant.
type Coupon struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID    uint64 `gorm:"not null;uniqueIndex:uniq_coupons_tenant_code"` // Owning tenant.
	Code        string `gorm:"type:varchar(32);not null;uniqueIndex:uniq_coupons_tenant_code"`
	Title       string `gorm:"type:varchar(160);not null"`
	Description string `gorm:"type:text"`

	ActiveFrom *time.Time
	ActiveTo   *time.Time

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// CouponStatus is the assignment lifecycle state.
type CouponStatus string

// CouponStatus values.
const (
	CouponUnused CouponStatus = "UNUSED"
	CouponUsed   CouponStatus = "USED"
)

// CouponAssignment hands a coupon to a specific card.
type CouponAssignment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID uint64       `gorm:"not null;index:idx_coupon_assign_tenant_status"` // Owning tenant.
	CardID   uint64       `gorm:"not null;index"`                                 // Receiving card.
	CouponID uint64       `gorm:"not null;index"`                                 // Assigned coupon.
	Status   CouponStatus `gorm:"type:varchar(8);not null;default:'UNUSED';index:idx_coupon_assign_tenant_status"`
	UsedAt   *time.Time

	Coupon Coupon `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"` // Coupon relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

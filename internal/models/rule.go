package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundingMode controls how fractional earned points are converted to
// integer points.
type RoundingMode string

// RoundingMode values.
const (
	// RoundFloor rounds toward negative infinity.
	RoundFloor RoundingMode = "FLOOR"
	// RoundHalf rounds half away from zero (commercial rounding).
	RoundHalf RoundingMode = "ROUND"
	// RoundCeil rounds toward positive infinity.
	RoundCeil RoundingMode = "CEIL"
)

// Rule governs earn percentage, rounding, the minimum qualifying amount and
// the tier thresholds. Scope is (tenant, location) or tenant-wide when
// LocationID is nil. A rule with AppliesToAll=false applies only to the
// users listed in its RuleTarget rows and overrides location/tenant
// defaults for exactly those users.
type Rule struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID   uint64  `gorm:"not null;index:idx_rules_tenant_location"` // Owning tenant.
	LocationID *uint64 `gorm:"index:idx_rules_tenant_location"`          // Location scope, nil = tenant-wide.

	EarnPercent  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:3"`  // Percent of amount earned.
	RoundingMode RoundingMode    `gorm:"type:varchar(8);not null;default:'FLOOR'"`
	MinAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Minimum qualifying purchase.

	BronzeThreshold int64 `gorm:"not null;default:0"`
	SilverThreshold int64 `gorm:"not null;default:500"`
	GoldThreshold   int64 `gorm:"not null;default:1500"`

	// No column default: gorm skips zero-valued fields on insert when a
	// default tag is present, which would store targeted rules as
	// applies-to-all.
	AppliesToAll bool `gorm:"not null"` // False when the rule targets specific users.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// RuleTarget binds a targeted rule to a single user.
type RuleTarget struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	RuleID   uint64 `gorm:"not null;uniqueIndex:uniq_rule_target;index"`      // Targeted rule.
	UserID   uint64 `gorm:"not null;uniqueIndex:uniq_rule_target;index"`      // Targeted user.
	TenantID uint64 `gorm:"not null;index:idx_rule_targets_tenant_user"`      // Owning tenant.

	Rule Rule `gorm:"foreignKey:RuleID;constraint:OnDelete:CASCADE"` // Rule relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

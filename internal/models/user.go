package models

import "time"

// Role identifies what a user may do within their tenant.
type Role string

// Role values.
const (
	// RoleClient is an end customer holding a loyalty card.
	RoleClient Role = "CLIENT"
	// RoleCashier is staff operating the scan/earn/redeem flow.
	RoleCashier Role = "CASHIER"
	// RoleAdmin manages staff, locations, rules and offers.
	RoleAdmin Role = "ADMIN"
)

// User is a tenant-scoped account. Email is unique per tenant, not globally.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID uint64 `gorm:"not null;uniqueIndex:uniq_users_tenant_email;index"` // Owning tenant.
	Email    string `gorm:"type:varchar(255);not null;uniqueIndex:uniq_users_tenant_email"`
	Phone    string `gorm:"type:varchar(32)"`

	PasswordHash  string `gorm:"type:varchar(128);not null"` // bcrypt hash.
	Role          Role   `gorm:"type:varchar(16);not null;default:'CLIENT'"`
	EmailVerified bool   `gorm:"not null;default:false"`
	PhoneVerified bool   `gorm:"not null;default:false"`

	// Phone OTP state. The code itself is never stored, only its hash.
	OTPHash        string `gorm:"type:varchar(128)"`
	OTPExpiresAt   *time.Time
	OTPRequestedAt *time.Time
	OTPAttempts    int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// OTPValid reports whether the given code hash matches a live OTP.
func (u *User) OTPValid(codeHash string, now time.Time) bool {
	if u.OTPHash == "" || u.OTPExpiresAt == nil {
		return false
	}
	if now.After(*u.OTPExpiresAt) {
		return false
	}
	return u.OTPHash == codeHash
}

// StaffProfile attaches staff metadata (home location, active flag) to a
// CASHIER or ADMIN user.
type StaffProfile struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID     uint64  `gorm:"not null;uniqueIndex"` // Staff user.
	TenantID   uint64  `gorm:"not null;index"`       // Owning tenant.
	LocationID *uint64 `gorm:"index"`                // Home location, if assigned.
	IsActive   bool    `gorm:"not null"` // No column default; see Rule.AppliesToAll.

	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"` // User relation.
	Location *Location `gorm:"foreignKey:LocationID"`                         // Location relation.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

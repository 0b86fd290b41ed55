package models

import "time"

// VerificationCode is an email verification challenge. The plaintext code is
// delivered out of band; only its hash is stored.
type VerificationCode struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID uint64 `gorm:"not null;index:idx_verif_tenant_user_used"` // Owning tenant.
	UserID   uint64 `gorm:"not null;index:idx_verif_tenant_user_used"` // Challenged user.
	CodeHash string `gorm:"type:varchar(128);not null"`

	ExpiresAt  time.Time `gorm:"not null"`
	Attempts   int       `gorm:"not null;default:0"`
	IsUsed     bool      `gorm:"not null;default:false;index:idx_verif_tenant_user_used"`
	LastSentAt *time.Time

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

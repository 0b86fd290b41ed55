package models

import "time"

// Tenant is the isolation boundary: every other entity belongs to exactly
// one tenant and no cross-tenant reads are permitted.
type Tenant struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Slug      string `gorm:"type:varchar(64);not null;uniqueIndex"` // URL-safe identifier.
	Name      string `gorm:"type:varchar(120);not null"`            // Display name.
	POSAPIKey string `gorm:"type:varchar(64)"`                      // Shared key for POS integrations.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

// OrgSettings holds per-tenant presentation settings.
type OrgSettings struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID   uint64 `gorm:"not null;uniqueIndex"`                       // Owning tenant.
	BrandColor string `gorm:"type:varchar(12);default:'#2d6a4f'"`         // Brand accent color.
	EmailFrom  string `gorm:"type:varchar(255)"`                          // Sender address for notifications.
	LogoURL    string `gorm:"type:varchar(512)"`                          // Logo location.
	Tenant     Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"` // Tenant relation.

	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

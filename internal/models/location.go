package models

import "time"

// Location is a physical point of sale within a tenant.
type Location struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID  uint64 `gorm:"not null;index"`             // Owning tenant.
	Name      string `gorm:"type:varchar(120);not null"` // Display name.
	Address   string `gorm:"type:varchar(255)"`          // Street address.
	POSAPIKey string `gorm:"type:varchar(64)"`           // Location-scoped POS key, overrides the tenant key.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}

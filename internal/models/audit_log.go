package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records one event for the tenant's audit trail. Rows are written
// asynchronously by the audit sink and never block the originating request.
type AuditLog struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	TenantID uint64            `gorm:"not null;index:idx_audit_tenant_created"` // Owning tenant.
	UserID   *uint64           `gorm:"index"`                                   // Acting user, if known.
	Action   string            `gorm:"type:varchar(64);not null"`               // Short action name.
	Metadata datatypes.JSONMap `gorm:"type:json"`                               // Free-form context.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_audit_tenant_created"` // Creation timestamp.
}

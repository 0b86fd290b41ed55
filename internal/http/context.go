package http

import (
	"github.com/gin-gonic/gin"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
)

// Context keys set by the middleware chain.
const (
	ctxTenant      = "tenant"
	ctxUser        = "sessionUser"
	ctxPOSLocation = "posLocationID"
)

// TenantFrom returns the tenant resolved by TenantMiddleware.
func TenantFrom(c *gin.Context) *models.Tenant {
	val, exists := c.Get(ctxTenant)
	if !exists {
		return nil
	}
	tenant, ok := val.(*models.Tenant)
	if !ok {
		return nil
	}
	return tenant
}

// TenantIDFrom returns the resolved tenant id, zero when unresolved.
func TenantIDFrom(c *gin.Context) uint64 {
	if tenant := TenantFrom(c); tenant != nil {
		return tenant.ID
	}
	return 0
}

// UserFrom returns the authenticated session user.
func UserFrom(c *gin.Context) *models.User {
	val, exists := c.Get(ctxUser)
	if !exists {
		return nil
	}
	user, ok := val.(*models.User)
	if !ok {
		return nil
	}
	return user
}

// UserIDFrom returns the authenticated user id, zero when anonymous.
func UserIDFrom(c *gin.Context) uint64 {
	if user := UserFrom(c); user != nil {
		return user.ID
	}
	return 0
}

// POSLocationFrom returns the location bound to the presented POS key, nil
// when the key is tenant-wide.
func POSLocationFrom(c *gin.Context) *uint64 {
	val, exists := c.Get(ctxPOSLocation)
	if !exists {
		return nil
	}
	id, ok := val.(uint64)
	if !ok {
		return nil
	}
	return &id
}

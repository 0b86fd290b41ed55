package db

import (
	"fmt"

	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for all loyalty entities.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.Tenant{},
		&models.OrgSettings{},
		&models.Location{},
		&models.User{},
		&models.StaffProfile{},
		&models.Card{},
		&models.QRToken{},
		&models.Rule{},
		&models.RuleTarget{},
		&models.Operation{},
		&models.Offer{},
		&models.OfferTarget{},
		&models.Coupon{},
		&models.CouponAssignment{},
		&models.VerificationCode{},
		&models.AuditLog{},
	)
}

package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Resolver selects the applicable earning rule for a (tenant, location,
// user) triple. Precedence is "most specific wins": a rule targeting the
// user beats the location default, which beats the tenant default. Ties at
// any level break by rule id descending so the latest edit wins even under
// concurrent admin changes.
type Resolver struct {
	db *gorm.DB
}

// NewResolver constructs a Resolver.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// strategy attempts one resolution level. Returning (nil, nil) means "no
// match here, try the next level".
type strategy func(ctx context.Context, tx *gorm.DB, tenantID uint64, locationID *uint64, userID uint64) (*models.Rule, error)

// Resolve runs the strategies in precedence order within the given
// transaction handle. When no rule exists at all, a tenant-wide default
// (3% earn, floor rounding) is synthesized and persisted so resolution is
// deterministic thereafter.
func (r *Resolver) Resolve(ctx context.Context, tx *gorm.DB, tenantID uint64, locationID *uint64, userID uint64) (*models.Rule, error) {
	if tx == nil {
		tx = r.db
	}
	strategies := []strategy{
		userTargetedRule,
		locationDefaultRule,
		tenantDefaultRule,
		synthesizeDefaultRule,
	}
	for _, resolve := range strategies {
		rule, err := resolve(ctx, tx, tenantID, locationID, userID)
		if err != nil {
			return nil, err
		}
		if rule != nil {
			return rule, nil
		}
	}
	return nil, fmt.Errorf("rules: no rule resolved for tenant %d", tenantID)
}

// userTargetedRule matches rules explicitly targeting this user, at any
// location. The most recently created such rule wins.
func userTargetedRule(ctx context.Context, tx *gorm.DB, tenantID uint64, _ *uint64, userID uint64) (*models.Rule, error) {
	if userID == 0 {
		return nil, nil
	}
	var rule models.Rule
	errFind := tx.WithContext(ctx).
		Joins("JOIN rule_targets ON rule_targets.rule_id = rules.id").
		Where("rules.tenant_id = ? AND rule_targets.user_id = ?", tenantID, userID).
		Order("rules.id DESC").
		First(&rule).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("rules: targeted lookup: %w", errFind)
	}
	return &rule, nil
}

// locationDefaultRule matches the "applies to all" rule for the location.
func locationDefaultRule(ctx context.Context, tx *gorm.DB, tenantID uint64, locationID *uint64, _ uint64) (*models.Rule, error) {
	if locationID == nil {
		return nil, nil
	}
	var rule models.Rule
	errFind := tx.WithContext(ctx).
		Where("tenant_id = ? AND location_id = ? AND applies_to_all = ?", tenantID, *locationID, true).
		Order("id DESC").
		First(&rule).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("rules: location lookup: %w", errFind)
	}
	return &rule, nil
}

// tenantDefaultRule matches the tenant-wide rule (location is null).
func tenantDefaultRule(ctx context.Context, tx *gorm.DB, tenantID uint64, _ *uint64, _ uint64) (*models.Rule, error) {
	var rule models.Rule
	errFind := tx.WithContext(ctx).
		Where("tenant_id = ? AND location_id IS NULL AND applies_to_all = ?", tenantID, true).
		Order("id DESC").
		First(&rule).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("rules: tenant lookup: %w", errFind)
	}
	return &rule, nil
}

// synthesizeDefaultRule persists the built-in tenant default on first use.
func synthesizeDefaultRule(ctx context.Context, tx *gorm.DB, tenantID uint64, _ *uint64, _ uint64) (*models.Rule, error) {
	rule := models.Rule{
		TenantID:        tenantID,
		EarnPercent:     decimal.NewFromInt(3),
		RoundingMode:    models.RoundFloor,
		MinAmount:       decimal.Zero,
		BronzeThreshold: 0,
		SilverThreshold: 500,
		GoldThreshold:   1500,
		AppliesToAll:    true,
	}
	if errCreate := tx.WithContext(ctx).Create(&rule).Error; errCreate != nil {
		return nil, fmt.Errorf("rules: synthesize default: %w", errCreate)
	}
	return &rule, nil
}

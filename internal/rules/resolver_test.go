package rules

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupResolverDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:rulesresolver_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.Rule{}, &models.RuleTarget{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func mustCreateRule(t *testing.T, db *gorm.DB, rule *models.Rule) *models.Rule {
	t.Helper()
	if errCreate := db.Create(rule).Error; errCreate != nil {
		t.Fatalf("create rule: %v", errCreate)
	}
	return rule
}

func TestResolveSynthesizesTenantDefault(t *testing.T) {
	db := setupResolverDB(t)
	resolver := NewResolver(db)

	rule, err := resolver.Resolve(context.Background(), nil, 1, nil, 10)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !rule.EarnPercent.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("synthesized earn percent = %s, want 3", rule.EarnPercent)
	}
	if rule.RoundingMode != models.RoundFloor {
		t.Fatalf("synthesized rounding = %s, want FLOOR", rule.RoundingMode)
	}

	// Resolution must be deterministic afterwards: same persisted row.
	again, err := resolver.Resolve(context.Background(), nil, 1, nil, 10)
	if err != nil {
		t.Fatalf("resolve again: %v", err)
	}
	if again.ID != rule.ID {
		t.Fatalf("second resolve returned rule %d, want %d", again.ID, rule.ID)
	}
}

func TestResolvePrecedence(t *testing.T) {
	db := setupResolverDB(t)
	resolver := NewResolver(db)
	locID := uint64(7)

	tenantDefault := mustCreateRule(t, db, &models.Rule{
		TenantID: 1, EarnPercent: decimal.NewFromInt(3), RoundingMode: models.RoundFloor, AppliesToAll: true,
	})
	locationDefault := mustCreateRule(t, db, &models.Rule{
		TenantID: 1, LocationID: &locID, EarnPercent: decimal.NewFromInt(5), RoundingMode: models.RoundFloor, AppliesToAll: true,
	})
	targeted := mustCreateRule(t, db, &models.Rule{
		TenantID: 1, EarnPercent: decimal.NewFromInt(10), RoundingMode: models.RoundCeil, AppliesToAll: false,
	})
	if errCreate := db.Create(&models.RuleTarget{RuleID: targeted.ID, UserID: 42, TenantID: 1}).Error; errCreate != nil {
		t.Fatalf("create target: %v", errCreate)
	}

	// Targeted user gets the targeted rule regardless of location.
	got, err := resolver.Resolve(context.Background(), nil, 1, &locID, 42)
	if err != nil {
		t.Fatalf("resolve targeted: %v", err)
	}
	if got.ID != targeted.ID {
		t.Fatalf("targeted user resolved rule %d, want %d", got.ID, targeted.ID)
	}

	// Untargeted user at the location gets the location default.
	got, err = resolver.Resolve(context.Background(), nil, 1, &locID, 43)
	if err != nil {
		t.Fatalf("resolve location: %v", err)
	}
	if got.ID != locationDefault.ID {
		t.Fatalf("location user resolved rule %d, want %d", got.ID, locationDefault.ID)
	}

	// No location falls back to the tenant default.
	got, err = resolver.Resolve(context.Background(), nil, 1, nil, 43)
	if err != nil {
		t.Fatalf("resolve tenant: %v", err)
	}
	if got.ID != tenantDefault.ID {
		t.Fatalf("tenant user resolved rule %d, want %d", got.ID, tenantDefault.ID)
	}
}

func TestTargetedRulePersistsScope(t *testing.T) {
	db := setupResolverDB(t)
	resolver := NewResolver(db)

	mustCreateRule(t, db, &models.Rule{
		TenantID: 1, EarnPercent: decimal.NewFromInt(3), RoundingMode: models.RoundFloor, AppliesToAll: true,
	})
	targeted := mustCreateRule(t, db, &models.Rule{
		TenantID: 1, EarnPercent: decimal.NewFromInt(10), RoundingMode: models.RoundCeil, AppliesToAll: false,
	})
	if errCreate := db.Create(&models.RuleTarget{RuleID: targeted.ID, UserID: 42, TenantID: 1}).Error; errCreate != nil {
		t.Fatalf("create target: %v", errCreate)
	}

	// The false scope flag must survive the insert; stored as true, the
	// targeted rule would shadow the tenant default for everyone.
	var stored models.Rule
	if errFind := db.First(&stored, targeted.ID).Error; errFind != nil {
		t.Fatalf("reload rule: %v", errFind)
	}
	if stored.AppliesToAll {
		t.Fatal("targeted rule stored as applies-to-all")
	}

	got, err := resolver.Resolve(context.Background(), nil, 1, nil, 99)
	if err != nil {
		t.Fatalf("resolve untargeted: %v", err)
	}
	if !got.EarnPercent.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("untargeted user earn percent = %s, want 3", got.EarnPercent)
	}
}

func TestResolveLatestTargetedRuleWins(t *testing.T) {
	db := setupResolverDB(t)
	resolver := NewResolver(db)

	older := mustCreateRule(t, db, &models.Rule{
		TenantID: 1, EarnPercent: decimal.NewFromInt(4), RoundingMode: models.RoundFloor, AppliesToAll: false,
	})
	newer := mustCreateRule(t, db, &models.Rule{
		TenantID: 1, EarnPercent: decimal.NewFromInt(8), RoundingMode: models.RoundFloor, AppliesToAll: false,
	})
	for _, ruleID := range []uint64{older.ID, newer.ID} {
		if errCreate := db.Create(&models.RuleTarget{RuleID: ruleID, UserID: 42, TenantID: 1}).Error; errCreate != nil {
			t.Fatalf("create target: %v", errCreate)
		}
	}

	got, err := resolver.Resolve(context.Background(), nil, 1, nil, 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != newer.ID {
		t.Fatalf("resolved rule %d, want latest %d", got.ID, newer.ID)
	}
}

func TestResolveIgnoresOtherTenants(t *testing.T) {
	db := setupResolverDB(t)
	resolver := NewResolver(db)

	mustCreateRule(t, db, &models.Rule{
		TenantID: 2, EarnPercent: decimal.NewFromInt(50), RoundingMode: models.RoundCeil, AppliesToAll: true,
	})

	got, err := resolver.Resolve(context.Background(), nil, 1, nil, 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.TenantID != 1 {
		t.Fatalf("resolved rule for tenant %d, want synthesized rule for tenant 1", got.TenantID)
	}
	if !got.EarnPercent.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("cross-tenant leak: earn percent %s", got.EarnPercent)
	}
}

package qrtoken

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"gorm.io/gorm"
)

func setupTokenDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:qrtoken_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := db.AutoMigrate(&models.User{}, &models.Card{}, &models.QRToken{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return db
}

func seedCard(t *testing.T, db *gorm.DB, status models.CardStatus) *models.Card {
	t.Helper()
	user := models.User{TenantID: 1, Email: "client@example.com", PasswordHash: "x"}
	if errCreate := db.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	card := models.Card{TenantID: 1, UserID: user.ID, Status: status, Tier: models.TierBronze}
	if errCreate := db.Create(&card).Error; errCreate != nil {
		t.Fatalf("create card: %v", errCreate)
	}
	return &card
}

func TestIssueAndValidate(t *testing.T) {
	db := setupTokenDB(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(db, func() time.Time { return now })
	card := seedCard(t, db, models.CardActive)

	issued, err := svc.Issue(context.Background(), card)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(issued.Token) != 64 {
		t.Fatalf("token length = %d, want 64", len(issued.Token))
	}
	if got := issued.ExpiresAt.Sub(now); got != TokenTTL {
		t.Fatalf("ttl = %s, want %s", got, TokenTTL)
	}

	qr, err := svc.ValidateAndLock(context.Background(), db, 1, issued.Token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if qr.CardID != card.ID {
		t.Fatalf("validated card %d, want %d", qr.CardID, card.ID)
	}
}

func TestValidateFailures(t *testing.T) {
	db := setupTokenDB(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(db, func() time.Time { return now })
	card := seedCard(t, db, models.CardActive)

	if _, err := svc.ValidateAndLock(context.Background(), db, 1, "missing"); err != ErrNotFound {
		t.Fatalf("missing token: err = %v, want ErrNotFound", err)
	}

	issued, err := svc.Issue(context.Background(), card)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Tenant scoping: another tenant must not see the token.
	if _, err := svc.ValidateAndLock(context.Background(), db, 2, issued.Token); err != ErrNotFound {
		t.Fatalf("cross-tenant token: err = %v, want ErrNotFound", err)
	}

	now = now.Add(TokenTTL + time.Second)
	if _, err := svc.ValidateAndLock(context.Background(), db, 1, issued.Token); err != ErrExpired {
		t.Fatalf("expired token: err = %v, want ErrExpired", err)
	}
}

func TestMarkUsedIsSingleShot(t *testing.T) {
	db := setupTokenDB(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(db, func() time.Time { return now })
	card := seedCard(t, db, models.CardActive)

	issued, err := svc.Issue(context.Background(), card)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if errUse := svc.MarkUsed(context.Background(), db, issued); errUse != nil {
		t.Fatalf("first mark used: %v", errUse)
	}
	if errUse := svc.MarkUsed(context.Background(), db, issued); errUse != ErrUsed {
		t.Fatalf("second mark used: err = %v, want ErrUsed", errUse)
	}
	if _, errValidate := svc.ValidateAndLock(context.Background(), db, 1, issued.Token); errValidate != ErrUsed {
		t.Fatalf("validate used token: err = %v, want ErrUsed", errValidate)
	}
}

func TestValidateBlockedCard(t *testing.T) {
	db := setupTokenDB(t)
	svc := NewService(db)
	card := seedCard(t, db, models.CardBlocked)

	issued, err := svc.Issue(context.Background(), card)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.ValidateAndLock(context.Background(), db, 1, issued.Token); err != ErrCardBlocked {
		t.Fatalf("blocked card: err = %v, want ErrCardBlocked", err)
	}
}

func TestSweeperDeletesExpiredUnused(t *testing.T) {
	db := setupTokenDB(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewServiceWithClock(db, func() time.Time { return now })
	card := seedCard(t, db, models.CardActive)

	stale, err := svc.Issue(context.Background(), card)
	if err != nil {
		t.Fatalf("issue stale: %v", err)
	}
	used, err := svc.Issue(context.Background(), card)
	if err != nil {
		t.Fatalf("issue used: %v", err)
	}
	if errUse := svc.MarkUsed(context.Background(), db, used); errUse != nil {
		t.Fatalf("mark used: %v", errUse)
	}

	sweeper := NewSweeper(db)
	sweeper.now = func() time.Time { return now.Add(TokenTTL + sweepGrace + time.Minute) }
	deleted, errSweep := sweeper.SweepOnce(context.Background())
	if errSweep != nil {
		t.Fatalf("sweep: %v", errSweep)
	}
	if deleted != 1 {
		t.Fatalf("deleted %d tokens, want 1", deleted)
	}

	var count int64
	if errCount := db.Model(&models.QRToken{}).Where("id = ?", stale.ID).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatal("stale token not deleted")
	}
	if errCount := db.Model(&models.QRToken{}).Where("id = ?", used.ID).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatal("used token must be kept for audit")
	}
}

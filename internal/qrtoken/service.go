// Package qrtoken issues and consumes the single-use QR credentials that
// bind a scan to a loyalty card.
package qrtoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/security"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenTTL is the lifetime of an issued QR token. Short by design: the
// payload is displayed on the client's screen and scanned immediately.
const TokenTTL = 10 * time.Second

// Validation errors, mapped to wire reason codes by the callers.
var (
	// ErrNotFound means no such token exists for the tenant.
	ErrNotFound = errors.New("qr token not found")
	// ErrExpired means the token is past its expiry.
	ErrExpired = errors.New("qr token expired")
	// ErrUsed means the token was already consumed.
	ErrUsed = errors.New("qr token already used")
	// ErrCardBlocked means the bound card does not accept operations.
	ErrCardBlocked = errors.New("card blocked")
)

// Service manages the QR token lifecycle.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService constructs a Service with the real clock.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// NewServiceWithClock constructs a Service with a custom clock for tests.
func NewServiceWithClock(db *gorm.DB, now func() time.Time) *Service {
	return &Service{db: db, now: now}
}

// Issue creates a fresh NOT-USED token bound to the card.
func (s *Service) Issue(ctx context.Context, card *models.Card) (*models.QRToken, error) {
	payload, err := security.GenerateOpaqueToken()
	if err != nil {
		return nil, err
	}
	token := models.QRToken{
		TenantID:  card.TenantID,
		CardID:    card.ID,
		Token:     payload,
		ExpiresAt: s.now().Add(TokenTTL),
	}
	if errCreate := s.db.WithContext(ctx).Create(&token).Error; errCreate != nil {
		return nil, fmt.Errorf("qrtoken: issue: %w", errCreate)
	}
	return &token, nil
}

// ValidateAndLock looks up the token within the caller's transaction,
// holding its row (and the bound card's row) locked until the transaction
// ends. The token is NOT marked used here; the caller marks it only after
// the ledger mutation is ready to commit.
func (s *Service) ValidateAndLock(ctx context.Context, tx *gorm.DB, tenantID uint64, token string) (*models.QRToken, error) {
	var qr models.QRToken
	errFind := tx.WithContext(ctx).
		Clauses(rowLock(tx)...).
		Where("tenant_id = ? AND token = ?", tenantID, token).
		First(&qr).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("qrtoken: lookup: %w", errFind)
	}

	if s.now().After(qr.ExpiresAt) {
		return nil, ErrExpired
	}
	if qr.UsedAt != nil {
		return nil, ErrUsed
	}

	var card models.Card
	if errCard := tx.WithContext(ctx).
		Clauses(rowLock(tx)...).
		First(&card, qr.CardID).Error; errCard != nil {
		return nil, fmt.Errorf("qrtoken: load card: %w", errCard)
	}
	if card.Status != models.CardActive {
		return nil, ErrCardBlocked
	}
	qr.Card = card
	return &qr, nil
}

// Validate performs the same checks without taking locks, for the staff
// pre-scan preview endpoint.
func (s *Service) Validate(ctx context.Context, tenantID uint64, token string) (*models.QRToken, error) {
	var qr models.QRToken
	errFind := s.db.WithContext(ctx).
		Preload("Card").
		Preload("Card.User").
		Where("tenant_id = ? AND token = ?", tenantID, token).
		First(&qr).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("qrtoken: lookup: %w", errFind)
	}
	if s.now().After(qr.ExpiresAt) {
		return nil, ErrExpired
	}
	if qr.UsedAt != nil {
		return nil, ErrUsed
	}
	if qr.Card.Status != models.CardActive {
		return nil, ErrCardBlocked
	}
	return &qr, nil
}

// MarkUsed consumes the token within the caller's transaction. A token
// transitions NOT-USED -> USED exactly once; the guard on used_at makes the
// update a no-op if another transaction won the race.
func (s *Service) MarkUsed(ctx context.Context, tx *gorm.DB, qr *models.QRToken) error {
	usedAt := s.now()
	res := tx.WithContext(ctx).
		Model(&models.QRToken{}).
		Where("id = ? AND used_at IS NULL", qr.ID).
		Update("used_at", usedAt)
	if res.Error != nil {
		return fmt.Errorf("qrtoken: mark used: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUsed
	}
	qr.UsedAt = &usedAt
	return nil
}

// rowLock returns SELECT ... FOR UPDATE on engines that support it. SQLite
// serializes writers with its own database lock, so no clause is needed.
func rowLock(tx *gorm.DB) []clause.Expression {
	if tx != nil && tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return nil
	}
	return []clause.Expression{clause.Locking{Strength: "UPDATE"}}
}

// Package ledger is the transactional core: it turns validated scan requests
// into balance mutations and an append-only operation log. Every mutation for
// a card runs under that card's exclusive lock, inside a single database
// transaction, so concurrent earns, redeems and refunds serialize cleanly.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/loyaltyworks/loyaltyhub/internal/audit"
	"github.com/loyaltyworks/loyaltyhub/internal/models"
	"github.com/loyaltyworks/loyaltyhub/internal/qrtoken"
	"github.com/loyaltyworks/loyaltyhub/internal/ratelimit"
	"github.com/loyaltyworks/loyaltyhub/internal/rules"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultLockTimeout = 3 * time.Second

// errRejected signals a business rejection out of the transaction closure.
// It always rolls the transaction back; paths that must persist a FAILED row
// commit instead and carry the code in the result.
var errRejected = errors.New("ledger: rejected")

// Config carries the engine's operational ceilings and clock context.
type Config struct {
	// MaxEarnPerDayPerCard caps SUCCESS earn points per card per reporting
	// day. Zero disables the ceiling.
	MaxEarnPerDayPerCard int64
	// MaxOpsPerHourPerStaff caps operation attempts per staff member per
	// hour. Zero disables the ceiling.
	MaxOpsPerHourPerStaff int64
	// ReportingLocation anchors the daily earn window. Defaults to UTC.
	ReportingLocation *time.Location
	// LockTimeout bounds the wait for a contended card lock.
	LockTimeout time.Duration
}

// Engine executes earn, redeem and refund operations.
type Engine struct {
	db       *gorm.DB
	tokens   *qrtoken.Service
	resolver *rules.Resolver
	limiter  ratelimit.Limiter
	sink     *audit.Sink
	cfg      Config
	locks    *cardLocks
	now      func() time.Time
}

// NewEngine constructs an Engine. The sink may be nil when auditing is off.
func NewEngine(db *gorm.DB, tokens *qrtoken.Service, resolver *rules.Resolver, limiter ratelimit.Limiter, sink *audit.Sink, cfg Config) *Engine {
	if cfg.ReportingLocation == nil {
		cfg.ReportingLocation = time.UTC
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	return &Engine{
		db:       db,
		tokens:   tokens,
		resolver: resolver,
		limiter:  limiter,
		sink:     sink,
		cfg:      cfg,
		locks:    newCardLocks(),
		now:      time.Now,
	}
}

// Request is one earn or redeem attempt.
type Request struct {
	TenantID       uint64
	Type           models.OperationType
	Source         models.OperationSource
	Token          string
	Amount         decimal.Decimal
	IdempotencyKey string
	ReceiptID      string
	LocationID     *uint64
	StaffID        *uint64
}

// RefundRequest reverses a prior successful operation located by receipt.
type RefundRequest struct {
	TenantID       uint64
	ReceiptID      string
	IdempotencyKey string
	Source         models.OperationSource
	StaffID        *uint64
	LocationID     *uint64
}

// EarnOrRedeem runs the full pipeline for a scanned QR token: idempotency
// replay, token validation, ceiling checks, rule resolution, rounding and
// the atomic balance mutation. A returned error is infrastructure trouble;
// every business outcome, rejection included, arrives as a Result code.
func (e *Engine) EarnOrRedeem(ctx context.Context, req Request) (*Result, error) {
	if req.Type != models.OpEarn && req.Type != models.OpRedeem {
		return nil, fmt.Errorf("ledger: unsupported operation type %q", req.Type)
	}
	if !req.Amount.IsPositive() {
		return &Result{Code: CodeInvalidAmount}, nil
	}
	if req.Source != models.SourcePOS && req.IdempotencyKey == "" {
		return &Result{Code: CodeIdempotencyRequired}, nil
	}

	// Idempotency replay happens before anything else: a duplicate submit
	// must get the stored outcome verbatim, whatever state the token or
	// card is in by now.
	if req.IdempotencyKey != "" {
		if op, err := e.findByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey); err != nil {
			return nil, err
		} else if op != nil {
			return replayResult(op), nil
		}
	}
	// POS integrations dedup by receipt: the terminal retries with the same
	// receipt id rather than an idempotency key.
	if req.Source == models.SourcePOS && req.ReceiptID != "" {
		if op, err := e.findPOSReceipt(ctx, req.TenantID, req.ReceiptID); err != nil {
			return nil, err
		} else if op != nil {
			return replayResult(op), nil
		}
	}

	// Pre-read the token outside the transaction to learn which card lock
	// to take. The authoritative validation re-reads it under lock.
	var probe models.QRToken
	if errFind := e.db.WithContext(ctx).
		Where("tenant_id = ? AND token = ?", req.TenantID, req.Token).
		First(&probe).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return &Result{Code: CodeQRNotFound}, nil
		}
		return nil, fmt.Errorf("ledger: token probe: %w", errFind)
	}

	release, ok := e.locks.acquire(ctx, probe.CardID, e.cfg.LockTimeout)
	if !ok {
		return &Result{Code: CodeCardBusy}, nil
	}
	defer release()

	res := &Result{Code: CodeOK}
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		qr, errTok := e.tokens.ValidateAndLock(ctx, tx, req.TenantID, req.Token)
		if errTok != nil {
			code, known := tokenCode(errTok)
			if !known {
				return errTok
			}
			res.Code = code
			return errRejected
		}
		card := qr.Card
		res.Balance = card.Balance

		if req.Type == models.OpEarn && e.cfg.MaxEarnPerDayPerCard > 0 {
			earned, errSum := e.earnedToday(ctx, tx, card.ID)
			if errSum != nil {
				return errSum
			}
			if earned >= e.cfg.MaxEarnPerDayPerCard {
				return e.recordRejection(ctx, tx, newOperation(req, card.ID), res, CodeMaxEarnPerDay)
			}
		}
		if req.StaffID != nil && e.limiter != nil && e.cfg.MaxOpsPerHourPerStaff > 0 {
			key := ratelimit.Key("ops", "staff", strconv.FormatUint(req.TenantID, 10), strconv.FormatUint(*req.StaffID, 10))
			limited, errLimit := e.limiter.CheckAndIncrement(ctx, key, e.cfg.MaxOpsPerHourPerStaff)
			if errLimit != nil {
				return errLimit
			}
			if limited {
				return e.recordRejection(ctx, tx, newOperation(req, card.ID), res, CodeMaxOpsPerHour)
			}
		}

		rule, errRule := e.resolver.Resolve(ctx, tx, req.TenantID, req.LocationID, card.UserID)
		if errRule != nil {
			return errRule
		}

		var points int64
		if req.Type == models.OpEarn {
			if req.Amount.LessThan(rule.MinAmount) {
				// Never a qualifying attempt: no FAILED row.
				res.Code = CodeMinAmountNotMet
				return errRejected
			}
			points = rules.EarnPoints(req.Amount, rule.EarnPercent, rule.RoundingMode)
			res.Balance = card.Balance + points
		} else {
			points = rules.RedeemPoints(req.Amount)
			if points > card.Balance {
				return e.recordRejection(ctx, tx, newOperation(req, card.ID), res, CodeInsufficientPoints)
			}
			res.Balance = card.Balance - points
		}
		res.Points = points

		if errApply := e.applyBalance(ctx, tx, card.ID, res.Balance, rule); errApply != nil {
			return errApply
		}
		if errUse := e.tokens.MarkUsed(ctx, tx, qr); errUse != nil {
			return errUse
		}

		op := newOperation(req, card.ID)
		op.Points = points
		op.BalanceAfter = res.Balance
		if errCreate := tx.Create(op).Error; errCreate != nil {
			return fmt.Errorf("ledger: record operation: %w", errCreate)
		}
		return nil
	})

	switch {
	case errTx == nil:
	case errors.Is(errTx, errRejected):
		return res, nil
	case isUniqueViolation(errTx) && req.IdempotencyKey != "":
		// Lost an idempotency race at commit; the winner's row is the
		// authoritative outcome.
		op, errFind := e.findByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey)
		if errFind != nil || op == nil {
			return nil, errTx
		}
		return replayResult(op), nil
	default:
		return nil, errTx
	}

	if res.OK() {
		e.emitAudit(req.TenantID, req.StaffID, strings.ToLower(string(req.Type)), map[string]any{
			"points":  res.Points,
			"balance": res.Balance,
			"source":  string(req.Source),
			"receipt": req.ReceiptID,
		})
	}
	return res, nil
}

// Refund reverses the most recent successful earn or redeem recorded under
// the receipt. Each receipt refunds at most once; the reversal restores the
// exact point delta of the original, whatever rule is in force today.
func (e *Engine) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	if req.IdempotencyKey == "" {
		return &Result{Code: CodeIdempotencyRequired}, nil
	}
	if req.ReceiptID == "" {
		return &Result{Code: CodeReceiptNotFound}, nil
	}
	if op, err := e.findByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey); err != nil {
		return nil, err
	} else if op != nil {
		return replayResult(op), nil
	}

	var original models.Operation
	errFind := e.db.WithContext(ctx).
		Where("tenant_id = ? AND receipt_id = ? AND status = ? AND type IN ?",
			req.TenantID, req.ReceiptID, models.OpSuccess,
			[]models.OperationType{models.OpEarn, models.OpRedeem}).
		Order("id DESC").
		First(&original).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return &Result{Code: CodeReceiptNotFound}, nil
		}
		return nil, fmt.Errorf("ledger: locate receipt: %w", errFind)
	}

	release, ok := e.locks.acquire(ctx, original.CardID, e.cfg.LockTimeout)
	if !ok {
		return &Result{Code: CodeCardBusy}, nil
	}
	defer release()

	locationID := req.LocationID
	if locationID == nil {
		locationID = original.LocationID
	}

	res := &Result{Code: CodeOK}
	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Refunds correct history, so a blocked card does not stop them;
		// only the single-shot and non-negative invariants apply.
		var card models.Card
		if errCard := tx.WithContext(ctx).
			Clauses(rowLock(tx)...).
			First(&card, original.CardID).Error; errCard != nil {
			return fmt.Errorf("ledger: load card: %w", errCard)
		}
		res.Balance = card.Balance

		// Re-checked under the card lock: two concurrent refunds of the
		// same receipt serialize here and the loser sees the winner's row.
		var refunded int64
		if errCount := tx.Model(&models.Operation{}).
			Where("original_operation_id = ? AND status = ?", original.ID, models.OpSuccess).
			Count(&refunded).Error; errCount != nil {
			return fmt.Errorf("ledger: refund check: %w", errCount)
		}
		if refunded > 0 {
			res.Code = CodeAlreadyRefunded
			return errRejected
		}

		var newBalance int64
		if original.Type == models.OpEarn {
			if card.Balance < original.Points {
				// The earned points were already spent.
				res.Code = CodeInsufficientPoints
				return errRejected
			}
			newBalance = card.Balance - original.Points
		} else {
			newBalance = card.Balance + original.Points
		}

		rule, errRule := e.resolver.Resolve(ctx, tx, req.TenantID, locationID, card.UserID)
		if errRule != nil {
			return errRule
		}
		if errApply := e.applyBalance(ctx, tx, card.ID, newBalance, rule); errApply != nil {
			return errApply
		}

		op := &models.Operation{
			TenantID:            req.TenantID,
			CardID:              card.ID,
			Type:                models.OpRefund,
			Source:              req.Source,
			Status:              models.OpSuccess,
			Amount:              original.Amount,
			Points:              original.Points,
			BalanceAfter:        newBalance,
			ReceiptID:           &req.ReceiptID,
			IdempotencyKey:      &req.IdempotencyKey,
			OriginalOperationID: &original.ID,
			StaffID:             req.StaffID,
			LocationID:          locationID,
			Metadata:            map[string]any{"refunded_type": string(original.Type)},
		}
		if errCreate := tx.Create(op).Error; errCreate != nil {
			return fmt.Errorf("ledger: record refund: %w", errCreate)
		}
		res.Points = original.Points
		res.Balance = newBalance
		return nil
	})

	switch {
	case errTx == nil:
	case errors.Is(errTx, errRejected):
		return res, nil
	case isUniqueViolation(errTx):
		op, errFind := e.findByIdempotencyKey(ctx, req.TenantID, req.IdempotencyKey)
		if errFind != nil || op == nil {
			return nil, errTx
		}
		return replayResult(op), nil
	default:
		return nil, errTx
	}

	e.emitAudit(req.TenantID, req.StaffID, "refund", map[string]any{
		"points":   res.Points,
		"balance":  res.Balance,
		"receipt":  req.ReceiptID,
		"original": original.ID,
	})
	return res, nil
}

// applyBalance writes the new balance and the tier it implies.
func (e *Engine) applyBalance(ctx context.Context, tx *gorm.DB, cardID uint64, balance int64, rule *models.Rule) error {
	errUpdate := tx.WithContext(ctx).
		Model(&models.Card{}).
		Where("id = ?", cardID).
		Updates(map[string]any{
			"balance": balance,
			"tier":    rules.TierFor(balance, rule),
		}).Error
	if errUpdate != nil {
		return fmt.Errorf("ledger: update card: %w", errUpdate)
	}
	return nil
}

// earnedToday sums SUCCESS earn points for the card since midnight in the
// reporting timezone.
func (e *Engine) earnedToday(ctx context.Context, tx *gorm.DB, cardID uint64) (int64, error) {
	now := e.now().In(e.cfg.ReportingLocation)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.cfg.ReportingLocation)
	var earned int64
	errSum := tx.WithContext(ctx).
		Model(&models.Operation{}).
		Where("card_id = ? AND type = ? AND status = ? AND created_at >= ?",
			cardID, models.OpEarn, models.OpSuccess, start).
		Select("COALESCE(SUM(points), 0)").
		Scan(&earned).Error
	if errSum != nil {
		return 0, fmt.Errorf("ledger: sum daily earn: %w", errSum)
	}
	return earned, nil
}

// recordRejection commits a FAILED operation row and carries the code out
// through the result. Returning nil commits the surrounding transaction.
// The row snapshots the untouched balance so an idempotent replay returns
// the same outcome the original attempt saw.
func (e *Engine) recordRejection(ctx context.Context, tx *gorm.DB, op *models.Operation, res *Result, code Code) error {
	op.Status = models.OpFailed
	op.FailReason = string(code)
	op.BalanceAfter = res.Balance
	if errCreate := tx.WithContext(ctx).Create(op).Error; errCreate != nil {
		return fmt.Errorf("ledger: record rejection: %w", errCreate)
	}
	res.Code = code
	return nil
}

func (e *Engine) findByIdempotencyKey(ctx context.Context, tenantID uint64, key string) (*models.Operation, error) {
	var op models.Operation
	errFind := e.db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&op).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: idempotency lookup: %w", errFind)
	}
	return &op, nil
}

func (e *Engine) findPOSReceipt(ctx context.Context, tenantID uint64, receiptID string) (*models.Operation, error) {
	var op models.Operation
	errFind := e.db.WithContext(ctx).
		Where("tenant_id = ? AND receipt_id = ? AND source = ?", tenantID, receiptID, models.SourcePOS).
		Order("id DESC").
		First(&op).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: receipt lookup: %w", errFind)
	}
	return &op, nil
}

func (e *Engine) emitAudit(tenantID uint64, userID *uint64, action string, metadata map[string]any) {
	if e.sink == nil {
		return
	}
	e.sink.Emit(audit.Event{TenantID: tenantID, UserID: userID, Action: action, Metadata: metadata})
}

// newOperation builds the common fields of an operation row for req.
func newOperation(req Request, cardID uint64) *models.Operation {
	op := &models.Operation{
		TenantID:   req.TenantID,
		CardID:     cardID,
		Type:       req.Type,
		Source:     req.Source,
		Status:     models.OpSuccess,
		Amount:     req.Amount,
		StaffID:    req.StaffID,
		LocationID: req.LocationID,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		op.IdempotencyKey = &key
	}
	if req.ReceiptID != "" {
		receipt := req.ReceiptID
		op.ReceiptID = &receipt
	}
	return op
}

// replayResult reconstructs the original outcome from its stored row.
func replayResult(op *models.Operation) *Result {
	res := &Result{
		Code:     CodeOK,
		Points:   op.Points,
		Balance:  op.BalanceAfter,
		Replayed: true,
	}
	if op.Status == models.OpFailed {
		res.Code = Code(op.FailReason)
	}
	return res
}

func tokenCode(err error) (Code, bool) {
	switch {
	case errors.Is(err, qrtoken.ErrNotFound):
		return CodeQRNotFound, true
	case errors.Is(err, qrtoken.ErrExpired):
		return CodeQRExpired, true
	case errors.Is(err, qrtoken.ErrUsed):
		return CodeQRUsed, true
	case errors.Is(err, qrtoken.ErrCardBlocked):
		return CodeCardBlocked, true
	}
	return "", false
}

// isUniqueViolation recognizes unique-constraint failures from both engines.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// rowLock returns SELECT ... FOR UPDATE on engines that support it. SQLite
// serializes writers with its own database lock, so no clause is needed.
func rowLock(tx *gorm.DB) []clause.Expression {
	if tx != nil && tx.Dialector != nil && tx.Dialector.Name() == "sqlite" {
		return nil
	}
	return []clause.Expression{clause.Locking{Strength: "UPDATE"}}
}

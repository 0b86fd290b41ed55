package ledger

// Code is a stable machine-readable outcome for a ledger attempt. Codes are
// the wire contract with staff and POS clients; internals never leak.
type Code string

// Outcome codes.
const (
	// CodeOK is the success outcome.
	CodeOK Code = "OK"

	// Token-stage failures. Not persisted as operations: the token was
	// never legitimately tied to an accepted attempt, and a retry with a
	// fresh token is safe.
	CodeQRNotFound  Code = "QR_NOT_FOUND"
	CodeQRExpired   Code = "QR_EXPIRED"
	CodeQRUsed      Code = "QR_USED"
	CodeCardBlocked Code = "CARD_BLOCKED"

	// Validation failures, caught before any store access.
	CodeIdempotencyRequired Code = "IDEMPOTENCY_REQUIRED"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"

	// Pre-validation rejection: the amount never qualified, nothing to audit.
	CodeMinAmountNotMet Code = "MIN_AMOUNT_NOT_MET"

	// Policy rejections persisted as FAILED operations: legitimate attempts
	// against a real card that must stay auditable.
	CodeInsufficientPoints Code = "INSUFFICIENT_POINTS"
	CodeMaxEarnPerDay      Code = "MAX_EARN_PER_DAY_REACHED"
	CodeMaxOpsPerHour      Code = "MAX_OPS_PER_HOUR_REACHED"

	// Refund preconditions.
	CodeReceiptNotFound Code = "RECEIPT_NOT_FOUND"
	CodeAlreadyRefunded Code = "ALREADY_REFUNDED"

	// CodeCardBusy means the per-card lock could not be acquired in time.
	// Retryable: the card is serializing another operation.
	CodeCardBusy Code = "CARD_BUSY"
)

// Result is the outcome of one ledger attempt. Code is CodeOK on success;
// any other value is a business rejection, with Points/Balance meaningful
// only where the code implies them.
type Result struct {
	Code     Code  `json:"code"`
	Points   int64 `json:"points"`
	Balance  int64 `json:"balance"`
	Replayed bool  `json:"-"`
}

// OK reports whether the attempt succeeded.
func (r *Result) OK() bool { return r.Code == CodeOK }
